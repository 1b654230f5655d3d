package tables

import "github.com/apache/arrow/go/v18/arrow"

const (
	comment = "comment"
	source  = "source"
)

// MetadataBuilder is a convenience type to aid readability of code that
// specifies metadata for Arrow fields and schemas.
type MetadataBuilder struct {
	keys   []string
	values []string
}

func NewMetadataBuilder() *MetadataBuilder {
	return &MetadataBuilder{}
}

func (b *MetadataBuilder) Add(key, value string) *MetadataBuilder {
	b.keys = append(b.keys, key)
	b.values = append(b.values, value)
	return b
}

// AddIf adds the pair only when value is non-empty.
func (b *MetadataBuilder) AddIf(key, value string) *MetadataBuilder {
	if value == "" {
		return b
	}
	return b.Add(key, value)
}

// Build constructs and returns the arrow.Metadata.
func (b *MetadataBuilder) Build() arrow.Metadata {
	return arrow.NewMetadata(b.keys, b.values)
}

// BuildReference returns nil when nothing was added so schemas without
// metadata stay comparable to ones read back from disk.
func (b *MetadataBuilder) BuildReference() *arrow.Metadata {
	if len(b.keys) == 0 {
		return nil
	}
	result := b.Build()
	return &result
}
