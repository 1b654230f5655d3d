package keywords

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatcher_Extract(t *testing.T) {
	m := NewMatcher([]string{"cancer", "breast cancer", "cancers", "therapy", ""})

	got := m.Extract("breast cancer therapy; cancers and cancer-therapy, precancer")

	assert.Equal(t, []string{"breast cancer", "therapy", "cancers", "cancer", "therapy"}, got)
	assert.Equal(t, 4, m.Size())
}

func TestMatcher_WordBoundaries(t *testing.T) {
	m := NewMatcher([]string{"rna", "mrna"})

	assert.Equal(t, []string{"mrna", "rna", "rna"}, m.Extract("mrna (rna) trna rna2 rna"))
	assert.Empty(t, m.Extract("trna mrnas rna_seq"))
}

func TestMatcher_Empty(t *testing.T) {
	assert.Nil(t, NewMatcher(nil).Extract("anything at all"))
	assert.Nil(t, NewMatcher([]string{"x"}).Extract(""))
}
