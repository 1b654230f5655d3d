package report

import (
	"time"

	"github.com/willbeason/nih-exporter/pkg/tables"
)

// LoadSummary describes the files read from one category folder.
type LoadSummary struct {
	Result
	Folder      string        `json:"folder"`
	FileCount   int           `json:"file_count"`
	TotalRows   int           `json:"total_raw_rows"`
	TotalBytes  int64         `json:"total_bytes"`
	TotalMemory string        `json:"total_memory"`
	Files       []FileSummary `json:"files"`
}

type FileSummary struct {
	Result
	Name         string `json:"name"`
	Path         string `json:"path"`
	Parts        int    `json:"parts,omitempty"`
	Rows         int    `json:"rows"`
	Columns      int    `json:"columns"`
	Bytes        int64  `json:"bytes"`
	Fingerprint  string `json:"blake2b,omitempty"`
	SkippedLines int    `json:"skipped_lines"`
}

// AppendSummary describes the concatenation of one category's files.
type AppendSummary struct {
	Result
	Folder                 string   `json:"folder"`
	NumFiles               int      `json:"num_files"`
	UnexpectedColumns      []string `json:"unexpected_columns"`
	UnexpectedColumnsAdded int      `json:"unexpected_columns_added"`
	Skipped                bool     `json:"skipped_due_to_mismatch"`
	TotalRows              int      `json:"total_rows"`
	TotalColumns           int      `json:"total_columns"`
}

// DuplicateStats counts exact duplicates under one equality rule.
type DuplicateStats struct {
	UniqueDuplicateRows int `json:"unique_duplicate_rows"`
	TotalDuplicates     int `json:"total_duplicates"`
	ExtraDuplicates     int `json:"extra_duplicates"`
}

type LinkChange struct {
	RowsAdded int `json:"rows_added"`
	ColsAdded int `json:"cols_added"`
}

// LinkSummary describes one left join between two categories.
type LinkSummary struct {
	Result
	Left         string                  `json:"left"`
	Right        string                  `json:"right"`
	On           string                  `json:"on"`
	SourceShapes map[string]tables.Shape `json:"source_shapes,omitempty"`
	MergedShape  tables.Shape            `json:"merged_shape"`
	Changes      LinkChange              `json:"change_from_merge"`
}

// OutcomeSummary describes one outcome count column.
type OutcomeSummary struct {
	Result
	Category           string `json:"category"`
	EntityColumn       string `json:"entity_column"`
	OutcomeColumn      string `json:"outcome_column"`
	RowsCounted        int    `json:"rows_counted"`
	NullKeyRows        int    `json:"null_key_rows"`
	EntitiesWithCounts int    `json:"entities_with_outcomes"`
	DuplicateStats
}

// AggregateSummary is keyed by count column label.
type AggregateSummary struct {
	Result
	Outcomes map[string]OutcomeSummary `json:"aggregate_outcomes"`
}

type TermCount struct {
	Term  string `json:"term"`
	Count int    `json:"count"`
}

// KeywordsSummary describes the prepared keyword pools.
type KeywordsSummary struct {
	Result
	TreatmentSeeds   int      `json:"treatment_seed_count"`
	DiseaseSeeds     int      `json:"disease_seed_count"`
	TreatmentCount   int      `json:"treatment_count"`
	DiseaseCount     int      `json:"disease_count"`
	StopwordsRemoved bool     `json:"stopwords_removed"`
	Treatment        []string `json:"treatment"`
	Disease          []string `json:"disease"`
}

// EnrichmentSummary describes one keyword enrichment pass.
type EnrichmentSummary struct {
	Result
	TotalRowsProcessed int         `json:"total_rows_processed"`
	TextColumnsUsed    []string    `json:"text_columns_used"`
	MaxWorkers         int         `json:"max_workers"`
	ChunkSize          int         `json:"chunk_size"`
	KeywordPoolSize    int         `json:"keyword_pool_size"`
	TreatmentPoolSize  int         `json:"treatment_pool_size"`
	DiseasePoolSize    int         `json:"disease_pool_size"`
	TotalKeywordHits   int         `json:"total_keyword_hits"`
	AvgHitsPerRow      float64     `json:"avg_hits_per_row"`
	AvgUniquePerRow    float64     `json:"avg_unique_per_row"`
	RowsWithHits       int         `json:"rows_with_hits"`
	RowsWithHitsPct    float64     `json:"rows_with_hits_pct"`
	RowsWithoutHits    int         `json:"rows_without_hits"`
	RowsWithoutHitsPct float64     `json:"rows_without_hits_pct"`
	RowsFlagged        int         `json:"rows_flagged"`
	TopFlaggedTerms    []TermCount `json:"top_flagged_terms"`
}

// FilterSummary describes one training-set split. Index ranges are nil
// when the split is empty.
type FilterSummary struct {
	Result
	MLColumnsUsed      []string `json:"ml_columns_used"`
	CountColumn        string   `json:"count_column"`
	CutoffValue        int64    `json:"cutoff_value"`
	TotalInputRows     int      `json:"total_input_rows"`
	TotalRetainedRows  int      `json:"total_retained_rows"`
	TotalDroppedRows   int      `json:"total_dropped_rows"`
	PercentRetained    *float64 `json:"percent_retained"`
	PercentDropped     *float64 `json:"percent_dropped"`
	RetainedIndexRange *[2]int  `json:"retained_index_range"`
	DroppedIndexRange  *[2]int  `json:"dropped_index_range"`
}

// Stage identifies one stage execution within a run.
type Stage struct {
	RunID     string    `json:"run_id"`
	Name      string    `json:"stage"`
	StartedAt time.Time `json:"started_at"`
	Elapsed   string    `json:"elapsed"`
}

func StartStage(runID, stage string) Stage {
	return Stage{RunID: runID, Name: stage, StartedAt: time.Now()}
}

// Finish records the elapsed time since the stage started.
func (s *Stage) Finish() {
	s.Elapsed = time.Since(s.StartedAt).Round(time.Millisecond).String()
}

type PreprocessSummary struct {
	Result
	Stage
	Load         []LoadSummary             `json:"initial_load"`
	Renamed      map[string][]string       `json:"columns_renamed"`
	FileDedupe   map[string]DuplicateStats `json:"file_dedupe"`
	Appended     map[string]AppendSummary  `json:"appended"`
	Dropped      map[string][]string       `json:"columns_dropped"`
	MissingDrops map[string][]string       `json:"missing_drop_headers"`
	Outputs      map[string]tables.Shape   `json:"outputs"`
	TotalRows    int                       `json:"total_rows"`
	TotalColumns int                       `json:"total_columns"`
}

type MetricsSummary struct {
	Result
	Stage
	Linked     map[string]LinkSummary    `json:"linked_summary"`
	Aggregate  AggregateSummary          `json:"aggregate_outcomes_summary"`
	Dedupe     map[string]DuplicateStats `json:"dedupe_summary"`
	Dimensions tables.Shape              `json:"dimensions_of_metrics_dataset"`
}

type KeywordsStageSummary struct {
	Result
	Stage
	Keywords   KeywordsSummary   `json:"keywords"`
	Enrichment EnrichmentSummary `json:"enrichment_summary"`
	Dimensions tables.Shape      `json:"dimensions"`
}

type OutputDimensions struct {
	TotalRows           int `json:"total_rows"`
	TotalColumns        int `json:"total_columns"`
	ExportedDroppedRows int `json:"exported_dropped_rows"`
}

type FinalizeSummary struct {
	Result
	Stage
	Filter     FilterSummary    `json:"filter_summary"`
	Dimensions OutputDimensions `json:"output_dimensions"`
}

// RunSummary collects every stage of a full pipeline run.
type RunSummary struct {
	RunID      string               `json:"run_id"`
	Preprocess PreprocessSummary    `json:"preprocess"`
	Metrics    MetricsSummary       `json:"metrics"`
	Keywords   KeywordsStageSummary `json:"keywords"`
	Finalize   FinalizeSummary      `json:"finalize"`
}
