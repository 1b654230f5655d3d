package tables

const (
	ParquetExt = ".parquet"
	CSVExt     = ".csv"
	JSONExt    = ".json"
)

// Stage output names.
const (
	MetricsName     = "metrics"
	KeywordsName    = "keywords"
	MLExportName    = "mlexport"
	DroppedRowsName = "dropped_rows"
	AggregateOutput = "Aggregate_output"
)

// Suffixes given to overlapping non-key columns by a left join.
const (
	SuffixLeft  = "_x"
	SuffixRight = "_y"
)

// DataSource is recorded in the metadata of every Parquet table.
const DataSource = "NIH RePORTER ExPORTER"
