package tables

import "github.com/apache/arrow/go/v18/arrow"

// Identifier columns of the NIH ExPORTER extracts.
const (
	ApplicationID   = "APPLICATION_ID"
	ProjectNumber   = "PROJECT_NUMBER"
	PMID            = "PMID"
	PatentID        = "PATENT_ID"
	ClinicalTrialID = "ClinicalTrials.gov ID"
)

// Columns added by the metrics and keywords stages.
const (
	PublicationCount   = "publication count"
	PatentCount        = "patent count"
	ClinicalStudyCount = "clinical study count"

	TotalCount       = "total count"
	TotalUniqueCount = "total unique count"
	Flagged          = "flagged"
)

const (
	applicationIDComment = "The unique identifier of a single application or award year"
	projectNumberComment = "The project number shared by every year of a grant"
	countComment         = "Number of distinct linked outcome records for the project"
)

var columnComments = map[string]string{
	ApplicationID:      applicationIDComment,
	ProjectNumber:      projectNumberComment,
	PMID:               "The PubMed identifier of a linked publication",
	PatentID:           "The identifier of a linked patent",
	ClinicalTrialID:    "The ClinicalTrials.gov identifier of a linked study",
	PublicationCount:   countComment,
	PatentCount:        countComment,
	ClinicalStudyCount: countComment,
	TotalCount:         "Keyword hits in the combined text, counting repeats",
	TotalUniqueCount:   "Distinct keyword hits in the combined text",
	Flagged:            "Distinct matched keywords in order of first occurrence",
}

// ColumnMetadata returns the comment metadata recorded for a well-known
// column, or empty metadata.
func ColumnMetadata(name string) arrow.Metadata {
	c, ok := columnComments[name]
	if !ok {
		return arrow.Metadata{}
	}
	return NewMetadataBuilder().Add(comment, c).Build()
}
