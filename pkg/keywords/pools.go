package keywords

import (
	"log/slog"
	"slices"

	"github.com/willbeason/nih-exporter/pkg/logging"
	"github.com/willbeason/nih-exporter/pkg/report"
)

// Pools holds the expanded treatment and disease vocabularies.
type Pools struct {
	Treatment []string
	Disease   []string
}

// All returns the sorted, deduplicated union of both pools.
func (p Pools) All() []string {
	result := make([]string, 0, len(p.Treatment)+len(p.Disease))
	result = append(result, p.Treatment...)
	result = append(result, p.Disease...)
	slices.Sort(result)
	return slices.Compact(result)
}

// Prepare expands both seed lists into variant pools. With removeStopwords
// set, seeds that are English stopwords are dropped first.
func Prepare(treatment, disease []string, removeStopwords bool, logger *slog.Logger) (Pools, report.KeywordsSummary) {
	logger = logging.Or(logger)

	var stoplist *Stoplist
	if removeStopwords {
		stoplist = English()
	}

	pools := Pools{
		Treatment: Expand(treatment, stoplist),
		Disease:   Expand(disease, stoplist),
	}

	summary := report.KeywordsSummary{
		TreatmentSeeds:   len(treatment),
		DiseaseSeeds:     len(disease),
		TreatmentCount:   len(pools.Treatment),
		DiseaseCount:     len(pools.Disease),
		StopwordsRemoved: removeStopwords,
		Treatment:        pools.Treatment,
		Disease:          pools.Disease,
	}
	if len(pools.Treatment)+len(pools.Disease) == 0 {
		logger.Warn("no keywords after expansion")
		summary.Result = report.Skipped("no keywords after expansion")
	} else {
		summary.Result = report.OK()
	}

	logger.Info("prepared keywords",
		slog.Int("treatment", len(pools.Treatment)),
		slog.Int("disease", len(pools.Disease)))
	return pools, summary
}
