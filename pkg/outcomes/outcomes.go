// Package outcomes counts the distinct outcome records (publications,
// patents, clinical studies) linked to each project and adds the counts to
// the project table.
package outcomes

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/willbeason/nih-exporter/pkg/dedupe"
	"github.com/willbeason/nih-exporter/pkg/logging"
	"github.com/willbeason/nih-exporter/pkg/report"
	"github.com/willbeason/nih-exporter/pkg/tables"
)

var ErrOutcome = errors.New("counting outcomes")

// Category describes one outcome source. A distinct (Entity, Outcome) pair is
// one outcome event; the number of events per entity is stored in Count.
type Category struct {
	Category string `yaml:"category" validate:"required"`
	Entity   string `yaml:"entity_column" validate:"required"`
	Outcome  string `yaml:"outcome_column" validate:"required"`
	Count    string `yaml:"count_column" validate:"required"`
}

// DefaultCategories are the NIH ExPORTER link tables.
func DefaultCategories() []Category {
	return []Category{
		{Category: "PUBLINK", Entity: tables.ProjectNumber, Outcome: tables.PMID, Count: tables.PublicationCount},
		{Category: "Patents", Entity: tables.ProjectNumber, Outcome: tables.PatentID, Count: tables.PatentCount},
		{Category: "ClinicalStudies", Entity: tables.ProjectNumber, Outcome: tables.ClinicalTrialID, Count: tables.ClinicalStudyCount},
	}
}

// Aggregate adds one integer count column per outcome category to a copy of
// base. Entities without outcomes get 0. A category whose table is absent or
// unusable adds no column and is reported in the summary; the others still
// run. A nil base yields an empty table.
func Aggregate(base *tables.Table, categories map[string]*tables.Table, outcomes []Category, logger *slog.Logger) (*tables.Table, report.AggregateSummary) {
	logger = logging.Or(logger)
	summary := report.AggregateSummary{Outcomes: make(map[string]report.OutcomeSummary)}

	if base == nil {
		logger.Warn("linked base table absent, skipping outcome aggregation")
		summary.Result = report.Skipped("linked base table absent")
		return tables.Empty(), summary
	}

	result := base.Clone()
	for _, oc := range outcomes {
		restoreEntityColumn(result, oc.Entity, logger)
	}

	for _, oc := range outcomes {
		s := report.OutcomeSummary{
			Category:      oc.Category,
			EntityColumn:  oc.Entity,
			OutcomeColumn: oc.Outcome,
		}

		t, ok := categories[oc.Category]
		if !ok {
			logger.Warn("outcome category absent", slog.String("category", oc.Category))
			s.Result = report.Skipped("category %q absent", oc.Category)
			summary.Outcomes[oc.Count] = s
			continue
		}

		counts, err := countDistinct(t, oc, &s, logger)
		if err == nil {
			err = mergeCounts(result, oc, counts)
		}
		if err != nil {
			logger.Error("counting outcomes", slog.String("category", oc.Category), slog.Any("error", err))
			s.Result = report.Failed(err)
			summary.Outcomes[oc.Count] = s
			continue
		}

		s.Result = report.OK()
		s.EntitiesWithCounts = len(counts)
		summary.Outcomes[oc.Count] = s
		logger.Info("merged outcome counts",
			slog.String("column", oc.Count),
			slog.Int("rows", result.NumRows()),
			slog.Int("columns", result.NumColumns()))
	}

	summary.Result = report.OK()
	return result, summary
}

// restoreEntityColumn renames "<entity>_x" back to entity when a join
// suffixed it.
func restoreEntityColumn(t *tables.Table, entity string, logger *slog.Logger) {
	if t.HasColumn(entity) || !t.HasColumn(entity+tables.SuffixLeft) {
		return
	}
	t.Rename(map[string]string{entity + tables.SuffixLeft: entity})
	logger.Info("restored entity column", slog.String("column", entity))
}

// countDistinct normalizes the composite key, drops rows with a null key
// part, removes repeated pairs and counts the remaining rows per entity.
func countDistinct(t *tables.Table, oc Category, s *report.OutcomeSummary, logger *slog.Logger) (map[string]int64, error) {
	keyed, err := t.Select([]string{oc.Entity, oc.Outcome})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrOutcome, oc.Category, err)
	}

	normalized := tables.New(keyed.Columns)
	for _, row := range keyed.Rows {
		entity, okEntity := tables.NormalizeKey(row[0])
		outcome, okOutcome := tables.NormalizeKey(row[1])
		if !okEntity || !okOutcome {
			s.NullKeyRows++
			continue
		}
		normalized.Rows = append(normalized.Rows, []any{entity, outcome})
	}
	if s.NullKeyRows > 0 {
		logger.Warn("ignoring outcome rows with null key",
			slog.String("category", oc.Category),
			slog.Int("rows", s.NullKeyRows))
	}

	unique, stats, err := dedupe.ByKey(normalized, normalized.Columns, oc.Count, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrOutcome, oc.Category, err)
	}
	s.DuplicateStats = stats[oc.Count]
	s.RowsCounted = unique.NumRows()

	counts := make(map[string]int64)
	for _, row := range unique.Rows {
		counts[row[0].(string)]++
	}
	return counts, nil
}

// mergeCounts writes the count for every row of t, matching on the
// normalized entity value. The entity column itself is left unchanged.
func mergeCounts(t *tables.Table, oc Category, counts map[string]int64) error {
	entities, err := t.Column(oc.Entity)
	if err != nil {
		return fmt.Errorf("%w: base table: %w", ErrOutcome, err)
	}

	values := make([]any, len(entities))
	for i, v := range entities {
		key, ok := tables.NormalizeKey(v)
		if !ok {
			values[i] = int64(0)
			continue
		}
		values[i] = counts[key]
	}
	return t.SetColumn(oc.Count, values)
}
