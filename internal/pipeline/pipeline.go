// Package pipeline sequences the stages of one batch run: import,
// merge, categorize, aggregate, persist, export.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/spendlens/pipeline/internal/aggregate"
	"github.com/spendlens/pipeline/internal/config"
	"github.com/spendlens/pipeline/internal/export"
	"github.com/spendlens/pipeline/internal/importer"
	"github.com/spendlens/pipeline/internal/importer/parser/anz"
	"github.com/spendlens/pipeline/internal/importer/parser/bankwest"
	"github.com/spendlens/pipeline/internal/merge"
	"github.com/spendlens/pipeline/internal/models"
	"github.com/spendlens/pipeline/internal/rules"
)

// Sources returns the source adapters a run imports from.
func Sources() []importer.Source {
	return []importer.Source{anz.Source{}, bankwest.Source{}}
}

// Run executes one batch run against the connected database.
//
// Stages run strictly in sequence, each consuming the previous stage's
// output. The first stage error aborts the run. The database is only
// written in the persist stage and each table swap is transactional, so
// an aborted run never leaves partial output behind.
//
// An input tree without a single transaction is not an error: the run
// succeeds with empty tables and an empty export.
func Run(cfg *config.Config) error {
	logger := log.With().Str("run", uuid.NewString()).Logger()

	// Load the rules first: without them the run cannot produce a
	// categorized collection, so there is no point importing anything.
	list, err := rules.LoadCSV(cfg.Input.RulesFile)
	if err != nil {
		return fmt.Errorf("loading rules failed: %w", err)
	}

	logger.Info().Int("rules", len(list)).Str("path", cfg.Input.RulesFile).Msg("loaded rules")

	// Import
	results, err := importer.Read(cfg.Input.Dir, Sources(), importer.Options{
		From: cfg.Input.From.Time,
		To:   cfg.Input.To.Time,
	})
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	logImport(logger, results)

	// Merge
	merged := merge.Merge(results)

	logger.Info().
		Int("transactions", len(merged.Transactions)).
		Int("duplicates", merged.Duplicates).
		Msg("merged sources")

	if len(merged.Transactions) == 0 {
		logger.Warn().Msg("no transactions in any source, the run will produce empty output")
	}

	// Categorize
	categorized, summary := rules.Categorize(merged.Transactions, list)
	logCategorization(logger, summary)

	// Aggregate
	report := aggregate.Build(categorized, aggregate.Options{
		TopMerchants:      cfg.Report.TopMerchants,
		ExcludeCategories: cfg.Report.ExcludeCategories,
	})

	logger.Info().
		Int("months", len(report.Months)).
		Int("category_rows", len(report.Categories)).
		Int("merchant_rows", len(report.Merchants)).
		Int("category_totals", len(report.Totals)).
		Msg("built aggregates")

	// Persist
	err = models.ReplaceTransactions(categorized)
	if err != nil {
		return fmt.Errorf("storing transactions failed: %w", err)
	}

	aggregates, rankings, summaries := aggregateRows(report)

	err = models.ReplaceAggregates(aggregates, rankings, summaries)
	if err != nil {
		return fmt.Errorf("storing aggregates failed: %w", err)
	}

	logger.Info().
		Int("transactions", len(categorized)).
		Int("aggregates", len(aggregates)).
		Int("rankings", len(rankings)).
		Int("summaries", len(summaries)).
		Msg("persisted run output")

	err = reportLatestPeriod(logger)
	if err != nil {
		return err
	}

	// Export
	if cfg.Output.ExportDir != "" {
		path, err := export.WriteFile(cfg.Output.ExportDir, categorized)
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}

		logger.Info().Str("path", path).Msg("wrote canonical export")
	}

	logger.Info().Msg("run finished")

	return nil
}

// aggregateRows flattens the report into the persisted aggregate rows.
//
// Period summary rows have no category and carry the period's net
// amount and savings rate. Category rows carry the category's signed
// spend and its share of the period. The all-time category rollup goes
// into its own table.
func aggregateRows(report aggregate.Report) ([]models.MonthlyAggregate, []models.MerchantRanking, []models.CategorySummary) {
	aggregates := make([]models.MonthlyAggregate, 0, len(report.Months)+len(report.Categories))

	for _, month := range report.Months {
		aggregates = append(aggregates, models.MonthlyAggregate{
			Period:           month.Month,
			TotalAmount:      month.Net,
			TransactionCount: month.TransactionCount,
			SavingsRatePct:   month.SavingsRatePct,
		})
	}

	for _, row := range report.Categories {
		category := row.Category
		pct := row.PctOfMonth

		aggregates = append(aggregates, models.MonthlyAggregate{
			Period:           row.Month,
			Category:         &category,
			TotalAmount:      row.TotalAmount,
			TransactionCount: row.TransactionCount,
			PctOfPeriod:      &pct,
		})
	}

	rankings := make([]models.MerchantRanking, 0, len(report.Merchants))

	for _, row := range report.Merchants {
		rankings = append(rankings, models.MerchantRanking{
			Category:         row.Category,
			Merchant:         row.Merchant,
			Rank:             row.Rank,
			TransactionCount: row.TransactionCount,
			TotalAmount:      row.TotalAmount,
		})
	}

	summaries := make([]models.CategorySummary, 0, len(report.Totals))

	for _, row := range report.Totals {
		summaries = append(summaries, models.CategorySummary{
			Category:         row.Category,
			TransactionCount: row.TransactionCount,
			TotalAmount:      row.TotalAmount,
			AverageAmount:    row.AverageAmount,
			MinAmount:        row.MinAmount,
			MaxAmount:        row.MaxAmount,
		})
	}

	return aggregates, rankings, summaries
}

// reportLatestPeriod reads the most recent period summary back from the
// store and logs it as the run's closing figures. An empty run has no
// period to report on.
func reportLatestPeriod(logger zerolog.Logger) error {
	latest, err := models.LatestAggregate()
	if errors.Is(err, models.ErrResourceNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading the latest period back failed: %w", err)
	}

	event := logger.Info().
		Str("period", latest.Period.String()).
		Str("net", latest.TotalAmount.StringFixed(2)).
		Int("transactions", latest.TransactionCount)

	if latest.SavingsRatePct != nil {
		event = event.Str("savings_rate_pct", latest.SavingsRatePct.StringFixed(1))
	}

	event.Msg("latest period")

	return nil
}

func logImport(logger zerolog.Logger, results []importer.SourceResult) {
	for _, result := range results {
		for _, file := range result.Files {
			logger.Info().
				Str("source", result.Source).
				Str("path", file.Path).
				Int("imported", file.Imported).
				Int("filtered", file.Filtered).
				Int("skipped", len(file.Skipped)).
				Msg("imported file")

			for _, rowErr := range file.Skipped {
				logger.Warn().
					Str("path", file.Path).
					Int("line", rowErr.Line).
					Str("reason", string(rowErr.Reason)).
					Err(rowErr.Err).
					Msg("skipped row")
			}
		}
	}
}

func logCategorization(logger zerolog.Logger, summary rules.Summary) {
	logger.Info().
		Int("total", summary.Total).
		Int("matched", summary.Matched).
		Int("uncategorized", summary.Uncategorized).
		Str("uncategorized_total", summary.UncategorizedTotal.StringFixed(2)).
		Msg("categorized transactions")

	for _, rate := range summary.PerSource {
		logger.Info().
			Str("source", rate.Source).
			Int("total", rate.Total).
			Int("matched", rate.Matched).
			Str("matched_pct", rate.MatchedPct.StringFixed(1)).
			Msg("categorization rate")
	}

	// The most frequent uncategorized merchants are the patterns most
	// worth adding to the rule file next.
	for _, merchant := range summary.TopUncategorized {
		logger.Info().
			Str("merchant", merchant.Merchant).
			Int("count", merchant.Count).
			Msg("uncategorized merchant")
	}
}
