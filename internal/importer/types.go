package importer

import (
	"fmt"
	"time"

	"github.com/spendlens/pipeline/internal/models"
)

// Options controls which rows an adapter turns into transactions.
type Options struct {
	// From and To bound the transaction dates, inclusive on both sides.
	// Zero values leave the corresponding side unbounded.
	From time.Time
	To   time.Time
}

// InRange reports whether a date lies within the configured bounds.
func (o Options) InRange(date time.Time) bool {
	if !o.From.IsZero() && date.Before(o.From) {
		return false
	}

	if !o.To.IsZero() && date.After(o.To) {
		return false
	}

	return true
}

// SkipReason classifies why a row of an export file was excluded.
type SkipReason string

const (
	SkipBadDate         SkipReason = "bad date"
	SkipBadAmount       SkipReason = "bad amount"
	SkipMissingAmount   SkipReason = "missing amount"
	SkipAmbiguousAmount SkipReason = "ambiguous amount" // both debit and credit are populated
	SkipFieldCount      SkipReason = "wrong number of fields"
)

// RowError records one skipped row. Skipped rows never abort an import:
// they are counted, reported and left out of the result.
type RowError struct {
	Line   int
	Reason SkipReason
	Err    error
}

func (e RowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("line %d: %s: %v", e.Line, e.Reason, e.Err)
	}

	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// ParseResult is what a source adapter produces for one export file.
//
// Skipped holds rows that could not be used because of malformed data.
// Filtered counts clean rows that were excluded by the date range.
type ParseResult struct {
	Transactions []models.Transaction
	Skipped      []RowError
	Filtered     int
}

// FileReport describes the import of one export file.
type FileReport struct {
	Path     string
	Imported int
	Skipped  []RowError
	Filtered int
}

// SourceResult is the import outcome for one source across all of its
// export files.
type SourceResult struct {
	Source       string
	Transactions []models.Transaction
	Files        []FileReport
}
