// Package merge combines the per-source imports into one canonical,
// deduplicated, chronologically ordered collection.
package merge

import (
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/spendlens/pipeline/internal/importer"
	"github.com/spendlens/pipeline/internal/models"
)

// SourceCount reports how many transactions one source contributed to
// the merged collection after deduplication.
type SourceCount struct {
	Source string
	Count  int
}

// Result is the merge outcome. An empty Transactions slice is a valid
// result: merging zero rows succeeds and flows through the rest of the
// pipeline as an empty collection.
type Result struct {
	Transactions []models.Transaction
	PerSource    []SourceCount

	// Duplicates is the number of rows dropped because a row with the
	// same identity had already been merged.
	Duplicates int
}

// Merge unions the per-source imports, drops duplicates and orders the
// result chronologically.
//
// Two rows are duplicates when their identities (date, amount,
// description, source) are equal. The first occurrence wins, so rows a
// bank exported twice, overlapping export files and repeated runs over
// the same inputs all collapse to one row. The identity cannot tell a
// re-export from two genuinely distinct transactions that share all
// four fields, such as two identical coffees on the same day. Those
// collapse too; the duplicate count is logged so the collapse never
// happens silently.
//
// The sort is stable: rows sharing a date keep their arrival order.
// After sorting, the ordinal of every transaction is reassigned,
// numbering the collection 1..n without gaps.
func Merge(results []importer.SourceResult) Result {
	var merged Result

	seen := make(map[models.Identity]struct{})

	for _, result := range results {
		count := 0

		for _, t := range result.Transactions {
			identity := t.Identity()
			if _, ok := seen[identity]; ok {
				merged.Duplicates++
				continue
			}

			seen[identity] = struct{}{}
			merged.Transactions = append(merged.Transactions, t)
			count++
		}

		merged.PerSource = append(merged.PerSource, SourceCount{Source: result.Source, Count: count})
	}

	sort.SliceStable(merged.Transactions, func(i, j int) bool {
		return merged.Transactions[i].Date.Before(merged.Transactions[j].Date)
	})

	for i := range merged.Transactions {
		merged.Transactions[i].ID = uint(i + 1)
	}

	if merged.Duplicates > 0 {
		log.Warn().
			Int("duplicates", merged.Duplicates).
			Msg("dropped rows with duplicate identities; distinct transactions sharing date, amount, description and source collapse as well")
	}

	return merged
}
