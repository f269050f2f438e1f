package merge_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spendlens/pipeline/internal/importer"
	"github.com/spendlens/pipeline/internal/merge"
	"github.com/spendlens/pipeline/internal/models"
)

func tx(date string, amount string, description, source string) models.Transaction {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		panic(err)
	}

	a, err := decimal.NewFromString(amount)
	if err != nil {
		panic(err)
	}

	return models.Transaction{
		Date:            d,
		Amount:          a,
		Description:     description,
		TransactionType: models.TypeForAmount(a),
		Source:          source,
	}
}

func TestMergeDeduplicates(t *testing.T) {
	// The same row twice, as happens when two export files of one
	// source overlap. The identity cannot distinguish this from two
	// genuinely distinct purchases sharing all four fields: both
	// collapse, which is why the merger reports the duplicate count.
	results := []importer.SourceResult{{
		Source: "ANZ",
		Transactions: []models.Transaction{
			tx("2023-07-01", "-12.50", "COFFEE CORNER", "ANZ"),
			tx("2023-07-01", "-12.50", "COFFEE CORNER", "ANZ"),
			tx("2023-07-02", "-85.20", "WOOLWORTHS", "ANZ"),
		},
	}}

	merged := merge.Merge(results)

	assert.Len(t, merged.Transactions, 2)
	assert.Equal(t, 1, merged.Duplicates)

	require.Len(t, merged.PerSource, 1)
	assert.Equal(t, merge.SourceCount{Source: "ANZ", Count: 2}, merged.PerSource[0])
}

func TestMergeKeepsDistinctSources(t *testing.T) {
	// The same date, amount and description from two different sources
	// are two different transactions: the source is part of the
	// identity.
	results := []importer.SourceResult{
		{Source: "ANZ", Transactions: []models.Transaction{
			tx("2023-07-01", "-12.50", "COFFEE CORNER", "ANZ"),
		}},
		{Source: "Bankwest", Transactions: []models.Transaction{
			tx("2023-07-01", "-12.50", "COFFEE CORNER", "Bankwest"),
		}},
	}

	merged := merge.Merge(results)

	assert.Len(t, merged.Transactions, 2)
	assert.Equal(t, 0, merged.Duplicates)
}

func TestMergeKeepsNearDuplicates(t *testing.T) {
	results := []importer.SourceResult{{
		Source: "ANZ",
		Transactions: []models.Transaction{
			tx("2023-07-01", "-12.50", "COFFEE CORNER", "ANZ"),
			tx("2023-07-01", "-12.51", "COFFEE CORNER", "ANZ"),
		},
	}}

	merged := merge.Merge(results)

	assert.Len(t, merged.Transactions, 2, "rows differing in any identity field are not duplicates")
	assert.Equal(t, 0, merged.Duplicates)
}

func TestMergeOrdersChronologically(t *testing.T) {
	results := []importer.SourceResult{{
		Source: "ANZ",
		Transactions: []models.Transaction{
			tx("2023-07-02", "-30.00", "LATE", "ANZ"),
			tx("2023-07-01", "-10.00", "EARLY FIRST", "ANZ"),
			tx("2023-07-01", "-20.00", "EARLY SECOND", "ANZ"),
		},
	}}

	merged := merge.Merge(results)
	require.Len(t, merged.Transactions, 3)

	assert.Equal(t, "EARLY FIRST", merged.Transactions[0].Description)
	assert.Equal(t, "EARLY SECOND", merged.Transactions[1].Description, "rows sharing a date keep their arrival order")
	assert.Equal(t, "LATE", merged.Transactions[2].Description)

	for i, transaction := range merged.Transactions {
		assert.Equal(t, uint(i+1), transaction.ID, "ordinals must number the collection 1..n without gaps")
	}
}

func TestMergeOrdinalsAfterDedup(t *testing.T) {
	results := []importer.SourceResult{{
		Source: "ANZ",
		Transactions: []models.Transaction{
			tx("2023-07-03", "-30.00", "C", "ANZ"),
			tx("2023-07-01", "-10.00", "A", "ANZ"),
			tx("2023-07-03", "-30.00", "C", "ANZ"),
			tx("2023-07-02", "-20.00", "B", "ANZ"),
		},
	}}

	merged := merge.Merge(results)
	require.Len(t, merged.Transactions, 3)

	for i, transaction := range merged.Transactions {
		assert.Equal(t, uint(i+1), transaction.ID, "dropping duplicates must not leave ordinal gaps")
	}
}

func TestMergeIdempotent(t *testing.T) {
	// Feeding a source twice, as a rerun over unchanged exports would,
	// yields the same distinct transactions as feeding it once.
	transactions := []models.Transaction{
		tx("2023-07-01", "-12.50", "COFFEE CORNER", "ANZ"),
		tx("2023-07-02", "-85.20", "WOOLWORTHS", "ANZ"),
	}

	once := merge.Merge([]importer.SourceResult{
		{Source: "ANZ", Transactions: transactions},
	})
	twice := merge.Merge([]importer.SourceResult{
		{Source: "ANZ", Transactions: transactions},
		{Source: "ANZ", Transactions: transactions},
	})

	assert.Equal(t, once.Transactions, twice.Transactions)
	assert.Equal(t, len(transactions), twice.Duplicates)
}

func TestMergeEmpty(t *testing.T) {
	// All sources empty is a valid, successful merge.
	results := []importer.SourceResult{
		{Source: "ANZ"},
		{Source: "Bankwest"},
	}

	merged := merge.Merge(results)

	assert.Empty(t, merged.Transactions)
	assert.Equal(t, 0, merged.Duplicates)
	require.Len(t, merged.PerSource, 2)
	assert.Equal(t, 0, merged.PerSource[0].Count)
	assert.Equal(t, 0, merged.PerSource[1].Count)
}

func TestMergeIsDeterministic(t *testing.T) {
	results := []importer.SourceResult{
		{Source: "ANZ", Transactions: []models.Transaction{
			tx("2023-07-02", "-85.20", "WOOLWORTHS", "ANZ"),
			tx("2023-07-01", "-12.50", "COFFEE CORNER", "ANZ"),
			tx("2023-07-01", "-12.50", "COFFEE CORNER", "ANZ"),
		}},
		{Source: "Bankwest", Transactions: []models.Transaction{
			tx("2023-07-01", "2000.00", "SALARY", "Bankwest"),
		}},
	}

	assert.Equal(t, merge.Merge(results), merge.Merge(results), "merging the same inputs twice must produce identical output")
}
