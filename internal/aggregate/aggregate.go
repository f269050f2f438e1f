// Package aggregate derives the reporting outputs from the canonical
// collection.
//
// Build is a pure function: the same collection and options always
// produce the same report, byte for byte. All money math runs on
// decimals; amounts are never converted to floats.
package aggregate

import (
	"sort"

	"github.com/shopspring/decimal"
	"golang.org/x/exp/slices"

	"github.com/spendlens/pipeline/internal/models"
	"github.com/spendlens/pipeline/internal/types"
)

// DefaultTopMerchants is how many merchants are ranked per category
// when the options do not say otherwise.
const DefaultTopMerchants = 5

// hundred converts ratios to percentages.
var hundred = decimal.NewFromInt(100)

// Options controls the aggregation.
type Options struct {
	// TopMerchants is how many merchants are ranked per category.
	// Zero means DefaultTopMerchants.
	TopMerchants int

	// ExcludeCategories names categories the whole report ignores,
	// e.g. a transfer bucket that would otherwise distort spend and
	// savings figures.
	ExcludeCategories []string
}

// MonthlySummary is the income/expense picture of one period.
type MonthlySummary struct {
	Month            types.Month
	Income           decimal.Decimal // sum of all income amounts
	Expense          decimal.Decimal // total spend as a positive value
	Net              decimal.Decimal
	TransactionCount int

	// SavingsRatePct is (income - expense) / income * 100. It is nil
	// for periods without income: a savings rate without income is
	// undefined, not zero.
	SavingsRatePct *decimal.Decimal

	// ExpenseChangePct compares the period's spend to the immediately
	// preceding calendar month. It is nil when that month has no data
	// (periods are never compared across a gap) or no spend.
	ExpenseChangePct *decimal.Decimal
}

// CategorySpend is one category's spend within one period.
type CategorySpend struct {
	Month            types.Month
	Category         string
	TotalAmount      decimal.Decimal // signed sum over expense rows
	TransactionCount int

	// PctOfMonth is the category's share of the period's total spend,
	// rounded to one decimal place.
	PctOfMonth decimal.Decimal
}

// MerchantRank is one merchant's position in its category's spending.
type MerchantRank struct {
	Category         string
	Merchant         string
	Rank             int // 1-based, gap-free within the category
	TransactionCount int
	TotalAmount      decimal.Decimal // signed sum over expense rows
}

// CategoryTotal is one category's all-time rollup across every period.
// Unlike CategorySpend it covers income rows too, so a salary category
// shows up with a positive total.
type CategoryTotal struct {
	Category         string
	TransactionCount int
	TotalAmount      decimal.Decimal // signed sum over all rows
	AverageAmount    decimal.Decimal // signed mean, banker's rounding to two places
	MinAmount        decimal.Decimal // signed amount of the smallest row by magnitude
	MaxAmount        decimal.Decimal // signed amount of the largest row by magnitude
}

// Report is the derived output of one run. Every slice is sorted
// deterministically; rebuilding from the same collection reproduces it
// exactly.
type Report struct {
	Months     []MonthlySummary
	Categories []CategorySpend
	Merchants  []MerchantRank
	Totals     []CategoryTotal
}

type monthAccum struct {
	income  decimal.Decimal
	expense decimal.Decimal // positive
	count   int
}

type spendAccum struct {
	total decimal.Decimal // signed
	count int
}

type totalAccum struct {
	total decimal.Decimal // signed
	count int
	min   decimal.Decimal // smallest magnitude seen
	max   decimal.Decimal // largest magnitude seen
}

// Build derives the report for a collection.
//
// An empty collection produces an empty report. Rows in excluded
// categories take no part in any figure.
func Build(txs []models.Transaction, opts Options) Report {
	if opts.TopMerchants == 0 {
		opts.TopMerchants = DefaultTopMerchants
	}

	months := make(map[types.Month]*monthAccum)
	categories := make(map[types.Month]map[string]*spendAccum)
	merchants := make(map[string]map[string]*spendAccum)
	totals := make(map[string]*totalAccum)

	for _, t := range txs {
		if slices.Contains(opts.ExcludeCategories, t.Category) {
			continue
		}

		addTotal(totals, t.Category, t.Amount)

		month := types.MonthOf(t.Date)

		accum, ok := months[month]
		if !ok {
			accum = &monthAccum{}
			months[month] = accum
		}

		accum.count++

		if t.TransactionType == models.TransactionTypeIncome {
			accum.income = accum.income.Add(t.Amount)
			continue
		}

		accum.expense = accum.expense.Add(t.Amount.Abs())

		if categories[month] == nil {
			categories[month] = make(map[string]*spendAccum)
		}
		addSpend(categories[month], t.Category, t.Amount)

		if merchants[t.Category] == nil {
			merchants[t.Category] = make(map[string]*spendAccum)
		}
		addSpend(merchants[t.Category], t.Description, t.Amount)
	}

	return Report{
		Months:     buildMonths(months),
		Categories: buildCategories(categories, months),
		Merchants:  buildMerchants(merchants, opts.TopMerchants),
		Totals:     buildTotals(totals),
	}
}

func addSpend(accums map[string]*spendAccum, key string, amount decimal.Decimal) {
	accum, ok := accums[key]
	if !ok {
		accum = &spendAccum{}
		accums[key] = accum
	}

	accum.total = accum.total.Add(amount)
	accum.count++
}

// addTotal folds one row into its category's all-time rollup. Magnitude
// ties keep the earlier row, so the rollup is deterministic for a
// canonically ordered collection.
func addTotal(accums map[string]*totalAccum, category string, amount decimal.Decimal) {
	accum, ok := accums[category]
	if !ok {
		accums[category] = &totalAccum{total: amount, count: 1, min: amount, max: amount}
		return
	}

	accum.total = accum.total.Add(amount)
	accum.count++

	if amount.Abs().LessThan(accum.min.Abs()) {
		accum.min = amount
	}
	if amount.Abs().GreaterThan(accum.max.Abs()) {
		accum.max = amount
	}
}

// buildMonths turns the per-month accumulators into sorted summaries
// and computes the figures that relate periods to each other.
func buildMonths(months map[types.Month]*monthAccum) []MonthlySummary {
	keys := sortedMonths(months)

	summaries := make([]MonthlySummary, 0, len(keys))

	for _, month := range keys {
		accum := months[month]

		summary := MonthlySummary{
			Month:            month,
			Income:           accum.income,
			Expense:          accum.expense,
			Net:              accum.income.Sub(accum.expense),
			TransactionCount: accum.count,
		}

		if accum.income.IsPositive() {
			rate := summary.Net.Div(accum.income).Mul(hundred).Round(1)
			summary.SavingsRatePct = &rate
		}

		// The comparison month is the calendar predecessor, not the
		// previous month with data: January is never compared to
		// November across a missing December.
		previous, ok := months[month.AddDate(0, -1)]
		if ok && previous.expense.IsPositive() {
			change := accum.expense.Sub(previous.expense).Div(previous.expense).Mul(hundred).Round(1)
			summary.ExpenseChangePct = &change
		}

		summaries = append(summaries, summary)
	}

	return summaries
}

// buildCategories turns the per-month category accumulators into sorted
// rows. Within a month, the category with the largest spend comes
// first; its signed total is the most negative.
func buildCategories(categories map[types.Month]map[string]*spendAccum, months map[types.Month]*monthAccum) []CategorySpend {
	var rows []CategorySpend

	for _, month := range sortedMonths(categories) {
		monthTotal := months[month].expense

		for category, accum := range categories[month] {
			row := CategorySpend{
				Month:            month,
				Category:         category,
				TotalAmount:      accum.total,
				TransactionCount: accum.count,
			}

			if monthTotal.IsPositive() {
				row.PctOfMonth = accum.total.Abs().Div(monthTotal).Mul(hundred).Round(1)
			}

			rows = append(rows, row)
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].Month.Equal(rows[j].Month) {
			return rows[i].Month.Before(rows[j].Month)
		}
		if !rows[i].TotalAmount.Equal(rows[j].TotalAmount) {
			return rows[i].TotalAmount.LessThan(rows[j].TotalAmount)
		}

		return rows[i].Category < rows[j].Category
	})

	return rows
}

// buildMerchants ranks each category's merchants by how much was spent
// with them. Ranks are dense and never repeat: merchants with equal
// totals are ordered by name, and every rank from 1 to n is assigned
// exactly once.
func buildMerchants(merchants map[string]map[string]*spendAccum, top int) []MerchantRank {
	categories := make([]string, 0, len(merchants))
	for category := range merchants {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	var rows []MerchantRank

	for _, category := range categories {
		ranked := make([]MerchantRank, 0, len(merchants[category]))

		for merchant, accum := range merchants[category] {
			ranked = append(ranked, MerchantRank{
				Category:         category,
				Merchant:         merchant,
				TransactionCount: accum.count,
				TotalAmount:      accum.total,
			})
		}

		sort.Slice(ranked, func(i, j int) bool {
			ti, tj := ranked[i].TotalAmount.Abs(), ranked[j].TotalAmount.Abs()
			if !ti.Equal(tj) {
				return ti.GreaterThan(tj)
			}

			return ranked[i].Merchant < ranked[j].Merchant
		})

		if len(ranked) > top {
			ranked = ranked[:top]
		}

		for i := range ranked {
			ranked[i].Rank = i + 1
		}

		rows = append(rows, ranked...)
	}

	return rows
}

// buildTotals turns the all-time accumulators into rows ordered by
// signed total ascending: the heaviest spending category comes first,
// income categories come last.
func buildTotals(totals map[string]*totalAccum) []CategoryTotal {
	rows := make([]CategoryTotal, 0, len(totals))

	for category, accum := range totals {
		rows = append(rows, CategoryTotal{
			Category:         category,
			TransactionCount: accum.count,
			TotalAmount:      accum.total,
			AverageAmount:    accum.total.Div(decimal.NewFromInt(int64(accum.count))).RoundBank(2),
			MinAmount:        accum.min,
			MaxAmount:        accum.max,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].TotalAmount.Equal(rows[j].TotalAmount) {
			return rows[i].TotalAmount.LessThan(rows[j].TotalAmount)
		}

		return rows[i].Category < rows[j].Category
	})

	return rows
}

// sortedMonths returns the map's keys in chronological order.
func sortedMonths[V any](m map[types.Month]V) []types.Month {
	keys := make([]types.Month, 0, len(m))
	for month := range m {
		keys = append(keys, month)
	}

	sort.Slice(keys, func(i, j int) bool {
		return keys[i].Before(keys[j])
	})

	return keys
}
