// Package rules assigns categories to transactions.
//
// Categorization is driven by an ordered list of pattern rules loaded
// from a CSV file. Order is precedence: the first rule whose pattern
// matches a transaction's description decides the category, and later
// rules are not consulted. Transactions no rule matches fall back to
// the reserved Uncategorized category so that every transaction leaves
// this stage with exactly one category.
package rules

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/ryanuber/go-glob"
	"github.com/shopspring/decimal"

	"github.com/spendlens/pipeline/internal/models"
)

// Uncategorized is the fallback category for transactions no rule
// matches.
const Uncategorized = "Uncategorized"

// ErrNoRules is returned when the rule file contains no rules.
var ErrNoRules = errors.New("the rule file contains no rules")

// A Rule maps a description pattern to a category.
//
// The pattern matches case-insensitively anywhere in the description:
// it is stored uppercased and wrapped in wildcards before matching, so
// "WOOLWORTHS" matches "WOOLWORTHS 1234 CARNEGIE". A "*" inside a
// pattern matches any sequence of characters.
type Rule struct {
	Pattern  string
	Category string
}

// List is an ordered rule list. The zero value matches nothing.
//
// Precedence is a property of the list itself: rules apply in list
// order and the first match wins. Reordering the list is the only way
// to change precedence.
type List []Rule

// header is the required first row of a rule file.
var header = []string{"pattern", "category"}

// LoadCSV reads an ordered rule list from the file at path.
//
// The file must have a "pattern,category" header followed by one rule
// per row. File order becomes list order. A missing or empty rule file
// is an error: running the pipeline without rules would silently leave
// the whole collection uncategorized.
func LoadCSV(path string) (List, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open rule file: %w", err)
	}
	defer f.Close()

	list, err := parse(f)
	if err != nil {
		return nil, fmt.Errorf("could not load rules from %s: %w", path, err)
	}

	return list, nil
}

func parse(r io.Reader) (List, error) {
	reader := csv.NewReader(r)

	// We can reuse the array in the background to improve performance
	reader.ReuseRecord = true

	head, err := reader.Read()
	if err == io.EOF {
		return nil, ErrNoRules
	}
	if err != nil {
		return nil, fmt.Errorf("could not read the header: %w", err)
	}

	if len(head) < len(header) || !strings.EqualFold(strings.TrimSpace(head[0]), header[0]) || !strings.EqualFold(strings.TrimSpace(head[1]), header[1]) {
		return nil, fmt.Errorf("expected a %q header, got %q", strings.Join(header, ","), strings.Join(head, ","))
	}

	var list List

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("could not read line in CSV: %w", err)
		}

		if len(record) < 2 {
			line, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("error in line %d of the rule file: every rule needs a pattern and a category", line)
		}

		pattern := strings.ToUpper(strings.TrimSpace(record[0]))
		category := strings.TrimSpace(record[1])

		if pattern == "" || category == "" {
			line, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("error in line %d of the rule file: empty pattern or category", line)
		}

		list = append(list, Rule{Pattern: pattern, Category: category})
	}

	if len(list) == 0 {
		return nil, ErrNoRules
	}

	return list, nil
}

// Match returns the category for a description and the index of the
// rule that decided it. The index is -1 when no rule matches and the
// fallback category is returned.
func (l List) Match(description string) (string, int) {
	name := strings.ToUpper(description)

	// Rules apply in list order, so we can simply return the first match
	for i, rule := range l {
		if glob.Glob("*"+rule.Pattern+"*", name) {
			return rule.Category, i
		}
	}

	return Uncategorized, -1
}

// MerchantCount is one uncategorized merchant and how often it
// appeared. It points at the rule that is missing from the rule file.
type MerchantCount struct {
	Merchant string
	Count    int
}

// SourceRate is the categorization coverage of one source. A source
// with a low rate exports descriptions the rule file does not know yet.
type SourceRate struct {
	Source  string
	Total   int
	Matched int

	// MatchedPct is Matched / Total * 100, rounded to one decimal
	// place.
	MatchedPct decimal.Decimal
}

// Summary describes the categorization outcome for one run.
type Summary struct {
	Total         int
	Matched       int
	Uncategorized int

	// UncategorizedTotal is the amount sum of all uncategorized
	// transactions.
	UncategorizedTotal decimal.Decimal

	// TopUncategorized lists the most frequent uncategorized merchants,
	// most frequent first.
	TopUncategorized []MerchantCount

	// PerSource breaks the coverage down by source, ordered by source
	// name.
	PerSource []SourceRate
}

// topUncategorized is how many uncategorized merchants a Summary names.
const topUncategorized = 10

// hundred converts ratios to percentages.
var hundred = decimal.NewFromInt(100)

// Categorize assigns exactly one category to every transaction and
// returns the categorized collection as a new slice, leaving the input
// untouched.
//
// Every transaction is scanned, income as well as expenses: salary and
// refund descriptions match rules the same way spending does. The
// summary reports how much of the collection the rule list covers,
// overall and per source.
func Categorize(txs []models.Transaction, list List) ([]models.Transaction, Summary) {
	categorized := make([]models.Transaction, len(txs))
	summary := Summary{Total: len(txs)}

	uncategorized := make(map[string]int)
	tallies := make(map[string]*sourceTally)

	for i, t := range txs {
		tally, ok := tallies[t.Source]
		if !ok {
			tally = &sourceTally{}
			tallies[t.Source] = tally
		}
		tally.total++

		category, rule := list.Match(t.Description)

		t.Category = category
		categorized[i] = t

		if rule == -1 {
			summary.Uncategorized++
			summary.UncategorizedTotal = summary.UncategorizedTotal.Add(t.Amount)
			uncategorized[t.Description]++
			continue
		}

		summary.Matched++
		tally.matched++
	}

	summary.TopUncategorized = topMerchants(uncategorized, topUncategorized)
	summary.PerSource = sourceRates(tallies)

	return categorized, summary
}

type sourceTally struct {
	total   int
	matched int
}

// sourceRates turns the per-source tallies into rates ordered by source
// name.
func sourceRates(tallies map[string]*sourceTally) []SourceRate {
	rates := make([]SourceRate, 0, len(tallies))

	for source, tally := range tallies {
		rates = append(rates, SourceRate{
			Source:     source,
			Total:      tally.total,
			Matched:    tally.matched,
			MatchedPct: decimal.NewFromInt(int64(tally.matched)).Div(decimal.NewFromInt(int64(tally.total))).Mul(hundred).Round(1),
		})
	}

	sort.Slice(rates, func(i, j int) bool {
		return rates[i].Source < rates[j].Source
	})

	return rates
}

// topMerchants returns the n most frequent merchants, ties broken by
// name so the order is deterministic.
func topMerchants(counts map[string]int, n int) []MerchantCount {
	merchants := make([]MerchantCount, 0, len(counts))
	for merchant, count := range counts {
		merchants = append(merchants, MerchantCount{Merchant: merchant, Count: count})
	}

	sortMerchants(merchants)

	if len(merchants) > n {
		merchants = merchants[:n]
	}

	return merchants
}

func sortMerchants(merchants []MerchantCount) {
	sort.Slice(merchants, func(i, j int) bool {
		if merchants[i].Count != merchants[j].Count {
			return merchants[i].Count > merchants[j].Count
		}

		return merchants[i].Merchant < merchants[j].Merchant
	})
}
