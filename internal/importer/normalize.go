package importer

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the date format used by the supported bank exports.
const DateLayout = "02/01/2006"

// ErrEmptyAmount is returned by ParseAmount for an empty cell.
var ErrEmptyAmount = errors.New("no amount is set")

// amountReplacer removes the decoration banks put into amount cells.
var amountReplacer = strings.NewReplacer(",", "", "$", "")

// NormalizeDescription canonicalizes a transaction description: the
// surrounding whitespace is trimmed and the text is uppercased. Internal
// whitespace stays untouched so that distinct merchants do not collapse
// into each other.
func NormalizeDescription(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// ParseAmount parses a monetary amount from an export cell.
//
// Thousands separators and currency symbols are removed. The result is
// rounded to two fractional digits using banker's rounding, which keeps
// repeated aggregation runs from drifting on half-cent values.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = amountReplacer.Replace(strings.TrimSpace(s))
	if s == "" {
		return decimal.Zero, ErrEmptyAmount
	}

	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}

	return amount.RoundBank(2), nil
}

// ParseDate parses a DD/MM/YYYY export date into a calendar date at
// midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(s))
}
