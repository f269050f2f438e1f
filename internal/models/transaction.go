// Package models contains the canonical transaction record and the
// persisted aggregate models, together with the database layer reading
// and writing them.
package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TransactionType classifies a transaction by the sign of its amount.
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// TypeForAmount returns the transaction type for an amount.
// Deposits and refunds are income, everything else is an expense.
// Zero amounts are expenses.
func TypeForAmount(amount decimal.Decimal) TransactionType {
	if amount.IsPositive() {
		return TransactionTypeIncome
	}

	return TransactionTypeExpense
}

// Transaction is the canonical record that every pipeline stage operates
// on: source adapters produce it, the merger orders it, the rule engine
// assigns its category and the aggregator consumes it.
type Transaction struct {
	// ID is the canonical ordinal. The merger assigns it after the
	// chronological sort, numbering the merged collection 1..n without
	// gaps. Adapters leave it zero.
	ID              uint            `gorm:"primarykey"`
	Date            time.Time       `gorm:"uniqueIndex:idx_transactions_identity"` // calendar date at midnight UTC
	Amount          decimal.Decimal `gorm:"type:DECIMAL(20,2);uniqueIndex:idx_transactions_identity"`
	Description     string          `gorm:"uniqueIndex:idx_transactions_identity"`
	TransactionType TransactionType
	Source          string `gorm:"uniqueIndex:idx_transactions_identity"` // adapter that produced the record, e.g. "ANZ"
	Category        string
}

// Identity is the deduplication key of a transaction. Two records with
// equal identities are treated as the same real-world transaction even
// when they come from different export files.
type Identity struct {
	Date        string
	Amount      string
	Description string
	Source      string
}

// Identity returns the deduplication key of the transaction.
func (t Transaction) Identity() Identity {
	return Identity{
		Date:        t.Date.Format("2006-01-02"),
		Amount:      t.Amount.StringFixed(2),
		Description: t.Description,
		Source:      t.Source,
	}
}

// BeforeSave
//   - truncates the date to midnight UTC
//   - trims and uppercases the description
//   - re-derives the transaction type from the sign of the amount, so
//     that the type can never contradict the amount no matter how the
//     record was built
func (t *Transaction) BeforeSave(_ *gorm.DB) error {
	t.Description = strings.ToUpper(strings.TrimSpace(t.Description))

	date := t.Date.In(time.UTC)
	t.Date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	t.TransactionType = TypeForAmount(t.Amount)

	return nil
}

// AfterFind updates the date to use UTC as timezone, not +0000.
// The date is stored in UTC, but reading it back returns it as +0000.
func (t *Transaction) AfterFind(_ *gorm.DB) error {
	t.Date = t.Date.In(time.UTC)
	return nil
}
