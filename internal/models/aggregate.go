package models

import (
	"github.com/shopspring/decimal"
	"github.com/spendlens/pipeline/internal/types"
)

// MonthlyAggregate is one row of the persisted aggregate output.
//
// Two kinds of rows share the table:
//   - period summary rows have a NULL category and carry the savings rate
//   - category rows carry the category's spend and its share of the
//     period's total spend
//
// PctOfPeriod and SavingsRatePct are nil when undefined, never zero:
// a period without any income has no savings rate.
type MonthlyAggregate struct {
	ID               uint        `gorm:"primarykey"`
	Period           types.Month `gorm:"index"`
	Category         *string
	TotalAmount      decimal.Decimal  `gorm:"type:DECIMAL(20,2)"`
	TransactionCount int
	PctOfPeriod      *decimal.Decimal `gorm:"type:DECIMAL(20,1)"`
	SavingsRatePct   *decimal.Decimal `gorm:"type:DECIMAL(20,1)"`
}

// MerchantRanking is one row of the persisted top-merchants-per-category
// output. Ranks are 1-based and gap-free within a category; ties on the
// spend total are broken by merchant name so that a rank never repeats.
type MerchantRanking struct {
	ID               uint   `gorm:"primarykey"`
	Category         string `gorm:"index"`
	Merchant         string
	Rank             int
	TransactionCount int
	TotalAmount      decimal.Decimal `gorm:"type:DECIMAL(20,2)"`
}

// CategorySummary is one row of the persisted all-time category rollup.
// It spans every period and, unlike the monthly rows, includes income
// categories. MinAmount and MaxAmount carry the signed amounts of the
// smallest and largest rows by magnitude.
type CategorySummary struct {
	ID               uint   `gorm:"primarykey"`
	Category         string `gorm:"index"`
	TransactionCount int
	TotalAmount      decimal.Decimal `gorm:"type:DECIMAL(20,2)"`
	AverageAmount    decimal.Decimal `gorm:"type:DECIMAL(20,2)"`
	MinAmount        decimal.Decimal `gorm:"type:DECIMAL(20,2)"`
	MaxAmount        decimal.Decimal `gorm:"type:DECIMAL(20,2)"`
}
