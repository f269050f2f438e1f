package models

import (
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReplaceTransactions replaces the stored canonical collection with txs.
//
// The swap happens in one database transaction: the previous run's rows
// are deleted, the new collection is inserted in canonical order, and
// the result is read back and verified before the transaction commits.
// An empty collection is valid and leaves an empty table.
func ReplaceTransactions(txs []Transaction) error {
	return DB.Transaction(func(tx *gorm.DB) error {
		err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&Transaction{}).Error
		if err != nil {
			return fmt.Errorf("failed to clear the transactions table: %w", err)
		}

		if len(txs) > 0 {
			err = tx.CreateInBatches(txs, 100).Error
			if err != nil {
				return fmt.Errorf("failed to insert transactions: %w", err)
			}
		}

		return validateTransactions(tx, txs)
	})
}

// validateTransactions reads the stored collection back and verifies it
// against the collection that was written: the row count and the exact
// amount sum must match, and every row must carry a category.
func validateTransactions(db *gorm.DB, written []Transaction) error {
	var count int64
	err := db.Model(&Transaction{}).Count(&count).Error
	if err != nil {
		return err
	}

	if count != int64(len(written)) {
		return fmt.Errorf("%w: wrote %d transactions, read %d back", ErrValidation, len(written), count)
	}

	var stored []Transaction
	err = db.Find(&stored).Error
	if err != nil {
		return err
	}

	wantSum := decimal.Zero
	for _, t := range written {
		wantSum = wantSum.Add(t.Amount)
	}

	haveSum := decimal.Zero
	for _, t := range stored {
		haveSum = haveSum.Add(t.Amount)

		if t.Category == "" {
			return fmt.Errorf("%w: transaction %d has no category", ErrValidation, t.ID)
		}
	}

	if !wantSum.Equal(haveSum) {
		return fmt.Errorf("%w: wrote an amount sum of %s, read %s back", ErrValidation, wantSum, haveSum)
	}

	return nil
}

// ReplaceAggregates replaces the persisted aggregate output.
//
// Aggregates are derived data. They are recomputed from the canonical
// collection on every run, so the tables are swapped wholesale instead
// of being reconciled row by row.
func ReplaceAggregates(aggregates []MonthlyAggregate, rankings []MerchantRanking, summaries []CategorySummary) error {
	return DB.Transaction(func(tx *gorm.DB) error {
		err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&MonthlyAggregate{}).Error
		if err != nil {
			return fmt.Errorf("failed to clear the monthly aggregates table: %w", err)
		}

		err = tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&MerchantRanking{}).Error
		if err != nil {
			return fmt.Errorf("failed to clear the merchant rankings table: %w", err)
		}

		err = tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&CategorySummary{}).Error
		if err != nil {
			return fmt.Errorf("failed to clear the category summaries table: %w", err)
		}

		if len(aggregates) > 0 {
			err = tx.CreateInBatches(aggregates, 100).Error
			if err != nil {
				return fmt.Errorf("failed to insert monthly aggregates: %w", err)
			}
		}

		if len(rankings) > 0 {
			err = tx.CreateInBatches(rankings, 100).Error
			if err != nil {
				return fmt.Errorf("failed to insert merchant rankings: %w", err)
			}
		}

		if len(summaries) > 0 {
			err = tx.CreateInBatches(summaries, 100).Error
			if err != nil {
				return fmt.Errorf("failed to insert category summaries: %w", err)
			}
		}

		return nil
	})
}

// LatestAggregate returns the period summary row of the most recent
// period. When no aggregates are stored, the error wraps
// ErrResourceNotFound.
func LatestAggregate() (MonthlyAggregate, error) {
	var aggregate MonthlyAggregate

	err := DB.Where("category IS NULL").Order("period DESC").First(&aggregate).Error
	if err != nil {
		return MonthlyAggregate{}, err
	}

	return aggregate, nil
}

// Transactions returns the canonical collection in canonical order.
func Transactions(db *gorm.DB) ([]Transaction, error) {
	var txs []Transaction
	err := db.Order("id ASC").Find(&txs).Error
	if err != nil {
		return nil, err
	}

	return txs, nil
}
