// Package export writes the canonical collection to CSV for consumers
// that read files instead of the database.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spendlens/pipeline/internal/models"
)

// Header is the canonical column set in canonical order. Downstream
// consumers bind to exactly these names in exactly this order.
var Header = []string{"date", "amount", "description", "transaction_type", "source", "category"}

// Filename is the name of the canonical export file.
const Filename = "all_transactions_categorized.csv"

// WriteTransactions writes the collection to w in the order given,
// which is canonical order when the collection comes from the merger.
func WriteTransactions(w io.Writer, txs []models.Transaction) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(Header); err != nil {
		return fmt.Errorf("could not write the header: %w", err)
	}

	for _, t := range txs {
		record := []string{
			t.Date.Format("2006-01-02"),
			t.Amount.StringFixed(2),
			t.Description,
			string(t.TransactionType),
			t.Source,
			t.Category,
		}

		if err := writer.Write(record); err != nil {
			return fmt.Errorf("could not write transaction %d: %w", t.ID, err)
		}
	}

	writer.Flush()

	return writer.Error()
}

// WriteFile writes the canonical export file into dir and returns its
// path. The directory is created when it does not exist yet.
func WriteFile(dir string, txs []models.Transaction) (string, error) {
	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return "", fmt.Errorf("could not create the export directory: %w", err)
	}

	path := filepath.Join(dir, Filename)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("could not create %s: %w", path, err)
	}

	err = WriteTransactions(f, txs)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		return "", fmt.Errorf("could not write %s: %w", path, err)
	}

	return path, nil
}
