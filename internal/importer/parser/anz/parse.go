// Package anz parses ANZ transaction exports.
//
// The export is a headerless CSV with three columns: date, amount,
// description. Dates are DD/MM/YYYY, amounts are signed and can carry
// thousands separators. The sign already encodes the direction, debits
// negative and credits positive.
package anz

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spendlens/pipeline/internal/importer"
	"github.com/spendlens/pipeline/internal/models"
)

// Column positions in the export.
const (
	Date = iota
	Amount
	Description
)

// fieldCount is the number of fields every row must have.
const fieldCount = 3

type Source struct{}

func (Source) Name() string {
	return "ANZ"
}

func (Source) Pattern() string {
	return "anz/*.csv"
}

// Parse reads an ANZ export file.
func (s Source) Parse(r io.Reader, opts importer.Options) (importer.ParseResult, error) {
	reader := csv.NewReader(r)

	// We can reuse the array in the background to improve performance
	reader.ReuseRecord = true

	// Field counts are validated by hand so that a malformed row is
	// skipped and counted instead of aborting the file
	reader.FieldsPerRecord = -1

	var result importer.ParseResult

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return importer.ParseResult{}, csvReadError(err)
		}

		line, _ := reader.FieldPos(0)

		if len(record) != fieldCount {
			result.Skipped = append(result.Skipped, importer.RowError{
				Line:   line,
				Reason: importer.SkipFieldCount,
				Err:    fmt.Errorf("expected %d fields, got %d", fieldCount, len(record)),
			})
			continue
		}

		date, err := importer.ParseDate(record[Date])
		if err != nil {
			result.Skipped = append(result.Skipped, importer.RowError{Line: line, Reason: importer.SkipBadDate, Err: err})
			continue
		}

		reason := importer.SkipBadAmount
		if strings.TrimSpace(record[Amount]) == "" {
			reason = importer.SkipMissingAmount
		}

		amount, err := importer.ParseAmount(record[Amount])
		if err != nil {
			result.Skipped = append(result.Skipped, importer.RowError{Line: line, Reason: reason, Err: err})
			continue
		}

		if !opts.InRange(date) {
			result.Filtered++
			continue
		}

		result.Transactions = append(result.Transactions, models.Transaction{
			Date:            date,
			Amount:          amount,
			Description:     importer.NormalizeDescription(record[Description]),
			TransactionType: models.TypeForAmount(amount),
			Source:          s.Name(),
		})
	}

	return result, nil
}

// csvReadError returns an error that includes the line of the input the
// error occurred in, when the reader knows it.
func csvReadError(err error) error {
	var parseErr *csv.ParseError
	if errors.As(err, &parseErr) {
		return fmt.Errorf("error in line %d of the CSV: %w", parseErr.Line, err)
	}

	return fmt.Errorf("error reading the CSV: %w", err)
}
