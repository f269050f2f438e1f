// Package bankwest parses Bankwest transaction exports.
//
// The export is a headered CSV. Full exports carry nine columns (BSB
// Number, Account Number, Transaction Date, Narration, Cheque Number,
// Debit, Credit, Balance, Transaction Type); only four are used. The
// header is located by scanning for the required columns, so preamble
// lines above it do not matter. Debits and credits arrive in separate
// unsigned columns and are collapsed into one signed amount.
package bankwest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/spendlens/pipeline/internal/importer"
	"github.com/spendlens/pipeline/internal/models"
)

// Required header columns.
const (
	colDate      = "Transaction Date"
	colNarration = "Narration"
	colDebit     = "Debit"
	colCredit    = "Credit"
)

var requiredColumns = []string{colDate, colNarration, colDebit, colCredit}

// headerScanLimit is the number of leading rows searched for the header.
const headerScanLimit = 10

// ErrNoHeader is returned for files that do not contain the Bankwest
// header row. Such a file is not a Bankwest export and aborts the run.
var ErrNoHeader = errors.New("no Bankwest header row found")

type Source struct{}

func (Source) Name() string {
	return "Bankwest"
}

func (Source) Pattern() string {
	return "bankwest/*.csv"
}

// colIndex maps column names to their position in the header.
type colIndex map[string]int

// Parse reads a Bankwest export file.
func (s Source) Parse(r io.Reader, opts importer.Options) (importer.ParseResult, error) {
	reader := csv.NewReader(r)

	// We can reuse the array in the background to improve performance
	reader.ReuseRecord = true

	// Field counts are validated by hand so that a malformed row is
	// skipped and counted instead of aborting the file
	reader.FieldsPerRecord = -1

	cols, err := detectHeader(reader)
	if err != nil {
		return importer.ParseResult{}, err
	}

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

		date, err := importer.ParseDate(cellValue(record, cols[colDate]))
		if err != nil {
			result.Skipped = append(result.Skipped, importer.RowError{Line: line, Reason: importer.SkipBadDate, Err: err})
			continue
		}

		amount, rowErr := collapseAmount(cellValue(record, cols[colDebit]), cellValue(record, cols[colCredit]))
		if rowErr != nil {
			rowErr.Line = line
			result.Skipped = append(result.Skipped, *rowErr)
			continue
		}

		if !opts.InRange(date) {
			result.Filtered++
			continue
		}

		result.Transactions = append(result.Transactions, models.Transaction{
			Date:            date,
			Amount:          amount,
			Description:     importer.NormalizeDescription(cellValue(record, cols[colNarration])),
			TransactionType: models.TypeForAmount(amount),
			Source:          s.Name(),
		})
	}

	return result, nil
}

// detectHeader reads rows until one contains all required columns.
func detectHeader(reader *csv.Reader) (colIndex, error) {
	for i := 0; i < headerScanLimit; i++ {
		record, err := reader.Read()
		if err == io.EOF {
			return nil, ErrNoHeader
		}
		if err != nil {
			return nil, csvReadError(err)
		}

		cols := make(colIndex, len(record))
		for i, cell := range record {
			name := strings.TrimSpace(cell)
			if name != "" {
				cols[name] = i
			}
		}

		found := true
		for _, name := range requiredColumns {
			if _, ok := cols[name]; !ok {
				found = false
				break
			}
		}

		if found {
			return cols, nil
		}
	}

	return nil, ErrNoHeader
}

// collapseAmount folds the split debit and credit columns into one
// signed amount: the debit magnitude spends, the credit magnitude
// receives. A row with both columns populated is ambiguous and must not
// be summed in either direction.
func collapseAmount(debit, credit string) (decimal.Decimal, *importer.RowError) {
	switch {
	case debit != "" && credit != "":
		return decimal.Zero, &importer.RowError{
			Reason: importer.SkipAmbiguousAmount,
			Err:    errors.New("both debit and credit are populated"),
		}
	case debit == "" && credit == "":
		return decimal.Zero, &importer.RowError{Reason: importer.SkipMissingAmount, Err: importer.ErrEmptyAmount}
	case debit != "":
		amount, err := importer.ParseAmount(debit)
		if err != nil {
			return decimal.Zero, &importer.RowError{Reason: importer.SkipBadAmount, Err: err}
		}

		return amount.Abs().Neg(), nil
	default:
		amount, err := importer.ParseAmount(credit)
		if err != nil {
			return decimal.Zero, &importer.RowError{Reason: importer.SkipBadAmount, Err: err}
		}

		return amount.Abs(), nil
	}
}

// cellValue safely gets a trimmed cell value from a record.
func cellValue(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}

	return strings.TrimSpace(record[idx])
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
