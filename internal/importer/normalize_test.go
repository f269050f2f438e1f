package importer_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spendlens/pipeline/internal/importer"
)

func TestNormalizeDescription(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"trims and uppercases", "  woolworths 1234 Carnegie  ", "WOOLWORTHS 1234 CARNEGIE"},
		{"internal whitespace is preserved", "COFFEE  CORNER\tMELBOURNE", "COFFEE  CORNER\tMELBOURNE"},
		{"already canonical", "RENT JULY", "RENT JULY"},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, importer.NormalizeDescription(tt.in))
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"plain", "-12.50", "-12.5", false},
		{"thousands separators", "1,250.00", "1250", false},
		{"currency symbol", "$3.20", "3.2", false},
		{"surrounding whitespace", " -85.20 ", "-85.2", false},
		{"banker's rounding down", "2.345", "2.34", false},
		{"banker's rounding up", "2.355", "2.36", false},
		{"more than two decimals", "-10.005", "-10", false},
		{"empty", "", "", true},
		{"only decoration", "$,", "", true},
		{"garbage", "abc", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, err := importer.ParseAmount(tt.in)
			if tt.wantErr {
				assert.NotNil(t, err)
				return
			}

			require.Nil(t, err)

			want, err := decimal.NewFromString(tt.want)
			require.Nil(t, err)
			assert.True(t, want.Equal(amount), "expected %s, got %s", want, amount)
		})
	}
}

func TestParseAmountEmpty(t *testing.T) {
	_, err := importer.ParseAmount(" ")
	assert.ErrorIs(t, err, importer.ErrEmptyAmount)
}

func TestParseDate(t *testing.T) {
	date, err := importer.ParseDate("15/07/2023")
	require.Nil(t, err)
	assert.Equal(t, time.Date(2023, 7, 15, 0, 0, 0, 0, time.UTC), date)

	_, err = importer.ParseDate("2023-07-15")
	assert.NotNil(t, err)

	_, err = importer.ParseDate("31/02/2023")
	assert.NotNil(t, err)
}

func TestOptionsInRange(t *testing.T) {
	date := func(day int) time.Time {
		return time.Date(2023, 7, day, 0, 0, 0, 0, time.UTC)
	}

	tests := []struct {
		name string
		opts importer.Options
		date time.Time
		want bool
	}{
		{"unbounded", importer.Options{}, date(1), true},
		{"within", importer.Options{From: date(1), To: date(31)}, date(15), true},
		{"on the lower bound", importer.Options{From: date(15)}, date(15), true},
		{"on the upper bound", importer.Options{To: date(15)}, date(15), true},
		{"before", importer.Options{From: date(15)}, date(14), false},
		{"after", importer.Options{To: date(15)}, date(16), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.opts.InRange(tt.date))
		})
	}
}
