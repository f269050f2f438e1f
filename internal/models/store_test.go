package models_test

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/spendlens/pipeline/internal/models"
	"github.com/spendlens/pipeline/internal/types"
)

func (suite *TestSuiteStandard) TestReplaceTransactions() {
	first := []models.Transaction{
		testTransaction("2023-06-30", "-12.50", "COFFEE CORNER"),
		testTransaction("2023-07-01", "2000.00", "ACME CORP SALARY"),
		testTransaction("2023-07-02", "-85.20", "WOOLWORTHS 1234"),
	}
	for i := range first {
		first[i].ID = uint(i + 1)
	}

	suite.Require().NoError(models.ReplaceTransactions(first))

	stored, err := models.Transactions(models.DB)
	suite.Require().NoError(err)
	suite.Assert().Len(stored, 3)
	suite.Assert().Equal("COFFEE CORNER", stored[0].Description)
	suite.Assert().Equal(uint(3), stored[2].ID)

	// The next run replaces the whole collection, not just changed rows.
	second := []models.Transaction{
		testTransaction("2023-07-05", "-42.10", "COLES 0547"),
		testTransaction("2023-07-06", "-8.50", "CITY PARKING"),
	}
	for i := range second {
		second[i].ID = uint(i + 1)
	}

	suite.Require().NoError(models.ReplaceTransactions(second))

	stored, err = models.Transactions(models.DB)
	suite.Require().NoError(err)
	suite.Require().Len(stored, 2)
	suite.Assert().Equal("COLES 0547", stored[0].Description)
	suite.Assert().Equal("CITY PARKING", stored[1].Description)
}

func (suite *TestSuiteStandard) TestReplaceTransactionsEmpty() {
	seed := []models.Transaction{testTransaction("2023-07-01", "-12.50", "COFFEE CORNER")}
	seed[0].ID = 1
	suite.Require().NoError(models.ReplaceTransactions(seed))

	// An empty collection is a valid result and leaves an empty table.
	suite.Require().NoError(models.ReplaceTransactions(nil))

	stored, err := models.Transactions(models.DB)
	suite.Require().NoError(err)
	suite.Assert().Empty(stored)
}

func (suite *TestSuiteStandard) TestReplaceTransactionsValidation() {
	seed := []models.Transaction{testTransaction("2023-07-01", "-12.50", "COFFEE CORNER")}
	seed[0].ID = 1
	suite.Require().NoError(models.ReplaceTransactions(seed))

	invalid := testTransaction("2023-07-02", "-85.20", "WOOLWORTHS 1234")
	invalid.ID = 1
	invalid.Category = ""

	err := models.ReplaceTransactions([]models.Transaction{invalid})
	suite.Assert().ErrorIs(err, models.ErrValidation)
	suite.Assert().ErrorContains(err, "has no category")

	// The failed swap must roll back: the previous collection survives.
	stored, err := models.Transactions(models.DB)
	suite.Require().NoError(err)
	suite.Require().Len(stored, 1)
	suite.Assert().Equal("COFFEE CORNER", stored[0].Description)
}

func (suite *TestSuiteStandard) TestReplaceTransactionsClosedDB() {
	suite.CloseDB()

	err := models.ReplaceTransactions([]models.Transaction{testTransaction("2023-07-01", "-12.50", "COFFEE CORNER")})
	suite.Assert().Error(err)
}

func (suite *TestSuiteStandard) TestCreateDuplicateTransaction() {
	transaction := testTransaction("2023-07-01", "-12.50", "COFFEE CORNER")
	suite.Require().NoError(models.DB.Create(&transaction).Error)

	duplicate := testTransaction("2023-07-01", "-12.50", "COFFEE CORNER")
	err := models.DB.Create(&duplicate).Error
	suite.Assert().ErrorIs(err, models.ErrDuplicateTransaction)

	// The same row from another source is not a duplicate.
	other := testTransaction("2023-07-01", "-12.50", "COFFEE CORNER")
	other.Source = "Bankwest"
	suite.Assert().NoError(models.DB.Create(&other).Error)
}

func (suite *TestSuiteStandard) TestReplaceAggregates() {
	groceries := "Groceries"
	pct := decimal.RequireFromString("40.0")
	rate := decimal.RequireFromString("25.0")

	aggregates := []models.MonthlyAggregate{
		{
			Period:           types.NewMonth(2023, time.July),
			TotalAmount:      decimal.RequireFromString("500.00"),
			TransactionCount: 3,
			SavingsRatePct:   &rate,
		},
		{
			Period:           types.NewMonth(2023, time.July),
			Category:         &groceries,
			TotalAmount:      decimal.RequireFromString("-600.00"),
			TransactionCount: 2,
			PctOfPeriod:      &pct,
		},
	}

	rankings := []models.MerchantRanking{
		{Category: "Groceries", Merchant: "WOOLWORTHS 1234", Rank: 1, TransactionCount: 2, TotalAmount: decimal.RequireFromString("-600.00")},
	}

	summaries := []models.CategorySummary{
		{
			Category:         "Groceries",
			TransactionCount: 2,
			TotalAmount:      decimal.RequireFromString("-600.00"),
			AverageAmount:    decimal.RequireFromString("-300.00"),
			MinAmount:        decimal.RequireFromString("-250.00"),
			MaxAmount:        decimal.RequireFromString("-350.00"),
		},
	}

	suite.Require().NoError(models.ReplaceAggregates(aggregates, rankings, summaries))

	var storedAggregates []models.MonthlyAggregate
	suite.Require().NoError(models.DB.Find(&storedAggregates).Error)
	suite.Require().Len(storedAggregates, 2)
	suite.Assert().Nil(storedAggregates[0].Category)
	suite.Require().NotNil(storedAggregates[1].Category)
	suite.Assert().Equal("Groceries", *storedAggregates[1].Category)

	var storedRankings []models.MerchantRanking
	suite.Require().NoError(models.DB.Find(&storedRankings).Error)
	suite.Require().Len(storedRankings, 1)
	suite.Assert().Equal(1, storedRankings[0].Rank)

	var storedSummaries []models.CategorySummary
	suite.Require().NoError(models.DB.Find(&storedSummaries).Error)
	suite.Require().Len(storedSummaries, 1)
	suite.Assert().Equal("Groceries", storedSummaries[0].Category)
	suite.Assert().True(storedSummaries[0].MinAmount.Equal(decimal.RequireFromString("-250.00")), "got %s", storedSummaries[0].MinAmount)

	// Aggregates are derived data: the next run swaps them wholesale.
	suite.Require().NoError(models.ReplaceAggregates(nil, nil, nil))

	suite.Require().NoError(models.DB.Find(&storedAggregates).Error)
	suite.Assert().Empty(storedAggregates)

	suite.Require().NoError(models.DB.Find(&storedRankings).Error)
	suite.Assert().Empty(storedRankings)

	suite.Require().NoError(models.DB.Find(&storedSummaries).Error)
	suite.Assert().Empty(storedSummaries)
}

func (suite *TestSuiteStandard) TestLatestAggregate() {
	_, err := models.LatestAggregate()
	suite.Assert().ErrorIs(err, models.ErrResourceNotFound)
	suite.Assert().ErrorContains(err, "there is no monthly aggregate")

	groceries := "Groceries"
	aggregates := []models.MonthlyAggregate{
		{Period: types.NewMonth(2023, time.June), TotalAmount: decimal.RequireFromString("-120.00"), TransactionCount: 2},
		{Period: types.NewMonth(2023, time.July), TotalAmount: decimal.RequireFromString("500.00"), TransactionCount: 3},
		// A category row in a later period must not shadow the latest
		// period summary.
		{Period: types.NewMonth(2023, time.August), Category: &groceries, TotalAmount: decimal.RequireFromString("-60.00"), TransactionCount: 1},
	}
	suite.Require().NoError(models.ReplaceAggregates(aggregates, nil, nil))

	latest, err := models.LatestAggregate()
	suite.Require().NoError(err)
	suite.Assert().Equal("2023-07", latest.Period.String())
	suite.Assert().Nil(latest.Category)
	suite.Assert().Equal(3, latest.TransactionCount)
}

func (suite *TestSuiteStandard) TestTransactionsEmpty() {
	stored, err := models.Transactions(models.DB)
	suite.Require().NoError(err)
	suite.Assert().Empty(stored)
}
