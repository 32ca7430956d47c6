package services

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trip-expense-service/internal/models"
)

type uploadFixture struct {
	service    *BudgetUploadService
	budgetRepo *fakeBudgetRepo
	costRepo   *fakeCostRepo
	productID  int64
}

func newUploadFixture(t *testing.T) *uploadFixture {
	t.Helper()

	currencyRepo := newFakeCurrencyRepo()
	base := currencyRepo.add("USD", decimal.NewFromInt(1))
	companyRepo := newFakeCompanyRepo()
	company := companyRepo.add("CMP01", base.ID)
	productRepo := newFakeProductRepo()
	product := productRepo.add("PRD01", company.ID)

	categoryRepo := newFakeLookupRepo()
	categoryRepo.Insert(nil, &models.Lookup{Code: "MEALS", Name: "Meals", Audit: models.Audit{IsActive: true}})
	taxRepo := newFakeLookupRepo()
	taxGroupRepo := newFakeLookupRepo()
	deptRepo := newFakeLookupRepo()

	f := &uploadFixture{
		budgetRepo: newFakeBudgetRepo(),
		costRepo:   newFakeCostRepo(),
		productID:  product.ID,
	}
	f.service = NewBudgetUploadService(
		fakeTxRunner{}, f.budgetRepo, f.costRepo, currencyRepo, productRepo, companyRepo,
		taxRepo, taxGroupRepo, deptRepo, categoryRepo,
	)
	return f
}

func validUploadRow(productID int64) BudgetUploadRow {
	row := BudgetUploadRow{
		RowNumber:    2,
		ProductID:    strconv.FormatInt(productID, 10),
		DayNumber:    "1",
		ExpenseTitle: "Breakfast",
		ExpenseCode:  "MEALS",
		PaymentType:  "cash",
	}
	row.PassengerCosts[0] = "10"
	return row
}

func TestUploadCommitsValidRows(t *testing.T) {
	f := newUploadFixture(t)

	row := validUploadRow(f.productID)
	row.LeaderCosts[1] = "25.50"

	result, err := f.service.Upload(context.Background(), managerPrincipal(), []BudgetUploadRow{row})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.RowsCommitted)

	budgets, err := f.budgetRepo.GetActiveByProduct(f.productID)
	require.NoError(t, err)
	require.Len(t, budgets, 1)
	assert.Equal(t, "Breakfast", budgets[0].ExpenseTitle)
	assert.Equal(t, models.PaymentTypeCash, budgets[0].PaymentType)

	costs, err := f.costRepo.GetActiveByBudget(budgets[0].ID)
	require.NoError(t, err)
	require.Len(t, costs, 2)

	person := costs[0]
	assert.Equal(t, models.CostTypePerson, person.CostType)
	assert.Equal(t, 1, person.Sequence)
	assert.True(t, decimal.NewFromInt(10).Equal(person.CostAmount))
	// Same rate on both sides converts one to one.
	assert.True(t, decimal.NewFromInt(10).Equal(person.BaseCurrencyAmount))
	assert.Equal(t, "USD", person.BaseCurrencyCode)

	leader := costs[1]
	assert.Equal(t, models.CostTypeLeader, leader.CostType)
	assert.Equal(t, 2, leader.Sequence)
	assert.True(t, decimal.RequireFromString("25.50").Equal(leader.CostAmount))
}

func TestUploadRejectsWholeBatchOnInvalidRow(t *testing.T) {
	f := newUploadFixture(t)

	good := validUploadRow(f.productID)
	bad := validUploadRow(f.productID)
	bad.RowNumber = 3
	bad.ExpenseCode = ""

	result, err := f.service.Upload(context.Background(), managerPrincipal(), []BudgetUploadRow{good, bad})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 0, result.RowsCommitted)

	require.Len(t, result.RowResults, 2)
	assert.Empty(t, result.RowResults[0].Errors)
	assert.Contains(t, result.RowResults[1].Errors, "Expense Code is required")

	budgets, err := f.budgetRepo.GetActiveByProduct(f.productID)
	require.NoError(t, err)
	assert.Empty(t, budgets)
}

func TestUploadUnknownPaymentTypePassesAsBlank(t *testing.T) {
	f := newUploadFixture(t)

	row := validUploadRow(f.productID)
	row.PaymentType = "CHEQUE"

	result, err := f.service.Upload(context.Background(), managerPrincipal(), []BudgetUploadRow{row})
	require.NoError(t, err)
	require.True(t, result.Success)

	budgets, err := f.budgetRepo.GetActiveByProduct(f.productID)
	require.NoError(t, err)
	require.Len(t, budgets, 1)
	assert.Equal(t, "", budgets[0].PaymentType)
}

func TestUploadCollectsRowErrors(t *testing.T) {
	f := newUploadFixture(t)

	row := validUploadRow(f.productID)
	row.ExpenseTitle = ""
	row.DayNumber = "0"
	row.CurrencyCode = "XXX"

	result, err := f.service.Upload(context.Background(), managerPrincipal(), []BudgetUploadRow{row})
	require.NoError(t, err)
	require.False(t, result.Success)
	require.Len(t, result.RowResults, 1)

	errs := result.RowResults[0].Errors
	assert.Contains(t, errs, "Expense Title is required")
	assert.Contains(t, errs, "Day Number must be a positive number")
	assert.Contains(t, errs, `Currency Code "XXX" not found`)
}

func TestUploadEmptyBatch(t *testing.T) {
	f := newUploadFixture(t)

	_, err := f.service.Upload(context.Background(), managerPrincipal(), nil)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestParseBudgetRowsCSV(t *testing.T) {
	header := make([]string, uploadColumnCount)
	header[0] = "ProductId"
	record := make([]string, uploadColumnCount)
	record[0] = "7"
	record[1] = "2"
	record[2] = "Lunch"
	record[3] = "MEALS"
	record[9] = "12.5"
	record[9+passengerCostColumns] = "30"

	var sb strings.Builder
	sb.WriteString(strings.Join(header, ","))
	sb.WriteString("\n")
	sb.WriteString(strings.Join(record, ","))
	sb.WriteString("\n")

	rows, err := ParseBudgetRows(strings.NewReader(sb.String()), "budgets.csv")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	row := rows[0]
	assert.Equal(t, 2, row.RowNumber)
	assert.Equal(t, "7", row.ProductID)
	assert.Equal(t, "Lunch", row.ExpenseTitle)
	assert.Equal(t, "12.5", row.PassengerCosts[0])
	assert.Equal(t, "30", row.LeaderCosts[0])
}
