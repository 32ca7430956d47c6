package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trip-expense-service/internal/models"
)

type costFixture struct {
	service    *CostService
	costRepo   *fakeCostRepo
	budgetRepo *fakeBudgetRepo
	budgetID   int64
}

func newCostFixture(t *testing.T, budgetCurrencyID int64) *costFixture {
	t.Helper()

	currencyRepo := newFakeCurrencyRepo()
	base := currencyRepo.add("USD", decimal.RequireFromString("0.8"))
	currencyRepo.add("AUD", decimal.RequireFromString("1.2"))
	companyRepo := newFakeCompanyRepo()
	company := companyRepo.add("CMP01", base.ID)
	productRepo := newFakeProductRepo()
	product := productRepo.add("PRD01", company.ID)

	f := &costFixture{
		costRepo:   newFakeCostRepo(),
		budgetRepo: newFakeBudgetRepo(),
	}
	budget := &models.Budget{
		ProductID:    product.ID,
		DayNumber:    1,
		ExpenseTitle: "Hotel",
		Version:      1,
		Audit:        models.Audit{IsActive: true, CreatedBy: "seed"},
	}
	if budgetCurrencyID > 0 {
		budget.CurrencyID = nullInt64(budgetCurrencyID)
	}
	f.budgetRepo.Insert(nil, budget)
	f.budgetID = budget.ID

	f.service = NewCostService(fakeTxRunner{}, f.costRepo, f.budgetRepo, productRepo, companyRepo, currencyRepo)
	return f
}

func TestCostCreateAppendsSequenceAndConverts(t *testing.T) {
	f := newCostFixture(t, 2) // budget priced in AUD at rate 1.2, base rate 0.8

	first, err := f.service.Create(context.Background(), managerPrincipal(), CostInput{
		BudgetID:   f.budgetID,
		CostType:   models.CostTypePerson,
		CostAmount: decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Sequence)
	assert.True(t, decimal.NewFromInt(150).Equal(first.BaseCurrencyAmount), "base was %s", first.BaseCurrencyAmount)
	assert.Equal(t, "USD", first.BaseCurrencyCode)

	second, err := f.service.Create(context.Background(), managerPrincipal(), CostInput{
		BudgetID:   f.budgetID,
		CostType:   models.CostTypePerson,
		CostAmount: decimal.NewFromInt(200),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, second.Sequence)

	// A different cost type sequences independently.
	leader, err := f.service.Create(context.Background(), managerPrincipal(), CostInput{
		BudgetID:   f.budgetID,
		CostType:   models.CostTypeLeader,
		CostAmount: decimal.NewFromInt(50),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, leader.Sequence)
}

func TestCostCreateWithoutBudgetCurrencyUsesBaseRate(t *testing.T) {
	f := newCostFixture(t, 0)

	cost, err := f.service.Create(context.Background(), managerPrincipal(), CostInput{
		BudgetID:   f.budgetID,
		CostType:   models.CostTypePerson,
		CostAmount: decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(cost.BaseCurrencyAmount))
}

func TestCostCreateRejectsBadInput(t *testing.T) {
	f := newCostFixture(t, 0)

	_, err := f.service.Create(context.Background(), managerPrincipal(), CostInput{
		BudgetID:   f.budgetID,
		CostType:   "CREW",
		CostAmount: decimal.NewFromInt(10),
	})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = f.service.Create(context.Background(), managerPrincipal(), CostInput{
		BudgetID:   f.budgetID,
		CostType:   models.CostTypePerson,
		CostAmount: decimal.NewFromInt(-1),
	})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestCostDeleteClosesSequenceGap(t *testing.T) {
	f := newCostFixture(t, 0)
	principal := managerPrincipal()

	var costs []*models.Cost
	for i := 0; i < 3; i++ {
		c, err := f.service.Create(context.Background(), principal, CostInput{
			BudgetID:   f.budgetID,
			CostType:   models.CostTypePerson,
			CostAmount: decimal.NewFromInt(int64(10 * (i + 1))),
		})
		require.NoError(t, err)
		costs = append(costs, c)
	}

	require.NoError(t, f.service.Delete(context.Background(), principal, costs[1].ID))

	remaining, err := f.costRepo.GetActiveByBudgetAndType(f.budgetID, models.CostTypePerson)
	require.NoError(t, err)
	require.Len(t, remaining, 2)
	assert.Equal(t, 1, remaining[0].Sequence)
	assert.Equal(t, 2, remaining[1].Sequence)
	assert.Equal(t, costs[2].ID, remaining[1].ID)
}
