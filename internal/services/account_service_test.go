package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trip-expense-service/internal/auth"
	"trip-expense-service/internal/models"
)

type accountFixture struct {
	service     *AccountService
	accountRepo *fakeAccountRepo
	budgetRepo  *fakeBudgetRepo
	costRepo    *fakeCostRepo
	expenseRepo *fakeExpenseRepo
	userRepo    *fakeUserRepo
	productID   int64
}

func newAccountFixture(t *testing.T) *accountFixture {
	t.Helper()

	currencyRepo := newFakeCurrencyRepo()
	base := currencyRepo.add("USD", decimal.NewFromInt(1))
	companyRepo := newFakeCompanyRepo()
	company := companyRepo.add("CMP01", base.ID)
	productRepo := newFakeProductRepo()
	product := productRepo.add("PRD01", company.ID)

	f := &accountFixture{
		accountRepo: newFakeAccountRepo(),
		budgetRepo:  newFakeBudgetRepo(),
		costRepo:    newFakeCostRepo(),
		expenseRepo: newFakeExpenseRepo(),
		userRepo:    newFakeUserRepo(),
		productID:   product.ID,
	}
	f.service = NewAccountService(
		fakeTxRunner{}, f.accountRepo, f.budgetRepo, f.costRepo, f.expenseRepo,
		f.userRepo, productRepo, companyRepo, currencyRepo,
	)
	return f
}

func (f *accountFixture) addBudget(dayNumber int, title string) *models.Budget {
	b := &models.Budget{
		ProductID:    f.productID,
		DayNumber:    dayNumber,
		ExpenseTitle: title,
		Version:      1,
		Audit:        models.Audit{IsActive: true, CreatedBy: "seed"},
	}
	f.budgetRepo.Insert(nil, b)
	return b
}

func (f *accountFixture) addCost(budgetID int64, costType string, sequence int, amount, baseAmount int64, baseCode string) *models.Cost {
	c := &models.Cost{
		BudgetID:           budgetID,
		CostType:           costType,
		Sequence:           sequence,
		CostAmount:         decimal.NewFromInt(amount),
		BaseCurrencyAmount: decimal.NewFromInt(baseAmount),
		BaseCurrencyCode:   baseCode,
		Audit:              models.Audit{IsActive: true, CreatedBy: "seed"},
	}
	f.costRepo.Insert(nil, c)
	return c
}

func managerPrincipal() auth.Principal {
	return auth.Principal{AccountName: "fin.manager", Role: models.RoleFinanceManager}
}

func TestAccountCreateForcesDraftStatus(t *testing.T) {
	f := newAccountFixture(t)

	id, err := f.service.Create(context.Background(), managerPrincipal(), AccountInput{
		TripCode:      "TP01ABC",
		DepartureDate: "2026-03-01",
		ProductID:     f.productID,
		AccountStatus: models.AccountStatusApproved,
	})
	require.NoError(t, err)

	account, err := f.accountRepo.GetByID(id)
	require.NoError(t, err)
	assert.Equal(t, models.AccountStatusDraft, account.AccountStatus)
}

func TestAccountCreateRejectsDuplicateTripCode(t *testing.T) {
	f := newAccountFixture(t)
	principal := managerPrincipal()
	budget := f.addBudget(1, "Hotel")
	f.addCost(budget.ID, models.CostTypePerson, 1, 100, 100, "USD")

	_, err := f.service.Create(context.Background(), principal, AccountInput{
		TripCode:       "TP01ABC",
		DepartureDate:  "2026-03-01",
		ProductID:      f.productID,
		NoOfPassengers: 1,
	})
	require.NoError(t, err)
	require.Len(t, f.expenseRepo.items, 1)

	_, err = f.service.Create(context.Background(), principal, AccountInput{
		TripCode:       " TP01ABC ",
		DepartureDate:  "2026-04-01",
		ProductID:      f.productID,
		NoOfPassengers: 1,
	})
	assert.ErrorIs(t, err, models.ErrDuplicateCode)
	// The failed create must not have fanned out any expenses.
	assert.Len(t, f.expenseRepo.items, 1)
}

func TestAccountCreateFansBudgetsIntoExpenses(t *testing.T) {
	f := newAccountFixture(t)

	day1 := f.addBudget(1, "Hotel")
	f.addCost(day1.ID, models.CostTypeLeader, 2, 200, 200, "USD")
	f.addCost(day1.ID, models.CostTypePerson, 4, 800, 800, "USD")
	day3 := f.addBudget(3, "Dinner")
	f.addCost(day3.ID, models.CostTypePerson, 4, 120, 120, "USD")

	id, err := f.service.Create(context.Background(), managerPrincipal(), AccountInput{
		TripCode:       "TP02JSK",
		DepartureDate:  "2026-03-01",
		ProductID:      f.productID,
		NoOfLeaders:    2,
		NoOfPassengers: 4,
	})
	require.NoError(t, err)

	expenses, err := f.expenseRepo.GetActiveByAccount(id)
	require.NoError(t, err)
	require.Len(t, expenses, 2)

	hotel := expenses[0]
	assert.Equal(t, "Hotel", hotel.ExpenseTitle)
	assert.Equal(t, "2026-03-01", hotel.ExpenseDate)
	assert.True(t, decimal.NewFromInt(1000).Equal(hotel.Amount), "amount was %s", hotel.Amount)
	assert.True(t, decimal.NewFromInt(200).Equal(hotel.BudgetedBaseCurrencyLeaderCost))
	assert.True(t, decimal.NewFromInt(800).Equal(hotel.BudgetedBaseCurrencyPassengerCost))
	assert.Equal(t, models.TransactionTypeAuto, hotel.TransactionType)
	assert.Equal(t, models.ExpenseStatusDraft, hotel.Status)

	dinner := expenses[1]
	assert.Equal(t, "2026-03-03", dinner.ExpenseDate)
	assert.True(t, decimal.NewFromInt(120).Equal(dinner.Amount))
}

func TestAccountCreateBaseCodeComesFromLastCostRow(t *testing.T) {
	f := newAccountFixture(t)

	budget := f.addBudget(1, "Hotel")
	f.addCost(budget.ID, models.CostTypePerson, 4, 800, 800, "USD")
	// Unmatched tier scanned last still supplies the base code.
	f.addCost(budget.ID, models.CostTypePerson, 5, 900, 900, "EUR")

	id, err := f.service.Create(context.Background(), managerPrincipal(), AccountInput{
		TripCode:       "TP03XYZ",
		DepartureDate:  "2026-03-01",
		ProductID:      f.productID,
		NoOfPassengers: 4,
	})
	require.NoError(t, err)

	expenses, err := f.expenseRepo.GetActiveByAccount(id)
	require.NoError(t, err)
	require.Len(t, expenses, 1)
	assert.Equal(t, "EUR", expenses[0].BaseCurrencyCode)
	assert.True(t, decimal.NewFromInt(800).Equal(expenses[0].Amount))
}

func TestAccountCreateDefaultsLeaderToCaller(t *testing.T) {
	f := newAccountFixture(t)
	leader := f.userRepo.add("fin.manager", models.RoleFinanceManager)

	id, err := f.service.Create(context.Background(), managerPrincipal(), AccountInput{
		TripCode:      "TP04LDR",
		DepartureDate: "2026-03-01",
		ProductID:     f.productID,
	})
	require.NoError(t, err)

	account, err := f.accountRepo.GetByID(id)
	require.NoError(t, err)
	require.True(t, account.LeaderUserID.Valid)
	assert.Equal(t, leader.ID, account.LeaderUserID.Int64)
}

func TestAccountUpdateDraftOverwritesFields(t *testing.T) {
	f := newAccountFixture(t)
	principal := managerPrincipal()

	id, err := f.service.Create(context.Background(), principal, AccountInput{
		TripCode:      "TP05UPD",
		DepartureDate: "2026-03-01",
		ProductID:     f.productID,
	})
	require.NoError(t, err)

	err = f.service.Update(context.Background(), principal, id, AccountInput{
		TripCode:       "TP05NEW",
		DepartureDate:  "2026-05-01",
		ProductID:      f.productID,
		NoOfLeaders:    1,
		NoOfPassengers: 9,
		AccountStatus:  models.AccountStatusDraft,
	})
	require.NoError(t, err)

	account, err := f.accountRepo.GetByID(id)
	require.NoError(t, err)
	assert.Equal(t, "TP05NEW", account.TripCode)
	assert.Equal(t, "2026-05-01", account.DepartureDate)
	assert.Equal(t, 9, account.NoOfPassengers)
	assert.Equal(t, models.AccountStatusDraft, account.AccountStatus)
}

func TestAccountUpdateAutoApprovesWithinBudget(t *testing.T) {
	f := newAccountFixture(t)
	principal := managerPrincipal()

	id, err := f.service.Create(context.Background(), principal, AccountInput{
		TripCode:      "TP06APR",
		DepartureDate: "2026-03-01",
		ProductID:     f.productID,
	})
	require.NoError(t, err)

	f.expenseRepo.sumConfirmed = decimal.NewFromInt(500)
	f.expenseRepo.sumBudgeted = decimal.NewFromInt(1000)

	err = f.service.Update(context.Background(), principal, id, AccountInput{
		AccountStatus: models.AccountStatusSubmitted,
	})
	require.NoError(t, err)

	account, err := f.accountRepo.GetByID(id)
	require.NoError(t, err)
	assert.Equal(t, models.AccountStatusApproved, account.AccountStatus)
}

func TestAccountUpdateKeepsRequestedStatusOverBudget(t *testing.T) {
	f := newAccountFixture(t)
	principal := managerPrincipal()

	id, err := f.service.Create(context.Background(), principal, AccountInput{
		TripCode:      "TP07SUB",
		DepartureDate: "2026-03-01",
		ProductID:     f.productID,
	})
	require.NoError(t, err)

	f.expenseRepo.sumConfirmed = decimal.NewFromInt(1500)
	f.expenseRepo.sumBudgeted = decimal.NewFromInt(1000)

	err = f.service.Update(context.Background(), principal, id, AccountInput{
		AccountStatus: models.AccountStatusSubmitted,
	})
	require.NoError(t, err)

	account, err := f.accountRepo.GetByID(id)
	require.NoError(t, err)
	assert.Equal(t, models.AccountStatusSubmitted, account.AccountStatus)
}

func TestAccountUpdateRejectsUnknownStatus(t *testing.T) {
	f := newAccountFixture(t)
	principal := managerPrincipal()

	id, err := f.service.Create(context.Background(), principal, AccountInput{
		TripCode:      "TP08BAD",
		DepartureDate: "2026-03-01",
		ProductID:     f.productID,
	})
	require.NoError(t, err)

	for _, status := range []string{"", "garbage"} {
		err = f.service.Update(context.Background(), principal, id, AccountInput{
			AccountStatus: status,
		})
		assert.ErrorIs(t, err, models.ErrValidation)
	}

	// The bad requests must not have moved the account out of DRAFT.
	account, err := f.accountRepo.GetByID(id)
	require.NoError(t, err)
	assert.Equal(t, models.AccountStatusDraft, account.AccountStatus)
}

func TestAccountListUnknownLeader(t *testing.T) {
	f := newAccountFixture(t)

	_, err := f.service.List(context.Background(), auth.Principal{
		AccountName: "ghost.leader",
		Role:        models.RoleLeader,
	}, 1, 10, "", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Leader Not found")
}
