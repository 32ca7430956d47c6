package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"trip-expense-service/internal/auth"
	"trip-expense-service/internal/database"
	"trip-expense-service/internal/models"
	"trip-expense-service/internal/repositories"
)

type AccountService struct {
	txRunner     database.TxRunner
	accountRepo  repositories.AccountRepository
	budgetRepo   repositories.BudgetRepository
	costRepo     repositories.CostRepository
	expenseRepo  repositories.ExpenseRepository
	userRepo     repositories.UserRepository
	productRepo  repositories.ProductRepository
	companyRepo  repositories.CompanyRepository
	currencyRepo repositories.CurrencyRepository
}

func NewAccountService(
	txRunner database.TxRunner,
	accountRepo repositories.AccountRepository,
	budgetRepo repositories.BudgetRepository,
	costRepo repositories.CostRepository,
	expenseRepo repositories.ExpenseRepository,
	userRepo repositories.UserRepository,
	productRepo repositories.ProductRepository,
	companyRepo repositories.CompanyRepository,
	currencyRepo repositories.CurrencyRepository,
) *AccountService {
	return &AccountService{
		txRunner:     txRunner,
		accountRepo:  accountRepo,
		budgetRepo:   budgetRepo,
		costRepo:     costRepo,
		expenseRepo:  expenseRepo,
		userRepo:     userRepo,
		productRepo:  productRepo,
		companyRepo:  companyRepo,
		currencyRepo: currencyRepo,
	}
}

type AccountInput struct {
	TripCode       string `json:"tripCode"`
	DepartureDate  string `json:"departureDate"`
	ProductID      int64  `json:"productId"`
	NoOfLeaders    int    `json:"noOfLeaders"`
	NoOfPassengers int    `json:"noOfPassengers"`
	LeaderUserID   int64  `json:"leaderUserId"`
	AccountStatus  string `json:"accountStatus"`
	ReviewerNotes  string `json:"reviewerNotes"`
}

// AccountListItem is one row of the account listing, with budget-vs-actual
// totals and the resolved base currency.
type AccountListItem struct {
	models.Account
	TotalBudget      decimal.Decimal `json:"totalBudget"`
	TotalExpenses    decimal.Decimal `json:"totalExpenses"`
	BaseCurrencyCode string          `json:"baseCurrencyCode"`
}

// Create creates an account and fans its product's active budgets out into
// AUTO expenses, all inside one transaction. The caller-supplied status is
// ignored: accounts are always created as DRAFT.
func (s *AccountService) Create(ctx context.Context, principal auth.Principal, input AccountInput) (int64, error) {
	input.TripCode = strings.TrimSpace(input.TripCode)
	if input.TripCode == "" {
		return 0, models.ValidationError("Trip Code is required")
	}
	departure, err := time.Parse(dateFormat, input.DepartureDate)
	if err != nil {
		return 0, models.ValidationError("Departure Date must be YYYY-MM-DD")
	}
	if input.ProductID <= 0 {
		return 0, models.ValidationError("Product Id is required")
	}
	if input.NoOfLeaders < 0 || input.NoOfPassengers < 0 {
		return 0, models.ValidationError("Leader and passenger counts must not be negative")
	}

	leaderID := nullInt64(input.LeaderUserID)
	if !leaderID.Valid {
		// No leader supplied: fall back to the creating principal.
		user, err := s.userRepo.GetByAccountName(principal.AccountName)
		if err == nil {
			leaderID = nullInt64(user.ID)
		} else if !errors.Is(err, models.ErrNotFound) {
			return 0, err
		}
	}

	account := &models.Account{
		TripCode:       input.TripCode,
		DepartureDate:  departure.Format(dateFormat),
		NoOfLeaders:    input.NoOfLeaders,
		NoOfPassengers: input.NoOfPassengers,
		AccountStatus:  models.AccountStatusDraft,
		LeaderUserID:   leaderID,
		ProductID:      input.ProductID,
		ReviewerNotes:  nullString(input.ReviewerNotes),
		Audit:          newAudit(principal.AccountName),
	}

	err = s.txRunner.RunInTx(ctx, func(tx *sql.Tx) error {
		_, err := s.accountRepo.GetActiveByTripCode(input.TripCode)
		if err == nil {
			return models.DuplicateError("Account", input.TripCode)
		}
		if !errors.Is(err, models.ErrNotFound) {
			return err
		}

		if err := s.accountRepo.Insert(tx, account); err != nil {
			return err
		}

		budgets, err := s.budgetRepo.GetActiveByProduct(input.ProductID)
		if err != nil {
			return err
		}

		for _, budget := range budgets {
			expense, err := s.budgetToExpense(account, budget, departure, principal.AccountName)
			if err != nil {
				return err
			}
			if err := s.expenseRepo.Insert(tx, expense); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return account.ID, nil
}

// budgetToExpense builds the AUTO expense for one budget line. The leader
// cost tier at sequence == noOfLeaders and the person tier at sequence ==
// noOfPassengers contribute the amounts; the base currency code is the one on
// the last cost row scanned, whether or not that row matched.
func (s *AccountService) budgetToExpense(account *models.Account, budget *models.Budget, departure time.Time, createdBy string) (*models.Expense, error) {
	costs, err := s.costRepo.GetActiveByBudget(budget.ID)
	if err != nil {
		return nil, err
	}

	amount := decimal.Zero
	baseAmount := decimal.Zero
	leaderBase := decimal.Zero
	passengerBase := decimal.Zero
	baseCode := ""
	for _, cost := range costs {
		baseCode = cost.BaseCurrencyCode
		if cost.CostType == models.CostTypeLeader && cost.Sequence == account.NoOfLeaders {
			amount = amount.Add(cost.CostAmount)
			baseAmount = baseAmount.Add(cost.BaseCurrencyAmount)
			leaderBase = leaderBase.Add(cost.BaseCurrencyAmount)
		}
		if cost.CostType == models.CostTypePerson && cost.Sequence == account.NoOfPassengers {
			amount = amount.Add(cost.CostAmount)
			baseAmount = baseAmount.Add(cost.BaseCurrencyAmount)
			passengerBase = passengerBase.Add(cost.BaseCurrencyAmount)
		}
	}

	expenseDate := departure.AddDate(0, 0, budget.DayNumber-1)

	return &models.Expense{
		AccountID:                         account.ID,
		BudgetID:                          nullInt64(budget.ID),
		ExpenseTitle:                      budget.ExpenseTitle,
		ExpenseDate:                       expenseDate.Format(dateFormat),
		Amount:                            amount,
		CurrencyID:                        budget.CurrencyID,
		BaseCurrencyAmount:                baseAmount,
		BaseCurrencyCode:                  baseCode,
		BudgetedBaseCurrencyLeaderCost:    leaderBase,
		BudgetedBaseCurrencyPassengerCost: passengerBase,
		PaymentType:                       budget.PaymentType,
		Status:                            models.ExpenseStatusDraft,
		TransactionType:                   models.TransactionTypeAuto,
		ExpenseType:                       models.ExpenseTypeExpense,
		Audit:                             newAudit(createdBy),
	}, nil
}

// Update overwrites the account's fields when it stays DRAFT. For any other
// target status it recomputes budget-vs-actual totals and, when accumulated
// confirmed expenses fit the budget, forces APPROVED regardless of the status
// the caller asked for; only the status and audit stamp are persisted in that
// branch.
func (s *AccountService) Update(ctx context.Context, principal auth.Principal, id int64, input AccountInput) error {
	account, err := s.accountRepo.GetByID(id)
	if errors.Is(err, models.ErrNotFound) {
		return models.NotFoundError("Account")
	}
	if err != nil {
		return err
	}

	switch input.AccountStatus {
	case models.AccountStatusDraft, models.AccountStatusSubmitted,
		models.AccountStatusRejected, models.AccountStatusApproved:
	default:
		return models.ValidationError("Account Status must be one of DRAFT, SUBMITTED, REJECTED, APPROVED")
	}

	if input.AccountStatus == models.AccountStatusDraft {
		if _, err := time.Parse(dateFormat, input.DepartureDate); err != nil {
			return models.ValidationError("Departure Date must be YYYY-MM-DD")
		}
		account.TripCode = strings.TrimSpace(input.TripCode)
		account.DepartureDate = input.DepartureDate
		account.NoOfLeaders = input.NoOfLeaders
		account.NoOfPassengers = input.NoOfPassengers
		account.LeaderUserID = nullInt64(input.LeaderUserID)
		account.ProductID = input.ProductID
		account.ReviewerNotes = nullString(input.ReviewerNotes)
		account.UpdatedBy = nullString(principal.AccountName)
		return s.txRunner.RunInTx(ctx, func(tx *sql.Tx) error {
			return s.accountRepo.Update(tx, account)
		})
	}

	totalExpenses, err := s.expenseRepo.SumConfirmedBaseByAccount(id)
	if err != nil {
		return err
	}
	totalBudget, err := s.expenseRepo.SumBudgetedBaseByAccount(id)
	if err != nil {
		return err
	}

	status := input.AccountStatus
	if totalExpenses.LessThanOrEqual(totalBudget) {
		status = models.AccountStatusApproved
	}
	return s.txRunner.RunInTx(ctx, func(tx *sql.Tx) error {
		return s.accountRepo.UpdateStatus(tx, id, status, principal.AccountName)
	})
}

// orderColumns whitelists caller-supplied sort orders for the manager listing.
var orderColumns = map[string]string{
	"tripCode":      "trip_code",
	"departureDate": "departure_date",
	"createdDate":   "created_date",
	"updatedDate":   "updated_date",
}

// List returns the accounts visible to the caller. Admin, finance and
// operations roles see submitted/rejected/approved accounts plus their own
// drafts; leaders see only their own accounts, always sorted by latest update.
func (s *AccountService) List(ctx context.Context, principal auth.Principal, page, pageSize int, sortBy string, sortDesc bool) ([]*AccountListItem, error) {
	caller, err := s.userRepo.GetByAccountName(principal.AccountName)
	if errors.Is(err, models.ErrNotFound) {
		if principal.Role == models.RoleLeader {
			return nil, models.NotFoundError("Leader")
		}
		return nil, models.NotFoundError("User")
	}
	if err != nil {
		return nil, err
	}

	limit, offset := pageWindow(page, pageSize)

	var accounts []*models.Account
	if principal.Role == models.RoleLeader {
		accounts, err = s.accountRepo.ListForLeader(caller.ID, limit, offset)
	} else {
		orderBy := "updated_date DESC"
		if col, ok := orderColumns[sortBy]; ok {
			direction := "ASC"
			if sortDesc {
				direction = "DESC"
			}
			orderBy = fmt.Sprintf("%s %s", col, direction)
		}
		accounts, err = s.accountRepo.ListForManager(caller.ID, caller.AccountName, orderBy, limit, offset)
	}
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(accounts))
	for _, a := range accounts {
		ids = append(ids, a.ID)
	}
	totals, err := s.accountRepo.AggregateTotals(ids)
	if err != nil {
		return nil, err
	}

	// Base currency per product is resolved once per distinct product.
	baseCodes := make(map[int64]string)
	items := make([]*AccountListItem, 0, len(accounts))
	for _, a := range accounts {
		code, ok := baseCodes[a.ProductID]
		if !ok {
			base, err := resolveBaseCurrency(s.productRepo, s.companyRepo, s.currencyRepo, a.ProductID)
			if err != nil {
				return nil, err
			}
			code = base.Code
			baseCodes[a.ProductID] = code
		}
		t := totals[a.ID]
		items = append(items, &AccountListItem{
			Account:          *a,
			TotalBudget:      t.TotalBudget,
			TotalExpenses:    t.TotalExpenses,
			BaseCurrencyCode: code,
		})
	}
	return items, nil
}

func (s *AccountService) GetByID(ctx context.Context, id int64) (*models.Account, error) {
	account, err := s.accountRepo.GetByID(id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.NotFoundError("Account")
	}
	return account, err
}

func (s *AccountService) Delete(ctx context.Context, principal auth.Principal, id int64) error {
	err := s.txRunner.RunInTx(ctx, func(tx *sql.Tx) error {
		return s.accountRepo.SoftDelete(tx, id, principal.AccountName)
	})
	if errors.Is(err, models.ErrNotFound) {
		return models.NotFoundError("Account")
	}
	return err
}
