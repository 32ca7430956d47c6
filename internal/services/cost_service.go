package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"

	"trip-expense-service/internal/auth"
	"trip-expense-service/internal/currency"
	"trip-expense-service/internal/database"
	"trip-expense-service/internal/models"
	"trip-expense-service/internal/repositories"
)

// CostService maintains the per-budget cost tiers. Sequences within a
// (budget, cost type) pair stay contiguous from 1: creates append, deletes
// close the gap.
type CostService struct {
	txRunner     database.TxRunner
	costRepo     repositories.CostRepository
	budgetRepo   repositories.BudgetRepository
	productRepo  repositories.ProductRepository
	companyRepo  repositories.CompanyRepository
	currencyRepo repositories.CurrencyRepository
}

func NewCostService(
	txRunner database.TxRunner,
	costRepo repositories.CostRepository,
	budgetRepo repositories.BudgetRepository,
	productRepo repositories.ProductRepository,
	companyRepo repositories.CompanyRepository,
	currencyRepo repositories.CurrencyRepository,
) *CostService {
	return &CostService{
		txRunner:     txRunner,
		costRepo:     costRepo,
		budgetRepo:   budgetRepo,
		productRepo:  productRepo,
		companyRepo:  companyRepo,
		currencyRepo: currencyRepo,
	}
}

type CostInput struct {
	BudgetID   int64           `json:"budgetId"`
	CostType   string          `json:"costType"`
	CostAmount decimal.Decimal `json:"costAmount"`
}

// budgetRates resolves the budget currency rate and the company base currency
// for a budget. A budget without a currency uses the base currency itself.
func (s *CostService) budgetRates(budget *models.Budget) (sourceRate decimal.Decimal, base *models.Currency, err error) {
	base, err = resolveBaseCurrency(s.productRepo, s.companyRepo, s.currencyRepo, budget.ProductID)
	if err != nil {
		return decimal.Zero, nil, err
	}
	if !budget.CurrencyID.Valid {
		return base.ConversionRate, base, nil
	}
	source, err := s.currencyRepo.GetByID(budget.CurrencyID.Int64)
	if errors.Is(err, models.ErrNotFound) {
		return decimal.Zero, nil, models.NotFoundError("Currency")
	}
	if err != nil {
		return decimal.Zero, nil, err
	}
	return source.ConversionRate, base, nil
}

func (s *CostService) Create(ctx context.Context, principal auth.Principal, input CostInput) (*models.Cost, error) {
	if input.CostType != models.CostTypePerson && input.CostType != models.CostTypeLeader {
		return nil, models.ValidationError("Cost Type must be PERSON or LEADER")
	}
	if input.CostAmount.IsNegative() {
		return nil, models.ValidationError("Cost Amount must not be negative")
	}

	budget, err := s.budgetRepo.GetByID(input.BudgetID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.NotFoundError("Budget")
	}
	if err != nil {
		return nil, err
	}

	sourceRate, base, err := s.budgetRates(budget)
	if err != nil {
		return nil, err
	}

	maxSeq, err := s.costRepo.MaxSequence(budget.ID, input.CostType)
	if err != nil {
		return nil, err
	}

	cost := &models.Cost{
		BudgetID:           budget.ID,
		CostType:           input.CostType,
		Sequence:           maxSeq + 1,
		CostAmount:         input.CostAmount,
		BaseCurrencyAmount: currency.Convert(input.CostAmount, sourceRate, base.ConversionRate),
		BaseCurrencyCode:   base.Code,
		Audit:              newAudit(principal.AccountName),
	}
	err = s.txRunner.RunInTx(ctx, func(tx *sql.Tx) error {
		return s.costRepo.Insert(tx, cost)
	})
	if err != nil {
		return nil, err
	}
	return cost, nil
}

func (s *CostService) GetByBudget(ctx context.Context, budgetID int64) ([]*models.Cost, error) {
	return s.costRepo.GetActiveByBudget(budgetID)
}

func (s *CostService) Update(ctx context.Context, principal auth.Principal, id int64, input CostInput) (*models.Cost, error) {
	if input.CostAmount.IsNegative() {
		return nil, models.ValidationError("Cost Amount must not be negative")
	}

	cost, err := s.costRepo.GetByID(id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.NotFoundError("Cost")
	}
	if err != nil {
		return nil, err
	}

	budget, err := s.budgetRepo.GetByID(cost.BudgetID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.NotFoundError("Budget")
	}
	if err != nil {
		return nil, err
	}

	sourceRate, base, err := s.budgetRates(budget)
	if err != nil {
		return nil, err
	}

	cost.CostAmount = input.CostAmount
	cost.BaseCurrencyAmount = currency.Convert(input.CostAmount, sourceRate, base.ConversionRate)
	cost.BaseCurrencyCode = base.Code
	cost.UpdatedBy = nullString(principal.AccountName)
	err = s.txRunner.RunInTx(ctx, func(tx *sql.Tx) error {
		return s.costRepo.Update(tx, cost)
	})
	if err != nil {
		return nil, err
	}
	return cost, nil
}

// Delete soft-deletes a cost tier and re-sequences the remaining tiers of the
// same (budget, cost type) so sequences stay contiguous from 1.
func (s *CostService) Delete(ctx context.Context, principal auth.Principal, id int64) error {
	cost, err := s.costRepo.GetByID(id)
	if errors.Is(err, models.ErrNotFound) {
		return models.NotFoundError("Cost")
	}
	if err != nil {
		return err
	}

	remainder, err := s.costRepo.GetActiveByBudgetAndType(cost.BudgetID, cost.CostType)
	if err != nil {
		return err
	}

	return s.txRunner.RunInTx(ctx, func(tx *sql.Tx) error {
		if err := s.costRepo.SoftDelete(tx, cost.ID, principal.AccountName); err != nil {
			return err
		}
		for _, c := range remainder {
			if c.ID == cost.ID || c.Sequence < cost.Sequence {
				continue
			}
			if err := s.costRepo.UpdateSequence(tx, c.ID, c.Sequence-1, principal.AccountName); err != nil {
				return err
			}
		}
		return nil
	})
}
