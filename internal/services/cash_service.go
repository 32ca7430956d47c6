package services

import (
	"context"
	"errors"

	"trip-expense-service/internal/auth"
	"trip-expense-service/internal/models"
	"trip-expense-service/internal/repositories"
)

// CashService computes per-currency cash balances for a leader: confirmed
// withdrawals add to the balance, confirmed cash expenses draw it down,
// scoped to the leader's non-approved accounts.
type CashService struct {
	expenseRepo repositories.ExpenseRepository
	userRepo    repositories.UserRepository
}

func NewCashService(expenseRepo repositories.ExpenseRepository, userRepo repositories.UserRepository) *CashService {
	return &CashService{expenseRepo: expenseRepo, userRepo: userRepo}
}

func (s *CashService) AvailableBalances(ctx context.Context, principal auth.Principal) ([]repositories.CashBalance, error) {
	leader, err := s.userRepo.GetByAccountName(principal.AccountName)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.NotFoundError("Leader")
	}
	if err != nil {
		return nil, err
	}
	return s.expenseRepo.CashBalancesByLeader(leader.ID)
}
