package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trip-expense-service/internal/auth"
	"trip-expense-service/internal/models"
	"trip-expense-service/internal/repositories"
)

func TestCashBalancesForLeader(t *testing.T) {
	userRepo := newFakeUserRepo()
	userRepo.add("trip.leader", models.RoleLeader)
	expenseRepo := newFakeExpenseRepo()
	expenseRepo.balances = []repositories.CashBalance{
		{CurrencyCode: "CUR01", AvailableBalance: decimal.NewFromInt(40)},
		{CurrencyCode: "CUR02", AvailableBalance: decimal.NewFromInt(-50)},
	}

	service := NewCashService(expenseRepo, userRepo)
	balances, err := service.AvailableBalances(context.Background(), auth.Principal{
		AccountName: "trip.leader",
		Role:        models.RoleLeader,
	})
	require.NoError(t, err)
	require.Len(t, balances, 2)
	assert.Equal(t, "CUR01", balances[0].CurrencyCode)
	assert.True(t, decimal.NewFromInt(40).Equal(balances[0].AvailableBalance))
	assert.True(t, decimal.NewFromInt(-50).Equal(balances[1].AvailableBalance))
}

func TestCashBalancesUnknownLeader(t *testing.T) {
	service := NewCashService(newFakeExpenseRepo(), newFakeUserRepo())

	_, err := service.AvailableBalances(context.Background(), auth.Principal{
		AccountName: "ghost.leader",
		Role:        models.RoleLeader,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Leader Not found")
}
