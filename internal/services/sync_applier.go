package services

import (
	"context"
	"encoding/json"

	"trip-expense-service/internal/auth"
	"trip-expense-service/internal/synccache"
)

// Sync collection names.
const (
	SyncCollectionAccounts = "accounts"
	SyncCollectionExpenses = "expenses"
)

// expenseApplier lands queued expense mutations. The replay runs inside an
// authenticated request, so the principal rides in on the context.
type expenseApplier struct {
	service *ExpenseService
}

func NewExpenseSyncApplier(service *ExpenseService) synccache.Applier {
	return &expenseApplier{service: service}
}

func (a *expenseApplier) ApplyCreate(ctx context.Context, entry synccache.Entry) (int64, error) {
	principal, err := auth.PrincipalFromContext(ctx)
	if err != nil {
		return 0, err
	}
	var input ExpenseInput
	if err := json.Unmarshal(entry.Payload, &input); err != nil {
		return 0, err
	}
	created, err := a.service.Create(ctx, principal, input)
	if err != nil {
		return 0, err
	}
	return created.ID, nil
}

func (a *expenseApplier) ApplyUpdate(ctx context.Context, serverID int64, entry synccache.Entry) error {
	principal, err := auth.PrincipalFromContext(ctx)
	if err != nil {
		return err
	}
	var input ExpenseInput
	if err := json.Unmarshal(entry.Payload, &input); err != nil {
		return err
	}
	_, err = a.service.Update(ctx, principal, serverID, input)
	return err
}

func (a *expenseApplier) ApplyDelete(ctx context.Context, serverID int64) error {
	principal, err := auth.PrincipalFromContext(ctx)
	if err != nil {
		return err
	}
	return a.service.Delete(ctx, principal, serverID)
}

type accountApplier struct {
	service *AccountService
}

func NewAccountSyncApplier(service *AccountService) synccache.Applier {
	return &accountApplier{service: service}
}

func (a *accountApplier) ApplyCreate(ctx context.Context, entry synccache.Entry) (int64, error) {
	principal, err := auth.PrincipalFromContext(ctx)
	if err != nil {
		return 0, err
	}
	var input AccountInput
	if err := json.Unmarshal(entry.Payload, &input); err != nil {
		return 0, err
	}
	return a.service.Create(ctx, principal, input)
}

func (a *accountApplier) ApplyUpdate(ctx context.Context, serverID int64, entry synccache.Entry) error {
	principal, err := auth.PrincipalFromContext(ctx)
	if err != nil {
		return err
	}
	var input AccountInput
	if err := json.Unmarshal(entry.Payload, &input); err != nil {
		return err
	}
	return a.service.Update(ctx, principal, serverID, input)
}

func (a *accountApplier) ApplyDelete(ctx context.Context, serverID int64) error {
	principal, err := auth.PrincipalFromContext(ctx)
	if err != nil {
		return err
	}
	return a.service.Delete(ctx, principal, serverID)
}
