package services

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trip-expense-service/internal/models"
	"trip-expense-service/internal/storage"
)

type fakeReceiptStore struct {
	objects map[string][]byte
}

func newFakeReceiptStore() *fakeReceiptStore {
	return &fakeReceiptStore{objects: make(map[string][]byte)}
}

func (s *fakeReceiptStore) Upload(ctx context.Context, key string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.objects[key] = data
	return nil
}

func (s *fakeReceiptStore) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	data, ok := s.objects[key]
	if !ok {
		return nil, models.NotFoundError("Receipt")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *fakeReceiptStore) Delete(ctx context.Context, key string) error {
	if _, ok := s.objects[key]; !ok {
		return models.NotFoundError("Receipt")
	}
	delete(s.objects, key)
	return nil
}

var _ storage.ReceiptStore = (*fakeReceiptStore)(nil)

type expenseFixture struct {
	service     *ExpenseService
	expenseRepo *fakeExpenseRepo
	receipts    *fakeReceiptStore
	accountID   int64
	currencyID  int64
}

func newExpenseFixture(t *testing.T) *expenseFixture {
	t.Helper()

	currencyRepo := newFakeCurrencyRepo()
	base := currencyRepo.add("USD", decimal.RequireFromString("0.8"))
	aud := currencyRepo.add("AUD", decimal.RequireFromString("1.2"))
	companyRepo := newFakeCompanyRepo()
	company := companyRepo.add("CMP01", base.ID)
	productRepo := newFakeProductRepo()
	product := productRepo.add("PRD01", company.ID)

	accountRepo := newFakeAccountRepo()
	account := &models.Account{
		TripCode:      "TP01ABC",
		DepartureDate: "2026-03-01",
		AccountStatus: models.AccountStatusDraft,
		ProductID:     product.ID,
		Audit:         models.Audit{IsActive: true, CreatedBy: "seed"},
	}
	accountRepo.Insert(nil, account)

	f := &expenseFixture{
		expenseRepo: newFakeExpenseRepo(),
		receipts:    newFakeReceiptStore(),
		accountID:   account.ID,
		currencyID:  aud.ID,
	}
	f.service = NewExpenseService(
		fakeTxRunner{}, f.expenseRepo, accountRepo, productRepo, companyRepo, currencyRepo, f.receipts,
	)
	return f
}

func TestExpenseCreateConvertsToBaseCurrency(t *testing.T) {
	f := newExpenseFixture(t)

	expense, err := f.service.Create(context.Background(), managerPrincipal(), ExpenseInput{
		AccountID:    f.accountID,
		ExpenseTitle: "Taxi",
		ExpenseDate:  "2026-03-02",
		Amount:       decimal.NewFromInt(100),
		CurrencyID:   f.currencyID,
		PaymentType:  models.PaymentTypeCash,
	})
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(150).Equal(expense.BaseCurrencyAmount), "base was %s", expense.BaseCurrencyAmount)
	assert.Equal(t, "USD", expense.BaseCurrencyCode)
	assert.Equal(t, models.TransactionTypeManual, expense.TransactionType)
	assert.Equal(t, models.ExpenseStatusDraft, expense.Status)
	assert.Equal(t, models.ExpenseTypeExpense, expense.ExpenseType)
}

func TestExpenseCreateValidation(t *testing.T) {
	f := newExpenseFixture(t)

	_, err := f.service.Create(context.Background(), managerPrincipal(), ExpenseInput{
		AccountID:   f.accountID,
		ExpenseDate: "2026-03-02",
	})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = f.service.Create(context.Background(), managerPrincipal(), ExpenseInput{
		AccountID:    f.accountID,
		ExpenseTitle: "Taxi",
		ExpenseDate:  "02/03/2026",
	})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = f.service.Create(context.Background(), managerPrincipal(), ExpenseInput{
		AccountID:    f.accountID,
		ExpenseTitle: "Taxi",
		ExpenseDate:  "2026-03-02",
		Status:       "PENDING",
	})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestExpenseUpdateReconverts(t *testing.T) {
	f := newExpenseFixture(t)
	principal := managerPrincipal()

	expense, err := f.service.Create(context.Background(), principal, ExpenseInput{
		AccountID:    f.accountID,
		ExpenseTitle: "Taxi",
		ExpenseDate:  "2026-03-02",
		Amount:       decimal.NewFromInt(100),
		CurrencyID:   f.currencyID,
	})
	require.NoError(t, err)

	updated, err := f.service.Update(context.Background(), principal, expense.ID, ExpenseInput{
		AccountID:    f.accountID,
		ExpenseTitle: "Taxi",
		ExpenseDate:  "2026-03-02",
		Amount:       decimal.NewFromInt(200),
		CurrencyID:   f.currencyID,
		Status:       models.ExpenseStatusConfirmed,
	})
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(300).Equal(updated.BaseCurrencyAmount))
	assert.Equal(t, models.ExpenseStatusConfirmed, updated.Status)
}

func TestExpenseReceiptLifecycle(t *testing.T) {
	f := newExpenseFixture(t)
	principal := managerPrincipal()

	expense, err := f.service.Create(context.Background(), principal, ExpenseInput{
		AccountID:    f.accountID,
		ExpenseTitle: "Taxi",
		ExpenseDate:  "2026-03-02",
		Amount:       decimal.NewFromInt(100),
		CurrencyID:   f.currencyID,
	})
	require.NoError(t, err)

	key, err := f.service.AttachReceipt(context.Background(), principal, expense.ID, strings.NewReader("receipt-bytes"))
	require.NoError(t, err)
	require.NotEmpty(t, key)
	assert.Equal(t, []byte("receipt-bytes"), f.receipts.objects[key])

	gotKey, rc, err := f.service.DownloadReceipt(context.Background(), expense.ID)
	require.NoError(t, err)
	defer rc.Close()
	assert.Equal(t, key, gotKey)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "receipt-bytes", string(data))

	// Replacing the receipt drops the old object.
	newKey, err := f.service.AttachReceipt(context.Background(), principal, expense.ID, strings.NewReader("newer"))
	require.NoError(t, err)
	assert.NotEqual(t, key, newKey)
	assert.NotContains(t, f.receipts.objects, key)

	require.NoError(t, f.service.DeleteReceipt(context.Background(), principal, expense.ID))
	assert.Empty(t, f.receipts.objects)

	_, _, err = f.service.DownloadReceipt(context.Background(), expense.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}
