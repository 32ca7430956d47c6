package services

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"trip-expense-service/internal/auth"
	"trip-expense-service/internal/currency"
	"trip-expense-service/internal/database"
	"trip-expense-service/internal/models"
	"trip-expense-service/internal/repositories"
	"trip-expense-service/internal/storage"
)

type ExpenseService struct {
	txRunner     database.TxRunner
	expenseRepo  repositories.ExpenseRepository
	accountRepo  repositories.AccountRepository
	productRepo  repositories.ProductRepository
	companyRepo  repositories.CompanyRepository
	currencyRepo repositories.CurrencyRepository
	receipts     storage.ReceiptStore
}

func NewExpenseService(
	txRunner database.TxRunner,
	expenseRepo repositories.ExpenseRepository,
	accountRepo repositories.AccountRepository,
	productRepo repositories.ProductRepository,
	companyRepo repositories.CompanyRepository,
	currencyRepo repositories.CurrencyRepository,
	receipts storage.ReceiptStore,
) *ExpenseService {
	return &ExpenseService{
		txRunner:     txRunner,
		expenseRepo:  expenseRepo,
		accountRepo:  accountRepo,
		productRepo:  productRepo,
		companyRepo:  companyRepo,
		currencyRepo: currencyRepo,
		receipts:     receipts,
	}
}

type ExpenseInput struct {
	AccountID    int64           `json:"accountId"`
	ExpenseTitle string          `json:"expenseTitle"`
	ExpenseDate  string          `json:"expenseDate"`
	Amount       decimal.Decimal `json:"amount"`
	CurrencyID   int64           `json:"currencyId"`
	PaymentType  string          `json:"paymentType"`
	Status       string          `json:"status"`
	ExpenseType  string          `json:"expenseType"`
}

func (s *ExpenseService) validate(input *ExpenseInput) error {
	if strings.TrimSpace(input.ExpenseTitle) == "" {
		return models.ValidationError("Expense Title is required")
	}
	if _, err := time.Parse(dateFormat, input.ExpenseDate); err != nil {
		return models.ValidationError("Expense Date must be YYYY-MM-DD")
	}
	if input.Status == "" {
		input.Status = models.ExpenseStatusDraft
	}
	if input.Status != models.ExpenseStatusDraft && input.Status != models.ExpenseStatusConfirmed {
		return models.ValidationError("Status must be DRAFT or CONFIRMED")
	}
	if input.ExpenseType == "" {
		input.ExpenseType = models.ExpenseTypeExpense
	}
	if input.ExpenseType != models.ExpenseTypeExpense && input.ExpenseType != models.ExpenseTypeWithdrawal {
		return models.ValidationError("Expense Type must be EXPENSE or WITHDRAWAL")
	}
	return nil
}

// convertForAccount converts an amount in the given currency into the base
// currency of the account's company.
func (s *ExpenseService) convertForAccount(accountID, currencyID int64, amount decimal.Decimal) (decimal.Decimal, string, error) {
	account, err := s.accountRepo.GetByID(accountID)
	if errors.Is(err, models.ErrNotFound) {
		return decimal.Zero, "", models.NotFoundError("Account")
	}
	if err != nil {
		return decimal.Zero, "", err
	}

	base, err := resolveBaseCurrency(s.productRepo, s.companyRepo, s.currencyRepo, account.ProductID)
	if err != nil {
		return decimal.Zero, "", err
	}

	sourceRate := base.ConversionRate
	if currencyID > 0 {
		source, err := s.currencyRepo.GetByID(currencyID)
		if errors.Is(err, models.ErrNotFound) {
			return decimal.Zero, "", models.NotFoundError("Currency")
		}
		if err != nil {
			return decimal.Zero, "", err
		}
		sourceRate = source.ConversionRate
	}
	return currency.Convert(amount, sourceRate, base.ConversionRate), base.Code, nil
}

// Create records a manually entered expense under an account.
func (s *ExpenseService) Create(ctx context.Context, principal auth.Principal, input ExpenseInput) (*models.Expense, error) {
	if err := s.validate(&input); err != nil {
		return nil, err
	}

	baseAmount, baseCode, err := s.convertForAccount(input.AccountID, input.CurrencyID, input.Amount)
	if err != nil {
		return nil, err
	}

	expense := &models.Expense{
		AccountID:          input.AccountID,
		ExpenseTitle:       input.ExpenseTitle,
		ExpenseDate:        input.ExpenseDate,
		Amount:             input.Amount,
		CurrencyID:         nullInt64(input.CurrencyID),
		BaseCurrencyAmount: baseAmount,
		BaseCurrencyCode:   baseCode,
		PaymentType:        input.PaymentType,
		Status:             input.Status,
		TransactionType:    models.TransactionTypeManual,
		ExpenseType:        input.ExpenseType,
		Audit:              newAudit(principal.AccountName),
	}
	err = s.txRunner.RunInTx(ctx, func(tx *sql.Tx) error {
		return s.expenseRepo.Insert(tx, expense)
	})
	if err != nil {
		return nil, err
	}
	return expense, nil
}

func (s *ExpenseService) GetByAccount(ctx context.Context, accountID int64) ([]*models.Expense, error) {
	return s.expenseRepo.GetActiveByAccount(accountID)
}

func (s *ExpenseService) GetByID(ctx context.Context, id int64) (*models.Expense, error) {
	e, err := s.expenseRepo.GetByID(id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.NotFoundError("Expense")
	}
	return e, err
}

// Update overwrites the editable fields, re-running the base-currency
// conversion against the current rates.
func (s *ExpenseService) Update(ctx context.Context, principal auth.Principal, id int64, input ExpenseInput) (*models.Expense, error) {
	if err := s.validate(&input); err != nil {
		return nil, err
	}

	expense, err := s.expenseRepo.GetByID(id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.NotFoundError("Expense")
	}
	if err != nil {
		return nil, err
	}

	baseAmount, baseCode, err := s.convertForAccount(expense.AccountID, input.CurrencyID, input.Amount)
	if err != nil {
		return nil, err
	}

	expense.ExpenseTitle = input.ExpenseTitle
	expense.ExpenseDate = input.ExpenseDate
	expense.Amount = input.Amount
	expense.CurrencyID = nullInt64(input.CurrencyID)
	expense.BaseCurrencyAmount = baseAmount
	expense.BaseCurrencyCode = baseCode
	expense.PaymentType = input.PaymentType
	expense.Status = input.Status
	expense.ExpenseType = input.ExpenseType
	expense.UpdatedBy = nullString(principal.AccountName)
	err = s.txRunner.RunInTx(ctx, func(tx *sql.Tx) error {
		return s.expenseRepo.Update(tx, expense)
	})
	if err != nil {
		return nil, err
	}
	return expense, nil
}

func (s *ExpenseService) Delete(ctx context.Context, principal auth.Principal, id int64) error {
	err := s.txRunner.RunInTx(ctx, func(tx *sql.Tx) error {
		return s.expenseRepo.SoftDelete(tx, id, principal.AccountName)
	})
	if errors.Is(err, models.ErrNotFound) {
		return models.NotFoundError("Expense")
	}
	return err
}

// AttachReceipt stores a receipt file under a generated key and links it to
// the expense. The upload happens inside the transaction: a storage failure
// rolls the link back.
func (s *ExpenseService) AttachReceipt(ctx context.Context, principal auth.Principal, id int64, r io.Reader) (string, error) {
	expense, err := s.expenseRepo.GetByID(id)
	if errors.Is(err, models.ErrNotFound) {
		return "", models.NotFoundError("Expense")
	}
	if err != nil {
		return "", err
	}

	key := uuid.NewString()
	err = s.txRunner.RunInTx(ctx, func(tx *sql.Tx) error {
		if err := s.expenseRepo.UpdateReceiptKey(tx, id, nullString(key), principal.AccountName); err != nil {
			return err
		}
		if expense.ReceiptKey.Valid {
			if err := s.receipts.Delete(ctx, expense.ReceiptKey.String); err != nil && !errors.Is(err, models.ErrNotFound) {
				return err
			}
		}
		return s.receipts.Upload(ctx, key, r)
	})
	if err != nil {
		return "", err
	}
	return key, nil
}

// DownloadReceipt streams the receipt attached to an expense.
func (s *ExpenseService) DownloadReceipt(ctx context.Context, id int64) (string, io.ReadCloser, error) {
	expense, err := s.expenseRepo.GetByID(id)
	if errors.Is(err, models.ErrNotFound) {
		return "", nil, models.NotFoundError("Expense")
	}
	if err != nil {
		return "", nil, err
	}
	if !expense.ReceiptKey.Valid {
		return "", nil, models.NotFoundError("Receipt")
	}

	rc, err := s.receipts.Download(ctx, expense.ReceiptKey.String)
	if errors.Is(err, models.ErrNotFound) {
		return "", nil, models.NotFoundError("Receipt")
	}
	if err != nil {
		return "", nil, err
	}
	return expense.ReceiptKey.String, rc, nil
}

// DeleteReceipt unlinks and removes the receipt file.
func (s *ExpenseService) DeleteReceipt(ctx context.Context, principal auth.Principal, id int64) error {
	expense, err := s.expenseRepo.GetByID(id)
	if errors.Is(err, models.ErrNotFound) {
		return models.NotFoundError("Expense")
	}
	if err != nil {
		return err
	}
	if !expense.ReceiptKey.Valid {
		return models.NotFoundError("Receipt")
	}

	return s.txRunner.RunInTx(ctx, func(tx *sql.Tx) error {
		if err := s.expenseRepo.UpdateReceiptKey(tx, id, sql.NullString{}, principal.AccountName); err != nil {
			return err
		}
		err := s.receipts.Delete(ctx, expense.ReceiptKey.String)
		if errors.Is(err, models.ErrNotFound) {
			return nil
		}
		return err
	})
}
