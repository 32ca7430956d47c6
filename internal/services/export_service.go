package services

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"

	"trip-expense-service/internal/models"
	"trip-expense-service/internal/repositories"
)

// exportHeader is the journal-line column set the finance system imports.
var exportHeader = []string{
	"JournalName",
	"LineNumber",
	"TransDate",
	"CompanyCode",
	"AccountType",
	"AccountDisplayValue",
	"OffsetAccountType",
	"OffsetAccountDisplayValue",
	"CurrencyCode",
	"Debit",
	"Credit",
	"Description",
	"TripCode",
	"ProductCode",
	"LeaderAccountName",
	"PaymentType",
	"ExpenseType",
	"TransactionType",
	"ExpenseStatus",
	"DocumentDate",
	"InvoiceId",
}

const exportJournalName = "TripExpenses"

// ExportService renders the confirmed expenses of an account as a journal CSV
// ready for import into the accounting system.
type ExportService struct {
	accountRepo  repositories.AccountRepository
	expenseRepo  repositories.ExpenseRepository
	productRepo  repositories.ProductRepository
	companyRepo  repositories.CompanyRepository
	currencyRepo repositories.CurrencyRepository
	userRepo     repositories.UserRepository
}

func NewExportService(
	accountRepo repositories.AccountRepository,
	expenseRepo repositories.ExpenseRepository,
	productRepo repositories.ProductRepository,
	companyRepo repositories.CompanyRepository,
	currencyRepo repositories.CurrencyRepository,
	userRepo repositories.UserRepository,
) *ExportService {
	return &ExportService{
		accountRepo:  accountRepo,
		expenseRepo:  expenseRepo,
		productRepo:  productRepo,
		companyRepo:  companyRepo,
		currencyRepo: currencyRepo,
		userRepo:     userRepo,
	}
}

// ExportJournal builds the CSV for one account. It returns the suggested
// download filename alongside the file body.
func (s *ExportService) ExportJournal(accountID int64) (string, []byte, error) {
	account, err := s.accountRepo.GetByID(accountID)
	if err != nil {
		return "", nil, err
	}

	product, err := s.productRepo.GetByID(account.ProductID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", nil, models.NotFoundError("Product")
		}
		return "", nil, err
	}
	company, err := s.companyRepo.GetByID(product.CompanyID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return "", nil, models.NotFoundError("Company")
		}
		return "", nil, err
	}

	leaderName := ""
	if account.LeaderUserID.Valid {
		leader, err := s.userRepo.GetByID(account.LeaderUserID.Int64)
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			return "", nil, err
		}
		if leader != nil {
			leaderName = leader.AccountName
		}
	}

	expenses, err := s.expenseRepo.GetActiveByAccount(accountID)
	if err != nil {
		return "", nil, err
	}

	displayValue := fmt.Sprintf("%s-%s-%s", company.Code, product.Code, account.TripCode)

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(exportHeader); err != nil {
		return "", nil, fmt.Errorf("error writing export header: %v", err)
	}

	currencyCodes := make(map[int64]string)
	lineNumber := 0
	for _, e := range expenses {
		code := e.BaseCurrencyCode
		if e.CurrencyID.Valid {
			cached, ok := currencyCodes[e.CurrencyID.Int64]
			if !ok {
				cur, err := s.currencyRepo.GetByID(e.CurrencyID.Int64)
				if err != nil {
					if errors.Is(err, models.ErrNotFound) {
						return "", nil, models.NotFoundError("Currency")
					}
					return "", nil, err
				}
				cached = cur.Code
				currencyCodes[e.CurrencyID.Int64] = cached
			}
			code = cached
		}

		lineNumber++
		debit := e.Amount.StringFixed(2)
		line := journalLine(account, e, company.Code, product.Code, displayValue, code, leaderName, lineNumber, debit, "0.00")
		if err := w.Write(line); err != nil {
			return "", nil, fmt.Errorf("error writing export line: %v", err)
		}

		// A withdrawal moves money rather than spending it, so it carries a
		// balancing offset line.
		if e.ExpenseType == models.ExpenseTypeWithdrawal {
			lineNumber++
			line = journalLine(account, e, company.Code, product.Code, displayValue, code, leaderName, lineNumber, "0.00", debit)
			if err := w.Write(line); err != nil {
				return "", nil, fmt.Errorf("error writing export line: %v", err)
			}
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", nil, fmt.Errorf("error flushing export: %v", err)
	}

	return fmt.Sprintf("%s.csv", account.TripCode), buf.Bytes(), nil
}

func journalLine(account *models.Account, e *models.Expense, companyCode, productCode, displayValue, currencyCode, leaderName string, lineNumber int, debit, credit string) []string {
	return []string{
		exportJournalName,
		strconv.Itoa(lineNumber),
		e.ExpenseDate,
		companyCode,
		"Ledger",
		displayValue,
		"Bank",
		displayValue,
		currencyCode,
		debit,
		credit,
		e.ExpenseTitle,
		account.TripCode,
		productCode,
		leaderName,
		e.PaymentType,
		e.ExpenseType,
		e.TransactionType,
		e.Status,
		e.ExpenseDate,
		fmt.Sprintf("EXP-%06d", e.ID),
	}
}
