package services

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"trip-expense-service/internal/auth"
	"trip-expense-service/internal/currency"
	"trip-expense-service/internal/database"
	"trip-expense-service/internal/models"
	"trip-expense-service/internal/repositories"
)

const (
	passengerCostColumns = 16
	leaderCostColumns    = 5
	uploadColumnCount    = 9 + passengerCostColumns + leaderCostColumns
)

// BudgetUploadRow is one parsed row of the fixed-column upload schema:
// ProductId, DayNumber, ExpenseTitle, ExpenseCode, CurrencyCode, PaymentType,
// SalesTaxCode, SalesTaxGroup, DepartmentCode, PassengerCost_1..16,
// LeaderCost_1..5.
type BudgetUploadRow struct {
	RowNumber      int
	ProductID      string
	DayNumber      string
	ExpenseTitle   string
	ExpenseCode    string
	CurrencyCode   string
	PaymentType    string
	SalesTaxCode   string
	SalesTaxGroup  string
	DepartmentCode string
	PassengerCosts [passengerCostColumns]string
	LeaderCosts    [leaderCostColumns]string
}

// RowResult reports the validation outcome of one uploaded row.
type RowResult struct {
	RowNumber int      `json:"rowNumber"`
	Errors    []string `json:"errors,omitempty"`
}

// BudgetUploadResult is the batch outcome. The batch commits only when every
// row validated cleanly.
type BudgetUploadResult struct {
	Success       bool        `json:"success"`
	RowsCommitted int         `json:"rowsCommitted"`
	RowResults    []RowResult `json:"rowResults"`
}

// ParseBudgetRows reads the upload into rows. Workbooks (.xlsx) go through
// excelize, anything else is treated as CSV. The first row is the header.
func ParseBudgetRows(r io.Reader, filename string) ([]BudgetUploadRow, error) {
	if strings.HasSuffix(strings.ToLower(filename), ".xlsx") {
		return parseWorkbook(r)
	}
	return parseCSV(r)
}

func parseCSV(r io.Reader) ([]BudgetUploadRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = uploadColumnCount

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("error reading upload CSV: %v", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	return recordsToRows(records[1:]), nil
}

func parseWorkbook(r io.Reader) ([]BudgetUploadRow, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("error opening workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(f.GetSheetName(0))
	if err != nil {
		return nil, fmt.Errorf("error reading workbook rows: %v", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	// Trailing empty cells are dropped by excelize; pad to the full width.
	records := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		record := make([]string, uploadColumnCount)
		copy(record, row)
		records = append(records, record)
	}
	return recordsToRows(records), nil
}

func recordsToRows(records [][]string) []BudgetUploadRow {
	var rows []BudgetUploadRow
	for i, rec := range records {
		row := BudgetUploadRow{
			RowNumber:      i + 2, // 1-based, after the header
			ProductID:      strings.TrimSpace(rec[0]),
			DayNumber:      strings.TrimSpace(rec[1]),
			ExpenseTitle:   strings.TrimSpace(rec[2]),
			ExpenseCode:    strings.TrimSpace(rec[3]),
			CurrencyCode:   strings.TrimSpace(rec[4]),
			PaymentType:    strings.TrimSpace(rec[5]),
			SalesTaxCode:   strings.TrimSpace(rec[6]),
			SalesTaxGroup:  strings.TrimSpace(rec[7]),
			DepartmentCode: strings.TrimSpace(rec[8]),
		}
		for j := 0; j < passengerCostColumns; j++ {
			row.PassengerCosts[j] = strings.TrimSpace(rec[9+j])
		}
		for j := 0; j < leaderCostColumns; j++ {
			row.LeaderCosts[j] = strings.TrimSpace(rec[9+passengerCostColumns+j])
		}
		rows = append(rows, row)
	}
	return rows
}

// BudgetUploadService validates an uploaded row set against the reference
// tables and commits it all-or-nothing. Each reference lookup goes through a
// per-run cache before hitting the database, so a code repeated across rows
// costs one query.
type BudgetUploadService struct {
	txRunner     database.TxRunner
	budgetRepo   repositories.BudgetRepository
	costRepo     repositories.CostRepository
	currencyRepo repositories.CurrencyRepository
	productRepo  repositories.ProductRepository
	companyRepo  repositories.CompanyRepository
	taxRepo      repositories.LookupRepository
	taxGroupRepo repositories.LookupRepository
	deptRepo     repositories.LookupRepository
	categoryRepo repositories.LookupRepository
}

func NewBudgetUploadService(
	txRunner database.TxRunner,
	budgetRepo repositories.BudgetRepository,
	costRepo repositories.CostRepository,
	currencyRepo repositories.CurrencyRepository,
	productRepo repositories.ProductRepository,
	companyRepo repositories.CompanyRepository,
	taxRepo repositories.LookupRepository,
	taxGroupRepo repositories.LookupRepository,
	deptRepo repositories.LookupRepository,
	categoryRepo repositories.LookupRepository,
) *BudgetUploadService {
	return &BudgetUploadService{
		txRunner:     txRunner,
		budgetRepo:   budgetRepo,
		costRepo:     costRepo,
		currencyRepo: currencyRepo,
		productRepo:  productRepo,
		companyRepo:  companyRepo,
		taxRepo:      taxRepo,
		taxGroupRepo: taxGroupRepo,
		deptRepo:     deptRepo,
		categoryRepo: categoryRepo,
	}
}

// uploadCaches are the per-run lookup caches. Successful lookups are appended
// so repeats within the batch skip the database.
type uploadCaches struct {
	currencies []*models.Currency
	products   []*models.Product
	taxes      []*models.Lookup
	taxGroups  []*models.Lookup
	depts      []*models.Lookup
	categories []*models.Lookup
	baseByPID  map[int64]*models.Currency
}

func (c *uploadCaches) findCurrency(code string) *models.Currency {
	for _, cur := range c.currencies {
		if strings.EqualFold(strings.TrimSpace(cur.Code), code) {
			return cur
		}
	}
	return nil
}

func findLookup(items []*models.Lookup, code string) *models.Lookup {
	for _, l := range items {
		if strings.EqualFold(strings.TrimSpace(l.Code), code) {
			return l
		}
	}
	return nil
}

func (c *uploadCaches) findProduct(id int64) *models.Product {
	for _, p := range c.products {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// validatedRow carries the resolved references and parsed numbers for one row
// that passed every check.
type validatedRow struct {
	input          BudgetUploadRow
	dayNumber      int
	paymentType    string
	product        *models.Product
	category       *models.Lookup
	currency       *models.Currency // nil when the column was empty
	tax            *models.Lookup
	taxGroup       *models.Lookup
	dept           *models.Lookup
	base           *models.Currency
	passengerCosts [passengerCostColumns]decimal.Decimal
	leaderCosts    [leaderCostColumns]decimal.Decimal
}

// Upload validates every row independently and, only when all pass, commits
// the whole batch in one transaction. Any failure anywhere commits nothing.
func (s *BudgetUploadService) Upload(ctx context.Context, principal auth.Principal, rows []BudgetUploadRow) (*BudgetUploadResult, error) {
	result := &BudgetUploadResult{Success: true}
	if len(rows) == 0 {
		return nil, models.ValidationError("No rows provided")
	}

	caches := &uploadCaches{baseByPID: make(map[int64]*models.Currency)}
	var validated []validatedRow
	for _, row := range rows {
		vr, rowErrs, err := s.validateRow(row, caches)
		if err != nil {
			return nil, err
		}
		result.RowResults = append(result.RowResults, RowResult{RowNumber: row.RowNumber, Errors: rowErrs})
		if len(rowErrs) > 0 {
			result.Success = false
			continue
		}
		validated = append(validated, *vr)
	}

	if !result.Success {
		return result, nil
	}

	err := s.txRunner.RunInTx(ctx, func(tx *sql.Tx) error {
		for _, vr := range validated {
			if err := s.commitRow(tx, principal, vr); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	result.RowsCommitted = len(validated)
	return result, nil
}

// validateRow runs the per-row checks. Validation failures land in the
// returned message slice; only infrastructure errors come back as error.
func (s *BudgetUploadService) validateRow(row BudgetUploadRow, caches *uploadCaches) (*validatedRow, []string, error) {
	var rowErrs []string
	vr := &validatedRow{input: row}

	// Currency code is optional; absence passes.
	if row.CurrencyCode != "" {
		cur := caches.findCurrency(row.CurrencyCode)
		if cur == nil {
			found, err := s.currencyRepo.GetByCode(row.CurrencyCode)
			if err != nil && !errors.Is(err, models.ErrNotFound) {
				return nil, nil, err
			}
			if found != nil {
				caches.currencies = append(caches.currencies, found)
				cur = found
			}
		}
		if cur == nil {
			rowErrs = append(rowErrs, fmt.Sprintf("Currency Code %q not found", row.CurrencyCode))
		}
		vr.currency = cur
	}

	// Payment type never fails: anything other than CASH/CARD is left unset.
	switch strings.ToUpper(row.PaymentType) {
	case models.PaymentTypeCash:
		vr.paymentType = models.PaymentTypeCash
	case models.PaymentTypeCard:
		vr.paymentType = models.PaymentTypeCard
	}

	var err error
	vr.tax, err = s.optionalLookup(row.SalesTaxCode, "Sales Tax Code", s.taxRepo, &caches.taxes, &rowErrs)
	if err != nil {
		return nil, nil, err
	}
	vr.taxGroup, err = s.optionalLookup(row.SalesTaxGroup, "Sales Tax Group", s.taxGroupRepo, &caches.taxGroups, &rowErrs)
	if err != nil {
		return nil, nil, err
	}
	vr.dept, err = s.optionalLookup(row.DepartmentCode, "Department Code", s.deptRepo, &caches.depts, &rowErrs)
	if err != nil {
		return nil, nil, err
	}

	if row.ExpenseCode == "" {
		rowErrs = append(rowErrs, "Expense Code is required")
	} else {
		vr.category, err = s.optionalLookup(row.ExpenseCode, "Expense Code", s.categoryRepo, &caches.categories, &rowErrs)
		if err != nil {
			return nil, nil, err
		}
	}

	if row.ExpenseTitle == "" {
		rowErrs = append(rowErrs, "Expense Title is required")
	}

	productID, convErr := strconv.ParseInt(row.ProductID, 10, 64)
	if convErr != nil || productID <= 0 {
		rowErrs = append(rowErrs, "Product Id is required")
	} else {
		product := caches.findProduct(productID)
		if product == nil {
			found, err := s.productRepo.GetByID(productID)
			if err != nil && !errors.Is(err, models.ErrNotFound) {
				return nil, nil, err
			}
			if found != nil {
				caches.products = append(caches.products, found)
				product = found
			}
		}
		if product == nil {
			rowErrs = append(rowErrs, fmt.Sprintf("Product %d not found", productID))
		} else {
			vr.product = product
			base, ok := caches.baseByPID[productID]
			if !ok {
				base, err = resolveBaseCurrency(s.productRepo, s.companyRepo, s.currencyRepo, productID)
				if err != nil {
					if errors.Is(err, models.ErrNotFound) {
						rowErrs = append(rowErrs, "Company base currency not found")
					} else {
						return nil, nil, err
					}
				} else {
					caches.baseByPID[productID] = base
				}
			}
			vr.base = base
		}
	}

	vr.dayNumber, convErr = strconv.Atoi(row.DayNumber)
	if convErr != nil || vr.dayNumber < 1 {
		rowErrs = append(rowErrs, "Day Number must be a positive number")
	}

	for i, cell := range row.PassengerCosts {
		v, cellErrs := parseCostCell(cell, fmt.Sprintf("PassengerCost_%d", i+1))
		rowErrs = append(rowErrs, cellErrs...)
		vr.passengerCosts[i] = v
	}
	for i, cell := range row.LeaderCosts {
		v, cellErrs := parseCostCell(cell, fmt.Sprintf("LeaderCost_%d", i+1))
		rowErrs = append(rowErrs, cellErrs...)
		vr.leaderCosts[i] = v
	}

	return vr, rowErrs, nil
}

func (s *BudgetUploadService) optionalLookup(code, label string, repo repositories.LookupRepository, cache *[]*models.Lookup, rowErrs *[]string) (*models.Lookup, error) {
	if code == "" {
		return nil, nil
	}
	if found := findLookup(*cache, code); found != nil {
		return found, nil
	}
	found, err := repo.GetByCode(code)
	if errors.Is(err, models.ErrNotFound) {
		*rowErrs = append(*rowErrs, fmt.Sprintf("%s %q not found", label, code))
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	*cache = append(*cache, found)
	return found, nil
}

func parseCostCell(cell, label string) (decimal.Decimal, []string) {
	if cell == "" {
		return decimal.Zero, nil
	}
	v, err := decimal.NewFromString(cell)
	if err != nil {
		return decimal.Zero, []string{fmt.Sprintf("%s is not a number", label)}
	}
	return v, nil
}

// commitRow creates the budget and fans its cost columns out into PERSON and
// LEADER tiers. Pre-existing cost rows for the freshly created budget id are
// cleared first.
func (s *BudgetUploadService) commitRow(tx *sql.Tx, principal auth.Principal, vr validatedRow) error {
	budget := &models.Budget{
		ProductID:         vr.product.ID,
		DayNumber:         vr.dayNumber,
		ExpenseTitle:      vr.input.ExpenseTitle,
		ExpenseCategoryID: vr.category.ID,
		PaymentType:       vr.paymentType,
		Version:           1,
		Audit:             newAudit(principal.AccountName),
	}
	if vr.currency != nil {
		budget.CurrencyID = nullInt64(vr.currency.ID)
	}
	if vr.tax != nil {
		budget.TaxID = nullInt64(vr.tax.ID)
	}
	if vr.dept != nil {
		budget.DepartmentID = nullInt64(vr.dept.ID)
	}
	if vr.taxGroup != nil {
		budget.SalesTaxGroupID = nullInt64(vr.taxGroup.ID)
	}
	if err := s.budgetRepo.Insert(tx, budget); err != nil {
		return err
	}

	if err := s.costRepo.DeleteByBudget(tx, budget.ID); err != nil {
		return err
	}

	sourceRate := vr.base.ConversionRate
	if vr.currency != nil {
		sourceRate = vr.currency.ConversionRate
	}

	if err := s.insertCostTiers(tx, principal, budget.ID, models.CostTypePerson, vr.passengerCosts[:], sourceRate, vr.base); err != nil {
		return err
	}
	return s.insertCostTiers(tx, principal, budget.ID, models.CostTypeLeader, vr.leaderCosts[:], sourceRate, vr.base)
}

func (s *BudgetUploadService) insertCostTiers(tx *sql.Tx, principal auth.Principal, budgetID int64, costType string, amounts []decimal.Decimal, sourceRate decimal.Decimal, base *models.Currency) error {
	for i, amount := range amounts {
		if !amount.IsPositive() {
			continue
		}
		cost := &models.Cost{
			BudgetID:           budgetID,
			CostType:           costType,
			Sequence:           i + 1,
			CostAmount:         amount,
			BaseCurrencyAmount: currency.Convert(amount, sourceRate, base.ConversionRate),
			BaseCurrencyCode:   base.Code,
			Audit:              newAudit(principal.AccountName),
		}
		if err := s.costRepo.Insert(tx, cost); err != nil {
			return err
		}
	}
	return nil
}
