package services

import (
	"context"
	"database/sql"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"trip-expense-service/internal/database"
	"trip-expense-service/internal/models"
	"trip-expense-service/internal/repositories"
)

// fakeTxRunner runs the function directly; fake repositories ignore the tx.
type fakeTxRunner struct{}

func (fakeTxRunner) RunInTx(ctx context.Context, fn database.TxFn) error {
	return fn(nil)
}

var _ database.TxRunner = fakeTxRunner{}

type fakeLookupRepo struct {
	items  map[int64]*models.Lookup
	nextID int64
}

func newFakeLookupRepo() *fakeLookupRepo {
	return &fakeLookupRepo{items: make(map[int64]*models.Lookup)}
}

func (r *fakeLookupRepo) Insert(tx *sql.Tx, l *models.Lookup) error {
	r.nextID++
	l.ID = r.nextID
	clone := *l
	r.items[l.ID] = &clone
	return nil
}

func (r *fakeLookupRepo) GetByID(id int64) (*models.Lookup, error) {
	l, ok := r.items[id]
	if !ok || !l.IsActive {
		return nil, models.NotFoundError("Lookup")
	}
	clone := *l
	return &clone, nil
}

func (r *fakeLookupRepo) GetByCode(code string) (*models.Lookup, error) {
	for _, l := range r.items {
		if l.IsActive && strings.EqualFold(strings.TrimSpace(l.Code), strings.TrimSpace(code)) {
			clone := *l
			return &clone, nil
		}
	}
	return nil, models.NotFoundError("Lookup")
}

func (r *fakeLookupRepo) GetAll(limit, offset int) ([]*models.Lookup, error) {
	var out []*models.Lookup
	for _, l := range r.items {
		if l.IsActive {
			clone := *l
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeLookupRepo) CountActiveByCode(code string, excludeID int64) (int, error) {
	count := 0
	for _, l := range r.items {
		if l.IsActive && l.ID != excludeID && strings.EqualFold(strings.TrimSpace(l.Code), strings.TrimSpace(code)) {
			count++
		}
	}
	return count, nil
}

func (r *fakeLookupRepo) Update(tx *sql.Tx, l *models.Lookup) error {
	if _, ok := r.items[l.ID]; !ok {
		return models.NotFoundError("Lookup")
	}
	clone := *l
	r.items[l.ID] = &clone
	return nil
}

func (r *fakeLookupRepo) SoftDelete(tx *sql.Tx, id int64, deletedBy string) error {
	l, ok := r.items[id]
	if !ok || !l.IsActive {
		return models.NotFoundError("Lookup")
	}
	l.IsActive = false
	return nil
}

var _ repositories.LookupRepository = (*fakeLookupRepo)(nil)

type fakeCurrencyRepo struct {
	items  map[int64]*models.Currency
	nextID int64
}

func newFakeCurrencyRepo() *fakeCurrencyRepo {
	return &fakeCurrencyRepo{items: make(map[int64]*models.Currency)}
}

func (r *fakeCurrencyRepo) add(code string, rate decimal.Decimal) *models.Currency {
	r.nextID++
	c := &models.Currency{
		ID:             r.nextID,
		Code:           code,
		Name:           code,
		ConversionRate: rate,
		Audit:          models.Audit{IsActive: true},
	}
	r.items[c.ID] = c
	return c
}

func (r *fakeCurrencyRepo) Insert(tx *sql.Tx, c *models.Currency) error {
	r.nextID++
	c.ID = r.nextID
	clone := *c
	r.items[c.ID] = &clone
	return nil
}

func (r *fakeCurrencyRepo) GetByID(id int64) (*models.Currency, error) {
	c, ok := r.items[id]
	if !ok || !c.IsActive {
		return nil, models.NotFoundError("Currency")
	}
	clone := *c
	return &clone, nil
}

func (r *fakeCurrencyRepo) GetByCode(code string) (*models.Currency, error) {
	for _, c := range r.items {
		if c.IsActive && strings.EqualFold(strings.TrimSpace(c.Code), strings.TrimSpace(code)) {
			clone := *c
			return &clone, nil
		}
	}
	return nil, models.NotFoundError("Currency")
}

func (r *fakeCurrencyRepo) GetAll(limit, offset int) ([]*models.Currency, error) {
	var out []*models.Currency
	for _, c := range r.items {
		if c.IsActive {
			clone := *c
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeCurrencyRepo) CountActiveByCode(code string, excludeID int64) (int, error) {
	count := 0
	for _, c := range r.items {
		if c.IsActive && c.ID != excludeID && strings.EqualFold(strings.TrimSpace(c.Code), strings.TrimSpace(code)) {
			count++
		}
	}
	return count, nil
}

func (r *fakeCurrencyRepo) Update(tx *sql.Tx, c *models.Currency) error {
	clone := *c
	r.items[c.ID] = &clone
	return nil
}

func (r *fakeCurrencyRepo) SoftDelete(tx *sql.Tx, id int64, deletedBy string) error {
	c, ok := r.items[id]
	if !ok || !c.IsActive {
		return models.NotFoundError("Currency")
	}
	c.IsActive = false
	return nil
}

var _ repositories.CurrencyRepository = (*fakeCurrencyRepo)(nil)

type fakeCompanyRepo struct {
	items  map[int64]*models.Company
	nextID int64
}

func newFakeCompanyRepo() *fakeCompanyRepo {
	return &fakeCompanyRepo{items: make(map[int64]*models.Company)}
}

func (r *fakeCompanyRepo) add(code string, baseCurrencyID int64) *models.Company {
	r.nextID++
	c := &models.Company{
		ID:             r.nextID,
		Code:           code,
		Name:           code,
		BaseCurrencyID: baseCurrencyID,
		Audit:          models.Audit{IsActive: true},
	}
	r.items[c.ID] = c
	return c
}

func (r *fakeCompanyRepo) Insert(tx *sql.Tx, c *models.Company) error {
	r.nextID++
	c.ID = r.nextID
	clone := *c
	r.items[c.ID] = &clone
	return nil
}

func (r *fakeCompanyRepo) GetByID(id int64) (*models.Company, error) {
	c, ok := r.items[id]
	if !ok || !c.IsActive {
		return nil, models.NotFoundError("Company")
	}
	clone := *c
	return &clone, nil
}

func (r *fakeCompanyRepo) GetAll(limit, offset int) ([]*models.Company, error) {
	var out []*models.Company
	for _, c := range r.items {
		if c.IsActive {
			clone := *c
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeCompanyRepo) CountActiveByCode(code string, excludeID int64) (int, error) {
	count := 0
	for _, c := range r.items {
		if c.IsActive && c.ID != excludeID && strings.EqualFold(c.Code, code) {
			count++
		}
	}
	return count, nil
}

func (r *fakeCompanyRepo) Update(tx *sql.Tx, c *models.Company) error {
	clone := *c
	r.items[c.ID] = &clone
	return nil
}

func (r *fakeCompanyRepo) SoftDelete(tx *sql.Tx, id int64, deletedBy string) error {
	c, ok := r.items[id]
	if !ok || !c.IsActive {
		return models.NotFoundError("Company")
	}
	c.IsActive = false
	return nil
}

var _ repositories.CompanyRepository = (*fakeCompanyRepo)(nil)

type fakeProductRepo struct {
	items  map[int64]*models.Product
	nextID int64
}

func newFakeProductRepo() *fakeProductRepo {
	return &fakeProductRepo{items: make(map[int64]*models.Product)}
}

func (r *fakeProductRepo) add(code string, companyID int64) *models.Product {
	r.nextID++
	p := &models.Product{
		ID:        r.nextID,
		Code:      code,
		Name:      code,
		CompanyID: companyID,
		Audit:     models.Audit{IsActive: true},
	}
	r.items[p.ID] = p
	return p
}

func (r *fakeProductRepo) Insert(tx *sql.Tx, p *models.Product) error {
	r.nextID++
	p.ID = r.nextID
	clone := *p
	r.items[p.ID] = &clone
	return nil
}

func (r *fakeProductRepo) GetByID(id int64) (*models.Product, error) {
	p, ok := r.items[id]
	if !ok || !p.IsActive {
		return nil, models.NotFoundError("Product")
	}
	clone := *p
	return &clone, nil
}

func (r *fakeProductRepo) GetAll(limit, offset int) ([]*models.Product, error) {
	var out []*models.Product
	for _, p := range r.items {
		if p.IsActive {
			clone := *p
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeProductRepo) CountActiveByCode(code string, excludeID int64) (int, error) {
	count := 0
	for _, p := range r.items {
		if p.IsActive && p.ID != excludeID && strings.EqualFold(p.Code, code) {
			count++
		}
	}
	return count, nil
}

func (r *fakeProductRepo) Update(tx *sql.Tx, p *models.Product) error {
	clone := *p
	r.items[p.ID] = &clone
	return nil
}

func (r *fakeProductRepo) SoftDelete(tx *sql.Tx, id int64, deletedBy string) error {
	p, ok := r.items[id]
	if !ok || !p.IsActive {
		return models.NotFoundError("Product")
	}
	p.IsActive = false
	return nil
}

var _ repositories.ProductRepository = (*fakeProductRepo)(nil)

type fakeUserRepo struct {
	items  map[int64]*models.User
	nextID int64
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{items: make(map[int64]*models.User)}
}

func (r *fakeUserRepo) add(accountName, role string) *models.User {
	r.nextID++
	u := &models.User{
		ID:          r.nextID,
		AccountName: accountName,
		FirstName:   accountName,
		LastName:    accountName,
		Email:       accountName + "@example.com",
		Role:        role,
		Audit:       models.Audit{IsActive: true},
	}
	r.items[u.ID] = u
	return u
}

func (r *fakeUserRepo) Insert(tx *sql.Tx, u *models.User) error {
	r.nextID++
	u.ID = r.nextID
	clone := *u
	r.items[u.ID] = &clone
	return nil
}

func (r *fakeUserRepo) GetByID(id int64) (*models.User, error) {
	u, ok := r.items[id]
	if !ok || !u.IsActive {
		return nil, models.NotFoundError("User")
	}
	clone := *u
	return &clone, nil
}

func (r *fakeUserRepo) GetByAccountName(accountName string) (*models.User, error) {
	for _, u := range r.items {
		if u.IsActive && strings.EqualFold(u.AccountName, accountName) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, models.NotFoundError("User")
}

func (r *fakeUserRepo) GetAll(limit, offset int) ([]*models.User, error) {
	var out []*models.User
	for _, u := range r.items {
		if u.IsActive {
			clone := *u
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeUserRepo) CountActiveByAccountName(accountName string, excludeID int64) (int, error) {
	count := 0
	for _, u := range r.items {
		if u.IsActive && u.ID != excludeID && strings.EqualFold(u.AccountName, accountName) {
			count++
		}
	}
	return count, nil
}

func (r *fakeUserRepo) Update(tx *sql.Tx, u *models.User) error {
	clone := *u
	r.items[u.ID] = &clone
	return nil
}

func (r *fakeUserRepo) SoftDelete(tx *sql.Tx, id int64, deletedBy string) error {
	u, ok := r.items[id]
	if !ok || !u.IsActive {
		return models.NotFoundError("User")
	}
	u.IsActive = false
	return nil
}

var _ repositories.UserRepository = (*fakeUserRepo)(nil)

type fakeAccountRepo struct {
	items  map[int64]*models.Account
	totals map[int64]repositories.AccountTotals
	nextID int64
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{
		items:  make(map[int64]*models.Account),
		totals: make(map[int64]repositories.AccountTotals),
	}
}

func (r *fakeAccountRepo) Insert(tx *sql.Tx, a *models.Account) error {
	r.nextID++
	a.ID = r.nextID
	clone := *a
	r.items[a.ID] = &clone
	return nil
}

func (r *fakeAccountRepo) GetByID(id int64) (*models.Account, error) {
	a, ok := r.items[id]
	if !ok || !a.IsActive {
		return nil, models.NotFoundError("Account")
	}
	clone := *a
	return &clone, nil
}

func (r *fakeAccountRepo) GetActiveByTripCode(tripCode string) (*models.Account, error) {
	for _, a := range r.items {
		if a.IsActive && strings.TrimSpace(a.TripCode) == strings.TrimSpace(tripCode) {
			clone := *a
			return &clone, nil
		}
	}
	return nil, models.NotFoundError("Account")
}

func (r *fakeAccountRepo) ListForManager(callerUserID int64, callerName, orderBy string, limit, offset int) ([]*models.Account, error) {
	var out []*models.Account
	for _, a := range r.items {
		if !a.IsActive {
			continue
		}
		visible := a.AccountStatus != models.AccountStatusDraft ||
			(a.LeaderUserID.Valid && a.LeaderUserID.Int64 == callerUserID) ||
			a.CreatedBy == callerName
		if visible {
			clone := *a
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeAccountRepo) ListForLeader(leaderUserID int64, limit, offset int) ([]*models.Account, error) {
	var out []*models.Account
	for _, a := range r.items {
		if a.IsActive && a.LeaderUserID.Valid && a.LeaderUserID.Int64 == leaderUserID {
			clone := *a
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeAccountRepo) AggregateTotals(accountIDs []int64) (map[int64]repositories.AccountTotals, error) {
	out := make(map[int64]repositories.AccountTotals)
	for _, id := range accountIDs {
		if t, ok := r.totals[id]; ok {
			out[id] = t
		}
	}
	return out, nil
}

func (r *fakeAccountRepo) Update(tx *sql.Tx, a *models.Account) error {
	if _, ok := r.items[a.ID]; !ok {
		return models.NotFoundError("Account")
	}
	clone := *a
	r.items[a.ID] = &clone
	return nil
}

func (r *fakeAccountRepo) UpdateStatus(tx *sql.Tx, id int64, status, updatedBy string) error {
	a, ok := r.items[id]
	if !ok {
		return models.NotFoundError("Account")
	}
	a.AccountStatus = status
	return nil
}

func (r *fakeAccountRepo) SoftDelete(tx *sql.Tx, id int64, deletedBy string) error {
	a, ok := r.items[id]
	if !ok || !a.IsActive {
		return models.NotFoundError("Account")
	}
	a.IsActive = false
	return nil
}

var _ repositories.AccountRepository = (*fakeAccountRepo)(nil)

type fakeBudgetRepo struct {
	items  map[int64]*models.Budget
	nextID int64
}

func newFakeBudgetRepo() *fakeBudgetRepo {
	return &fakeBudgetRepo{items: make(map[int64]*models.Budget)}
}

func (r *fakeBudgetRepo) Insert(tx *sql.Tx, b *models.Budget) error {
	r.nextID++
	b.ID = r.nextID
	clone := *b
	r.items[b.ID] = &clone
	return nil
}

func (r *fakeBudgetRepo) GetByID(id int64) (*models.Budget, error) {
	b, ok := r.items[id]
	if !ok || !b.IsActive {
		return nil, models.NotFoundError("Budget")
	}
	clone := *b
	return &clone, nil
}

func (r *fakeBudgetRepo) GetActiveByProduct(productID int64) ([]*models.Budget, error) {
	var out []*models.Budget
	for _, b := range r.items {
		if b.IsActive && b.ProductID == productID {
			clone := *b
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DayNumber != out[j].DayNumber {
			return out[i].DayNumber < out[j].DayNumber
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *fakeBudgetRepo) Update(tx *sql.Tx, b *models.Budget) error {
	clone := *b
	r.items[b.ID] = &clone
	return nil
}

func (r *fakeBudgetRepo) SoftDelete(tx *sql.Tx, id int64, deletedBy string) error {
	b, ok := r.items[id]
	if !ok || !b.IsActive {
		return models.NotFoundError("Budget")
	}
	b.IsActive = false
	return nil
}

var _ repositories.BudgetRepository = (*fakeBudgetRepo)(nil)

type fakeCostRepo struct {
	items  map[int64]*models.Cost
	nextID int64
}

func newFakeCostRepo() *fakeCostRepo {
	return &fakeCostRepo{items: make(map[int64]*models.Cost)}
}

func (r *fakeCostRepo) Insert(tx *sql.Tx, c *models.Cost) error {
	r.nextID++
	c.ID = r.nextID
	clone := *c
	r.items[c.ID] = &clone
	return nil
}

func (r *fakeCostRepo) GetByID(id int64) (*models.Cost, error) {
	c, ok := r.items[id]
	if !ok || !c.IsActive {
		return nil, models.NotFoundError("Cost")
	}
	clone := *c
	return &clone, nil
}

func (r *fakeCostRepo) GetActiveByBudget(budgetID int64) ([]*models.Cost, error) {
	var out []*models.Cost
	for _, c := range r.items {
		if c.IsActive && c.BudgetID == budgetID {
			clone := *c
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeCostRepo) GetActiveByBudgetAndType(budgetID int64, costType string) ([]*models.Cost, error) {
	var out []*models.Cost
	for _, c := range r.items {
		if c.IsActive && c.BudgetID == budgetID && c.CostType == costType {
			clone := *c
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

func (r *fakeCostRepo) MaxSequence(budgetID int64, costType string) (int, error) {
	max := 0
	for _, c := range r.items {
		if c.IsActive && c.BudgetID == budgetID && c.CostType == costType && c.Sequence > max {
			max = c.Sequence
		}
	}
	return max, nil
}

func (r *fakeCostRepo) Update(tx *sql.Tx, c *models.Cost) error {
	clone := *c
	r.items[c.ID] = &clone
	return nil
}

func (r *fakeCostRepo) UpdateSequence(tx *sql.Tx, id int64, sequence int, updatedBy string) error {
	c, ok := r.items[id]
	if !ok {
		return models.NotFoundError("Cost")
	}
	c.Sequence = sequence
	return nil
}

func (r *fakeCostRepo) SoftDelete(tx *sql.Tx, id int64, deletedBy string) error {
	c, ok := r.items[id]
	if !ok || !c.IsActive {
		return models.NotFoundError("Cost")
	}
	c.IsActive = false
	return nil
}

func (r *fakeCostRepo) DeleteByBudget(tx *sql.Tx, budgetID int64) error {
	for id, c := range r.items {
		if c.BudgetID == budgetID {
			delete(r.items, id)
		}
	}
	return nil
}

var _ repositories.CostRepository = (*fakeCostRepo)(nil)

type fakeExpenseRepo struct {
	items        map[int64]*models.Expense
	balances     []repositories.CashBalance
	sumConfirmed decimal.Decimal
	sumBudgeted  decimal.Decimal
	nextID       int64
}

func newFakeExpenseRepo() *fakeExpenseRepo {
	return &fakeExpenseRepo{items: make(map[int64]*models.Expense)}
}

func (r *fakeExpenseRepo) Insert(tx *sql.Tx, e *models.Expense) error {
	r.nextID++
	e.ID = r.nextID
	clone := *e
	r.items[e.ID] = &clone
	return nil
}

func (r *fakeExpenseRepo) GetByID(id int64) (*models.Expense, error) {
	e, ok := r.items[id]
	if !ok || !e.IsActive {
		return nil, models.NotFoundError("Expense")
	}
	clone := *e
	return &clone, nil
}

func (r *fakeExpenseRepo) GetActiveByAccount(accountID int64) ([]*models.Expense, error) {
	var out []*models.Expense
	for _, e := range r.items {
		if e.IsActive && e.AccountID == accountID {
			clone := *e
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeExpenseRepo) SumConfirmedBaseByAccount(accountID int64) (decimal.Decimal, error) {
	return r.sumConfirmed, nil
}

func (r *fakeExpenseRepo) SumBudgetedBaseByAccount(accountID int64) (decimal.Decimal, error) {
	return r.sumBudgeted, nil
}

func (r *fakeExpenseRepo) CashBalancesByLeader(leaderUserID int64) ([]repositories.CashBalance, error) {
	return r.balances, nil
}

func (r *fakeExpenseRepo) Update(tx *sql.Tx, e *models.Expense) error {
	clone := *e
	r.items[e.ID] = &clone
	return nil
}

func (r *fakeExpenseRepo) UpdateReceiptKey(tx *sql.Tx, id int64, receiptKey sql.NullString, updatedBy string) error {
	e, ok := r.items[id]
	if !ok {
		return models.NotFoundError("Expense")
	}
	e.ReceiptKey = receiptKey
	return nil
}

func (r *fakeExpenseRepo) SoftDelete(tx *sql.Tx, id int64, deletedBy string) error {
	e, ok := r.items[id]
	if !ok || !e.IsActive {
		return models.NotFoundError("Expense")
	}
	e.IsActive = false
	return nil
}

var _ repositories.ExpenseRepository = (*fakeExpenseRepo)(nil)
