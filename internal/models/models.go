package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// Audit holds the soft-delete flag and audit trail columns shared by every table.
// Rows are never physically deleted; Delete sets is_active=0 and stamps deleted_by.
type Audit struct {
	IsActive    bool           `db:"is_active" json:"isActive"`
	CreatedBy   string         `db:"created_by" json:"createdBy"`
	CreatedDate time.Time      `db:"created_date" json:"createdDate"`
	UpdatedBy   sql.NullString `db:"updated_by" json:"updatedBy,omitempty"`
	UpdatedDate sql.NullTime   `db:"updated_date" json:"updatedDate,omitempty"`
	DeletedBy   sql.NullString `db:"deleted_by" json:"-"`
	DeletedDate sql.NullTime   `db:"deleted_date" json:"-"`
}

// Lookup is the shared shape of the simple coded reference tables
// (brands, businesses, departments, expense_categories, taxes, sales_tax_groups).
type Lookup struct {
	ID   int64  `db:"id" json:"id"`
	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`
	Audit
}

// Currency is a coded currency with its conversion rate against the system base.
type Currency struct {
	ID             int64           `db:"id" json:"id"`
	Code           string          `db:"code" json:"code"`
	Name           string          `db:"name" json:"name"`
	ConversionRate decimal.Decimal `db:"conversion_rate" json:"conversionRate"`
	Audit
}

// Company owns products and defines the base currency expenses convert into.
type Company struct {
	ID             int64  `db:"id" json:"id"`
	Code           string `db:"code" json:"code"`
	Name           string `db:"name" json:"name"`
	BaseCurrencyID int64  `db:"base_currency_id" json:"baseCurrencyId"`
	Audit
}

// Product is a trip product; budgets hang off it.
type Product struct {
	ID         int64         `db:"id" json:"id"`
	Code       string        `db:"code" json:"code"`
	Name       string        `db:"name" json:"name"`
	CompanyID  int64         `db:"company_id" json:"companyId"`
	BrandID    sql.NullInt64 `db:"brand_id" json:"brandId,omitempty"`
	BusinessID sql.NullInt64 `db:"business_id" json:"businessId,omitempty"`
	Audit
}

// User is an application principal. Role drives route access and account visibility.
type User struct {
	ID          int64  `db:"id" json:"id"`
	AccountName string `db:"account_name" json:"accountName"`
	FirstName   string `db:"first_name" json:"firstName"`
	LastName    string `db:"last_name" json:"lastName"`
	Email       string `db:"email" json:"email"`
	Role        string `db:"role" json:"role"`
	Audit
}

// Account is a trip ledger header.
type Account struct {
	ID             int64          `db:"id" json:"id"`
	TripCode       string         `db:"trip_code" json:"tripCode"`
	DepartureDate  string         `db:"departure_date" json:"departureDate"`
	NoOfLeaders    int            `db:"no_of_leaders" json:"noOfLeaders"`
	NoOfPassengers int            `db:"no_of_passengers" json:"noOfPassengers"`
	AccountStatus  string         `db:"account_status" json:"accountStatus"`
	LeaderUserID   sql.NullInt64  `db:"leader_user_id" json:"leaderUserId,omitempty"`
	ProductID      int64          `db:"product_id" json:"productId"`
	ReviewerNotes  sql.NullString `db:"reviewer_notes" json:"reviewerNotes,omitempty"`
	Audit
}

// Budget is a per-product template line describing one expected expense.
type Budget struct {
	ID                int64         `db:"id" json:"id"`
	ProductID         int64         `db:"product_id" json:"productId"`
	DayNumber         int           `db:"day_number" json:"dayNumber"`
	ExpenseTitle      string        `db:"expense_title" json:"expenseTitle"`
	ExpenseCategoryID int64         `db:"expense_category_id" json:"expenseCategoryId"`
	PaymentType       string        `db:"payment_type" json:"paymentType"`
	CurrencyID        sql.NullInt64 `db:"currency_id" json:"currencyId,omitempty"`
	TaxID             sql.NullInt64 `db:"tax_id" json:"taxId,omitempty"`
	DepartmentID      sql.NullInt64 `db:"department_id" json:"departmentId,omitempty"`
	SalesTaxGroupID   sql.NullInt64 `db:"sales_tax_group_id" json:"salesTaxGroupId,omitempty"`
	Version           int           `db:"version" json:"version"`
	Audit
}

// Cost is a per-budget cost tier: the amount charged when the headcount of the
// given cost type equals Sequence. Sequences per (budget, cost type) are
// contiguous starting at 1.
type Cost struct {
	ID                 int64           `db:"id" json:"id"`
	BudgetID           int64           `db:"budget_id" json:"budgetId"`
	CostType           string          `db:"cost_type" json:"costType"`
	Sequence           int             `db:"sequence" json:"sequence"`
	CostAmount         decimal.Decimal `db:"cost_amount" json:"costAmount"`
	BaseCurrencyAmount decimal.Decimal `db:"base_currency_amount" json:"baseCurrencyAmount"`
	BaseCurrencyCode   string          `db:"base_currency_code" json:"baseCurrencyCode"`
	Audit
}

// Expense is an actual or budget-derived transaction line under an account.
type Expense struct {
	ID                                int64           `db:"id" json:"id"`
	AccountID                         int64           `db:"account_id" json:"accountId"`
	BudgetID                          sql.NullInt64   `db:"budget_id" json:"budgetId,omitempty"`
	ExpenseTitle                      string          `db:"expense_title" json:"expenseTitle"`
	ExpenseDate                       string          `db:"expense_date" json:"expenseDate"`
	Amount                            decimal.Decimal `db:"amount" json:"amount"`
	CurrencyID                        sql.NullInt64   `db:"currency_id" json:"currencyId,omitempty"`
	BaseCurrencyAmount                decimal.Decimal `db:"base_currency_amount" json:"baseCurrencyAmount"`
	BaseCurrencyCode                  string          `db:"base_currency_code" json:"baseCurrencyCode"`
	BudgetedBaseCurrencyLeaderCost    decimal.Decimal `db:"budgeted_base_currency_leader_cost" json:"budgetedBaseCurrencyLeaderCost"`
	BudgetedBaseCurrencyPassengerCost decimal.Decimal `db:"budgeted_base_currency_passenger_cost" json:"budgetedBaseCurrencyPassengerCost"`
	PaymentType                       string          `db:"payment_type" json:"paymentType"`
	Status                            string          `db:"status" json:"status"`
	TransactionType                   string          `db:"transaction_type" json:"transactionType"`
	ExpenseType                       string          `db:"expense_type" json:"expenseType"`
	ReceiptKey                        sql.NullString  `db:"receipt_key" json:"receiptKey,omitempty"`
	Audit
}

// Account status constants. DRAFT is the only creatable status; transitions are
// one-directional in normal flow.
const (
	AccountStatusDraft     = "DRAFT"
	AccountStatusSubmitted = "SUBMITTED"
	AccountStatusRejected  = "REJECTED"
	AccountStatusApproved  = "APPROVED"
)

// Expense status constants
const (
	ExpenseStatusDraft     = "DRAFT"
	ExpenseStatusConfirmed = "CONFIRMED"
)

// Expense transaction type constants
const (
	TransactionTypeAuto   = "AUTO"
	TransactionTypeManual = "MANUAL"
)

// Expense type constants
const (
	ExpenseTypeExpense    = "EXPENSE"
	ExpenseTypeWithdrawal = "WITHDRAWAL"
)

// Cost type constants
const (
	CostTypePerson = "PERSON"
	CostTypeLeader = "LEADER"
)

// Payment type constants
const (
	PaymentTypeCash = "CASH"
	PaymentTypeCard = "CARD"
)

// Role constants
const (
	RoleAdmin             = "Admin"
	RoleFinanceManager    = "FinanceManager"
	RoleOperationsManager = "OperationsManager"
	RoleLeader            = "Leader"
)
