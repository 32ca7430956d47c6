package repositories

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"trip-expense-service/internal/models"
)

// CashBalance is the per-currency available balance for a leader: confirmed
// withdrawals minus confirmed cash expenses.
type CashBalance struct {
	CurrencyCode     string          `json:"currencyCode"`
	AvailableBalance decimal.Decimal `json:"availableBalance"`
}

type ExpenseRepository interface {
	Insert(tx *sql.Tx, e *models.Expense) error
	GetByID(id int64) (*models.Expense, error)
	GetActiveByAccount(accountID int64) ([]*models.Expense, error)
	SumConfirmedBaseByAccount(accountID int64) (decimal.Decimal, error)
	SumBudgetedBaseByAccount(accountID int64) (decimal.Decimal, error)
	CashBalancesByLeader(leaderUserID int64) ([]CashBalance, error)
	Update(tx *sql.Tx, e *models.Expense) error
	UpdateReceiptKey(tx *sql.Tx, id int64, receiptKey sql.NullString, updatedBy string) error
	SoftDelete(tx *sql.Tx, id int64, deletedBy string) error
}

type expenseRepository struct {
	db *sql.DB
}

func NewExpenseRepository(db *sql.DB) ExpenseRepository {
	return &expenseRepository{db: db}
}

const expenseColumns = `
	id, account_id, budget_id, expense_title, expense_date, amount,
	currency_id, base_currency_amount, base_currency_code,
	budgeted_base_currency_leader_cost, budgeted_base_currency_passenger_cost,
	payment_type, status, transaction_type, expense_type, receipt_key,
	is_active, created_by, created_date, updated_by, updated_date,
	deleted_by, deleted_date`

func scanExpense(row interface{ Scan(...interface{}) error }) (*models.Expense, error) {
	e := &models.Expense{}
	err := row.Scan(
		&e.ID,
		&e.AccountID,
		&e.BudgetID,
		&e.ExpenseTitle,
		&e.ExpenseDate,
		&e.Amount,
		&e.CurrencyID,
		&e.BaseCurrencyAmount,
		&e.BaseCurrencyCode,
		&e.BudgetedBaseCurrencyLeaderCost,
		&e.BudgetedBaseCurrencyPassengerCost,
		&e.PaymentType,
		&e.Status,
		&e.TransactionType,
		&e.ExpenseType,
		&e.ReceiptKey,
		&e.IsActive,
		&e.CreatedBy,
		&e.CreatedDate,
		&e.UpdatedBy,
		&e.UpdatedDate,
		&e.DeletedBy,
		&e.DeletedDate,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *expenseRepository) Insert(tx *sql.Tx, e *models.Expense) error {
	query := `
		INSERT INTO expenses (
			account_id, budget_id, expense_title, expense_date, amount,
			currency_id, base_currency_amount, base_currency_code,
			budgeted_base_currency_leader_cost, budgeted_base_currency_passenger_cost,
			payment_type, status, transaction_type, expense_type, receipt_key,
			is_active, created_by, created_date
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
	`
	result, err := tx.Exec(query,
		e.AccountID,
		e.BudgetID,
		e.ExpenseTitle,
		e.ExpenseDate,
		e.Amount,
		e.CurrencyID,
		e.BaseCurrencyAmount,
		e.BaseCurrencyCode,
		e.BudgetedBaseCurrencyLeaderCost,
		e.BudgetedBaseCurrencyPassengerCost,
		e.PaymentType,
		e.Status,
		e.TransactionType,
		e.ExpenseType,
		e.ReceiptKey,
		e.CreatedBy,
		e.CreatedDate,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = id
	return nil
}

func (r *expenseRepository) GetByID(id int64) (*models.Expense, error) {
	query := `SELECT` + expenseColumns + `
		FROM expenses
		WHERE id = ? AND is_active = 1
	`
	e, err := scanExpense(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (r *expenseRepository) GetActiveByAccount(accountID int64) ([]*models.Expense, error) {
	query := `SELECT` + expenseColumns + `
		FROM expenses
		WHERE account_id = ? AND is_active = 1
		ORDER BY expense_date, id
	`
	rows, err := r.db.Query(query, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenses []*models.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, e)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return expenses, nil
}

// SumConfirmedBaseByAccount sums confirmed base-currency amounts over an
// account's active expenses.
func (r *expenseRepository) SumConfirmedBaseByAccount(accountID int64) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	query := `
		SELECT SUM(base_currency_amount)
		FROM expenses
		WHERE account_id = ? AND is_active = 1 AND status = ?
	`
	err := r.db.QueryRow(query, accountID, models.ExpenseStatusConfirmed).Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}

// SumBudgetedBaseByAccount sums the budgeted leader + passenger base-currency
// costs over an account's active expenses.
func (r *expenseRepository) SumBudgetedBaseByAccount(accountID int64) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	query := `
		SELECT SUM(budgeted_base_currency_leader_cost + budgeted_base_currency_passenger_cost)
		FROM expenses
		WHERE account_id = ? AND is_active = 1
	`
	err := r.db.QueryRow(query, accountID).Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}

// CashBalancesByLeader aggregates, per currency, the confirmed withdrawals
// (positive) and confirmed cash expenses (negative) across the leader's
// non-approved accounts. Currencies with no such activity do not appear.
func (r *expenseRepository) CashBalancesByLeader(leaderUserID int64) ([]CashBalance, error) {
	query := `
		SELECT c.code,
		       SUM(CASE
		           WHEN e.expense_type = ? THEN e.amount
		           WHEN e.expense_type = ? AND e.payment_type = ? THEN -e.amount
		           ELSE 0
		       END)
		FROM expenses e
		JOIN accounts a ON a.id = e.account_id
		JOIN currencies c ON c.id = e.currency_id
		WHERE a.leader_user_id = ?
		AND a.account_status <> ?
		AND a.is_active = 1
		AND e.is_active = 1
		AND e.status = ?
		AND (e.expense_type = ? OR (e.expense_type = ? AND e.payment_type = ?))
		GROUP BY c.code
		ORDER BY c.code
	`
	rows, err := r.db.Query(query,
		models.ExpenseTypeWithdrawal,
		models.ExpenseTypeExpense,
		models.PaymentTypeCash,
		leaderUserID,
		models.AccountStatusApproved,
		models.ExpenseStatusConfirmed,
		models.ExpenseTypeWithdrawal,
		models.ExpenseTypeExpense,
		models.PaymentTypeCash,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var balances []CashBalance
	for rows.Next() {
		var b CashBalance
		if err := rows.Scan(&b.CurrencyCode, &b.AvailableBalance); err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return balances, nil
}

func (r *expenseRepository) Update(tx *sql.Tx, e *models.Expense) error {
	query := `
		UPDATE expenses
		SET expense_title = ?,
			expense_date = ?,
			amount = ?,
			currency_id = ?,
			base_currency_amount = ?,
			base_currency_code = ?,
			payment_type = ?,
			status = ?,
			expense_type = ?,
			updated_by = ?,
			updated_date = ?
		WHERE id = ? AND is_active = 1
	`
	result, err := tx.Exec(query,
		e.ExpenseTitle,
		e.ExpenseDate,
		e.Amount,
		e.CurrencyID,
		e.BaseCurrencyAmount,
		e.BaseCurrencyCode,
		e.PaymentType,
		e.Status,
		e.ExpenseType,
		e.UpdatedBy,
		time.Now(),
		e.ID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *expenseRepository) UpdateReceiptKey(tx *sql.Tx, id int64, receiptKey sql.NullString, updatedBy string) error {
	query := `
		UPDATE expenses
		SET receipt_key = ?,
			updated_by = ?,
			updated_date = ?
		WHERE id = ? AND is_active = 1
	`
	result, err := tx.Exec(query, receiptKey, updatedBy, time.Now(), id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *expenseRepository) SoftDelete(tx *sql.Tx, id int64, deletedBy string) error {
	query := `
		UPDATE expenses
		SET is_active = 0,
			deleted_by = ?,
			deleted_date = ?
		WHERE id = ? AND is_active = 1
	`
	result, err := tx.Exec(query, deletedBy, time.Now(), id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return models.ErrNotFound
	}
	return nil
}
