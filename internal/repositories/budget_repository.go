package repositories

import (
	"database/sql"
	"time"

	"trip-expense-service/internal/models"
)

type BudgetRepository interface {
	Insert(tx *sql.Tx, b *models.Budget) error
	GetByID(id int64) (*models.Budget, error)
	GetActiveByProduct(productID int64) ([]*models.Budget, error)
	Update(tx *sql.Tx, b *models.Budget) error
	SoftDelete(tx *sql.Tx, id int64, deletedBy string) error
}

type budgetRepository struct {
	db *sql.DB
}

func NewBudgetRepository(db *sql.DB) BudgetRepository {
	return &budgetRepository{db: db}
}

const budgetColumns = `
	id, product_id, day_number, expense_title, expense_category_id,
	payment_type, currency_id, tax_id, department_id, sales_tax_group_id,
	version, is_active, created_by, created_date, updated_by, updated_date,
	deleted_by, deleted_date`

func scanBudget(row interface{ Scan(...interface{}) error }) (*models.Budget, error) {
	b := &models.Budget{}
	err := row.Scan(
		&b.ID,
		&b.ProductID,
		&b.DayNumber,
		&b.ExpenseTitle,
		&b.ExpenseCategoryID,
		&b.PaymentType,
		&b.CurrencyID,
		&b.TaxID,
		&b.DepartmentID,
		&b.SalesTaxGroupID,
		&b.Version,
		&b.IsActive,
		&b.CreatedBy,
		&b.CreatedDate,
		&b.UpdatedBy,
		&b.UpdatedDate,
		&b.DeletedBy,
		&b.DeletedDate,
	)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *budgetRepository) Insert(tx *sql.Tx, b *models.Budget) error {
	query := `
		INSERT INTO budgets (
			product_id, day_number, expense_title, expense_category_id,
			payment_type, currency_id, tax_id, department_id, sales_tax_group_id,
			version, is_active, created_by, created_date
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
	`
	result, err := tx.Exec(query,
		b.ProductID,
		b.DayNumber,
		b.ExpenseTitle,
		b.ExpenseCategoryID,
		b.PaymentType,
		b.CurrencyID,
		b.TaxID,
		b.DepartmentID,
		b.SalesTaxGroupID,
		b.Version,
		b.CreatedBy,
		b.CreatedDate,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = id
	return nil
}

func (r *budgetRepository) GetByID(id int64) (*models.Budget, error) {
	query := `SELECT` + budgetColumns + `
		FROM budgets
		WHERE id = ? AND is_active = 1
	`
	b, err := scanBudget(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (r *budgetRepository) GetActiveByProduct(productID int64) ([]*models.Budget, error) {
	query := `SELECT` + budgetColumns + `
		FROM budgets
		WHERE product_id = ? AND is_active = 1
		ORDER BY day_number, id
	`
	rows, err := r.db.Query(query, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var budgets []*models.Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		budgets = append(budgets, b)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return budgets, nil
}

func (r *budgetRepository) Update(tx *sql.Tx, b *models.Budget) error {
	query := `
		UPDATE budgets
		SET day_number = ?,
			expense_title = ?,
			expense_category_id = ?,
			payment_type = ?,
			currency_id = ?,
			tax_id = ?,
			department_id = ?,
			sales_tax_group_id = ?,
			version = ?,
			updated_by = ?,
			updated_date = ?
		WHERE id = ? AND is_active = 1
	`
	result, err := tx.Exec(query,
		b.DayNumber,
		b.ExpenseTitle,
		b.ExpenseCategoryID,
		b.PaymentType,
		b.CurrencyID,
		b.TaxID,
		b.DepartmentID,
		b.SalesTaxGroupID,
		b.Version,
		b.UpdatedBy,
		time.Now(),
		b.ID,
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

func (r *budgetRepository) SoftDelete(tx *sql.Tx, id int64, deletedBy string) error {
	query := `
		UPDATE budgets
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
