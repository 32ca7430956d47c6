package repositories

import (
	"database/sql"
	"time"

	"trip-expense-service/internal/models"
)

type CostRepository interface {
	Insert(tx *sql.Tx, c *models.Cost) error
	GetByID(id int64) (*models.Cost, error)
	GetActiveByBudget(budgetID int64) ([]*models.Cost, error)
	GetActiveByBudgetAndType(budgetID int64, costType string) ([]*models.Cost, error)
	MaxSequence(budgetID int64, costType string) (int, error)
	Update(tx *sql.Tx, c *models.Cost) error
	UpdateSequence(tx *sql.Tx, id int64, sequence int, updatedBy string) error
	SoftDelete(tx *sql.Tx, id int64, deletedBy string) error
	DeleteByBudget(tx *sql.Tx, budgetID int64) error
}

type costRepository struct {
	db *sql.DB
}

func NewCostRepository(db *sql.DB) CostRepository {
	return &costRepository{db: db}
}

const costColumns = `
	id, budget_id, cost_type, sequence, cost_amount, base_currency_amount,
	base_currency_code, is_active, created_by, created_date, updated_by,
	updated_date, deleted_by, deleted_date`

func scanCost(row interface{ Scan(...interface{}) error }) (*models.Cost, error) {
	c := &models.Cost{}
	err := row.Scan(
		&c.ID,
		&c.BudgetID,
		&c.CostType,
		&c.Sequence,
		&c.CostAmount,
		&c.BaseCurrencyAmount,
		&c.BaseCurrencyCode,
		&c.IsActive,
		&c.CreatedBy,
		&c.CreatedDate,
		&c.UpdatedBy,
		&c.UpdatedDate,
		&c.DeletedBy,
		&c.DeletedDate,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *costRepository) Insert(tx *sql.Tx, c *models.Cost) error {
	query := `
		INSERT INTO costs (
			budget_id, cost_type, sequence, cost_amount, base_currency_amount,
			base_currency_code, is_active, created_by, created_date
		) VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)
	`
	result, err := tx.Exec(query,
		c.BudgetID,
		c.CostType,
		c.Sequence,
		c.CostAmount,
		c.BaseCurrencyAmount,
		c.BaseCurrencyCode,
		c.CreatedBy,
		c.CreatedDate,
	)
	if err != nil {
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

func (r *costRepository) GetByID(id int64) (*models.Cost, error) {
	query := `SELECT` + costColumns + `
		FROM costs
		WHERE id = ? AND is_active = 1
	`
	c, err := scanCost(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetActiveByBudget returns costs in insertion order; account creation scans
// them in this order.
func (r *costRepository) GetActiveByBudget(budgetID int64) ([]*models.Cost, error) {
	query := `SELECT` + costColumns + `
		FROM costs
		WHERE budget_id = ? AND is_active = 1
		ORDER BY id
	`
	rows, err := r.db.Query(query, budgetID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCosts(rows)
}

func (r *costRepository) GetActiveByBudgetAndType(budgetID int64, costType string) ([]*models.Cost, error) {
	query := `SELECT` + costColumns + `
		FROM costs
		WHERE budget_id = ? AND cost_type = ? AND is_active = 1
		ORDER BY sequence
	`
	rows, err := r.db.Query(query, budgetID, costType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCosts(rows)
}

func collectCosts(rows *sql.Rows) ([]*models.Cost, error) {
	var costs []*models.Cost
	for rows.Next() {
		c, err := scanCost(rows)
		if err != nil {
			return nil, err
		}
		costs = append(costs, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return costs, nil
}

func (r *costRepository) MaxSequence(budgetID int64, costType string) (int, error) {
	var max sql.NullInt64
	query := `
		SELECT MAX(sequence)
		FROM costs
		WHERE budget_id = ? AND cost_type = ? AND is_active = 1
	`
	err := r.db.QueryRow(query, budgetID, costType).Scan(&max)
	if err != nil {
		return 0, err
	}
	return int(max.Int64), nil
}

func (r *costRepository) Update(tx *sql.Tx, c *models.Cost) error {
	query := `
		UPDATE costs
		SET cost_amount = ?,
			base_currency_amount = ?,
			base_currency_code = ?,
			updated_by = ?,
			updated_date = ?
		WHERE id = ? AND is_active = 1
	`
	result, err := tx.Exec(query,
		c.CostAmount,
		c.BaseCurrencyAmount,
		c.BaseCurrencyCode,
		c.UpdatedBy,
		time.Now(),
		c.ID,
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

func (r *costRepository) UpdateSequence(tx *sql.Tx, id int64, sequence int, updatedBy string) error {
	query := `
		UPDATE costs
		SET sequence = ?,
			updated_by = ?,
			updated_date = ?
		WHERE id = ? AND is_active = 1
	`
	result, err := tx.Exec(query, sequence, updatedBy, time.Now(), id)
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

func (r *costRepository) SoftDelete(tx *sql.Tx, id int64, deletedBy string) error {
	query := `
		UPDATE costs
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

// DeleteByBudget physically removes any cost rows for a budget. Budget upload
// runs this before re-creating the tiers for a freshly inserted budget.
func (r *costRepository) DeleteByBudget(tx *sql.Tx, budgetID int64) error {
	_, err := tx.Exec(`DELETE FROM costs WHERE budget_id = ?`, budgetID)
	return err
}
