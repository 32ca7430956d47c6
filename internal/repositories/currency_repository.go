package repositories

import (
	"database/sql"
	"time"

	"trip-expense-service/internal/models"
)

type CurrencyRepository interface {
	Insert(tx *sql.Tx, c *models.Currency) error
	GetByID(id int64) (*models.Currency, error)
	GetByCode(code string) (*models.Currency, error)
	GetAll(limit, offset int) ([]*models.Currency, error)
	CountActiveByCode(code string, excludeID int64) (int, error)
	Update(tx *sql.Tx, c *models.Currency) error
	SoftDelete(tx *sql.Tx, id int64, deletedBy string) error
}

type currencyRepository struct {
	db *sql.DB
}

func NewCurrencyRepository(db *sql.DB) CurrencyRepository {
	return &currencyRepository{db: db}
}

func (r *currencyRepository) Insert(tx *sql.Tx, c *models.Currency) error {
	query := `
		INSERT INTO currencies (code, name, conversion_rate, is_active, created_by, created_date)
		VALUES (?, ?, ?, 1, ?, ?)
	`
	result, err := tx.Exec(query, c.Code, c.Name, c.ConversionRate, c.CreatedBy, c.CreatedDate)
	if err != nil {
		return translateDuplicate(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

func (r *currencyRepository) GetByID(id int64) (*models.Currency, error) {
	c := &models.Currency{}
	query := `
		SELECT id, code, name, conversion_rate, is_active,
		       created_by, created_date, updated_by, updated_date,
		       deleted_by, deleted_date
		FROM currencies
		WHERE id = ? AND is_active = 1
	`
	err := r.db.QueryRow(query, id).Scan(
		&c.ID,
		&c.Code,
		&c.Name,
		&c.ConversionRate,
		&c.IsActive,
		&c.CreatedBy,
		&c.CreatedDate,
		&c.UpdatedBy,
		&c.UpdatedDate,
		&c.DeletedBy,
		&c.DeletedDate,
	)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *currencyRepository) GetByCode(code string) (*models.Currency, error) {
	c := &models.Currency{}
	query := `
		SELECT id, code, name, conversion_rate, is_active,
		       created_by, created_date, updated_by, updated_date,
		       deleted_by, deleted_date
		FROM currencies
		WHERE UPPER(TRIM(code)) = UPPER(TRIM(?)) AND is_active = 1
	`
	err := r.db.QueryRow(query, code).Scan(
		&c.ID,
		&c.Code,
		&c.Name,
		&c.ConversionRate,
		&c.IsActive,
		&c.CreatedBy,
		&c.CreatedDate,
		&c.UpdatedBy,
		&c.UpdatedDate,
		&c.DeletedBy,
		&c.DeletedDate,
	)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *currencyRepository) GetAll(limit, offset int) ([]*models.Currency, error) {
	query := `
		SELECT id, code, name, conversion_rate, is_active,
		       created_by, created_date, updated_by, updated_date,
		       deleted_by, deleted_date
		FROM currencies
		WHERE is_active = 1
		ORDER BY code
		LIMIT ? OFFSET ?
	`
	rows, err := r.db.Query(query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var currencies []*models.Currency
	for rows.Next() {
		c := &models.Currency{}
		err := rows.Scan(
			&c.ID,
			&c.Code,
			&c.Name,
			&c.ConversionRate,
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
		currencies = append(currencies, c)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return currencies, nil
}

func (r *currencyRepository) CountActiveByCode(code string, excludeID int64) (int, error) {
	var count int
	query := `
		SELECT COUNT(*)
		FROM currencies
		WHERE UPPER(TRIM(code)) = UPPER(TRIM(?)) AND is_active = 1 AND id <> ?
	`
	err := r.db.QueryRow(query, code, excludeID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *currencyRepository) Update(tx *sql.Tx, c *models.Currency) error {
	query := `
		UPDATE currencies
		SET code = ?,
			name = ?,
			conversion_rate = ?,
			updated_by = ?,
			updated_date = ?
		WHERE id = ? AND is_active = 1
	`
	result, err := tx.Exec(query, c.Code, c.Name, c.ConversionRate, c.UpdatedBy, time.Now(), c.ID)
	if err != nil {
		return translateDuplicate(err)
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

func (r *currencyRepository) SoftDelete(tx *sql.Tx, id int64, deletedBy string) error {
	query := `
		UPDATE currencies
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
