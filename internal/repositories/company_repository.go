package repositories

import (
	"database/sql"
	"time"

	"trip-expense-service/internal/models"
)

type CompanyRepository interface {
	Insert(tx *sql.Tx, c *models.Company) error
	GetByID(id int64) (*models.Company, error)
	GetAll(limit, offset int) ([]*models.Company, error)
	CountActiveByCode(code string, excludeID int64) (int, error)
	Update(tx *sql.Tx, c *models.Company) error
	SoftDelete(tx *sql.Tx, id int64, deletedBy string) error
}

type companyRepository struct {
	db *sql.DB
}

func NewCompanyRepository(db *sql.DB) CompanyRepository {
	return &companyRepository{db: db}
}

func (r *companyRepository) Insert(tx *sql.Tx, c *models.Company) error {
	query := `
		INSERT INTO companies (code, name, base_currency_id, is_active, created_by, created_date)
		VALUES (?, ?, ?, 1, ?, ?)
	`
	result, err := tx.Exec(query, c.Code, c.Name, c.BaseCurrencyID, c.CreatedBy, c.CreatedDate)
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

func (r *companyRepository) GetByID(id int64) (*models.Company, error) {
	c := &models.Company{}
	query := `
		SELECT id, code, name, base_currency_id, is_active,
		       created_by, created_date, updated_by, updated_date,
		       deleted_by, deleted_date
		FROM companies
		WHERE id = ? AND is_active = 1
	`
	err := r.db.QueryRow(query, id).Scan(
		&c.ID,
		&c.Code,
		&c.Name,
		&c.BaseCurrencyID,
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

func (r *companyRepository) GetAll(limit, offset int) ([]*models.Company, error) {
	query := `
		SELECT id, code, name, base_currency_id, is_active,
		       created_by, created_date, updated_by, updated_date,
		       deleted_by, deleted_date
		FROM companies
		WHERE is_active = 1
		ORDER BY code
		LIMIT ? OFFSET ?
	`
	rows, err := r.db.Query(query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var companies []*models.Company
	for rows.Next() {
		c := &models.Company{}
		err := rows.Scan(
			&c.ID,
			&c.Code,
			&c.Name,
			&c.BaseCurrencyID,
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
		companies = append(companies, c)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return companies, nil
}

func (r *companyRepository) CountActiveByCode(code string, excludeID int64) (int, error) {
	var count int
	query := `
		SELECT COUNT(*)
		FROM companies
		WHERE UPPER(TRIM(code)) = UPPER(TRIM(?)) AND is_active = 1 AND id <> ?
	`
	err := r.db.QueryRow(query, code, excludeID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *companyRepository) Update(tx *sql.Tx, c *models.Company) error {
	query := `
		UPDATE companies
		SET code = ?,
			name = ?,
			base_currency_id = ?,
			updated_by = ?,
			updated_date = ?
		WHERE id = ? AND is_active = 1
	`
	result, err := tx.Exec(query, c.Code, c.Name, c.BaseCurrencyID, c.UpdatedBy, time.Now(), c.ID)
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

func (r *companyRepository) SoftDelete(tx *sql.Tx, id int64, deletedBy string) error {
	query := `
		UPDATE companies
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
