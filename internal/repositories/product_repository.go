package repositories

import (
	"database/sql"
	"time"

	"trip-expense-service/internal/models"
)

type ProductRepository interface {
	Insert(tx *sql.Tx, p *models.Product) error
	GetByID(id int64) (*models.Product, error)
	GetAll(limit, offset int) ([]*models.Product, error)
	CountActiveByCode(code string, excludeID int64) (int, error)
	Update(tx *sql.Tx, p *models.Product) error
	SoftDelete(tx *sql.Tx, id int64, deletedBy string) error
}

type productRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Insert(tx *sql.Tx, p *models.Product) error {
	query := `
		INSERT INTO products (code, name, company_id, brand_id, business_id, is_active, created_by, created_date)
		VALUES (?, ?, ?, ?, ?, 1, ?, ?)
	`
	result, err := tx.Exec(query, p.Code, p.Name, p.CompanyID, p.BrandID, p.BusinessID, p.CreatedBy, p.CreatedDate)
	if err != nil {
		return translateDuplicate(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = id
	return nil
}

func (r *productRepository) GetByID(id int64) (*models.Product, error) {
	p := &models.Product{}
	query := `
		SELECT id, code, name, company_id, brand_id, business_id, is_active,
		       created_by, created_date, updated_by, updated_date,
		       deleted_by, deleted_date
		FROM products
		WHERE id = ? AND is_active = 1
	`
	err := r.db.QueryRow(query, id).Scan(
		&p.ID,
		&p.Code,
		&p.Name,
		&p.CompanyID,
		&p.BrandID,
		&p.BusinessID,
		&p.IsActive,
		&p.CreatedBy,
		&p.CreatedDate,
		&p.UpdatedBy,
		&p.UpdatedDate,
		&p.DeletedBy,
		&p.DeletedDate,
	)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *productRepository) GetAll(limit, offset int) ([]*models.Product, error) {
	query := `
		SELECT id, code, name, company_id, brand_id, business_id, is_active,
		       created_by, created_date, updated_by, updated_date,
		       deleted_by, deleted_date
		FROM products
		WHERE is_active = 1
		ORDER BY code
		LIMIT ? OFFSET ?
	`
	rows, err := r.db.Query(query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		p := &models.Product{}
		err := rows.Scan(
			&p.ID,
			&p.Code,
			&p.Name,
			&p.CompanyID,
			&p.BrandID,
			&p.BusinessID,
			&p.IsActive,
			&p.CreatedBy,
			&p.CreatedDate,
			&p.UpdatedBy,
			&p.UpdatedDate,
			&p.DeletedBy,
			&p.DeletedDate,
		)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepository) CountActiveByCode(code string, excludeID int64) (int, error) {
	var count int
	query := `
		SELECT COUNT(*)
		FROM products
		WHERE UPPER(TRIM(code)) = UPPER(TRIM(?)) AND is_active = 1 AND id <> ?
	`
	err := r.db.QueryRow(query, code, excludeID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *productRepository) Update(tx *sql.Tx, p *models.Product) error {
	query := `
		UPDATE products
		SET code = ?,
			name = ?,
			company_id = ?,
			brand_id = ?,
			business_id = ?,
			updated_by = ?,
			updated_date = ?
		WHERE id = ? AND is_active = 1
	`
	result, err := tx.Exec(query, p.Code, p.Name, p.CompanyID, p.BrandID, p.BusinessID, p.UpdatedBy, time.Now(), p.ID)
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

func (r *productRepository) SoftDelete(tx *sql.Tx, id int64, deletedBy string) error {
	query := `
		UPDATE products
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
