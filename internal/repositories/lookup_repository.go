package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"

	"trip-expense-service/internal/models"
)

// mysqlDuplicateEntry is the MySQL errno for a unique key violation, mapped to
// the duplicate-code error kind as a backstop behind the optimistic check.
const mysqlDuplicateEntry = 1062

func translateDuplicate(err error) error {
	if me, ok := err.(*mysql.MySQLError); ok && me.Number == mysqlDuplicateEntry {
		return models.ErrDuplicateCode
	}
	return err
}

// LookupRepository serves the simple coded reference tables (brands,
// businesses, departments, expense_categories, taxes, sales_tax_groups),
// which all share one column shape. The table name is fixed at construction.
type LookupRepository interface {
	Insert(tx *sql.Tx, l *models.Lookup) error
	GetByID(id int64) (*models.Lookup, error)
	GetByCode(code string) (*models.Lookup, error)
	GetAll(limit, offset int) ([]*models.Lookup, error)
	CountActiveByCode(code string, excludeID int64) (int, error)
	Update(tx *sql.Tx, l *models.Lookup) error
	SoftDelete(tx *sql.Tx, id int64, deletedBy string) error
}

type lookupRepository struct {
	db    *sql.DB
	table string
}

func NewLookupRepository(db *sql.DB, table string) LookupRepository {
	return &lookupRepository{db: db, table: table}
}

func (r *lookupRepository) Insert(tx *sql.Tx, l *models.Lookup) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (code, name, is_active, created_by, created_date)
		VALUES (?, ?, 1, ?, ?)
	`, r.table)
	result, err := tx.Exec(query, l.Code, l.Name, l.CreatedBy, l.CreatedDate)
	if err != nil {
		return translateDuplicate(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	l.ID = id
	return nil
}

func (r *lookupRepository) GetByID(id int64) (*models.Lookup, error) {
	l := &models.Lookup{}
	query := fmt.Sprintf(`
		SELECT id, code, name, is_active,
		       created_by, created_date, updated_by, updated_date,
		       deleted_by, deleted_date
		FROM %s
		WHERE id = ? AND is_active = 1
	`, r.table)
	err := r.db.QueryRow(query, id).Scan(
		&l.ID,
		&l.Code,
		&l.Name,
		&l.IsActive,
		&l.CreatedBy,
		&l.CreatedDate,
		&l.UpdatedBy,
		&l.UpdatedDate,
		&l.DeletedBy,
		&l.DeletedDate,
	)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (r *lookupRepository) GetByCode(code string) (*models.Lookup, error) {
	l := &models.Lookup{}
	query := fmt.Sprintf(`
		SELECT id, code, name, is_active,
		       created_by, created_date, updated_by, updated_date,
		       deleted_by, deleted_date
		FROM %s
		WHERE UPPER(TRIM(code)) = UPPER(TRIM(?)) AND is_active = 1
	`, r.table)
	err := r.db.QueryRow(query, code).Scan(
		&l.ID,
		&l.Code,
		&l.Name,
		&l.IsActive,
		&l.CreatedBy,
		&l.CreatedDate,
		&l.UpdatedBy,
		&l.UpdatedDate,
		&l.DeletedBy,
		&l.DeletedDate,
	)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (r *lookupRepository) GetAll(limit, offset int) ([]*models.Lookup, error) {
	query := fmt.Sprintf(`
		SELECT id, code, name, is_active,
		       created_by, created_date, updated_by, updated_date,
		       deleted_by, deleted_date
		FROM %s
		WHERE is_active = 1
		ORDER BY code
		LIMIT ? OFFSET ?
	`, r.table)
	rows, err := r.db.Query(query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var lookups []*models.Lookup
	for rows.Next() {
		l := &models.Lookup{}
		err := rows.Scan(
			&l.ID,
			&l.Code,
			&l.Name,
			&l.IsActive,
			&l.CreatedBy,
			&l.CreatedDate,
			&l.UpdatedBy,
			&l.UpdatedDate,
			&l.DeletedBy,
			&l.DeletedDate,
		)
		if err != nil {
			return nil, err
		}
		lookups = append(lookups, l)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return lookups, nil
}

func (r *lookupRepository) CountActiveByCode(code string, excludeID int64) (int, error) {
	var count int
	query := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM %s
		WHERE UPPER(TRIM(code)) = UPPER(TRIM(?)) AND is_active = 1 AND id <> ?
	`, r.table)
	err := r.db.QueryRow(query, code, excludeID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *lookupRepository) Update(tx *sql.Tx, l *models.Lookup) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET code = ?,
			name = ?,
			updated_by = ?,
			updated_date = ?
		WHERE id = ? AND is_active = 1
	`, r.table)
	result, err := tx.Exec(query, l.Code, l.Name, l.UpdatedBy, time.Now(), l.ID)
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

func (r *lookupRepository) SoftDelete(tx *sql.Tx, id int64, deletedBy string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET is_active = 0,
			deleted_by = ?,
			deleted_date = ?
		WHERE id = ? AND is_active = 1
	`, r.table)
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
