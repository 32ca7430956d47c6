package repositories

import (
	"database/sql"
	"time"

	"trip-expense-service/internal/models"
)

type UserRepository interface {
	Insert(tx *sql.Tx, u *models.User) error
	GetByID(id int64) (*models.User, error)
	GetByAccountName(accountName string) (*models.User, error)
	GetAll(limit, offset int) ([]*models.User, error)
	CountActiveByAccountName(accountName string, excludeID int64) (int, error)
	Update(tx *sql.Tx, u *models.User) error
	SoftDelete(tx *sql.Tx, id int64, deletedBy string) error
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Insert(tx *sql.Tx, u *models.User) error {
	query := `
		INSERT INTO users (account_name, first_name, last_name, email, role, is_active, created_by, created_date)
		VALUES (?, ?, ?, ?, ?, 1, ?, ?)
	`
	result, err := tx.Exec(query, u.AccountName, u.FirstName, u.LastName, u.Email, u.Role, u.CreatedBy, u.CreatedDate)
	if err != nil {
		return translateDuplicate(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = id
	return nil
}

func (r *userRepository) GetByID(id int64) (*models.User, error) {
	u := &models.User{}
	query := `
		SELECT id, account_name, first_name, last_name, email, role, is_active,
		       created_by, created_date, updated_by, updated_date,
		       deleted_by, deleted_date
		FROM users
		WHERE id = ? AND is_active = 1
	`
	err := r.db.QueryRow(query, id).Scan(
		&u.ID,
		&u.AccountName,
		&u.FirstName,
		&u.LastName,
		&u.Email,
		&u.Role,
		&u.IsActive,
		&u.CreatedBy,
		&u.CreatedDate,
		&u.UpdatedBy,
		&u.UpdatedDate,
		&u.DeletedBy,
		&u.DeletedDate,
	)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

// GetByAccountName resolves a principal by case-insensitive account name.
func (r *userRepository) GetByAccountName(accountName string) (*models.User, error) {
	u := &models.User{}
	query := `
		SELECT id, account_name, first_name, last_name, email, role, is_active,
		       created_by, created_date, updated_by, updated_date,
		       deleted_by, deleted_date
		FROM users
		WHERE LOWER(account_name) = LOWER(?) AND is_active = 1
	`
	err := r.db.QueryRow(query, accountName).Scan(
		&u.ID,
		&u.AccountName,
		&u.FirstName,
		&u.LastName,
		&u.Email,
		&u.Role,
		&u.IsActive,
		&u.CreatedBy,
		&u.CreatedDate,
		&u.UpdatedBy,
		&u.UpdatedDate,
		&u.DeletedBy,
		&u.DeletedDate,
	)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *userRepository) GetAll(limit, offset int) ([]*models.User, error) {
	query := `
		SELECT id, account_name, first_name, last_name, email, role, is_active,
		       created_by, created_date, updated_by, updated_date,
		       deleted_by, deleted_date
		FROM users
		WHERE is_active = 1
		ORDER BY account_name
		LIMIT ? OFFSET ?
	`
	rows, err := r.db.Query(query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u := &models.User{}
		err := rows.Scan(
			&u.ID,
			&u.AccountName,
			&u.FirstName,
			&u.LastName,
			&u.Email,
			&u.Role,
			&u.IsActive,
			&u.CreatedBy,
			&u.CreatedDate,
			&u.UpdatedBy,
			&u.UpdatedDate,
			&u.DeletedBy,
			&u.DeletedDate,
		)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *userRepository) CountActiveByAccountName(accountName string, excludeID int64) (int, error) {
	var count int
	query := `
		SELECT COUNT(*)
		FROM users
		WHERE LOWER(TRIM(account_name)) = LOWER(TRIM(?)) AND is_active = 1 AND id <> ?
	`
	err := r.db.QueryRow(query, accountName, excludeID).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *userRepository) Update(tx *sql.Tx, u *models.User) error {
	query := `
		UPDATE users
		SET account_name = ?,
			first_name = ?,
			last_name = ?,
			email = ?,
			role = ?,
			updated_by = ?,
			updated_date = ?
		WHERE id = ? AND is_active = 1
	`
	result, err := tx.Exec(query, u.AccountName, u.FirstName, u.LastName, u.Email, u.Role, u.UpdatedBy, time.Now(), u.ID)
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

func (r *userRepository) SoftDelete(tx *sql.Tx, id int64, deletedBy string) error {
	query := `
		UPDATE users
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
