package repositories

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"trip-expense-service/internal/models"
)

// AccountTotals carries the per-account budget-vs-actual figures aggregated
// over expenses.
type AccountTotals struct {
	TotalBudget   decimal.Decimal
	TotalExpenses decimal.Decimal
}

type AccountRepository interface {
	Insert(tx *sql.Tx, a *models.Account) error
	GetByID(id int64) (*models.Account, error)
	GetActiveByTripCode(tripCode string) (*models.Account, error)
	ListForManager(callerUserID int64, callerName, orderBy string, limit, offset int) ([]*models.Account, error)
	ListForLeader(leaderUserID int64, limit, offset int) ([]*models.Account, error)
	AggregateTotals(accountIDs []int64) (map[int64]AccountTotals, error)
	Update(tx *sql.Tx, a *models.Account) error
	UpdateStatus(tx *sql.Tx, id int64, status, updatedBy string) error
	SoftDelete(tx *sql.Tx, id int64, deletedBy string) error
}

type accountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) AccountRepository {
	return &accountRepository{db: db}
}

const accountColumns = `
	id, trip_code, departure_date, no_of_leaders, no_of_passengers,
	account_status, leader_user_id, product_id, reviewer_notes, is_active,
	created_by, created_date, updated_by, updated_date, deleted_by, deleted_date`

func scanAccount(row interface{ Scan(...interface{}) error }) (*models.Account, error) {
	a := &models.Account{}
	err := row.Scan(
		&a.ID,
		&a.TripCode,
		&a.DepartureDate,
		&a.NoOfLeaders,
		&a.NoOfPassengers,
		&a.AccountStatus,
		&a.LeaderUserID,
		&a.ProductID,
		&a.ReviewerNotes,
		&a.IsActive,
		&a.CreatedBy,
		&a.CreatedDate,
		&a.UpdatedBy,
		&a.UpdatedDate,
		&a.DeletedBy,
		&a.DeletedDate,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *accountRepository) Insert(tx *sql.Tx, a *models.Account) error {
	query := `
		INSERT INTO accounts (
			trip_code, departure_date, no_of_leaders, no_of_passengers,
			account_status, leader_user_id, product_id, reviewer_notes,
			is_active, created_by, created_date
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
	`
	result, err := tx.Exec(query,
		a.TripCode,
		a.DepartureDate,
		a.NoOfLeaders,
		a.NoOfPassengers,
		a.AccountStatus,
		a.LeaderUserID,
		a.ProductID,
		a.ReviewerNotes,
		a.CreatedBy,
		a.CreatedDate,
	)
	if err != nil {
		return translateDuplicate(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = id
	return nil
}

func (r *accountRepository) GetByID(id int64) (*models.Account, error) {
	query := `SELECT` + accountColumns + `
		FROM accounts
		WHERE id = ? AND is_active = 1
	`
	a, err := scanAccount(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *accountRepository) GetActiveByTripCode(tripCode string) (*models.Account, error) {
	query := `SELECT` + accountColumns + `
		FROM accounts
		WHERE TRIM(trip_code) = TRIM(?) AND is_active = 1
	`
	a, err := scanAccount(r.db.QueryRow(query, tripCode))
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// ListForManager returns accounts visible to admin/finance/operations roles:
// submitted, rejected or approved accounts, plus draft accounts the caller
// leads, plus anything the caller created.
func (r *accountRepository) ListForManager(callerUserID int64, callerName, orderBy string, limit, offset int) ([]*models.Account, error) {
	query := `SELECT` + accountColumns + `
		FROM accounts
		WHERE is_active = 1
		AND (
			account_status IN (?, ?, ?)
			OR (account_status = ? AND leader_user_id = ?)
			OR created_by = ?
		)
		ORDER BY ` + orderBy + `
		LIMIT ? OFFSET ?
	`
	rows, err := r.db.Query(query,
		models.AccountStatusSubmitted,
		models.AccountStatusRejected,
		models.AccountStatusApproved,
		models.AccountStatusDraft,
		callerUserID,
		callerName,
		limit,
		offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAccounts(rows)
}

// ListForLeader returns only the leader's own accounts across all statuses,
// newest update first.
func (r *accountRepository) ListForLeader(leaderUserID int64, limit, offset int) ([]*models.Account, error) {
	query := `SELECT` + accountColumns + `
		FROM accounts
		WHERE is_active = 1 AND leader_user_id = ?
		ORDER BY updated_date DESC
		LIMIT ? OFFSET ?
	`
	rows, err := r.db.Query(query, leaderUserID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAccounts(rows)
}

func collectAccounts(rows *sql.Rows) ([]*models.Account, error) {
	var accounts []*models.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return accounts, nil
}

// AggregateTotals computes budget and actual sums over active expenses,
// grouped by account id, for the given page of accounts.
func (r *accountRepository) AggregateTotals(accountIDs []int64) (map[int64]AccountTotals, error) {
	totals := make(map[int64]AccountTotals)
	if len(accountIDs) == 0 {
		return totals, nil
	}

	placeholders := "?"
	args := []interface{}{accountIDs[0]}
	for _, id := range accountIDs[1:] {
		placeholders += ", ?"
		args = append(args, id)
	}

	query := `
		SELECT account_id,
		       SUM(budgeted_base_currency_leader_cost + budgeted_base_currency_passenger_cost),
		       SUM(base_currency_amount)
		FROM expenses
		WHERE is_active = 1 AND account_id IN (` + placeholders + `)
		GROUP BY account_id
	`
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var accountID int64
		var t AccountTotals
		if err := rows.Scan(&accountID, &t.TotalBudget, &t.TotalExpenses); err != nil {
			return nil, err
		}
		totals[accountID] = t
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return totals, nil
}

func (r *accountRepository) Update(tx *sql.Tx, a *models.Account) error {
	query := `
		UPDATE accounts
		SET trip_code = ?,
			departure_date = ?,
			no_of_leaders = ?,
			no_of_passengers = ?,
			account_status = ?,
			leader_user_id = ?,
			product_id = ?,
			reviewer_notes = ?,
			updated_by = ?,
			updated_date = ?
		WHERE id = ? AND is_active = 1
	`
	result, err := tx.Exec(query,
		a.TripCode,
		a.DepartureDate,
		a.NoOfLeaders,
		a.NoOfPassengers,
		a.AccountStatus,
		a.LeaderUserID,
		a.ProductID,
		a.ReviewerNotes,
		a.UpdatedBy,
		time.Now(),
		a.ID,
	)
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

// UpdateStatus persists only the account status and audit stamp; the non-draft
// update branch discards every other field.
func (r *accountRepository) UpdateStatus(tx *sql.Tx, id int64, status, updatedBy string) error {
	query := `
		UPDATE accounts
		SET account_status = ?,
			updated_by = ?,
			updated_date = ?
		WHERE id = ? AND is_active = 1
	`
	result, err := tx.Exec(query, status, updatedBy, time.Now(), id)
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

func (r *accountRepository) SoftDelete(tx *sql.Tx, id int64, deletedBy string) error {
	query := `
		UPDATE accounts
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
