package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"trip-expense-service/internal/auth"
	"trip-expense-service/internal/database"
	"trip-expense-service/internal/models"
	"trip-expense-service/internal/repositories"
)

// defaultPageSize caps unpaginated list requests.
const defaultPageSize = 50

func newAudit(createdBy string) models.Audit {
	return models.Audit{
		IsActive:    true,
		CreatedBy:   createdBy,
		CreatedDate: time.Now(),
	}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt64(v int64) sql.NullInt64 {
	if v <= 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: v, Valid: true}
}

// LookupInput is the create/update payload for the simple coded reference
// entities.
type LookupInput struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// LookupService implements the uniform create/getAll/getById/update/delete
// pattern shared by Brand, Business, Department, ExpenseCategory, Tax and
// SalesTaxGroup. The entity name only feeds error messages.
type LookupService struct {
	entity   string
	txRunner database.TxRunner
	repo     repositories.LookupRepository
}

func NewLookupService(entity string, txRunner database.TxRunner, repo repositories.LookupRepository) *LookupService {
	return &LookupService{
		entity:   entity,
		txRunner: txRunner,
		repo:     repo,
	}
}

func (s *LookupService) Create(ctx context.Context, principal auth.Principal, input LookupInput) (*models.Lookup, error) {
	input.Code = strings.TrimSpace(input.Code)
	if input.Code == "" {
		return nil, models.ValidationError("Code is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, models.ValidationError("Name is required")
	}

	count, err := s.repo.CountActiveByCode(input.Code, 0)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, models.DuplicateError(s.entity, input.Code)
	}

	l := &models.Lookup{
		Code:  input.Code,
		Name:  input.Name,
		Audit: newAudit(principal.AccountName),
	}
	err = s.txRunner.RunInTx(ctx, func(tx *sql.Tx) error {
		return s.repo.Insert(tx, l)
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (s *LookupService) GetAll(ctx context.Context, page, pageSize int) ([]*models.Lookup, error) {
	limit, offset := pageWindow(page, pageSize)
	return s.repo.GetAll(limit, offset)
}

func (s *LookupService) GetByID(ctx context.Context, id int64) (*models.Lookup, error) {
	l, err := s.repo.GetByID(id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.NotFoundError(s.entity)
	}
	return l, err
}

func (s *LookupService) Update(ctx context.Context, principal auth.Principal, id int64, input LookupInput) (*models.Lookup, error) {
	input.Code = strings.TrimSpace(input.Code)
	if input.Code == "" {
		return nil, models.ValidationError("Code is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, models.ValidationError("Name is required")
	}

	l, err := s.repo.GetByID(id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.NotFoundError(s.entity)
	}
	if err != nil {
		return nil, err
	}

	count, err := s.repo.CountActiveByCode(input.Code, id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, models.DuplicateError(s.entity, input.Code)
	}

	l.Code = input.Code
	l.Name = input.Name
	l.UpdatedBy = nullString(principal.AccountName)
	err = s.txRunner.RunInTx(ctx, func(tx *sql.Tx) error {
		return s.repo.Update(tx, l)
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (s *LookupService) Delete(ctx context.Context, principal auth.Principal, id int64) error {
	err := s.txRunner.RunInTx(ctx, func(tx *sql.Tx) error {
		return s.repo.SoftDelete(tx, id, principal.AccountName)
	})
	if errors.Is(err, models.ErrNotFound) {
		return models.NotFoundError(s.entity)
	}
	return err
}

func pageWindow(page, pageSize int) (limit, offset int) {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	if page <= 0 {
		page = 1
	}
	return pageSize, (page - 1) * pageSize
}
