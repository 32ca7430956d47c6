package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"trip-expense-service/internal/auth"
	"trip-expense-service/internal/database"
	"trip-expense-service/internal/models"
	"trip-expense-service/internal/repositories"
)

// CurrencyService, CompanyService, ProductService and UserService follow the
// same create/getAll/getById/update/delete pattern as LookupService, with
// their extra columns.

type CurrencyInput struct {
	Code           string          `json:"code"`
	Name           string          `json:"name"`
	ConversionRate decimal.Decimal `json:"conversionRate"`
}

type CurrencyService struct {
	txRunner database.TxRunner
	repo     repositories.CurrencyRepository
}

func NewCurrencyService(txRunner database.TxRunner, repo repositories.CurrencyRepository) *CurrencyService {
	return &CurrencyService{txRunner: txRunner, repo: repo}
}

func (s *CurrencyService) Create(ctx context.Context, principal auth.Principal, input CurrencyInput) (*models.Currency, error) {
	input.Code = strings.TrimSpace(input.Code)
	if input.Code == "" {
		return nil, models.ValidationError("Code is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, models.ValidationError("Name is required")
	}
	if input.ConversionRate.IsNegative() {
		return nil, models.ValidationError("Conversion Rate must not be negative")
	}

	count, err := s.repo.CountActiveByCode(input.Code, 0)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, models.DuplicateError("Currency", input.Code)
	}

	c := &models.Currency{
		Code:           input.Code,
		Name:           input.Name,
		ConversionRate: input.ConversionRate,
		Audit:          newAudit(principal.AccountName),
	}
	err = s.txRunner.RunInTx(ctx, func(tx *sql.Tx) error {
		return s.repo.Insert(tx, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CurrencyService) GetAll(ctx context.Context, page, pageSize int) ([]*models.Currency, error) {
	limit, offset := pageWindow(page, pageSize)
	return s.repo.GetAll(limit, offset)
}

func (s *CurrencyService) GetByID(ctx context.Context, id int64) (*models.Currency, error) {
	c, err := s.repo.GetByID(id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.NotFoundError("Currency")
	}
	return c, err
}

func (s *CurrencyService) Update(ctx context.Context, principal auth.Principal, id int64, input CurrencyInput) (*models.Currency, error) {
	input.Code = strings.TrimSpace(input.Code)
	if input.Code == "" {
		return nil, models.ValidationError("Code is required")
	}

	c, err := s.repo.GetByID(id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.NotFoundError("Currency")
	}
	if err != nil {
		return nil, err
	}

	count, err := s.repo.CountActiveByCode(input.Code, id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, models.DuplicateError("Currency", input.Code)
	}

	c.Code = input.Code
	c.Name = input.Name
	c.ConversionRate = input.ConversionRate
	c.UpdatedBy = nullString(principal.AccountName)
	err = s.txRunner.RunInTx(ctx, func(tx *sql.Tx) error {
		return s.repo.Update(tx, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CurrencyService) Delete(ctx context.Context, principal auth.Principal, id int64) error {
	err := s.txRunner.RunInTx(ctx, func(tx *sql.Tx) error {
		return s.repo.SoftDelete(tx, id, principal.AccountName)
	})
	if errors.Is(err, models.ErrNotFound) {
		return models.NotFoundError("Currency")
	}
	return err
}

type CompanyInput struct {
	Code           string `json:"code"`
	Name           string `json:"name"`
	BaseCurrencyID int64  `json:"baseCurrencyId"`
}

type CompanyService struct {
	txRunner     database.TxRunner
	repo         repositories.CompanyRepository
	currencyRepo repositories.CurrencyRepository
}

func NewCompanyService(txRunner database.TxRunner, repo repositories.CompanyRepository, currencyRepo repositories.CurrencyRepository) *CompanyService {
	return &CompanyService{txRunner: txRunner, repo: repo, currencyRepo: currencyRepo}
}

func (s *CompanyService) Create(ctx context.Context, principal auth.Principal, input CompanyInput) (*models.Company, error) {
	input.Code = strings.TrimSpace(input.Code)
	if input.Code == "" {
		return nil, models.ValidationError("Code is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, models.ValidationError("Name is required")
	}
	if _, err := s.currencyRepo.GetByID(input.BaseCurrencyID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.NotFoundError("Currency")
		}
		return nil, err
	}

	count, err := s.repo.CountActiveByCode(input.Code, 0)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, models.DuplicateError("Company", input.Code)
	}

	c := &models.Company{
		Code:           input.Code,
		Name:           input.Name,
		BaseCurrencyID: input.BaseCurrencyID,
		Audit:          newAudit(principal.AccountName),
	}
	err = s.txRunner.RunInTx(ctx, func(tx *sql.Tx) error {
		return s.repo.Insert(tx, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CompanyService) GetAll(ctx context.Context, page, pageSize int) ([]*models.Company, error) {
	limit, offset := pageWindow(page, pageSize)
	return s.repo.GetAll(limit, offset)
}

func (s *CompanyService) GetByID(ctx context.Context, id int64) (*models.Company, error) {
	c, err := s.repo.GetByID(id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.NotFoundError("Company")
	}
	return c, err
}

func (s *CompanyService) Update(ctx context.Context, principal auth.Principal, id int64, input CompanyInput) (*models.Company, error) {
	input.Code = strings.TrimSpace(input.Code)
	if input.Code == "" {
		return nil, models.ValidationError("Code is required")
	}

	c, err := s.repo.GetByID(id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.NotFoundError("Company")
	}
	if err != nil {
		return nil, err
	}

	count, err := s.repo.CountActiveByCode(input.Code, id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, models.DuplicateError("Company", input.Code)
	}

	c.Code = input.Code
	c.Name = input.Name
	c.BaseCurrencyID = input.BaseCurrencyID
	c.UpdatedBy = nullString(principal.AccountName)
	err = s.txRunner.RunInTx(ctx, func(tx *sql.Tx) error {
		return s.repo.Update(tx, c)
	})
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CompanyService) Delete(ctx context.Context, principal auth.Principal, id int64) error {
	err := s.txRunner.RunInTx(ctx, func(tx *sql.Tx) error {
		return s.repo.SoftDelete(tx, id, principal.AccountName)
	})
	if errors.Is(err, models.ErrNotFound) {
		return models.NotFoundError("Company")
	}
	return err
}

type ProductInput struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	CompanyID  int64  `json:"companyId"`
	BrandID    int64  `json:"brandId"`
	BusinessID int64  `json:"businessId"`
}

type ProductService struct {
	txRunner    database.TxRunner
	repo        repositories.ProductRepository
	companyRepo repositories.CompanyRepository
}

func NewProductService(txRunner database.TxRunner, repo repositories.ProductRepository, companyRepo repositories.CompanyRepository) *ProductService {
	return &ProductService{txRunner: txRunner, repo: repo, companyRepo: companyRepo}
}

func (s *ProductService) Create(ctx context.Context, principal auth.Principal, input ProductInput) (*models.Product, error) {
	input.Code = strings.TrimSpace(input.Code)
	if input.Code == "" {
		return nil, models.ValidationError("Code is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, models.ValidationError("Name is required")
	}
	if _, err := s.companyRepo.GetByID(input.CompanyID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.NotFoundError("Company")
		}
		return nil, err
	}

	count, err := s.repo.CountActiveByCode(input.Code, 0)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, models.DuplicateError("Product", input.Code)
	}

	p := &models.Product{
		Code:       input.Code,
		Name:       input.Name,
		CompanyID:  input.CompanyID,
		BrandID:    nullInt64(input.BrandID),
		BusinessID: nullInt64(input.BusinessID),
		Audit:      newAudit(principal.AccountName),
	}
	err = s.txRunner.RunInTx(ctx, func(tx *sql.Tx) error {
		return s.repo.Insert(tx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ProductService) GetAll(ctx context.Context, page, pageSize int) ([]*models.Product, error) {
	limit, offset := pageWindow(page, pageSize)
	return s.repo.GetAll(limit, offset)
}

func (s *ProductService) GetByID(ctx context.Context, id int64) (*models.Product, error) {
	p, err := s.repo.GetByID(id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.NotFoundError("Product")
	}
	return p, err
}

func (s *ProductService) Update(ctx context.Context, principal auth.Principal, id int64, input ProductInput) (*models.Product, error) {
	input.Code = strings.TrimSpace(input.Code)
	if input.Code == "" {
		return nil, models.ValidationError("Code is required")
	}

	p, err := s.repo.GetByID(id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.NotFoundError("Product")
	}
	if err != nil {
		return nil, err
	}

	count, err := s.repo.CountActiveByCode(input.Code, id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, models.DuplicateError("Product", input.Code)
	}

	p.Code = input.Code
	p.Name = input.Name
	p.CompanyID = input.CompanyID
	p.BrandID = nullInt64(input.BrandID)
	p.BusinessID = nullInt64(input.BusinessID)
	p.UpdatedBy = nullString(principal.AccountName)
	err = s.txRunner.RunInTx(ctx, func(tx *sql.Tx) error {
		return s.repo.Update(tx, p)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ProductService) Delete(ctx context.Context, principal auth.Principal, id int64) error {
	err := s.txRunner.RunInTx(ctx, func(tx *sql.Tx) error {
		return s.repo.SoftDelete(tx, id, principal.AccountName)
	})
	if errors.Is(err, models.ErrNotFound) {
		return models.NotFoundError("Product")
	}
	return err
}

type UserInput struct {
	AccountName string `json:"accountName"`
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	Role        string `json:"role"`
}

type UserService struct {
	txRunner database.TxRunner
	repo     repositories.UserRepository
}

func NewUserService(txRunner database.TxRunner, repo repositories.UserRepository) *UserService {
	return &UserService{txRunner: txRunner, repo: repo}
}

func validRole(role string) bool {
	switch role {
	case models.RoleAdmin, models.RoleFinanceManager, models.RoleOperationsManager, models.RoleLeader:
		return true
	}
	return false
}

func (s *UserService) Create(ctx context.Context, principal auth.Principal, input UserInput) (*models.User, error) {
	input.AccountName = strings.TrimSpace(input.AccountName)
	if input.AccountName == "" {
		return nil, models.ValidationError("Account Name is required")
	}
	if !validRole(input.Role) {
		return nil, models.ValidationError("Role is invalid")
	}

	count, err := s.repo.CountActiveByAccountName(input.AccountName, 0)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, models.DuplicateError("User", input.AccountName)
	}

	u := &models.User{
		AccountName: input.AccountName,
		FirstName:   input.FirstName,
		LastName:    input.LastName,
		Email:       input.Email,
		Role:        input.Role,
		Audit:       newAudit(principal.AccountName),
	}
	err = s.txRunner.RunInTx(ctx, func(tx *sql.Tx) error {
		return s.repo.Insert(tx, u)
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserService) GetAll(ctx context.Context, page, pageSize int) ([]*models.User, error) {
	limit, offset := pageWindow(page, pageSize)
	return s.repo.GetAll(limit, offset)
}

func (s *UserService) GetByID(ctx context.Context, id int64) (*models.User, error) {
	u, err := s.repo.GetByID(id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.NotFoundError("User")
	}
	return u, err
}

func (s *UserService) Update(ctx context.Context, principal auth.Principal, id int64, input UserInput) (*models.User, error) {
	input.AccountName = strings.TrimSpace(input.AccountName)
	if input.AccountName == "" {
		return nil, models.ValidationError("Account Name is required")
	}
	if !validRole(input.Role) {
		return nil, models.ValidationError("Role is invalid")
	}

	u, err := s.repo.GetByID(id)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.NotFoundError("User")
	}
	if err != nil {
		return nil, err
	}

	count, err := s.repo.CountActiveByAccountName(input.AccountName, id)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, models.DuplicateError("User", input.AccountName)
	}

	u.AccountName = input.AccountName
	u.FirstName = input.FirstName
	u.LastName = input.LastName
	u.Email = input.Email
	u.Role = input.Role
	u.UpdatedBy = nullString(principal.AccountName)
	err = s.txRunner.RunInTx(ctx, func(tx *sql.Tx) error {
		return s.repo.Update(tx, u)
	})
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserService) Delete(ctx context.Context, principal auth.Principal, id int64) error {
	err := s.txRunner.RunInTx(ctx, func(tx *sql.Tx) error {
		return s.repo.SoftDelete(tx, id, principal.AccountName)
	})
	if errors.Is(err, models.ErrNotFound) {
		return models.NotFoundError("User")
	}
	return err
}
