package services

import (
	"errors"

	"trip-expense-service/internal/models"
	"trip-expense-service/internal/repositories"
)

const dateFormat = "2006-01-02"

// resolveBaseCurrency walks the Product -> Company -> base Currency chain.
func resolveBaseCurrency(
	productRepo repositories.ProductRepository,
	companyRepo repositories.CompanyRepository,
	currencyRepo repositories.CurrencyRepository,
	productID int64,
) (*models.Currency, error) {
	product, err := productRepo.GetByID(productID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.NotFoundError("Product")
	}
	if err != nil {
		return nil, err
	}

	company, err := companyRepo.GetByID(product.CompanyID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.NotFoundError("Company")
	}
	if err != nil {
		return nil, err
	}

	base, err := currencyRepo.GetByID(company.BaseCurrencyID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, models.NotFoundError("Currency")
	}
	if err != nil {
		return nil, err
	}
	return base, nil
}
