package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trip-expense-service/internal/models"
)

func TestLookupCreateAndFetch(t *testing.T) {
	service := NewLookupService("Brand", fakeTxRunner{}, newFakeLookupRepo())

	created, err := service.Create(context.Background(), managerPrincipal(), LookupInput{
		Code: " BR01 ",
		Name: "Adventures",
	})
	require.NoError(t, err)
	assert.Equal(t, "BR01", created.Code)
	assert.Equal(t, "fin.manager", created.CreatedBy)

	fetched, err := service.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Adventures", fetched.Name)
}

func TestLookupCreateRejectsDuplicateCode(t *testing.T) {
	service := NewLookupService("Brand", fakeTxRunner{}, newFakeLookupRepo())
	principal := managerPrincipal()

	_, err := service.Create(context.Background(), principal, LookupInput{Code: "BR01", Name: "First"})
	require.NoError(t, err)

	_, err = service.Create(context.Background(), principal, LookupInput{Code: "br01 ", Name: "Second"})
	assert.ErrorIs(t, err, models.ErrDuplicateCode)
}

func TestLookupCreateRequiresCodeAndName(t *testing.T) {
	service := NewLookupService("Brand", fakeTxRunner{}, newFakeLookupRepo())

	_, err := service.Create(context.Background(), managerPrincipal(), LookupInput{Name: "No code"})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = service.Create(context.Background(), managerPrincipal(), LookupInput{Code: "BR02"})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestLookupUpdateAllowsSameCodeOnSelf(t *testing.T) {
	service := NewLookupService("Brand", fakeTxRunner{}, newFakeLookupRepo())
	principal := managerPrincipal()

	created, err := service.Create(context.Background(), principal, LookupInput{Code: "BR01", Name: "Old"})
	require.NoError(t, err)

	updated, err := service.Update(context.Background(), principal, created.ID, LookupInput{Code: "BR01", Name: "New"})
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Name)
}

func TestLookupDeleteHidesEntity(t *testing.T) {
	repo := newFakeLookupRepo()
	service := NewLookupService("Brand", fakeTxRunner{}, repo)
	principal := managerPrincipal()

	created, err := service.Create(context.Background(), principal, LookupInput{Code: "BR01", Name: "Gone"})
	require.NoError(t, err)

	require.NoError(t, service.Delete(context.Background(), principal, created.ID))

	_, err = service.GetByID(context.Background(), created.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	// The code frees up for reuse once the row is inactive.
	_, err = service.Create(context.Background(), principal, LookupInput{Code: "BR01", Name: "Again"})
	assert.NoError(t, err)
}
