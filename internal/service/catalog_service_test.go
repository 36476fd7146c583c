package service_test

import (
	"context"
	"testing"

	"github.com/sakashimaa/marketplace/internal/domain"
	"github.com/sakashimaa/marketplace/internal/repository"
	"github.com/sakashimaa/marketplace/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type catalogFixture struct {
	productRepo *fakeProductRepo
	vendorRepo  *fakeVendorRepo
	service     service.CatalogService
}

func newCatalogFixture() *catalogFixture {
	f := &catalogFixture{
		productRepo: newFakeProductRepo(),
		vendorRepo:  newFakeVendorRepo(),
	}
	f.service = service.NewCatalogService(f.productRepo, f.vendorRepo, zap.NewNop())
	return f
}

func TestCreateProductRequiresApprovedVendor(t *testing.T) {
	f := newCatalogFixture()
	f.vendorRepo.vendors[1] = &domain.Vendor{ID: 1, UserID: 10, Status: domain.VendorStatusApproved}
	f.vendorRepo.vendors[2] = &domain.Vendor{ID: 2, UserID: 20, Status: domain.VendorStatusPending}
	f.vendorRepo.vendors[3] = &domain.Vendor{ID: 3, UserID: 30, Status: domain.VendorStatusSuspended}

	ctx := context.Background()
	product := func() *domain.Product {
		return &domain.Product{Name: "Widget", PriceCents: 1000}
	}

	id, err := f.service.Create(ctx, domain.Principal{UserID: 10, Role: domain.RoleVendor}, product())
	require.NoError(t, err)
	assert.Equal(t, int64(1), f.productRepo.products[id].VendorID)
	assert.Equal(t, domain.ProductStatusDraft, f.productRepo.products[id].Status)

	_, err = f.service.Create(ctx, domain.Principal{UserID: 20, Role: domain.RoleVendor}, product())
	assert.ErrorIs(t, err, service.ErrVendorNotApproved)

	_, err = f.service.Create(ctx, domain.Principal{UserID: 30, Role: domain.RoleVendor}, product())
	assert.ErrorIs(t, err, service.ErrVendorNotApproved)

	_, err = f.service.Create(ctx, domain.Principal{UserID: 99, Role: domain.RoleCustomer}, product())
	assert.ErrorIs(t, err, repository.ErrVendorNotFound)
}

func TestUpdateProductOwnership(t *testing.T) {
	f := newCatalogFixture()
	f.vendorRepo.vendors[1] = &domain.Vendor{ID: 1, UserID: 10, Status: domain.VendorStatusApproved}
	f.vendorRepo.vendors[2] = &domain.Vendor{ID: 2, UserID: 20, Status: domain.VendorStatusApproved}
	f.productRepo.products[5] = testProduct(5, 1, 1000, 10)

	ctx := context.Background()
	name := "Renamed"
	input := &domain.UpdateProductInput{Name: &name}

	assert.NoError(t, f.service.Update(ctx, domain.Principal{UserID: 10, Role: domain.RoleVendor}, 5, input))
	assert.NoError(t, f.service.Update(ctx, domain.Principal{UserID: 1, Role: domain.RoleAdmin}, 5, input))

	err := f.service.Update(ctx, domain.Principal{UserID: 20, Role: domain.RoleVendor}, 5, input)
	assert.ErrorIs(t, err, service.ErrNotAuthorized)

	err = f.service.Update(ctx, domain.Principal{UserID: 10, Role: domain.RoleVendor}, 404, input)
	assert.ErrorIs(t, err, repository.ErrProductNotFound)
}

func TestSetProductStatusAdminOnly(t *testing.T) {
	f := newCatalogFixture()
	f.vendorRepo.vendors[1] = &domain.Vendor{ID: 1, UserID: 10, Status: domain.VendorStatusApproved}
	f.productRepo.products[5] = testProduct(5, 1, 1000, 10)

	ctx := context.Background()

	err := f.service.SetStatus(ctx, domain.Principal{UserID: 10, Role: domain.RoleVendor}, 5, domain.ProductStatusInactive)
	assert.ErrorIs(t, err, service.ErrNotAuthorized)

	admin := domain.Principal{UserID: 1, Role: domain.RoleAdmin}

	err = f.service.SetStatus(ctx, admin, 5, domain.ProductStatus("bogus"))
	assert.ErrorIs(t, err, service.ErrInvalidStatus)

	require.NoError(t, f.service.SetStatus(ctx, admin, 5, domain.ProductStatusInactive))
	assert.Equal(t, domain.ProductStatusInactive, f.productRepo.products[5].Status)
}

func TestDeleteProduct(t *testing.T) {
	f := newCatalogFixture()
	f.vendorRepo.vendors[1] = &domain.Vendor{ID: 1, UserID: 10, Status: domain.VendorStatusApproved}
	f.productRepo.products[5] = testProduct(5, 1, 1000, 10)

	ctx := context.Background()

	err := f.service.Delete(ctx, domain.Principal{UserID: 99, Role: domain.RoleCustomer}, 5)
	assert.ErrorIs(t, err, service.ErrNotAuthorized)

	require.NoError(t, f.service.Delete(ctx, domain.Principal{UserID: 10, Role: domain.RoleVendor}, 5))

	_, err = f.service.FindByID(ctx, 5)
	assert.ErrorIs(t, err, repository.ErrProductNotFound)
}
