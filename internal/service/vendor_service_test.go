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

func TestRegisterVendor(t *testing.T) {
	vendorRepo := newFakeVendorRepo()
	svc := service.NewVendorService(vendorRepo, zap.NewNop())

	ctx := context.Background()
	principal := domain.Principal{UserID: 10, Role: domain.RoleCustomer}

	vendor, err := svc.Register(ctx, principal, "Acme Goods", "household items")
	require.NoError(t, err)
	assert.Equal(t, domain.VendorStatusPending, vendor.Status)
	assert.Equal(t, int64(10), vendor.UserID)
	assert.NotZero(t, vendor.ID)

	// One vendor profile per user.
	_, err = svc.Register(ctx, principal, "Acme Again", "")
	assert.ErrorIs(t, err, repository.ErrVendorExists)
}

func TestSetVendorStatusAdminOnly(t *testing.T) {
	vendorRepo := newFakeVendorRepo(&domain.Vendor{ID: 1, UserID: 10, Status: domain.VendorStatusPending})
	svc := service.NewVendorService(vendorRepo, zap.NewNop())

	ctx := context.Background()

	err := svc.SetStatus(ctx, domain.Principal{UserID: 10, Role: domain.RoleVendor}, 1, domain.VendorStatusApproved)
	assert.ErrorIs(t, err, service.ErrNotAuthorized)

	admin := domain.Principal{UserID: 1, Role: domain.RoleAdmin}

	err = svc.SetStatus(ctx, admin, 1, domain.VendorStatus("bogus"))
	assert.ErrorIs(t, err, service.ErrInvalidStatus)

	require.NoError(t, svc.SetStatus(ctx, admin, 1, domain.VendorStatusApproved))
	assert.Equal(t, domain.VendorStatusApproved, vendorRepo.vendors[1].Status)

	err = svc.SetStatus(ctx, admin, 404, domain.VendorStatusSuspended)
	assert.ErrorIs(t, err, repository.ErrVendorNotFound)
}
