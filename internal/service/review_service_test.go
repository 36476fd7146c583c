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

type reviewFixture struct {
	pool        *fakePool
	reviewRepo  *fakeReviewRepo
	productRepo *fakeProductRepo
	vendorRepo  *fakeVendorRepo
	service     service.ReviewService
}

func newReviewFixture() *reviewFixture {
	f := &reviewFixture{
		pool:        newFakePool(),
		reviewRepo:  newFakeReviewRepo(),
		productRepo: newFakeProductRepo(testProduct(5, 1, 1000, 10)),
		vendorRepo:  newFakeVendorRepo(&domain.Vendor{ID: 1, UserID: 10, Status: domain.VendorStatusApproved}),
	}
	f.service = service.NewReviewService(f.pool, f.reviewRepo, f.productRepo, f.vendorRepo, zap.NewNop())
	return f
}

func TestCreateReviewRecomputesRatings(t *testing.T) {
	f := newReviewFixture()

	review, err := f.service.Create(
		context.Background(),
		domain.Principal{UserID: 7, Role: domain.RoleCustomer},
		5, 4, "solid product",
	)
	require.NoError(t, err)

	assert.NotZero(t, review.ID)
	assert.Equal(t, int64(7), review.CustomerID)
	assert.Equal(t, int32(4), review.Rating)

	// Both aggregates are refreshed inside the same transaction.
	assert.Equal(t, []int64{5}, f.productRepo.ratingUpdates)
	assert.Equal(t, []int64{1}, f.vendorRepo.ratingUpdates)
	assert.True(t, f.pool.tx.committed)
}

func TestCreateReviewRatingBounds(t *testing.T) {
	f := newReviewFixture()
	principal := domain.Principal{UserID: 7, Role: domain.RoleCustomer}

	for _, rating := range []int32{0, -1, 6} {
		_, err := f.service.Create(context.Background(), principal, 5, rating, "")
		assert.ErrorIs(t, err, service.ErrInvalidRating)
	}

	_, err := f.service.Create(context.Background(), principal, 404, 4, "")
	assert.ErrorIs(t, err, repository.ErrProductNotFound)
}

func TestDeleteReviewOwnerOrAdmin(t *testing.T) {
	f := newReviewFixture()
	f.reviewRepo.reviews[1] = &domain.Review{ID: 1, ProductID: 5, CustomerID: 7, Rating: 4}
	f.reviewRepo.reviews[2] = &domain.Review{ID: 2, ProductID: 5, CustomerID: 8, Rating: 2}
	f.reviewRepo.nextID = 2

	ctx := context.Background()

	err := f.service.Delete(ctx, domain.Principal{UserID: 7, Role: domain.RoleCustomer}, 2)
	assert.ErrorIs(t, err, service.ErrNotAuthorized)

	require.NoError(t, f.service.Delete(ctx, domain.Principal{UserID: 7, Role: domain.RoleCustomer}, 1))
	require.NoError(t, f.service.Delete(ctx, domain.Principal{UserID: 1, Role: domain.RoleAdmin}, 2))

	err = f.service.Delete(ctx, domain.Principal{UserID: 7, Role: domain.RoleCustomer}, 404)
	assert.ErrorIs(t, err, repository.ErrReviewNotFound)
}

func TestDeleteReviewOfDeletedProduct(t *testing.T) {
	f := newReviewFixture()
	f.reviewRepo.reviews[1] = &domain.Review{ID: 1, ProductID: 404, CustomerID: 7, Rating: 4}
	f.reviewRepo.nextID = 1

	err := f.service.Delete(context.Background(), domain.Principal{UserID: 7, Role: domain.RoleCustomer}, 1)
	require.NoError(t, err)

	// No aggregates to maintain once the product is gone.
	assert.Empty(t, f.productRepo.ratingUpdates)
	assert.Empty(t, f.vendorRepo.ratingUpdates)
}
