package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurrentPrice(t *testing.T) {
	full := &Product{PriceCents: 2500}
	assert.Equal(t, int64(2500), full.CurrentPrice())

	discounted := &Product{PriceCents: 2500, DiscountCents: 1999}
	assert.Equal(t, int64(1999), discounted.CurrentPrice())
}

func TestAvailable(t *testing.T) {
	tracked := &Product{TrackQuantity: true, StockQuantity: 5}
	assert.True(t, tracked.Available(5))
	assert.False(t, tracked.Available(6))

	untracked := &Product{TrackQuantity: false, StockQuantity: 0}
	assert.True(t, untracked.Available(100))

	backorder := &Product{TrackQuantity: true, AllowBackorder: true, StockQuantity: 0}
	assert.True(t, backorder.Available(10))
}

func TestProductStatusValid(t *testing.T) {
	assert.True(t, ProductStatusActive.Valid())
	assert.True(t, ProductStatusOutOfStock.Valid())
	assert.False(t, ProductStatus("archived").Valid())
}
