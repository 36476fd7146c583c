package repository

import "errors"

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderStateConflict = errors.New("order status no longer permits this transition")
	ErrVendorNotFound     = errors.New("vendor not found")
	ErrVendorExists       = errors.New("vendor already registered for user")
	ErrReviewNotFound     = errors.New("review not found")
	ErrUserNotFound       = errors.New("user not found")
)
