package service

import "errors"

var (
	ErrNotAuthorized       = errors.New("not authorized")
	ErrEmptyCart           = errors.New("cart has no items")
	ErrInvalidQuantity     = errors.New("quantity must be positive")
	ErrInvalidStatus       = errors.New("invalid order status")
	ErrOrderFinalized      = errors.New("order is in a terminal status")
	ErrOrderNotCancellable = errors.New("order can no longer be cancelled")
	ErrVendorNotApproved   = errors.New("vendor is not approved")
	ErrInvalidRating       = errors.New("rating must be between 1 and 5")
)
