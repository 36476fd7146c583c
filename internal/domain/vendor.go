package domain

import "time"

type VendorStatus string

const (
	VendorStatusPending   VendorStatus = "pending"
	VendorStatusApproved  VendorStatus = "approved"
	VendorStatusSuspended VendorStatus = "suspended"
)

func (s VendorStatus) Valid() bool {
	switch s {
	case VendorStatusPending, VendorStatusApproved, VendorStatusSuspended:
		return true
	}
	return false
}

type Vendor struct {
	ID          int64        `db:"id" json:"id"`
	UserID      int64        `db:"user_id" json:"userId"`
	StoreName   string       `db:"store_name" json:"storeName"`
	Description string       `db:"description" json:"description,omitempty"`
	Status      VendorStatus `db:"status" json:"status"`
	RatingAvg   float64      `db:"rating_avg" json:"ratingAvg"`
	RatingCount int64        `db:"rating_count" json:"ratingCount"`
	CreatedAt   time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time    `db:"updated_at" json:"updatedAt"`
}
