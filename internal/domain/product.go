package domain

import "time"

type ProductStatus string

const (
	ProductStatusDraft        ProductStatus = "draft"
	ProductStatusActive       ProductStatus = "active"
	ProductStatusInactive     ProductStatus = "inactive"
	ProductStatusOutOfStock   ProductStatus = "out_of_stock"
	ProductStatusDiscontinued ProductStatus = "discontinued"
)

func (s ProductStatus) Valid() bool {
	switch s {
	case ProductStatusDraft, ProductStatusActive, ProductStatusInactive,
		ProductStatusOutOfStock, ProductStatusDiscontinued:
		return true
	}
	return false
}

type Product struct {
	ID                int64         `db:"id" json:"id"`
	VendorID          int64         `db:"vendor_id" json:"vendorId"`
	Name              string        `db:"name" json:"name"`
	Description       string        `db:"description" json:"description"`
	SKU               string        `db:"sku" json:"sku"`
	ImageUrl          string        `db:"image_url" json:"imageUrl"`
	Category          string        `db:"category" json:"category"`
	PriceCents        int64         `db:"price_cents" json:"priceCents"`
	DiscountCents     int64         `db:"discount_cents" json:"discountCents,omitempty"`
	StockQuantity     int64         `db:"stock_quantity" json:"stockQuantity"`
	LowStockThreshold int64         `db:"low_stock_threshold" json:"lowStockThreshold"`
	TrackQuantity     bool          `db:"track_quantity" json:"trackQuantity"`
	AllowBackorder    bool          `db:"allow_backorder" json:"allowBackorder"`
	Status            ProductStatus `db:"status" json:"status"`
	RatingAvg         float64       `db:"rating_avg" json:"ratingAvg"`
	RatingCount       int64         `db:"rating_count" json:"ratingCount"`
	CreatedAt         time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time     `db:"updated_at" json:"updatedAt"`
	DeletedAt         time.Time     `db:"deleted_at" json:"-"`
}

// CurrentPrice is the price a buyer pays now: the discounted price when one
// is set, the original price otherwise.
func (p *Product) CurrentPrice() int64 {
	if p.DiscountCents > 0 {
		return p.DiscountCents
	}
	return p.PriceCents
}

// Available reports whether the requested quantity can be fulfilled.
// Untracked inventory and backorderable products always fulfill.
func (p *Product) Available(quantity int64) bool {
	if !p.TrackQuantity {
		return true
	}
	if p.AllowBackorder {
		return true
	}
	return p.StockQuantity >= quantity
}

type UpdateProductInput struct {
	Name              *string `json:"name"`
	Description       *string `json:"description"`
	SKU               *string `json:"sku"`
	ImageUrl          *string `json:"imageUrl"`
	Category          *string `json:"category"`
	PriceCents        *int64  `json:"priceCents"`
	DiscountCents     *int64  `json:"discountCents"`
	StockQuantity     *int64  `json:"stockQuantity"`
	LowStockThreshold *int64  `json:"lowStockThreshold"`
	TrackQuantity     *bool   `json:"trackQuantity"`
	AllowBackorder    *bool   `json:"allowBackorder"`
}
