package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Terminal statuses never change again.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

type PaymentMethod string

const (
	PaymentMethodStripe PaymentMethod = "stripe"
	PaymentMethodPaypal PaymentMethod = "paypal"
	PaymentMethodCOD    PaymentMethod = "cod"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodStripe, PaymentMethodPaypal, PaymentMethodCOD:
		return true
	}
	return false
}

type Address struct {
	FullName   string `json:"fullName"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

type Payment struct {
	Method      PaymentMethod `json:"method"`
	Status      string        `json:"status"`
	AmountCents int64         `json:"amountCents"`
}

// OrderItem is an immutable snapshot of the product at order time. Later
// product edits must not change historical orders.
type OrderItem struct {
	ID            int64  `db:"id" json:"id"`
	OrderID       int64  `db:"order_id" json:"orderId"`
	ProductID     int64  `db:"product_id" json:"productId"`
	Name          string `db:"name" json:"name"`
	ImageUrl      string `db:"image_url" json:"imageUrl,omitempty"`
	SKU           string `db:"sku" json:"sku,omitempty"`
	Variant       string `db:"variant" json:"variant,omitempty"`
	PriceCents    int64  `db:"price_cents" json:"priceCents"`
	Quantity      int32  `db:"quantity" json:"quantity"`
	SubtotalCents int64  `db:"subtotal_cents" json:"subtotalCents"`
}

type StatusChange struct {
	ID        int64       `db:"id" json:"-"`
	OrderID   int64       `db:"order_id" json:"-"`
	Status    OrderStatus `db:"status" json:"status"`
	Message   string      `db:"message" json:"message,omitempty"`
	ActorID   int64       `db:"actor_id" json:"actorId"`
	CreatedAt time.Time   `db:"created_at" json:"createdAt"`
}

type Order struct {
	ID             int64       `db:"id" json:"id"`
	OrderNumber    string      `db:"order_number" json:"orderNumber"`
	CustomerID     int64       `db:"customer_id" json:"customerId"`
	VendorID       int64       `db:"vendor_id" json:"vendorId"`
	Status         OrderStatus `db:"status" json:"status"`
	SubtotalCents  int64       `db:"subtotal_cents" json:"subtotalCents"`
	TaxCents       int64       `db:"tax_cents" json:"taxCents"`
	ShippingCents  int64       `db:"shipping_cents" json:"shippingCents"`
	TotalCents     int64       `db:"total_cents" json:"totalCents"`
	ShippingAddr   Address     `db:"shipping_address" json:"shippingAddress"`
	BillingAddr    Address     `db:"billing_address" json:"billingAddress"`
	Payment        Payment     `db:"payment" json:"payment"`
	CancelReason   string      `db:"cancel_reason" json:"cancelReason,omitempty"`
	TrackingNumber string      `db:"tracking_number" json:"trackingNumber,omitempty"`
	Carrier        string      `db:"carrier" json:"carrier,omitempty"`

	Items   []OrderItem    `json:"items"`
	History []StatusChange `json:"statusHistory,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Flat 8% tax, not jurisdiction-aware. Flat-rate shipping with a free
// threshold. All amounts are integer cents.
const (
	TaxRatePercent             = 8
	FreeShippingThresholdCents = 5000
	FlatShippingCents          = 599
)

// PriceFromItems computes the pricing block from the item snapshots.
// The result is fixed at order creation and never recomputed.
func (o *Order) PriceFromItems() {
	var subtotal int64
	for _, item := range o.Items {
		subtotal += item.SubtotalCents
	}

	o.SubtotalCents = subtotal
	o.TaxCents = subtotal * TaxRatePercent / 100
	if subtotal >= FreeShippingThresholdCents {
		o.ShippingCents = 0
	} else {
		o.ShippingCents = FlatShippingCents
	}
	o.TotalCents = o.SubtotalCents + o.TaxCents + o.ShippingCents
}

// CanBeCancelled holds while the order has not shipped.
func (o *Order) CanBeCancelled() bool {
	switch o.Status {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing:
		return true
	}
	return false
}
