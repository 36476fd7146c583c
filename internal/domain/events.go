package domain

type OrderItemEvent struct {
	ProductID int64 `json:"product_id"`
	Quantity  int32 `json:"quantity"`
}

type OrderCreatedEvent struct {
	OrderID     int64            `json:"order_id"`
	OrderNumber string           `json:"order_number"`
	CustomerID  int64            `json:"customer_id"`
	VendorID    int64            `json:"vendor_id"`
	TotalCents  int64            `json:"total_cents"`
	Items       []OrderItemEvent `json:"items"`
}

type OrderStatusChangedEvent struct {
	OrderID     int64  `json:"order_id"`
	OrderNumber string `json:"order_number"`
	CustomerID  int64  `json:"customer_id"`
	OldStatus   string `json:"old_status"`
	NewStatus   string `json:"new_status"`
}

type OrderCancelledEvent struct {
	OrderID     int64            `json:"order_id"`
	OrderNumber string           `json:"order_number"`
	CustomerID  int64            `json:"customer_id"`
	Reason      string           `json:"reason,omitempty"`
	Items       []OrderItemEvent `json:"items"`
}
