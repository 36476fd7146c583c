package domain

import "time"

type Review struct {
	ID         int64     `db:"id" json:"id"`
	ProductID  int64     `db:"product_id" json:"productId"`
	CustomerID int64     `db:"customer_id" json:"customerId"`
	Rating     int32     `db:"rating" json:"rating"`
	Comment    string    `db:"comment" json:"comment,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}
