package model

import "time"

// Dish is a menu entry of the restaurant.
type Dish struct {
	ID         uint64 `db:"id" json:"id"`
	Name       string `db:"name" json:"name"`
	PriceCents int64  `db:"price_cents" json:"price_cents"`
	Available  bool   `db:"available" json:"available"`
}

// OrderStatus is the state of a restaurant order.
type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderConfirmed OrderStatus = "CONFIRMED"
	OrderServed    OrderStatus = "SERVED"
	OrderCancelled OrderStatus = "CANCELLED"
)

// RestaurantOrder is a table reservation with pre-ordered dishes, created
// from a checked-out cart.
type RestaurantOrder struct {
	ID          uint64      `db:"id" json:"id"`
	Number      string      `db:"number" json:"number"`
	UserID      uint64      `db:"user_id" json:"user_id"`
	PartySize   int         `db:"party_size" json:"party_size"`
	ReservedFor time.Time   `db:"reserved_for" json:"reserved_for"`
	Status      OrderStatus `db:"status" json:"status"`
	TotalCents  int64       `db:"total_cents" json:"total_cents"`
	File        *string     `db:"file" json:"file,omitempty"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
	Items       []OrderItem `db:"-" json:"items"`
}

// OrderItem is one dish line of a restaurant order, priced at checkout.
type OrderItem struct {
	ID             uint64 `db:"id" json:"-"`
	OrderID        uint64 `db:"order_id" json:"-"`
	DishID         uint64 `db:"dish_id" json:"dish_id"`
	Name           string `db:"name" json:"name"`
	UnitPriceCents int64  `db:"unit_price_cents" json:"unit_price_cents"`
	Quantity       int    `db:"quantity" json:"quantity"`
}
