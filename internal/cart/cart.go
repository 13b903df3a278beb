// Package cart holds the restaurant pre-order cart.  A cart is an explicit
// value loaded per request from a server side store keyed by the
// visitor's session id; nothing is kept in process memory between
// requests.
package cart

import (
	"errors"
)

// Limits enforced on every mutation.
const (
	MaxQuantity  = 50
	MaxPartySize = 20
)

var (
	ErrInvalidQuantity  = errors.New("quantity out of range")
	ErrInvalidPartySize = errors.New("party size out of range")
	ErrItemNotFound     = errors.New("item not in cart")
)

// CartItem is one dish line priced when it was added.
type CartItem struct {
	DishID         uint64 `json:"dish_id"`
	Name           string `json:"name"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Quantity       int    `json:"quantity"`
}

// Subtotal is unit price times quantity.
func (i CartItem) Subtotal() int64 { return i.UnitPriceCents * int64(i.Quantity) }

// CartState is the whole cart of one session.
type CartState struct {
	Items     []CartItem `json:"items"`
	PartySize int        `json:"party_size"`
}

func (c *CartState) index(dishID uint64) int {
	for i, it := range c.Items {
		if it.DishID == dishID {
			return i
		}
	}
	return -1
}

// Add merges item into the cart.  The resulting quantity of the dish must
// stay within 1..MaxQuantity.  Name and price are refreshed from item.
func (c *CartState) Add(item CartItem) error {
	if item.Quantity < 1 || item.Quantity > MaxQuantity {
		return ErrInvalidQuantity
	}
	if i := c.index(item.DishID); i >= 0 {
		q := c.Items[i].Quantity + item.Quantity
		if q > MaxQuantity {
			return ErrInvalidQuantity
		}
		item.Quantity = q
		c.Items[i] = item
		return nil
	}
	c.Items = append(c.Items, item)
	return nil
}

// SetQuantity replaces the quantity of a dish; zero removes it.
func (c *CartState) SetQuantity(dishID uint64, quantity int) error {
	if quantity < 0 || quantity > MaxQuantity {
		return ErrInvalidQuantity
	}
	i := c.index(dishID)
	if i < 0 {
		return ErrItemNotFound
	}
	if quantity == 0 {
		c.removeAt(i)
		return nil
	}
	c.Items[i].Quantity = quantity
	return nil
}

// Remove drops a dish and reports whether it was present.
func (c *CartState) Remove(dishID uint64) bool {
	i := c.index(dishID)
	if i < 0 {
		return false
	}
	c.removeAt(i)
	return true
}

func (c *CartState) removeAt(i int) {
	c.Items = append(c.Items[:i], c.Items[i+1:]...)
}

// SetPartySize sets the number of diners.
func (c *CartState) SetPartySize(n int) error {
	if n < 1 || n > MaxPartySize {
		return ErrInvalidPartySize
	}
	c.PartySize = n
	return nil
}

// Clear empties the cart.
func (c *CartState) Clear() {
	c.Items = nil
	c.PartySize = 0
}

// TotalCents sums every line.
func (c CartState) TotalCents() int64 {
	var total int64
	for _, it := range c.Items {
		total += it.Subtotal()
	}
	return total
}

// Count is the number of dishes ordered.
func (c CartState) Count() int {
	n := 0
	for _, it := range c.Items {
		n += it.Quantity
	}
	return n
}

// Empty reports whether no dish is in the cart.
func (c CartState) Empty() bool { return len(c.Items) == 0 }
