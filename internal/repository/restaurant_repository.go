package repository

import (
	"context"
	"time"

	"github.com/iliyamo/resort-reservation/internal/model"
)

// DishByID loads a menu entry.
func (c conn) DishByID(ctx context.Context, id uint64) (model.Dish, error) {
	var d model.Dish
	err := c.get(ctx, &d, `SELECT id, name, price_cents, available FROM dishes WHERE id = ?`, id)
	return d, err
}

// ListDishes returns the menu, optionally restricted to available dishes.
func (s *SQLStore) ListDishes(ctx context.Context, onlyAvailable bool) ([]model.Dish, error) {
	q := `SELECT id, name, price_cents, available FROM dishes`
	if onlyAvailable {
		q += ` WHERE available = TRUE`
	}
	var out []model.Dish
	err := s.selectAll(ctx, &out, q+` ORDER BY name`)
	return out, err
}

// RestaurantOrderByID loads an order together with its items.
func (c conn) RestaurantOrderByID(ctx context.Context, id uint64) (model.RestaurantOrder, error) {
	var o model.RestaurantOrder
	err := c.get(ctx, &o, `SELECT id, number, user_id, party_size, reserved_for, status, total_cents, file, created_at
		FROM restaurant_orders WHERE id = ?`, id)
	if err != nil {
		return o, err
	}
	err = c.selectAll(ctx, &o.Items, `SELECT id, order_id, dish_id, name, unit_price_cents, quantity
		FROM restaurant_order_items WHERE order_id = ? ORDER BY id`, id)
	return o, err
}

// InsertRestaurantOrder writes an order and its item lines.
func (t *sqlTx) InsertRestaurantOrder(ctx context.Context, o *model.RestaurantOrder) error {
	o.CreatedAt = time.Now().UTC()
	id, err := t.insert(ctx, `INSERT INTO restaurant_orders (number, user_id, party_size, reserved_for, status, total_cents, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		o.Number, o.UserID, o.PartySize, o.ReservedFor, o.Status, o.TotalCents, o.CreatedAt)
	if err != nil {
		return err
	}
	o.ID = id
	for i := range o.Items {
		it := &o.Items[i]
		it.OrderID = id
		itemID, err := t.insert(ctx, `INSERT INTO restaurant_order_items (order_id, dish_id, name, unit_price_cents, quantity)
			VALUES (?, ?, ?, ?, ?)`, id, it.DishID, it.Name, it.UnitPriceCents, it.Quantity)
		if err != nil {
			return err
		}
		it.ID = itemID
	}
	return nil
}

// SetRestaurantOrderFile stores the order document path once.
func (s *SQLStore) SetRestaurantOrderFile(ctx context.Context, orderID uint64, file string) (bool, error) {
	n, err := s.exec(ctx, `UPDATE restaurant_orders SET file = ? WHERE id = ? AND file IS NULL`, file, orderID)
	return n > 0, err
}
