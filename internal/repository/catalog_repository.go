package repository

import (
	"context"
	"time"

	"github.com/iliyamo/resort-reservation/internal/model"
)

// adminListLimit caps the back office listings.
const adminListLimit = 200

// InsertRoom creates a room and fills in its id and timestamps.
func (s *SQLStore) InsertRoom(ctx context.Context, r *model.Room) error {
	now := time.Now().UTC()
	r.CreatedAt, r.UpdatedAt = now, now
	id, err := s.insert(ctx, `INSERT INTO rooms (name, number, plan, capacity, nightly_rate_cents, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Name, r.Number, r.Plan, r.Capacity, r.NightlyRateCents, r.State, r.CreatedAt, r.UpdatedAt)
	if err != nil {
		return err
	}
	r.ID = id
	return nil
}

// UpdateRoom overwrites the editable columns of r.  Callers load the row
// first; an unchanged row is not an error.
func (s *SQLStore) UpdateRoom(ctx context.Context, r *model.Room) error {
	r.UpdatedAt = time.Now().UTC()
	_, err := s.exec(ctx, `UPDATE rooms SET name = ?, number = ?, plan = ?, capacity = ?, nightly_rate_cents = ?, state = ?, updated_at = ?
		WHERE id = ?`,
		r.Name, r.Number, r.Plan, r.Capacity, r.NightlyRateCents, r.State, r.UpdatedAt, r.ID)
	return err
}

// RoomNumberTaken reports whether another room already uses number.
// excludeID skips the room being edited.
func (s *SQLStore) RoomNumberTaken(ctx context.Context, number string, excludeID uint64) (bool, error) {
	var n int
	err := s.get(ctx, &n, `SELECT COUNT(*) FROM rooms WHERE number = ? AND id <> ?`, number, excludeID)
	return n > 0, err
}

// DeleteRoom removes a room that has never been booked.  Rooms with
// reservations return ErrInUse; unknown ids return ErrNotFound.
func (s *SQLStore) DeleteRoom(ctx context.Context, id uint64) error {
	var n int
	if err := s.get(ctx, &n, `SELECT COUNT(*) FROM reservations WHERE room_id = ?`, id); err != nil {
		return err
	}
	if n > 0 {
		return ErrInUse
	}
	affected, err := s.exec(ctx, `DELETE FROM rooms WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertDish adds a menu entry.
func (s *SQLStore) InsertDish(ctx context.Context, d *model.Dish) error {
	id, err := s.insert(ctx, `INSERT INTO dishes (name, price_cents, available) VALUES (?, ?, ?)`,
		d.Name, d.PriceCents, d.Available)
	if err != nil {
		return err
	}
	d.ID = id
	return nil
}

// UpdateDish overwrites a menu entry.  Prices already in carts and orders
// are snapshots and do not change.
func (s *SQLStore) UpdateDish(ctx context.Context, d *model.Dish) error {
	_, err := s.exec(ctx, `UPDATE dishes SET name = ?, price_cents = ?, available = ? WHERE id = ?`,
		d.Name, d.PriceCents, d.Available, d.ID)
	return err
}

// DeleteDish removes a menu entry.  Order lines keep their copied name and
// price.
func (s *SQLStore) DeleteDish(ctx context.Context, id uint64) error {
	affected, err := s.exec(ctx, `DELETE FROM dishes WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListReservations returns the most recent stays first, optionally
// filtered by status.
func (s *SQLStore) ListReservations(ctx context.Context, status model.ReservationStatus) ([]model.Reservation, error) {
	out := []model.Reservation{}
	var err error
	if status == "" {
		err = s.selectAll(ctx, &out, `SELECT `+reservationColumns+` FROM reservations
			ORDER BY check_in DESC, id DESC LIMIT ?`, adminListLimit)
	} else {
		err = s.selectAll(ctx, &out, `SELECT `+reservationColumns+` FROM reservations WHERE status = ?
			ORDER BY check_in DESC, id DESC LIMIT ?`, status, adminListLimit)
	}
	return out, err
}

// ListRestaurantOrders returns orders newest first without their item
// lines, optionally filtered by status.
func (s *SQLStore) ListRestaurantOrders(ctx context.Context, status model.OrderStatus) ([]model.RestaurantOrder, error) {
	const cols = `id, number, user_id, party_size, reserved_for, status, total_cents, file, created_at`
	out := []model.RestaurantOrder{}
	var err error
	if status == "" {
		err = s.selectAll(ctx, &out, `SELECT `+cols+` FROM restaurant_orders
			ORDER BY created_at DESC, id DESC LIMIT ?`, adminListLimit)
	} else {
		err = s.selectAll(ctx, &out, `SELECT `+cols+` FROM restaurant_orders WHERE status = ?
			ORDER BY created_at DESC, id DESC LIMIT ?`, status, adminListLimit)
	}
	return out, err
}

// SetRestaurantOrderStatus moves an order to status.
func (s *SQLStore) SetRestaurantOrderStatus(ctx context.Context, id uint64, status model.OrderStatus) error {
	var cur model.OrderStatus
	if err := s.get(ctx, &cur, `SELECT status FROM restaurant_orders WHERE id = ?`, id); err != nil {
		return err
	}
	_, err := s.exec(ctx, `UPDATE restaurant_orders SET status = ? WHERE id = ?`, status, id)
	return err
}
