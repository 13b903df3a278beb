package repository

import (
	"context"
	"time"

	"github.com/iliyamo/resort-reservation/internal/model"
)

const reservationColumns = `id, user_id, room_id, check_in, check_out, status, total_cents, version, created_at, updated_at`

// ReservationsForRoom returns the non-cancelled reservations of roomID
// that intersect the half-open interval [from, to).
func (c conn) ReservationsForRoom(ctx context.Context, roomID uint64, from, to time.Time) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations
		WHERE room_id = ? AND status <> ? AND check_in < ? AND check_out > ?
		ORDER BY check_in`
	var out []model.Reservation
	err := c.selectAll(ctx, &out, q, roomID, model.StatusCancelled, model.Day(to), model.Day(from))
	return out, err
}

// ReservationByID loads a reservation without locking it.
func (c conn) ReservationByID(ctx context.Context, id uint64) (model.Reservation, error) {
	var r model.Reservation
	err := c.get(ctx, &r, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
	return r, err
}

// ListReservationsByUser returns every reservation of a user, newest
// first.
func (s *SQLStore) ListReservationsByUser(ctx context.Context, userID uint64) ([]model.Reservation, error) {
	var out []model.Reservation
	err := s.selectAll(ctx, &out,
		`SELECT `+reservationColumns+` FROM reservations WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	return out, err
}

// CompletedWithoutTicket lists completed reservations that have no ticket
// row yet, oldest first.
func (s *SQLStore) CompletedWithoutTicket(ctx context.Context, limit int) ([]uint64, error) {
	const q = `SELECT r.id FROM reservations r
		LEFT JOIN tickets t ON t.reservation_id = r.id
		WHERE r.status = ? AND t.id IS NULL
		ORDER BY r.id LIMIT ?`
	var ids []uint64
	err := s.selectAll(ctx, &ids, q, model.StatusCompleted, limit)
	return ids, err
}

// CompletedByCheckIn lists completed stays arriving on day.
func (s *SQLStore) CompletedByCheckIn(ctx context.Context, day time.Time) ([]model.Reservation, error) {
	var out []model.Reservation
	err := s.selectAll(ctx, &out,
		`SELECT `+reservationColumns+` FROM reservations WHERE status = ? AND check_in = ? ORDER BY id`,
		model.StatusCompleted, model.Day(day))
	return out, err
}

// CompletedByCheckOut lists completed stays leaving on day.
func (s *SQLStore) CompletedByCheckOut(ctx context.Context, day time.Time) ([]model.Reservation, error) {
	var out []model.Reservation
	err := s.selectAll(ctx, &out,
		`SELECT `+reservationColumns+` FROM reservations WHERE status = ? AND check_out = ? ORDER BY id`,
		model.StatusCompleted, model.Day(day))
	return out, err
}

// LockReservation loads a reservation and holds its row lock until the
// transaction ends.  Every status change goes through this lock.
func (t *sqlTx) LockReservation(ctx context.Context, id uint64) (model.Reservation, error) {
	var r model.Reservation
	err := t.get(ctx, &r, `SELECT `+reservationColumns+` FROM reservations WHERE id = ? FOR UPDATE`, id)
	return r, err
}

// InsertReservation writes a new reservation and fills in its id,
// version and timestamps.
func (t *sqlTx) InsertReservation(ctx context.Context, r *model.Reservation) error {
	now := time.Now().UTC()
	const q = `INSERT INTO reservations (user_id, room_id, check_in, check_out, status, total_cents, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)`
	id, err := t.insert(ctx, q, r.UserID, r.RoomID, model.Day(r.CheckIn), r.EffectiveCheckOut(), r.Status, r.TotalCents, now, now)
	if err != nil {
		return err
	}
	r.ID = id
	r.CheckOut = r.EffectiveCheckOut()
	r.Version = 1
	r.CreatedAt, r.UpdatedAt = now, now
	return nil
}

// UpdateReservationStatus performs a version-checked status update.
func (t *sqlTx) UpdateReservationStatus(ctx context.Context, r *model.Reservation, status model.ReservationStatus) error {
	now := time.Now().UTC()
	n, err := t.exec(ctx,
		`UPDATE reservations SET status = ?, version = version + 1, updated_at = ? WHERE id = ? AND version = ?`,
		status, now, r.ID, r.Version)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	r.Status = status
	r.Version++
	r.UpdatedAt = now
	return nil
}
