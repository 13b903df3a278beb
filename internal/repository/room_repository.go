package repository

import (
	"context"

	"github.com/iliyamo/resort-reservation/internal/model"
)

const roomColumns = `id, name, number, plan, capacity, nightly_rate_cents, state, created_at, updated_at`

// RoomByID loads a room.  ErrNotFound is returned for unknown ids.
func (c conn) RoomByID(ctx context.Context, id uint64) (model.Room, error) {
	var r model.Room
	err := c.get(ctx, &r, `SELECT `+roomColumns+` FROM rooms WHERE id = ?`, id)
	return r, err
}

// LockRoom loads a room and locks its row until the transaction ends.
// Booking attempts for the same room queue up behind this lock, which
// turns the availability re-check and the insert into one atomic step.
func (t *sqlTx) LockRoom(ctx context.Context, id uint64) (model.Room, error) {
	var r model.Room
	err := t.get(ctx, &r, `SELECT `+roomColumns+` FROM rooms WHERE id = ? FOR UPDATE`, id)
	return r, err
}

// ListRooms returns every room ordered by number.
func (s *SQLStore) ListRooms(ctx context.Context) ([]model.Room, error) {
	var out []model.Room
	err := s.selectAll(ctx, &out, `SELECT `+roomColumns+` FROM rooms ORDER BY number`)
	return out, err
}
