package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/resort-reservation/internal/model"
	"github.com/iliyamo/resort-reservation/internal/repository"
)

// Available reports whether [checkIn, checkOut) is free given the
// existing reservations of a room.
func Available(existing []model.Reservation, checkIn, checkOut time.Time) bool {
	for _, r := range existing {
		if r.Overlaps(checkIn, checkOut) {
			return false
		}
	}
	return true
}

// AvailabilityChecker answers availability queries without side effects.
// It does not guard against a concurrent booking; CreateReservation
// repeats the check under the room lock.
type AvailabilityChecker struct {
	store repository.Querier
}

func NewAvailabilityChecker(store repository.Querier) *AvailabilityChecker {
	return &AvailabilityChecker{store: store}
}

// IsAvailable reports whether the room can be booked for the range.
// A room under maintenance is never available.
func (a *AvailabilityChecker) IsAvailable(ctx context.Context, roomID uint64, checkIn, checkOut time.Time) (bool, error) {
	ci, co := model.Day(checkIn), model.Day(checkOut)
	if checkIn.IsZero() || !co.After(ci) {
		return false, ErrInvalidRange
	}
	room, err := a.store.RoomByID(ctx, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, ErrRoomNotFound
		}
		return false, fmt.Errorf("load room: %w", err)
	}
	return roomFree(ctx, a.store, room, ci, co)
}

func roomFree(ctx context.Context, q repository.Querier, room model.Room, ci, co time.Time) (bool, error) {
	if room.InMaintenance() {
		return false, nil
	}
	existing, err := q.ReservationsForRoom(ctx, room.ID, ci, co)
	if err != nil {
		return false, fmt.Errorf("load reservations: %w", err)
	}
	return Available(existing, ci, co), nil
}
