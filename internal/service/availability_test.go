package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/resort-reservation/internal/model"
)

func TestAvailableHalfOpenOverlap(t *testing.T) {
	existing := []model.Reservation{{
		CheckIn:  date(t, "2025-06-01"),
		CheckOut: date(t, "2025-06-05"),
		Status:   model.StatusActive,
	}}
	cases := []struct {
		name     string
		in, out  string
		expected bool
	}{
		{"touching after", "2025-06-05", "2025-06-08", true},
		{"touching before", "2025-05-28", "2025-06-01", true},
		{"overlap tail", "2025-06-04", "2025-06-06", false},
		{"overlap head", "2025-05-30", "2025-06-02", false},
		{"inside", "2025-06-02", "2025-06-03", false},
		{"covering", "2025-05-01", "2025-07-01", false},
		{"disjoint", "2025-07-01", "2025-07-03", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Available(existing, date(t, tc.in), date(t, tc.out)))
		})
	}
}

func TestAvailableIgnoresCancelled(t *testing.T) {
	existing := []model.Reservation{{
		CheckIn:  date(t, "2025-06-01"),
		CheckOut: date(t, "2025-06-05"),
		Status:   model.StatusCancelled,
	}}
	assert.True(t, Available(existing, date(t, "2025-06-02"), date(t, "2025-06-03")))
}

func TestAvailableMissingCheckOutIsOneNight(t *testing.T) {
	existing := []model.Reservation{{CheckIn: date(t, "2025-06-01"), Status: model.StatusActive}}
	assert.False(t, Available(existing, date(t, "2025-06-01"), date(t, "2025-06-02")))
	assert.True(t, Available(existing, date(t, "2025-06-02"), date(t, "2025-06-03")))
}

func TestIsAvailable(t *testing.T) {
	f := newFixture(t)
	checker := NewAvailabilityChecker(f.store)
	ctx := context.Background()
	f.book(t, "2025-06-01", "2025-06-05")

	ok, err := checker.IsAvailable(ctx, f.room.ID, date(t, "2025-06-05"), date(t, "2025-06-08"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = checker.IsAvailable(ctx, f.room.ID, date(t, "2025-06-04"), date(t, "2025-06-06"))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIsAvailableRejectsBadRange(t *testing.T) {
	f := newFixture(t)
	checker := NewAvailabilityChecker(f.store)
	d := date(t, "2025-06-01")

	_, err := checker.IsAvailable(context.Background(), f.room.ID, d, d)
	assert.ErrorIs(t, err, ErrInvalidRange)
	_, err = checker.IsAvailable(context.Background(), f.room.ID, d, d.AddDate(0, 0, -1))
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestIsAvailableMaintenanceAndUnknownRoom(t *testing.T) {
	f := newFixture(t)
	room := f.store.addRoom(model.Room{Number: "900", Capacity: 2, State: model.RoomMaintenance})
	checker := NewAvailabilityChecker(f.store)

	ok, err := checker.IsAvailable(context.Background(), room.ID, date(t, "2025-01-01"), date(t, "2025-01-02"))
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = checker.IsAvailable(context.Background(), 9999, date(t, "2025-01-01"), date(t, "2025-01-02"))
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestCalendarService(t *testing.T) {
	f := newFixture(t)
	f.book(t, "2025-03-10", "2025-03-12")
	svc := NewCalendarService(f.store)

	cal, err := svc.DayStatuses(context.Background(), f.room.ID, 2025)
	require.NoError(t, err)
	require.Len(t, cal.Days, 365)
	assert.Equal(t, "2025-03-10", cal.Days[68].Date)
	assert.Equal(t, "occupied", string(cal.Days[68].Status))
	assert.Equal(t, "occupied", string(cal.Days[69].Status))
	assert.Equal(t, "available", string(cal.Days[70].Status))

	_, err = svc.DayStatuses(context.Background(), f.room.ID, 1969)
	assert.ErrorIs(t, err, ErrInvalidRange)
	_, err = svc.DayStatuses(context.Background(), 4242, 2025)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}
