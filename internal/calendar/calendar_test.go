package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/resort-reservation/internal/model"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func countStatus(days []Day, s DayStatus) int {
	n := 0
	for _, d := range days {
		if d.Status == s {
			n++
		}
	}
	return n
}

func TestDayStatusesEmptyRoom(t *testing.T) {
	room := model.Room{ID: 1, State: model.RoomAvailable}

	days := DayStatuses(room, 2025, nil)
	require.Len(t, days, 365)
	assert.Equal(t, 365, countStatus(days, Available))
	assert.Equal(t, date(2025, time.January, 1), days[0].Date)
	assert.Equal(t, date(2025, time.December, 31), days[364].Date)

	assert.Len(t, DayStatuses(room, 2024, nil), 366)
}

func TestDayStatusesMaintenanceOverridesReservations(t *testing.T) {
	room := model.Room{ID: 1, State: model.RoomMaintenance}
	res := []model.Reservation{{
		RoomID: 1, Status: model.StatusCompleted,
		CheckIn: date(2025, time.June, 1), CheckOut: date(2025, time.June, 5),
	}}

	days := DayStatuses(room, 2025, res)
	require.Len(t, days, 365)
	assert.Equal(t, 365, countStatus(days, Maintenance))
}

func TestDayStatusesMarksHalfOpenRange(t *testing.T) {
	room := model.Room{ID: 1, State: model.RoomAvailable}
	res := []model.Reservation{
		{Status: model.StatusActive, CheckIn: date(2025, time.June, 1), CheckOut: date(2025, time.June, 5)},
		{Status: model.StatusCancelled, CheckIn: date(2025, time.July, 1), CheckOut: date(2025, time.July, 10)},
		{Status: model.StatusCompleted, CheckIn: date(2025, time.August, 3)}, // no checkout: one night
	}

	days := DayStatuses(room, 2025, res)
	byDate := map[string]DayStatus{}
	for _, e := range Entries(days) {
		byDate[e.Date] = e.Status
	}

	assert.Equal(t, Available, byDate["2025-05-31"])
	assert.Equal(t, Occupied, byDate["2025-06-01"])
	assert.Equal(t, Occupied, byDate["2025-06-04"])
	assert.Equal(t, Available, byDate["2025-06-05"], "checkout day is a valid check-in day")
	assert.Equal(t, Available, byDate["2025-07-02"], "cancelled reservations release their dates")
	assert.Equal(t, Occupied, byDate["2025-08-03"])
	assert.Equal(t, Available, byDate["2025-08-04"])
	assert.Equal(t, 5, countStatus(days, Occupied))
}

func TestDayStatusesClipsToYear(t *testing.T) {
	room := model.Room{ID: 1, State: model.RoomAvailable}
	res := []model.Reservation{
		{Status: model.StatusActive, CheckIn: date(2024, time.December, 30), CheckOut: date(2025, time.January, 3)},
		{Status: model.StatusActive, CheckIn: date(2025, time.December, 30), CheckOut: date(2026, time.January, 2)},
	}

	days := DayStatuses(room, 2025, res)
	assert.Equal(t, Occupied, days[0].Status)
	assert.Equal(t, Occupied, days[1].Status)
	assert.Equal(t, Available, days[2].Status)
	assert.Equal(t, Occupied, days[363].Status)
	assert.Equal(t, Occupied, days[364].Status)
	assert.Equal(t, 4, countStatus(days, Occupied))
}
