// Package calendar derives the per-day occupancy of a room from its
// reservations.  Nothing here touches storage; the calendar is recomputed
// on every request.
package calendar

import (
	"time"

	"github.com/iliyamo/resort-reservation/internal/model"
)

// DayStatus is the occupancy of a single calendar day.
type DayStatus string

const (
	Available   DayStatus = "available"
	Occupied    DayStatus = "occupied"
	Maintenance DayStatus = "maintenance"
)

// Day pairs a date with its status.
type Day struct {
	Date   time.Time
	Status DayStatus
}

// Entry converts the day to its wire form.
func (d Day) Entry() Entry {
	return Entry{Date: d.Date.Format(model.DateLayout), Status: d.Status}
}

// Entry is the wire form of a Day.
type Entry struct {
	Date   string    `json:"date"`
	Status DayStatus `json:"status"`
}

// DaysInYear returns 366 for leap years and 365 otherwise.
func DaysInYear(year int) int {
	return time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC).YearDay()
}

// DayStatuses returns one entry per day of year, in order.  A room in
// maintenance is blocked on every day regardless of its reservations.
// Otherwise each non-cancelled reservation marks [CheckIn, CheckOut) as
// occupied; the check-out day itself stays free.
func DayStatuses(room model.Room, year int, reservations []model.Reservation) []Day {
	n := DaysInYear(year)
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	days := make([]Day, n)

	base := Available
	if room.InMaintenance() {
		base = Maintenance
	}
	for i := range days {
		days[i] = Day{Date: start.AddDate(0, 0, i), Status: base}
	}
	if base == Maintenance {
		return days
	}

	for _, r := range reservations {
		if r.Status == model.StatusCancelled {
			continue
		}
		from := dayIndex(start, model.Day(r.CheckIn))
		to := dayIndex(start, r.EffectiveCheckOut())
		if from < 0 {
			from = 0
		}
		if to > n {
			to = n
		}
		for i := from; i < to; i++ {
			days[i].Status = Occupied
		}
	}
	return days
}

// Entries converts days to their wire form.
func Entries(days []Day) []Entry {
	out := make([]Entry, len(days))
	for i, d := range days {
		out[i] = d.Entry()
	}
	return out
}

func dayIndex(start, t time.Time) int {
	return int(t.Sub(start).Hours() / 24)
}
