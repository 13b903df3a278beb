package model

import "time"

// ReservationStatus is the lifecycle state of a room reservation.
type ReservationStatus string

const (
	// StatusActive is the initial state: the dates are held while payment
	// is outstanding.
	StatusActive ReservationStatus = "ACTIVE"
	// StatusCompleted is reached when the payment is approved.
	StatusCompleted ReservationStatus = "COMPLETED"
	// StatusCancelled releases the dates.  It is never left by normal flow.
	StatusCancelled ReservationStatus = "CANCELLED"
)

// Terminal reports whether normal flow may not leave the status.
func (s ReservationStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Reservation records a guest's stay in a room over the half-open date
// interval [CheckIn, CheckOut).  Rows are never deleted: cancellation is a
// status change so the history stays auditable.
//
// Fields:
//  ID         – primary key identifier.
//  UserID     – account that booked the stay.
//  RoomID     – room being reserved.
//  CheckIn    – first night (inclusive).
//  CheckOut   – departure day (exclusive); zero means unset (one night).
//  Status     – ACTIVE, COMPLETED or CANCELLED.
//  TotalCents – nightly rate × nights at booking time.
//  Version    – incremented on every status change.
type Reservation struct {
	ID         uint64            `db:"id" json:"id"`
	UserID     uint64            `db:"user_id" json:"user_id"`
	RoomID     uint64            `db:"room_id" json:"room_id"`
	CheckIn    time.Time         `db:"check_in" json:"check_in"`
	CheckOut   time.Time         `db:"check_out" json:"check_out"`
	Status     ReservationStatus `db:"status" json:"status"`
	TotalCents int64             `db:"total_cents" json:"total_cents"`
	Version    int64             `db:"version" json:"version"`
	CreatedAt  time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time         `db:"updated_at" json:"updated_at"`
}

// EffectiveCheckOut returns CheckOut, or the day after CheckIn when it is
// unset.
func (r Reservation) EffectiveCheckOut() time.Time {
	if r.CheckOut.IsZero() {
		return Day(r.CheckIn).AddDate(0, 0, 1)
	}
	return Day(r.CheckOut)
}

// Nights is the billable number of nights, never less than one.
func (r Reservation) Nights() int {
	return BillableNights(r.CheckIn, r.EffectiveCheckOut())
}

// Overlaps reports whether the reservation intersects [checkIn, checkOut).
// Touching boundaries do not overlap, and cancelled reservations never do.
func (r Reservation) Overlaps(checkIn, checkOut time.Time) bool {
	if r.Status == StatusCancelled {
		return false
	}
	return Day(r.CheckIn).Before(Day(checkOut)) && r.EffectiveCheckOut().After(Day(checkIn))
}

// BillableNights is max(1, checkOut - checkIn) in days.
func BillableNights(checkIn, checkOut time.Time) int {
	if n := NightsBetween(checkIn, checkOut); n > 1 {
		return n
	}
	return 1
}
