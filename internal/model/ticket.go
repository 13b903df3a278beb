package model

import "time"

// Ticket is the proof of stay issued once per completed reservation.  It
// stores a snapshot of room, guest and price data taken at issuance so
// that later edits to the room or the guest record do not alter it.  The
// only column ever written after insert is File, and only while it is
// still NULL.
type Ticket struct {
	ID                 uint64    `db:"id" json:"id"`
	Number             string    `db:"number" json:"number"`
	ReservationID      uint64    `db:"reservation_id" json:"reservation_id"`
	UserID             uint64    `db:"user_id" json:"user_id"`
	RoomID             uint64    `db:"room_id" json:"room_id"`
	RoomName           string    `db:"room_name" json:"room_name"`
	RoomNumber         string    `db:"room_number" json:"room_number"`
	RoomPlan           RoomPlan  `db:"room_plan" json:"room_plan"`
	NightlyRateCents   int64     `db:"nightly_rate_cents" json:"nightly_rate_cents"`
	Nights             int       `db:"nights" json:"nights"`
	TotalCents         int64     `db:"total_cents" json:"total_cents"`
	CheckIn            time.Time `db:"check_in" json:"check_in"`
	CheckOut           time.Time `db:"check_out" json:"check_out"`
	GuestName          string    `db:"guest_name" json:"guest_name"`
	GuestDocType       string    `db:"guest_doc_type" json:"guest_doc_type"`
	GuestDocNumber     string    `db:"guest_doc_number" json:"guest_doc_number"`
	GuestPhone         string    `db:"guest_phone" json:"guest_phone"`
	GuestEmail         string    `db:"guest_email" json:"guest_email"`
	GuestOrigin        string    `db:"guest_origin" json:"guest_origin"`
	CompanionName      *string   `db:"companion_name" json:"companion_name,omitempty"`
	CompanionDocType   *string   `db:"companion_doc_type" json:"companion_doc_type,omitempty"`
	CompanionDocNumber *string   `db:"companion_doc_number" json:"companion_doc_number,omitempty"`
	File               *string   `db:"file" json:"file,omitempty"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
}

// HasDocument reports whether the PDF has been stored.
func (t Ticket) HasDocument() bool { return t.File != nil && *t.File != "" }
