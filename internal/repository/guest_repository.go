package repository

import (
	"context"
	"time"

	"github.com/iliyamo/resort-reservation/internal/model"
)

const guestColumns = `id, reservation_id, name, doc_type, doc_number, phone, email, origin,
	companion_name, companion_doc_type, companion_doc_number, companion_phone, companion_email, companion_origin, created_at`

// GuestDetailsByReservation loads the guest data captured for a booking.
func (c conn) GuestDetailsByReservation(ctx context.Context, reservationID uint64) (model.GuestDetails, error) {
	var g model.GuestDetails
	err := c.get(ctx, &g, `SELECT `+guestColumns+` FROM reservation_guests WHERE reservation_id = ?`, reservationID)
	return g, err
}

// InsertGuestDetails writes the guest row of a reservation.  The
// reservation_id column is unique, so a second insert fails with
// ErrConflict.
func (t *sqlTx) InsertGuestDetails(ctx context.Context, g *model.GuestDetails) error {
	g.CreatedAt = time.Now().UTC()
	const q = `INSERT INTO reservation_guests (reservation_id, name, doc_type, doc_number, phone, email, origin,
		companion_name, companion_doc_type, companion_doc_number, companion_phone, companion_email, companion_origin, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	id, err := t.insert(ctx, q, g.ReservationID, g.Name, g.DocType, g.DocNumber, g.Phone, g.Email, g.Origin,
		g.CompanionName, g.CompanionDocType, g.CompanionDocNumber, g.CompanionPhone, g.CompanionEmail, g.CompanionOrigin, g.CreatedAt)
	if err != nil {
		return err
	}
	g.ID = id
	return nil
}
