package repository

import (
	"context"
	"time"

	"github.com/iliyamo/resort-reservation/internal/model"
)

const ticketColumns = `id, number, reservation_id, user_id, room_id, room_name, room_number, room_plan,
	nightly_rate_cents, nights, total_cents, check_in, check_out,
	guest_name, guest_doc_type, guest_doc_number, guest_phone, guest_email, guest_origin,
	companion_name, companion_doc_type, companion_doc_number, file, created_at`

// TicketByReservation returns the ticket issued for a reservation, or
// ErrNotFound.
func (c conn) TicketByReservation(ctx context.Context, reservationID uint64) (model.Ticket, error) {
	var t model.Ticket
	err := c.get(ctx, &t, `SELECT `+ticketColumns+` FROM tickets WHERE reservation_id = ?`, reservationID)
	return t, err
}

// TicketsWithoutFile lists tickets whose document is still missing.
func (s *SQLStore) TicketsWithoutFile(ctx context.Context, limit int) ([]model.Ticket, error) {
	var out []model.Ticket
	err := s.selectAll(ctx, &out, `SELECT `+ticketColumns+` FROM tickets WHERE file IS NULL ORDER BY id LIMIT ?`, limit)
	return out, err
}

// SetTicketFile stores the document path once.  A ticket that already has
// a file is left untouched and false is returned.
func (s *SQLStore) SetTicketFile(ctx context.Context, ticketID uint64, file string) (bool, error) {
	n, err := s.exec(ctx, `UPDATE tickets SET file = ? WHERE id = ? AND file IS NULL`, file, ticketID)
	return n > 0, err
}

// InsertTicket writes the ticket snapshot.  Both number and
// reservation_id are unique; a duplicate surfaces as ErrConflict.
func (t *sqlTx) InsertTicket(ctx context.Context, tk *model.Ticket) error {
	if tk.CreatedAt.IsZero() {
		tk.CreatedAt = time.Now().UTC()
	}
	const q = `INSERT INTO tickets (number, reservation_id, user_id, room_id, room_name, room_number, room_plan,
		nightly_rate_cents, nights, total_cents, check_in, check_out,
		guest_name, guest_doc_type, guest_doc_number, guest_phone, guest_email, guest_origin,
		companion_name, companion_doc_type, companion_doc_number, file, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	id, err := t.insert(ctx, q, tk.Number, tk.ReservationID, tk.UserID, tk.RoomID, tk.RoomName, tk.RoomNumber, tk.RoomPlan,
		tk.NightlyRateCents, tk.Nights, tk.TotalCents, model.Day(tk.CheckIn), model.Day(tk.CheckOut),
		tk.GuestName, tk.GuestDocType, tk.GuestDocNumber, tk.GuestPhone, tk.GuestEmail, tk.GuestOrigin,
		tk.CompanionName, tk.CompanionDocType, tk.CompanionDocNumber, tk.File, tk.CreatedAt)
	if err != nil {
		return err
	}
	tk.ID = id
	return nil
}
