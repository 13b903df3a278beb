package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/iliyamo/resort-reservation/internal/model"
	"github.com/iliyamo/resort-reservation/internal/payment"
	"github.com/iliyamo/resort-reservation/internal/queue"
	"github.com/iliyamo/resort-reservation/internal/repository"
)

// Outcome classifies what an inbound status did to a reservation.
type Outcome string

const (
	OutcomeApplied   Outcome = "applied"   // status changed
	OutcomeUnchanged Outcome = "unchanged" // repeated or pending status
	OutcomeAnomaly   Outcome = "anomaly"   // conflicting terminal status, ignored
	OutcomeIgnored   Outcome = "ignored"   // event not about one of our reservations
)

// Transition is the result of ApplyPaymentStatus.
type Transition struct {
	ReservationID uint64
	From          model.ReservationStatus
	To            model.ReservationStatus
	Outcome       Outcome
	Ticket        *model.Ticket
}

// TicketEnsurer issues the ticket of a completed reservation.
type TicketEnsurer interface {
	EnsureTicket(ctx context.Context, reservationID uint64) (model.Ticket, error)
}

// BookingRequest carries everything needed to create a reservation.
type BookingRequest struct {
	UserID   uint64
	RoomID   uint64
	CheckIn  time.Time
	CheckOut time.Time // zero means one night
	Guest    model.GuestDetails
}

// ReservationView is a reservation with its guest data and the payment
// reference sent to providers.
type ReservationView struct {
	model.Reservation
	Guest            *model.GuestDetails `json:"guest,omitempty"`
	PaymentReference string              `json:"payment_reference"`
}

// Lifecycle is the single authority for reservation status changes.
type Lifecycle struct {
	store   repository.Store
	tickets TicketEnsurer
	events  queue.Publisher
	logger  *slog.Logger
}

func NewLifecycle(store repository.Store, tickets TicketEnsurer, events queue.Publisher, logger *slog.Logger) *Lifecycle {
	if events == nil {
		events = queue.NopPublisher{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Lifecycle{store: store, tickets: tickets, events: events, logger: logger}
}

// CreateReservation books a room.  The availability check and the insert
// run in one transaction holding the room's row lock.  A lost race is
// retried once and then reported as ErrRoomUnavailable.
func (l *Lifecycle) CreateReservation(ctx context.Context, req BookingRequest) (ReservationView, error) {
	ci := model.Day(req.CheckIn)
	co := req.CheckOut
	if co.IsZero() {
		co = ci.AddDate(0, 0, 1)
	}
	co = model.Day(co)
	if req.CheckIn.IsZero() || !co.After(ci) {
		return ReservationView{}, ErrInvalidDates
	}
	guest := normalizeGuest(req.Guest)
	if !guest.ValidDocuments() {
		return ReservationView{}, ErrInvalidGuestDocument
	}

	var view ReservationView
	attempt := func() error {
		return l.store.InTx(ctx, func(tx repository.Tx) error {
			room, err := tx.LockRoom(ctx, req.RoomID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return ErrRoomNotFound
				}
				return err
			}
			guests := 1
			if guest.HasCompanion() {
				guests = 2
			}
			if room.Capacity > 0 && guests > room.Capacity {
				return ErrCapacityExceeded
			}
			free, err := roomFree(ctx, tx, room, ci, co)
			if err != nil {
				return err
			}
			if !free {
				return ErrRoomUnavailable
			}
			r := model.Reservation{
				UserID:     req.UserID,
				RoomID:     room.ID,
				CheckIn:    ci,
				CheckOut:   co,
				Status:     model.StatusActive,
				TotalCents: room.NightlyRateCents * int64(model.BillableNights(ci, co)),
			}
			if err := tx.InsertReservation(ctx, &r); err != nil {
				return err
			}
			g := guest
			g.ReservationID = r.ID
			if err := tx.InsertGuestDetails(ctx, &g); err != nil {
				return err
			}
			view = ReservationView{Reservation: r, Guest: &g, PaymentReference: payment.Reference(r.ID)}
			return nil
		})
	}

	err := attempt()
	if errors.Is(err, repository.ErrConflict) {
		l.logger.Info("booking conflict, retrying", "room_id", req.RoomID)
		err = attempt()
		if errors.Is(err, repository.ErrConflict) {
			err = ErrRoomUnavailable
		}
	}
	if err != nil {
		return ReservationView{}, err
	}

	l.logger.Info("reservation created", "reservation_id", view.ID, "room_id", view.RoomID,
		"check_in", view.CheckIn.Format(model.DateLayout), "check_out", view.CheckOut.Format(model.DateLayout))
	l.publishStatus(ctx, view.ID, "", model.StatusActive, "booking")
	return view, nil
}

func normalizeGuest(g model.GuestDetails) model.GuestDetails {
	g.Name = strings.TrimSpace(g.Name)
	g.DocType = strings.ToUpper(strings.TrimSpace(g.DocType))
	g.DocNumber = strings.ToUpper(strings.TrimSpace(g.DocNumber))
	g.Email = strings.TrimSpace(g.Email)
	if g.CompanionDocType != nil {
		v := strings.ToUpper(strings.TrimSpace(*g.CompanionDocType))
		g.CompanionDocType = &v
	}
	if g.CompanionDocNumber != nil {
		v := strings.ToUpper(strings.TrimSpace(*g.CompanionDocNumber))
		g.CompanionDocNumber = &v
	}
	return g
}

// decide maps the current status and an inbound payment status onto the
// next status.  ensureTicket is set whenever the reservation ends up
// Completed, so a repeated approval heals a ticket that failed to issue.
func decide(current model.ReservationStatus, incoming payment.Status) (next model.ReservationStatus, outcome Outcome, ensureTicket bool) {
	switch current {
	case model.StatusActive:
		switch incoming {
		case payment.Approved:
			return model.StatusCompleted, OutcomeApplied, true
		case payment.Declined:
			return model.StatusCancelled, OutcomeApplied, false
		}
		return current, OutcomeUnchanged, false
	case model.StatusCompleted:
		switch incoming {
		case payment.Approved:
			return current, OutcomeUnchanged, true
		case payment.Declined:
			return current, OutcomeAnomaly, false
		}
		return current, OutcomeUnchanged, false
	case model.StatusCancelled:
		if incoming == payment.Approved {
			return current, OutcomeAnomaly, false
		}
		return current, OutcomeUnchanged, false
	}
	return current, OutcomeUnchanged, false
}

// ApplyPaymentStatus funnels every provider outcome through one state
// machine.  It is safe to call repeatedly with the same status.  Ticket
// issuance failures are logged and left to the retry sweep; they never
// undo the committed status.
func (l *Lifecycle) ApplyPaymentStatus(ctx context.Context, reservationID uint64, status payment.Status, source string) (Transition, error) {
	tr := Transition{ReservationID: reservationID}
	var ensure bool
	apply := func() error {
		return l.store.InTx(ctx, func(tx repository.Tx) error {
			r, err := tx.LockReservation(ctx, reservationID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return ErrReservationNotFound
				}
				return err
			}
			next, outcome, ensureTicket := decide(r.Status, status)
			tr.From, tr.To, tr.Outcome = r.Status, next, outcome
			ensure = ensureTicket
			if next == r.Status {
				return nil
			}
			return tx.UpdateReservationStatus(ctx, &r, next)
		})
	}
	err := apply()
	if errors.Is(err, repository.ErrConflict) {
		err = apply()
	}
	if err != nil {
		return tr, err
	}

	switch tr.Outcome {
	case OutcomeApplied:
		l.logger.Info("reservation status changed", "reservation_id", reservationID,
			"from", tr.From, "to", tr.To, "source", source)
		l.publishStatus(ctx, reservationID, tr.From, tr.To, source)
	case OutcomeAnomaly:
		l.logger.Warn("conflicting payment status ignored", "reservation_id", reservationID,
			"current", tr.From, "incoming", status, "source", source, "anomaly", true)
	default:
		l.logger.Debug("payment status without effect", "reservation_id", reservationID,
			"current", tr.From, "incoming", status, "source", source)
	}

	if ensure && l.tickets != nil {
		t, err := l.tickets.EnsureTicket(ctx, reservationID)
		if err != nil {
			l.logger.Error("ticket issuance failed", "reservation_id", reservationID, "err", err)
		} else {
			tr.Ticket = &t
		}
	}
	return tr, nil
}

// Cancel moves an Active reservation to Cancelled on behalf of its owner
// or an administrator.
func (l *Lifecycle) Cancel(ctx context.Context, reservationID uint64, actor Actor) (model.Reservation, error) {
	var out model.Reservation
	err := l.store.InTx(ctx, func(tx repository.Tx) error {
		r, err := tx.LockReservation(ctx, reservationID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrReservationNotFound
			}
			return err
		}
		if !actor.CanAccess(r.UserID) {
			return ErrForbidden
		}
		if r.Status != model.StatusActive {
			return ErrInvalidTransition
		}
		if err := tx.UpdateReservationStatus(ctx, &r, model.StatusCancelled); err != nil {
			return err
		}
		out = r
		return nil
	})
	if err != nil {
		return model.Reservation{}, err
	}
	l.logger.Info("reservation cancelled", "reservation_id", reservationID, "by", actor.UserID)
	l.publishStatus(ctx, reservationID, model.StatusActive, model.StatusCancelled, "manual")
	return out, nil
}

// Get returns a reservation the actor may see.
func (l *Lifecycle) Get(ctx context.Context, reservationID uint64, actor Actor) (ReservationView, error) {
	r, err := l.store.ReservationByID(ctx, reservationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ReservationView{}, ErrReservationNotFound
		}
		return ReservationView{}, fmt.Errorf("load reservation: %w", err)
	}
	if !actor.CanAccess(r.UserID) {
		return ReservationView{}, ErrForbidden
	}
	view := ReservationView{Reservation: r, PaymentReference: payment.Reference(r.ID)}
	g, err := l.store.GuestDetailsByReservation(ctx, r.ID)
	switch {
	case err == nil:
		view.Guest = &g
	case !errors.Is(err, repository.ErrNotFound):
		return ReservationView{}, fmt.Errorf("load guest: %w", err)
	}
	return view, nil
}

// ExpectedCharge returns the total a reservation must be paid with.
func (l *Lifecycle) ExpectedCharge(ctx context.Context, reservationID uint64) (int64, string, error) {
	r, err := l.store.ReservationByID(ctx, reservationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, "", ErrReservationNotFound
		}
		return 0, "", fmt.Errorf("load reservation: %w", err)
	}
	return r.TotalCents, payment.DefaultCurrency, nil
}

// ListForUser returns the user's reservations, newest first.
func (l *Lifecycle) ListForUser(ctx context.Context, userID uint64) ([]ReservationView, error) {
	rs, err := l.store.ListReservationsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	out := make([]ReservationView, 0, len(rs))
	for _, r := range rs {
		out = append(out, ReservationView{Reservation: r, PaymentReference: payment.Reference(r.ID)})
	}
	return out, nil
}

func (l *Lifecycle) publishStatus(ctx context.Context, id uint64, from, to model.ReservationStatus, source string) {
	ev := queue.ReservationStatusChangedEvent{
		EventID:       queue.NewEventID(),
		ReservationID: id,
		From:          string(from),
		To:            string(to),
		Source:        source,
		OccurredAt:    queue.Timestamp(time.Now()),
	}
	if err := l.events.Publish(ctx, queue.TopicReservationStatusChanged, ev); err != nil {
		l.logger.Warn("publish status event failed", "reservation_id", id, "err", err)
	}
}
