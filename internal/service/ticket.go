package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/iliyamo/resort-reservation/internal/document"
	"github.com/iliyamo/resort-reservation/internal/model"
	"github.com/iliyamo/resort-reservation/internal/notify"
	"github.com/iliyamo/resort-reservation/internal/queue"
	"github.com/iliyamo/resort-reservation/internal/repository"
)

// Ticket number prefixes.
const (
	HotelTicketPrefix      = "HT"
	RestaurantTicketPrefix = "RT"
)

const ticketAttempts = 3

// NumberGenerator derives human readable document numbers from the UTC
// time plus an in-process sequence: HT20250301120000-0001.
type NumberGenerator struct {
	prefix string
	now    func() time.Time

	mu  sync.Mutex
	seq uint32
}

func NewNumberGenerator(prefix string) *NumberGenerator {
	return &NumberGenerator{prefix: prefix, now: time.Now}
}

// Next returns the next number.
func (g *NumberGenerator) Next() string {
	g.mu.Lock()
	g.seq = g.seq%9999 + 1
	seq := g.seq
	g.mu.Unlock()
	return fmt.Sprintf("%s%s-%04d", g.prefix, g.now().UTC().Format("20060102150405"), seq)
}

// DocumentRenderer renders ticket documents.
type DocumentRenderer interface {
	Ticket(t model.Ticket) ([]byte, error)
	Order(o model.RestaurantOrder) ([]byte, error)
}

// DocumentStore persists rendered documents by key.
type DocumentStore interface {
	Save(ctx context.Context, key string, data []byte) (string, error)
	Open(ctx context.Context, key string) ([]byte, error)
}

// TicketDeps are the collaborators of TicketIssuer used after the ticket
// row is committed.  Nil members disable the matching step.
type TicketDeps struct {
	Renderer DocumentRenderer
	Files    DocumentStore
	Mailer   notify.Notifier
	Events   queue.Publisher
	Logger   *slog.Logger
}

// TicketIssuer creates exactly one ticket per completed reservation.
type TicketIssuer struct {
	store    repository.Store
	numbers  *NumberGenerator
	renderer DocumentRenderer
	files    DocumentStore
	mailer   notify.Notifier
	events   queue.Publisher
	logger   *slog.Logger
}

func NewTicketIssuer(store repository.Store, numbers *NumberGenerator, deps TicketDeps) *TicketIssuer {
	if numbers == nil {
		numbers = NewNumberGenerator(HotelTicketPrefix)
	}
	if deps.Mailer == nil {
		deps.Mailer = notify.Discard{}
	}
	if deps.Events == nil {
		deps.Events = queue.NopPublisher{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &TicketIssuer{
		store:    store,
		numbers:  numbers,
		renderer: deps.Renderer,
		files:    deps.Files,
		mailer:   deps.Mailer,
		events:   deps.Events,
		logger:   deps.Logger,
	}
}

// EnsureTicket returns the reservation's ticket, issuing it if needed.
// The ticket row is the source of truth; document rendering, email and
// the ticket.issued event follow the commit and their failures are only
// logged.
func (i *TicketIssuer) EnsureTicket(ctx context.Context, reservationID uint64) (model.Ticket, error) {
	var (
		t       model.Ticket
		created bool
		err     error
	)
	for attempt := 0; attempt < ticketAttempts; attempt++ {
		t, created, err = i.issue(ctx, reservationID)
		if !errors.Is(err, repository.ErrConflict) {
			break
		}
		i.logger.Info("ticket insert conflict, retrying", "reservation_id", reservationID, "attempt", attempt+1)
	}
	if err != nil {
		return model.Ticket{}, err
	}
	if created {
		i.logger.Info("ticket issued", "reservation_id", reservationID, "ticket", t.Number)
		t = i.fanOut(ctx, t)
	}
	return t, nil
}

func (i *TicketIssuer) issue(ctx context.Context, reservationID uint64) (model.Ticket, bool, error) {
	var (
		t       model.Ticket
		created bool
	)
	err := i.store.InTx(ctx, func(tx repository.Tx) error {
		r, err := tx.LockReservation(ctx, reservationID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrReservationNotFound
			}
			return err
		}
		existing, err := tx.TicketByReservation(ctx, reservationID)
		if err == nil {
			t = existing
			return nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if r.Status != model.StatusCompleted {
			return ErrTicketNotEligible
		}
		room, err := tx.RoomByID(ctx, r.RoomID)
		if err != nil {
			return fmt.Errorf("load room: %w", err)
		}
		guest, err := tx.GuestDetailsByReservation(ctx, r.ID)
		if err != nil {
			return fmt.Errorf("load guest: %w", err)
		}
		t = Snapshot(i.numbers.Next(), r, room, guest)
		if err := tx.InsertTicket(ctx, &t); err != nil {
			return err
		}
		created = true
		return nil
	})
	return t, created, err
}

// Snapshot copies the room, guest and price data into a new ticket.
func Snapshot(number string, r model.Reservation, room model.Room, g model.GuestDetails) model.Ticket {
	return model.Ticket{
		Number:             number,
		ReservationID:      r.ID,
		UserID:             r.UserID,
		RoomID:             room.ID,
		RoomName:           room.Name,
		RoomNumber:         room.Number,
		RoomPlan:           room.Plan,
		NightlyRateCents:   room.NightlyRateCents,
		Nights:             r.Nights(),
		TotalCents:         r.TotalCents,
		CheckIn:            model.Day(r.CheckIn),
		CheckOut:           r.EffectiveCheckOut(),
		GuestName:          g.Name,
		GuestDocType:       g.DocType,
		GuestDocNumber:     g.DocNumber,
		GuestPhone:         g.Phone,
		GuestEmail:         g.Email,
		GuestOrigin:        g.Origin,
		CompanionName:      g.CompanionName,
		CompanionDocType:   g.CompanionDocType,
		CompanionDocNumber: g.CompanionDocNumber,
	}
}

func (i *TicketIssuer) fanOut(ctx context.Context, t model.Ticket) model.Ticket {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	pdf, err := i.StoreDocument(ctx, &t)
	if err != nil {
		i.logger.Warn("ticket document failed", "ticket", t.Number, "err", err)
	}
	if to := i.recipient(ctx, t); to != "" {
		subject, body := notify.TicketEmail(t)
		var att []notify.Attachment
		if pdf != nil {
			att = append(att, notify.Attachment{Name: t.Number + ".pdf", Data: pdf})
		}
		if !i.mailer.SendEmail(to, subject, body, att...) {
			i.logger.Warn("ticket email not sent", "ticket", t.Number)
		}
	}
	ev := queue.TicketIssuedEvent{
		EventID:       queue.NewEventID(),
		TicketNumber:  t.Number,
		ReservationID: t.ReservationID,
		UserID:        t.UserID,
		RoomNumber:    t.RoomNumber,
		CheckIn:       t.CheckIn.Format(model.DateLayout),
		CheckOut:      t.CheckOut.Format(model.DateLayout),
		TotalCents:    t.TotalCents,
		IssuedAt:      queue.Timestamp(t.CreatedAt),
	}
	if err := i.events.Publish(ctx, queue.TopicTicketIssued, ev); err != nil {
		i.logger.Warn("publish ticket event failed", "ticket", t.Number, "err", err)
	}
	return t
}

func (i *TicketIssuer) recipient(ctx context.Context, t model.Ticket) string {
	if t.GuestEmail != "" {
		return t.GuestEmail
	}
	a, err := i.store.AccountByID(ctx, t.UserID)
	if err != nil {
		return ""
	}
	return a.Email
}

// StoreDocument renders the ticket and records its storage key if the
// ticket has none yet.  It returns the rendered bytes.  When another
// worker stored the document first, the recorded key wins and t is
// updated to it.
func (i *TicketIssuer) StoreDocument(ctx context.Context, t *model.Ticket) ([]byte, error) {
	if i.renderer == nil || i.files == nil {
		return nil, errors.New("document storage not configured")
	}
	pdf, err := i.renderer.Ticket(*t)
	if err != nil {
		return nil, err
	}
	if t.HasDocument() {
		return pdf, nil
	}
	key, err := i.files.Save(ctx, document.TicketKey(t.Number), pdf)
	if err != nil {
		return pdf, err
	}
	ok, err := i.store.SetTicketFile(ctx, t.ID, key)
	if err != nil {
		return pdf, fmt.Errorf("record ticket file: %w", err)
	}
	if ok {
		t.File = &key
		return pdf, nil
	}
	fresh, err := i.store.TicketByReservation(ctx, t.ReservationID)
	if err == nil {
		*t = fresh
	}
	return pdf, nil
}

// Document returns the ticket and its PDF for an owner or admin.  The
// ticket is issued on demand for a completed reservation, and a missing
// document is stored first.
func (i *TicketIssuer) Document(ctx context.Context, reservationID uint64, actor Actor) (model.Ticket, []byte, error) {
	r, err := i.store.ReservationByID(ctx, reservationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Ticket{}, nil, ErrReservationNotFound
		}
		return model.Ticket{}, nil, err
	}
	if !actor.CanAccess(r.UserID) {
		return model.Ticket{}, nil, ErrForbidden
	}
	t, err := i.EnsureTicket(ctx, reservationID)
	if err != nil {
		return model.Ticket{}, nil, err
	}
	if t.HasDocument() && i.files != nil {
		if pdf, err := i.files.Open(ctx, *t.File); err == nil {
			return t, pdf, nil
		}
		i.logger.Warn("stored ticket document unreadable, rendering from snapshot", "ticket", t.Number)
	}
	pdf, err := i.StoreDocument(ctx, &t)
	if pdf == nil {
		return t, nil, err
	}
	if err != nil {
		i.logger.Warn("ticket document not stored", "ticket", t.Number, "err", err)
	}
	return t, pdf, nil
}

// SweepResult counts what one retry sweep repaired.
type SweepResult struct {
	Issued    int
	Documents int
	Failed    int
}

// Sweep issues tickets for completed reservations that have none and
// stores documents for tickets without a file.
func (i *TicketIssuer) Sweep(ctx context.Context, limit int) (SweepResult, error) {
	var res SweepResult
	ids, err := i.store.CompletedWithoutTicket(ctx, limit)
	if err != nil {
		return res, fmt.Errorf("list completed without ticket: %w", err)
	}
	for _, id := range ids {
		if _, err := i.EnsureTicket(ctx, id); err != nil {
			res.Failed++
			i.logger.Warn("sweep: ticket issuance failed", "reservation_id", id, "err", err)
			continue
		}
		res.Issued++
	}
	pending, err := i.store.TicketsWithoutFile(ctx, limit)
	if err != nil {
		return res, fmt.Errorf("list tickets without file: %w", err)
	}
	for _, t := range pending {
		t := t
		if _, err := i.StoreDocument(ctx, &t); err != nil {
			res.Failed++
			i.logger.Warn("sweep: ticket document failed", "ticket", t.Number, "err", err)
			continue
		}
		res.Documents++
	}
	return res, nil
}
