package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/iliyamo/resort-reservation/internal/model"
	"github.com/iliyamo/resort-reservation/internal/notify"
)

// ReminderStore is the data the reminder job reads.
type ReminderStore interface {
	CompletedByCheckIn(ctx context.Context, day time.Time) ([]model.Reservation, error)
	CompletedByCheckOut(ctx context.Context, day time.Time) ([]model.Reservation, error)
	AccountByID(ctx context.Context, id uint64) (model.Account, error)
	RoomByID(ctx context.Context, id uint64) (model.Room, error)
}

// Reminders emails guests about upcoming arrivals and today's departures,
// honouring each account's notification preferences.
type Reminders struct {
	store  ReminderStore
	mailer notify.Notifier
	logger *slog.Logger
	now    func() time.Time
}

func NewReminders(store ReminderStore, mailer notify.Notifier, logger *slog.Logger) *Reminders {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reminders{store: store, mailer: mailer, logger: logger, now: time.Now}
}

// Run sends every reminder due today and returns how many were sent.
func (r *Reminders) Run(ctx context.Context) (int, error) {
	today := model.Day(r.now().UTC())
	sent := 0

	batches := []struct {
		kind     string
		day      time.Time
		checkOut bool
	}{
		{notify.ReminderCheckInTomorrow, today.AddDate(0, 0, 1), false},
		{notify.ReminderCheckInToday, today, false},
		{notify.ReminderCheckOutToday, today, true},
	}
	for _, b := range batches {
		var (
			list []model.Reservation
			err  error
		)
		if b.checkOut {
			list, err = r.store.CompletedByCheckOut(ctx, b.day)
		} else {
			list, err = r.store.CompletedByCheckIn(ctx, b.day)
		}
		if err != nil {
			return sent, fmt.Errorf("list %s: %w", b.kind, err)
		}
		for _, res := range list {
			if r.send(ctx, b.kind, res) {
				sent++
			}
		}
	}
	return sent, nil
}

func (r *Reminders) send(ctx context.Context, kind string, res model.Reservation) bool {
	acc, err := r.store.AccountByID(ctx, res.UserID)
	if err != nil {
		r.logger.Warn("reminder: account lookup failed", "reservation_id", res.ID, "err", err)
		return false
	}
	wants := acc.NotifyCheckIn
	if kind == notify.ReminderCheckOutToday {
		wants = acc.NotifyCheckOut
	}
	if !wants || acc.Email == "" {
		return false
	}
	roomNumber := ""
	if room, err := r.store.RoomByID(ctx, res.RoomID); err == nil {
		roomNumber = room.Number
	}
	subject, body := notify.ReminderEmail(kind, acc, res, roomNumber)
	if !r.mailer.SendEmail(acc.Email, subject, body) {
		r.logger.Warn("reminder not delivered", "reservation_id", res.ID, "kind", kind)
		return false
	}
	return true
}

// Job adapts Run to the scheduler.
func (r *Reminders) Job() Job {
	return func(ctx context.Context) error {
		n, err := r.Run(ctx)
		if n > 0 {
			r.logger.Info("stay reminders sent", "count", n)
		}
		return err
	}
}
