package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/resort-reservation/internal/logging"
	"github.com/iliyamo/resort-reservation/internal/model"
)

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := model.ParseDate(s)
	require.NoError(t, err)
	return d
}

func validGuest() model.GuestDetails {
	return model.GuestDetails{
		Name:      "Laura Gómez",
		DocType:   model.DocCitizenID,
		DocNumber: "10203040",
		Phone:     "+573001112233",
		Email:     "laura@example.com",
		Origin:    "Medellín",
	}
}

type fixture struct {
	store  *memStore
	files  *memFiles
	mailer *fakeMailer
	events *recordingPublisher
	issuer *TicketIssuer
	life   *Lifecycle
	room   model.Room
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  newMemStore(),
		files:  newMemFiles(),
		mailer: &fakeMailer{ok: true},
		events: &recordingPublisher{},
	}
	f.room = f.store.addRoom(model.Room{
		Name:             "Suite Mar",
		Number:           "101",
		Plan:             model.PlanGold,
		Capacity:         2,
		NightlyRateCents: 20000,
		State:            model.RoomAvailable,
	})
	f.store.putAccount(model.Account{ID: 7, Name: "Laura", Email: "laura@example.com"})
	f.issuer = NewTicketIssuer(f.store, NewNumberGenerator(HotelTicketPrefix), TicketDeps{
		Renderer: fakeRenderer{},
		Files:    f.files,
		Mailer:   f.mailer,
		Events:   f.events,
		Logger:   logging.Discard(),
	})
	f.life = NewLifecycle(f.store, f.issuer, f.events, logging.Discard())
	return f
}

// book creates an Active reservation for user 7 through the lifecycle.
func (f *fixture) book(t *testing.T, checkIn, checkOut string) ReservationView {
	t.Helper()
	v, err := f.life.CreateReservation(context.Background(), BookingRequest{
		UserID:   7,
		RoomID:   f.room.ID,
		CheckIn:  date(t, checkIn),
		CheckOut: date(t, checkOut),
		Guest:    validGuest(),
	})
	require.NoError(t, err)
	return v
}
