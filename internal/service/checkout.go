package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/iliyamo/resort-reservation/internal/model"
	"github.com/iliyamo/resort-reservation/internal/payment"
	"github.com/iliyamo/resort-reservation/internal/repository"
)

// CheckoutService starts provider payments for reservations.
type CheckoutService struct {
	store     repository.Querier
	providers *payment.Registry
	baseURL   string
	logger    *slog.Logger
}

// NewCheckoutService builds the service.  baseURL is the public origin the
// provider return and webhook URLs are derived from.
func NewCheckoutService(store repository.Querier, providers *payment.Registry, baseURL string, logger *slog.Logger) *CheckoutService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CheckoutService{store: store, providers: providers, baseURL: strings.TrimRight(baseURL, "/"), logger: logger}
}

// Start returns what the guest needs to pay reservationID through
// provider.  Only the owner may pay, and only while the reservation is
// Active.
func (s *CheckoutService) Start(ctx context.Context, reservationID uint64, provider string, actor Actor) (payment.Checkout, error) {
	p, err := s.providers.Lookup(provider)
	if err != nil {
		return payment.Checkout{}, err
	}
	initiator, ok := p.(payment.Initiator)
	if !ok {
		return payment.Checkout{}, fmt.Errorf("%w: %s cannot start payments", payment.ErrUnknownProvider, p.Name())
	}

	r, err := s.store.ReservationByID(ctx, reservationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return payment.Checkout{}, ErrReservationNotFound
		}
		return payment.Checkout{}, fmt.Errorf("load reservation: %w", err)
	}
	if r.UserID != actor.UserID {
		return payment.Checkout{}, ErrForbidden
	}
	if r.Status != model.StatusActive {
		return payment.Checkout{}, ErrNotPayable
	}

	ref := payment.Reference(r.ID)
	order := payment.CheckoutOrder{
		ReservationID: r.ID,
		AmountCents:   r.TotalCents,
		Currency:      payment.DefaultCurrency,
		Title:         fmt.Sprintf("Habitación %d (%s)", r.RoomID, ref),
		Description:   "Reserva " + ref,
	}
	if room, err := s.store.RoomByID(ctx, r.RoomID); err == nil {
		order.Title = fmt.Sprintf("Habitación %s (%s)", room.Name, ref)
	}
	if g, err := s.store.GuestDetailsByReservation(ctx, r.ID); err == nil {
		order.BuyerEmail = g.Email
	}

	urls := payment.CheckoutURLs{
		Return:  s.baseURL + "/payment/return/" + p.Name(),
		Webhook: s.baseURL + "/payment/webhook/" + p.Name(),
	}
	co, err := initiator.StartCheckout(ctx, order, urls)
	if err != nil {
		s.logger.Warn("checkout failed", "provider", p.Name(), "reservation_id", r.ID, "err", err)
		if errors.Is(err, payment.ErrProviderTimeout) {
			return payment.Checkout{}, err
		}
		return payment.Checkout{}, fmt.Errorf("%w: %v", ErrPaymentUnavailable, err)
	}
	s.logger.Info("checkout started", "provider", p.Name(), "reservation_id", r.ID, "amount_cents", r.TotalCents)
	return co, nil
}
