package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/iliyamo/resort-reservation/internal/payment"
)

// PaymentApplier applies a normalized payment status to a reservation.
type PaymentApplier interface {
	ApplyPaymentStatus(ctx context.Context, reservationID uint64, status payment.Status, source string) (Transition, error)
}

// Result describes how a provider event was handled.
type Result struct {
	Provider      string         `json:"provider"`
	ReservationID uint64         `json:"reservation_id,omitempty"`
	Status        payment.Status `json:"status,omitempty"`
	Outcome       Outcome        `json:"outcome"`
	Signed        bool           `json:"-"`
	Verified      bool           `json:"-"`
}

// ChargeLookup reports what a reservation is expected to be paid with.
// Lifecycle implements it.
type ChargeLookup interface {
	ExpectedCharge(ctx context.Context, reservationID uint64) (cents int64, currency string, err error)
}

// Gateway authenticates provider callbacks and hands them to the
// reservation lifecycle.
type Gateway struct {
	providers     *payment.Registry
	lifecycle     PaymentApplier
	charges       ChargeLookup
	verifyTimeout time.Duration
	logger        *slog.Logger
}

// NewGateway builds the gateway.  When lifecycle also implements
// ChargeLookup, approvals that report an amount are checked against the
// reservation total.
func NewGateway(providers *payment.Registry, lifecycle PaymentApplier, verifyTimeout time.Duration, logger *slog.Logger) *Gateway {
	if verifyTimeout <= 0 {
		verifyTimeout = 8 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	charges, _ := lifecycle.(ChargeLookup)
	return &Gateway{providers: providers, lifecycle: lifecycle, charges: charges, verifyTimeout: verifyTimeout, logger: logger}
}

// HandleProviderEvent processes one webhook delivery or browser return.
//
// Unsigned webhooks are rejected with payment.ErrInvalidSignature.
// Traffic that is not about one of our reservations is answered with an
// ignored outcome and no error.  When the provider can look the
// transaction up, the looked-up values win over the callback.  A failed
// lookup is an error for webhooks that depend on it, so the provider
// retries, and turns everything else into pending.
func (g *Gateway) HandleProviderEvent(ctx context.Context, provider string, req *payment.Request) (Result, error) {
	p, err := g.providers.Lookup(provider)
	if err != nil {
		return Result{Provider: provider}, err
	}
	res := Result{Provider: p.Name(), Outcome: OutcomeIgnored}
	log := g.logger.With("provider", p.Name(), "kind", req.Kind.String())

	res.Signed = p.VerifyAuthenticity(req)
	if req.Kind == payment.Webhook && !res.Signed {
		log.Warn("payment webhook rejected: bad signature")
		return res, payment.ErrInvalidSignature
	}

	cb, err := p.ParseCallback(ctx, req)
	if errors.Is(err, payment.ErrUnrecognizedReference) {
		log.Info("payment event ignored: unrecognized reference")
		return res, nil
	}
	if err != nil {
		return res, err
	}

	verifier, canVerify := p.(payment.Verifier)
	switch {
	case cb.NeedsLookup || (!res.Signed && canVerify && cb.TransactionID != ""):
		if !canVerify {
			return res, fmt.Errorf("%s: lookup required but not supported", p.Name())
		}
		vctx, cancel := context.WithTimeout(ctx, g.verifyTimeout)
		verified, verr := verifier.VerifyTransaction(vctx, cb.TransactionID)
		cancel()
		switch {
		case verr == nil:
			if cb.ReservationID != 0 && (verified.Status != cb.Status || verified.ReservationID != cb.ReservationID) {
				log.Warn("payment callback disagrees with provider, using provider values",
					"transaction_id", cb.TransactionID,
					"callback_status", cb.Status, "verified_status", verified.Status,
					"callback_reservation_id", cb.ReservationID, "verified_reservation_id", verified.ReservationID)
			}
			cb.ReservationID, cb.Status, cb.Reference = verified.ReservationID, verified.Status, verified.Reference
			cb.AmountCents, cb.Currency = verified.AmountCents, verified.Currency
			res.Verified = true
		case errors.Is(verr, payment.ErrUnrecognizedReference):
			log.Info("payment event ignored: verified reference not ours", "transaction_id", cb.TransactionID)
			return res, nil
		case cb.NeedsLookup && req.Kind == payment.Webhook:
			log.Warn("payment lookup failed", "transaction_id", cb.TransactionID, "err", verr)
			return res, verr
		default:
			log.Warn("payment lookup failed, treating as pending", "transaction_id", cb.TransactionID, "err", verr)
			cb.Status = payment.Pending
		}
	case !res.Signed:
		cb.Status = payment.Pending
	}

	res.ReservationID, res.Status = cb.ReservationID, cb.Status
	if cb.ReservationID == 0 {
		return res, nil
	}

	if cb.Status == payment.Approved {
		ok, err := g.chargeMatches(ctx, cb)
		if errors.Is(err, ErrReservationNotFound) {
			log.Info("payment event ignored: unknown reservation", "reservation_id", cb.ReservationID)
			return res, nil
		}
		if err != nil {
			return res, err
		}
		if !ok {
			log.Warn("payment amount does not match reservation, ignored", "reservation_id", cb.ReservationID,
				"amount_cents", cb.AmountCents, "currency", cb.Currency, "anomaly", true)
			res.Outcome = OutcomeAnomaly
			return res, nil
		}
	}

	tr, err := g.lifecycle.ApplyPaymentStatus(ctx, cb.ReservationID, cb.Status, p.Name())
	if errors.Is(err, ErrReservationNotFound) {
		log.Info("payment event ignored: unknown reservation", "reservation_id", cb.ReservationID)
		return res, nil
	}
	if err != nil {
		return res, err
	}
	res.Outcome = tr.Outcome
	return res, nil
}

// chargeMatches compares the charged amount against the reservation
// total.  Callbacks without an amount pass.
func (g *Gateway) chargeMatches(ctx context.Context, cb payment.Callback) (bool, error) {
	if g.charges == nil || cb.AmountCents == 0 {
		return true, nil
	}
	want, currency, err := g.charges.ExpectedCharge(ctx, cb.ReservationID)
	if err != nil {
		return false, err
	}
	if cb.AmountCents != want {
		return false, nil
	}
	return cb.Currency == "" || strings.EqualFold(cb.Currency, currency), nil
}
