package handler

import (
	"context"
	"io"
	"mime"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/resort-reservation/internal/payment"
	"github.com/iliyamo/resort-reservation/internal/service"
)

const maxCallbackBody = 1 << 20

// ProviderEvents is the reconciliation gateway.
type ProviderEvents interface {
	HandleProviderEvent(ctx context.Context, provider string, req *payment.Request) (service.Result, error)
}

// Checkouts starts provider payments.
type Checkouts interface {
	Start(ctx context.Context, reservationID uint64, provider string, actor service.Actor) (payment.Checkout, error)
}

// PaymentHandler receives provider webhooks and browser returns and
// starts checkouts.  The callback routes are not authenticated with a
// JWT; webhooks carry provider signatures.
type PaymentHandler struct {
	Gateway   ProviderEvents
	Checkouts Checkouts
	Errors    *ErrorMapper
}

// NewPaymentHandler wires the payment routes.  checkouts may be nil when
// payments are only reconciled here.
func NewPaymentHandler(gw ProviderEvents, checkouts Checkouts) *PaymentHandler {
	return &PaymentHandler{Gateway: gw, Checkouts: checkouts, Errors: DefaultErrors()}
}

// Checkout handles POST /v1/reservations/:id/checkout/:provider.  It
// answers the provider redirect URL and the parameters of its checkout
// widget.
func (h *PaymentHandler) Checkout(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	co, err := h.Checkouts.Start(c.Request().Context(), id, c.Param("provider"), actor)
	if err != nil {
		return h.Errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, co)
}

// Webhook handles POST /payment/webhook/:provider.  Events that are not
// about one of our reservations still answer 200 so providers stop
// retrying them.
func (h *PaymentHandler) Webhook(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxCallbackBody))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable body"})
	}
	req := &payment.Request{
		Kind:   payment.Webhook,
		Header: c.Request().Header,
		Query:  c.QueryParams(),
		Form:   formValues(c.Request().Header.Get(echo.HeaderContentType), body),
		Body:   body,
	}
	if _, err := h.Gateway.HandleProviderEvent(c.Request().Context(), c.Param("provider"), req); err != nil {
		return h.Errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"ok": true})
}

// Return handles GET /payment/return/:provider, the redirect that brings
// the guest back from the checkout page.
func (h *PaymentHandler) Return(c echo.Context) error {
	req := &payment.Request{
		Kind:   payment.Return,
		Header: c.Request().Header,
		Query:  c.QueryParams(),
	}
	res, err := h.Gateway.HandleProviderEvent(c.Request().Context(), c.Param("provider"), req)
	if err != nil {
		return h.Errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"reservation_id": res.ReservationID,
		"status":         res.Status,
		"outcome":        res.Outcome,
	})
}

// formValues decodes an urlencoded body.  Other content types yield nil.
func formValues(contentType string, body []byte) url.Values {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil || mt != echo.MIMEApplicationForm {
		return nil
	}
	vals, err := url.ParseQuery(string(body))
	if err != nil {
		return nil
	}
	return vals
}
