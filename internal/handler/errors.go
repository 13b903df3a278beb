package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/resort-reservation/internal/cart"
	"github.com/iliyamo/resort-reservation/internal/logging"
	"github.com/iliyamo/resort-reservation/internal/payment"
	"github.com/iliyamo/resort-reservation/internal/repository"
	"github.com/iliyamo/resort-reservation/internal/service"
)

// HTTPErrorInfo is the status and client message for an error.
type HTTPErrorInfo struct {
	Status  int
	Message string
}

// ErrorMapping binds one sentinel error to a response.
type ErrorMapping struct {
	Error   error
	Status  int
	Message string
}

// ErrorMapper maps domain errors to HTTP status codes and messages.
// Mappings are checked in registration order with errors.Is, so wrapped
// sentinels match too.
type ErrorMapper struct {
	mappings       []ErrorMapping
	defaultStatus  int
	defaultMessage string
	logger         *slog.Logger
}

// NewErrorMapper returns an empty mapper answering 500 for anything
// unmapped.
func NewErrorMapper() *ErrorMapper {
	return &ErrorMapper{
		defaultStatus:  http.StatusInternalServerError,
		defaultMessage: "internal server error",
	}
}

// WithMapping adds a mapping and returns the mapper for chaining.
func (m *ErrorMapper) WithMapping(err error, status int, message string) *ErrorMapper {
	m.mappings = append(m.mappings, ErrorMapping{Error: err, Status: status, Message: message})
	return m
}

// WithLogger sets the logger server errors are reported to.  Without
// one, slog.Default is used.
func (m *ErrorMapper) WithLogger(l *slog.Logger) *ErrorMapper {
	m.logger = l
	return m
}

// WithDefault sets the response for unmatched errors.
func (m *ErrorMapper) WithDefault(status int, message string) *ErrorMapper {
	m.defaultStatus = status
	m.defaultMessage = message
	return m
}

// Map converts an error to a status and message.  Registered mappings win
// over context errors so a provider timeout keeps its own status.
func (m *ErrorMapper) Map(err error) HTTPErrorInfo {
	if err == nil {
		return HTTPErrorInfo{Status: http.StatusOK}
	}
	for _, mapping := range m.mappings {
		if errors.Is(err, mapping.Error) {
			return HTTPErrorInfo{Status: mapping.Status, Message: mapping.Message}
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return HTTPErrorInfo{Status: http.StatusGatewayTimeout, Message: "request timeout"}
	}
	if errors.Is(err, context.Canceled) {
		return HTTPErrorInfo{Status: http.StatusServiceUnavailable, Message: "request cancelled"}
	}
	return HTTPErrorInfo{Status: m.defaultStatus, Message: m.defaultMessage}
}

// Respond writes err as a JSON error body.
func (m *ErrorMapper) Respond(c echo.Context, err error) error {
	info := m.Map(err)
	if info.Status >= http.StatusInternalServerError {
		logging.OrDefault(m.logger).ErrorContext(c.Request().Context(), "request failed",
			"method", c.Request().Method,
			"path", c.Path(),
			"status", info.Status,
			"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			"err", err)
	}
	return c.JSON(info.Status, echo.Map{"error": info.Message})
}

// DefaultErrors is the mapping shared by every handler in this package.
func DefaultErrors() *ErrorMapper {
	return NewErrorMapper().
		// booking
		WithMapping(service.ErrInvalidRange, http.StatusBadRequest, "invalid_range").
		WithMapping(service.ErrInvalidDates, http.StatusBadRequest, "invalid_dates").
		WithMapping(service.ErrInvalidGuestDocument, http.StatusBadRequest, "invalid_guest_document").
		WithMapping(service.ErrCapacityExceeded, http.StatusBadRequest, "capacity_exceeded").
		WithMapping(service.ErrRoomUnavailable, http.StatusConflict, "room_unavailable").
		WithMapping(service.ErrInvalidTransition, http.StatusConflict, "invalid_transition").
		WithMapping(service.ErrTicketNotEligible, http.StatusConflict, "ticket_not_available").
		WithMapping(service.ErrRoomNotFound, http.StatusNotFound, "room_not_found").
		WithMapping(service.ErrReservationNotFound, http.StatusNotFound, "reservation_not_found").
		WithMapping(service.ErrForbidden, http.StatusForbidden, "forbidden").
		WithMapping(service.ErrPersistenceConflict, http.StatusConflict, "conflict").
		WithMapping(service.ErrNotPayable, http.StatusConflict, "not_payable").
		WithMapping(service.ErrPaymentUnavailable, http.StatusBadGateway, "payment_unavailable").
		// restaurant
		WithMapping(service.ErrEmptyCart, http.StatusBadRequest, "empty_cart").
		WithMapping(service.ErrInvalidOrder, http.StatusBadRequest, "invalid_order").
		WithMapping(service.ErrDishUnavailable, http.StatusConflict, "dish_unavailable").
		WithMapping(service.ErrOrderNotFound, http.StatusNotFound, "order_not_found").
		WithMapping(cart.ErrInvalidQuantity, http.StatusBadRequest, "invalid_quantity").
		WithMapping(cart.ErrInvalidPartySize, http.StatusBadRequest, "invalid_party_size").
		WithMapping(cart.ErrItemNotFound, http.StatusNotFound, "item_not_found").
		WithMapping(cart.ErrUnavailable, http.StatusServiceUnavailable, "cart_unavailable").
		// payments
		WithMapping(payment.ErrInvalidSignature, http.StatusBadRequest, "invalid_signature").
		WithMapping(payment.ErrMalformedCallback, http.StatusBadRequest, "malformed_callback").
		WithMapping(payment.ErrUnknownProvider, http.StatusNotFound, "unknown_provider").
		WithMapping(payment.ErrProviderTimeout, http.StatusServiceUnavailable, "provider_timeout").
		WithMapping(repository.ErrInUse, http.StatusConflict, "in_use").
		WithMapping(repository.ErrNotFound, http.StatusNotFound, "not_found")
}
