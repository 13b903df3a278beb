package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/resort-reservation/internal/model"
	"github.com/iliyamo/resort-reservation/internal/service"
)

// Bookings is the part of the reservation lifecycle the booking routes use.
type Bookings interface {
	CreateReservation(ctx context.Context, req service.BookingRequest) (service.ReservationView, error)
	Get(ctx context.Context, reservationID uint64, actor service.Actor) (service.ReservationView, error)
	Cancel(ctx context.Context, reservationID uint64, actor service.Actor) (model.Reservation, error)
	ListForUser(ctx context.Context, userID uint64) ([]service.ReservationView, error)
}

// AvailabilityChecker answers the public availability query.
type AvailabilityChecker interface {
	IsAvailable(ctx context.Context, roomID uint64, checkIn, checkOut time.Time) (bool, error)
}

// Calendars builds room calendars.
type Calendars interface {
	DayStatuses(ctx context.Context, roomID uint64, year int) (service.RoomCalendar, error)
}

// TicketDocuments returns a reservation's ticket PDF.
type TicketDocuments interface {
	Document(ctx context.Context, reservationID uint64, actor service.Actor) (model.Ticket, []byte, error)
}

// BookingHandler serves the room availability, calendar and reservation
// routes.  The reservation routes assume JWTAuth and RequireRole ran first.
type BookingHandler struct {
	Checker      AvailabilityChecker
	Calendars    Calendars
	Reservations Bookings
	Tickets      TicketDocuments
	Errors       *ErrorMapper
	now          func() time.Time
}

// NewBookingHandler wires the booking routes to their services.
func NewBookingHandler(av AvailabilityChecker, cal Calendars, res Bookings, tickets TicketDocuments) *BookingHandler {
	return &BookingHandler{
		Checker:      av,
		Calendars:    cal,
		Reservations: res,
		Tickets:      tickets,
		Errors:       DefaultErrors(),
		now:          time.Now,
	}
}

type companionRequest struct {
	Name      string `json:"name" validate:"required,max=120"`
	DocType   string `json:"doc_type" validate:"required,doctype"`
	DocNumber string `json:"doc_number" validate:"required"`
	Phone     string `json:"phone" validate:"omitempty,phone"`
	Email     string `json:"email" validate:"omitempty,email"`
	Origin    string `json:"origin" validate:"max=120"`
}

type guestRequest struct {
	Name      string            `json:"name" validate:"required,max=120"`
	DocType   string            `json:"doc_type" validate:"required,doctype"`
	DocNumber string            `json:"doc_number" validate:"required"`
	Phone     string            `json:"phone" validate:"required,phone"`
	Email     string            `json:"email" validate:"required,email"`
	Origin    string            `json:"origin" validate:"max=120"`
	Companion *companionRequest `json:"companion"`
}

type createReservationRequest struct {
	CheckIn  string       `json:"check_in" validate:"required"`
	CheckOut string       `json:"check_out"`
	Guest    guestRequest `json:"guest"`
}

func (g guestRequest) details() model.GuestDetails {
	d := model.GuestDetails{
		Name:      g.Name,
		DocType:   strings.ToUpper(g.DocType),
		DocNumber: g.DocNumber,
		Phone:     g.Phone,
		Email:     g.Email,
		Origin:    g.Origin,
	}
	if c := g.Companion; c != nil {
		docType := strings.ToUpper(c.DocType)
		d.CompanionName = &c.Name
		d.CompanionDocType = &docType
		d.CompanionDocNumber = &c.DocNumber
		d.CompanionPhone = optional(c.Phone)
		d.CompanionEmail = optional(c.Email)
		d.CompanionOrigin = optional(c.Origin)
	}
	return d
}

func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

// Availability handles GET /v1/rooms/:id/availability?check_in=&check_out=.
// A missing check_out means a single night.
func (h *BookingHandler) Availability(c echo.Context) error {
	roomID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}
	ci, err := model.ParseDate(c.QueryParam("check_in"))
	if err != nil {
		return h.Errors.Respond(c, service.ErrInvalidRange)
	}
	co := ci.AddDate(0, 0, 1)
	if raw := c.QueryParam("check_out"); raw != "" {
		if co, err = model.ParseDate(raw); err != nil {
			return h.Errors.Respond(c, service.ErrInvalidRange)
		}
	}
	free, err := h.Checker.IsAvailable(c.Request().Context(), roomID, ci, co)
	if err != nil {
		return h.Errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"room_id":   roomID,
		"check_in":  ci.Format(model.DateLayout),
		"check_out": co.Format(model.DateLayout),
		"available": free,
	})
}

// Calendar handles GET /v1/rooms/:id/calendar?year=YYYY.
func (h *BookingHandler) Calendar(c echo.Context) error {
	roomID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}
	year := h.now().UTC().Year()
	if raw := c.QueryParam("year"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return h.Errors.Respond(c, service.ErrInvalidRange)
		}
		year = n
	}
	cal, err := h.Calendars.DayStatuses(c.Request().Context(), roomID, year)
	if err != nil {
		return h.Errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, cal)
}

// Create handles POST /v1/rooms/:id/reservations.
func (h *BookingHandler) Create(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	roomID, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid room id"})
	}
	var body createReservationRequest
	if msg, ok := bindAndValidate(c, &body); !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	ci, err := model.ParseDate(body.CheckIn)
	if err != nil {
		return h.Errors.Respond(c, service.ErrInvalidDates)
	}
	var co time.Time
	if body.CheckOut != "" {
		if co, err = model.ParseDate(body.CheckOut); err != nil {
			return h.Errors.Respond(c, service.ErrInvalidDates)
		}
	}
	view, err := h.Reservations.CreateReservation(c.Request().Context(), service.BookingRequest{
		UserID:   userID,
		RoomID:   roomID,
		CheckIn:  ci,
		CheckOut: co,
		Guest:    body.Guest.details(),
	})
	if err != nil {
		return h.Errors.Respond(c, err)
	}
	return c.JSON(http.StatusCreated, view)
}

// Get handles GET /v1/reservations/:id.
func (h *BookingHandler) Get(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	view, err := h.Reservations.Get(c.Request().Context(), id, actor)
	if err != nil {
		return h.Errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

// Cancel handles DELETE /v1/reservations/:id.  Only ACTIVE reservations
// can be cancelled.
func (h *BookingHandler) Cancel(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	r, err := h.Reservations.Cancel(c.Request().Context(), id, actor)
	if err != nil {
		return h.Errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

// Mine handles GET /v1/my-reservations.
func (h *BookingHandler) Mine(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	list, err := h.Reservations.ListForUser(c.Request().Context(), userID)
	if err != nil {
		return h.Errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": list})
}

// Ticket handles GET /v1/reservations/:id/ticket and streams the PDF.
func (h *BookingHandler) Ticket(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	t, pdf, err := h.Tickets.Document(c.Request().Context(), id, actor)
	if err != nil {
		return h.Errors.Respond(c, err)
	}
	return sendPDF(c, t.Number, pdf)
}

func sendPDF(c echo.Context, name string, pdf []byte) error {
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+name+`.pdf"`)
	return c.Blob(http.StatusOK, "application/pdf", pdf)
}
