package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/resort-reservation/internal/cart"
	"github.com/iliyamo/resort-reservation/internal/middleware"
	"github.com/iliyamo/resort-reservation/internal/model"
	"github.com/iliyamo/resort-reservation/internal/payment"
	"github.com/iliyamo/resort-reservation/internal/service"
)

// newContext builds an echo context with the validator installed.  A
// non-zero user is stored the way JWTAuth stores decoded claims.
func newContext(t *testing.T, method, target, body string, user uint64, role string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	e.Validator = NewRequestValidator()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if user != 0 {
		c.Set(middleware.UserIDKey, float64(user))
		c.Set(middleware.RoleKey, role)
	}
	return c, rec
}

func withParams(c echo.Context, kv ...string) echo.Context {
	var names, values []string
	for i := 0; i+1 < len(kv); i += 2 {
		names = append(names, kv[i])
		values = append(values, kv[i+1])
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
	return c
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m), rec.Body.String())
	return m
}

type fakeBookings struct {
	created  service.BookingRequest
	view     service.ReservationView
	list     []service.ReservationView
	err      error
	actor    service.Actor
	canceled uint64
}

func (f *fakeBookings) CreateReservation(_ context.Context, req service.BookingRequest) (service.ReservationView, error) {
	f.created = req
	return f.view, f.err
}

func (f *fakeBookings) Get(_ context.Context, _ uint64, actor service.Actor) (service.ReservationView, error) {
	f.actor = actor
	return f.view, f.err
}

func (f *fakeBookings) Cancel(_ context.Context, id uint64, actor service.Actor) (model.Reservation, error) {
	f.actor, f.canceled = actor, id
	return f.view.Reservation, f.err
}

func (f *fakeBookings) ListForUser(context.Context, uint64) ([]service.ReservationView, error) {
	return f.list, f.err
}

type fakeAvailability struct {
	free   bool
	err    error
	ci, co time.Time
	roomID uint64
	calls  int
}

func (f *fakeAvailability) IsAvailable(_ context.Context, roomID uint64, ci, co time.Time) (bool, error) {
	f.calls++
	f.roomID, f.ci, f.co = roomID, ci, co
	return f.free, f.err
}

type fakeCalendars struct {
	year int
	err  error
}

func (f *fakeCalendars) DayStatuses(_ context.Context, roomID uint64, year int) (service.RoomCalendar, error) {
	f.year = year
	return service.RoomCalendar{RoomID: roomID, Year: year}, f.err
}

type fakeTickets struct {
	ticket model.Ticket
	pdf    []byte
	err    error
}

func (f *fakeTickets) Document(context.Context, uint64, service.Actor) (model.Ticket, []byte, error) {
	return f.ticket, f.pdf, f.err
}

type fakeGateway struct {
	provider string
	req      *payment.Request
	res      service.Result
	err      error
}

func (f *fakeGateway) HandleProviderEvent(_ context.Context, provider string, req *payment.Request) (service.Result, error) {
	f.provider, f.req = provider, req
	return f.res, f.err
}

type fakeRestaurant struct {
	state   cart.CartState
	err     error
	session string
	order   model.RestaurantOrder
	at      time.Time
	cleared bool
}

func (f *fakeRestaurant) Menu(context.Context) ([]model.Dish, error) {
	return []model.Dish{{ID: 1, Name: "Ajiaco", PriceCents: 3200000, Available: true}}, f.err
}

func (f *fakeRestaurant) Cart(_ context.Context, s string) (cart.CartState, error) {
	f.session = s
	return f.state, f.err
}

func (f *fakeRestaurant) AddItem(_ context.Context, s string, dishID uint64, q int) (cart.CartState, error) {
	f.session = s
	if f.err != nil {
		return cart.CartState{}, f.err
	}
	err := f.state.Add(cart.CartItem{DishID: dishID, Name: "Dish", UnitPriceCents: 1000, Quantity: q})
	return f.state, err
}

func (f *fakeRestaurant) SetQuantity(_ context.Context, s string, dishID uint64, q int) (cart.CartState, error) {
	f.session = s
	err := f.state.SetQuantity(dishID, q)
	return f.state, err
}

func (f *fakeRestaurant) RemoveItem(_ context.Context, s string, dishID uint64) (cart.CartState, error) {
	f.session = s
	if !f.state.Remove(dishID) {
		return f.state, cart.ErrItemNotFound
	}
	return f.state, nil
}

func (f *fakeRestaurant) SetPartySize(_ context.Context, s string, n int) (cart.CartState, error) {
	f.session = s
	err := f.state.SetPartySize(n)
	return f.state, err
}

func (f *fakeRestaurant) ClearCart(_ context.Context, s string) error {
	f.session, f.cleared = s, true
	return f.err
}

func (f *fakeRestaurant) Checkout(_ context.Context, _ uint64, s string, at time.Time) (model.RestaurantOrder, error) {
	f.session, f.at = s, at
	return f.order, f.err
}

func (f *fakeRestaurant) OrderDocument(context.Context, uint64, service.Actor) (model.RestaurantOrder, []byte, error) {
	return f.order, []byte("%PDF-1.3"), f.err
}

type fakeCheckouts struct {
	id       uint64
	provider string
	actor    service.Actor
	out      payment.Checkout
	err      error
}

func (f *fakeCheckouts) Start(_ context.Context, id uint64, provider string, actor service.Actor) (payment.Checkout, error) {
	f.id, f.provider, f.actor = id, provider, actor
	return f.out, f.err
}
