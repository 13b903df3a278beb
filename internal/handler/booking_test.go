package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/resort-reservation/internal/model"
	"github.com/iliyamo/resort-reservation/internal/service"
)

const bookingBody = `{
	"check_in": "2025-06-01",
	"check_out": "2025-06-03",
	"guest": {
		"name": "Ana Gomez",
		"doc_type": "cc",
		"doc_number": "1020304050",
		"phone": "+573001234567",
		"email": "ana@example.com",
		"origin": "Bogota",
		"companion": {"name": "Luis Perez", "doc_type": "pa", "doc_number": "AB12345"}
	}
}`

func newBookingHandler() (*BookingHandler, *fakeBookings, *fakeAvailability, *fakeCalendars, *fakeTickets) {
	b, av, cal, tk := &fakeBookings{}, &fakeAvailability{}, &fakeCalendars{}, &fakeTickets{}
	h := NewBookingHandler(av, cal, b, tk)
	h.now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }
	return h, b, av, cal, tk
}

func TestAvailabilityDefaultsToOneNight(t *testing.T) {
	h, _, av, _, _ := newBookingHandler()
	av.free = true
	c, rec := newContext(t, http.MethodGet, "/v1/rooms/3/availability?check_in=2025-06-05", "", 0, "")
	require.NoError(t, h.Availability(withParams(c, "id", "3")))

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["available"])
	assert.Equal(t, "2025-06-06", body["check_out"])
	assert.Equal(t, uint64(3), av.roomID)
	assert.Equal(t, 1, model.NightsBetween(av.ci, av.co))
}

func TestAvailabilityRejectsBadDates(t *testing.T) {
	for name, target := range map[string]string{
		"missing check_in": "/v1/rooms/3/availability",
		"bad check_in":     "/v1/rooms/3/availability?check_in=06/05/2025",
		"bad check_out":    "/v1/rooms/3/availability?check_in=2025-06-05&check_out=tomorrow",
	} {
		t.Run(name, func(t *testing.T) {
			h, _, av, _, _ := newBookingHandler()
			c, rec := newContext(t, http.MethodGet, target, "", 0, "")
			require.NoError(t, h.Availability(withParams(c, "id", "3")))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "invalid_range", decode(t, rec)["error"])
			assert.Zero(t, av.calls)
		})
	}
}

func TestAvailabilityMapsServiceErrors(t *testing.T) {
	h, _, av, _, _ := newBookingHandler()
	av.err = service.ErrRoomNotFound
	c, rec := newContext(t, http.MethodGet, "/v1/rooms/9/availability?check_in=2025-06-05&check_out=2025-06-07", "", 0, "")
	require.NoError(t, h.Availability(withParams(c, "id", "9")))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "room_not_found", decode(t, rec)["error"])
}

func TestCalendarYear(t *testing.T) {
	t.Run("defaults to current year", func(t *testing.T) {
		h, _, _, cal, _ := newBookingHandler()
		c, rec := newContext(t, http.MethodGet, "/v1/rooms/3/calendar", "", 0, "")
		require.NoError(t, h.Calendar(withParams(c, "id", "3")))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 2026, cal.year)
	})
	t.Run("explicit year", func(t *testing.T) {
		h, _, _, cal, _ := newBookingHandler()
		c, rec := newContext(t, http.MethodGet, "/v1/rooms/3/calendar?year=2025", "", 0, "")
		require.NoError(t, h.Calendar(withParams(c, "id", "3")))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 2025, cal.year)
		assert.EqualValues(t, 3, decode(t, rec)["room_id"])
	})
	t.Run("garbage year", func(t *testing.T) {
		h, _, _, _, _ := newBookingHandler()
		c, rec := newContext(t, http.MethodGet, "/v1/rooms/3/calendar?year=twenty", "", 0, "")
		require.NoError(t, h.Calendar(withParams(c, "id", "3")))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCreateReservation(t *testing.T) {
	h, b, _, _, _ := newBookingHandler()
	b.view = service.ReservationView{
		Reservation:      model.Reservation{ID: 11, UserID: 7, RoomID: 3, Status: model.StatusActive},
		PaymentReference: "RES-11",
	}
	c, rec := newContext(t, http.MethodPost, "/v1/rooms/3/reservations", bookingBody, 7, model.RoleCustomer)
	require.NoError(t, h.Create(withParams(c, "id", "3")))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "RES-11", body["payment_reference"])
	assert.Equal(t, "ACTIVE", body["status"])

	assert.Equal(t, uint64(7), b.created.UserID)
	assert.Equal(t, uint64(3), b.created.RoomID)
	assert.Equal(t, 2, model.NightsBetween(b.created.CheckIn, b.created.CheckOut))
	assert.Equal(t, "CC", b.created.Guest.DocType)
	require.True(t, b.created.Guest.HasCompanion())
	assert.Equal(t, "PA", *b.created.Guest.CompanionDocType)
	assert.Nil(t, b.created.Guest.CompanionEmail)
}

func TestCreateReservationValidation(t *testing.T) {
	cases := map[string]struct {
		body string
		want string
	}{
		"bad phone": {
			body: `{"check_in":"2025-06-01","guest":{"name":"Ana","doc_type":"CC","doc_number":"12345","phone":"call me","email":"ana@example.com"}}`,
			want: "invalid field: phone",
		},
		"unknown document type": {
			body: `{"check_in":"2025-06-01","guest":{"name":"Ana","doc_type":"DNI","doc_number":"12345","phone":"3001234567","email":"ana@example.com"}}`,
			want: "invalid field: doc_type",
		},
		"bad email": {
			body: `{"check_in":"2025-06-01","guest":{"name":"Ana","doc_type":"CC","doc_number":"12345","phone":"3001234567","email":"nope"}}`,
			want: "invalid field: email",
		},
		"missing check_in": {
			body: `{"guest":{"name":"Ana","doc_type":"CC","doc_number":"12345","phone":"3001234567","email":"ana@example.com"}}`,
			want: "invalid field: check_in",
		},
		"malformed json": {
			body: `{"check_in":`,
			want: "invalid request body",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			h, b, _, _, _ := newBookingHandler()
			c, rec := newContext(t, http.MethodPost, "/v1/rooms/3/reservations", tc.body, 7, model.RoleCustomer)
			require.NoError(t, h.Create(withParams(c, "id", "3")))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tc.want, decode(t, rec)["error"])
			assert.Zero(t, b.created.RoomID)
		})
	}
}

func TestCreateReservationErrors(t *testing.T) {
	cases := []struct {
		err    error
		status int
		msg    string
	}{
		{service.ErrRoomUnavailable, http.StatusConflict, "room_unavailable"},
		{service.ErrInvalidDates, http.StatusBadRequest, "invalid_dates"},
		{service.ErrInvalidGuestDocument, http.StatusBadRequest, "invalid_guest_document"},
		{service.ErrCapacityExceeded, http.StatusBadRequest, "capacity_exceeded"},
		{service.ErrRoomNotFound, http.StatusNotFound, "room_not_found"},
	}
	for _, tc := range cases {
		t.Run(tc.msg, func(t *testing.T) {
			h, b, _, _, _ := newBookingHandler()
			b.err = tc.err
			c, rec := newContext(t, http.MethodPost, "/v1/rooms/3/reservations", bookingBody, 7, model.RoleCustomer)
			require.NoError(t, h.Create(withParams(c, "id", "3")))
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.msg, decode(t, rec)["error"])
		})
	}
}

func TestCreateReservationRequiresUser(t *testing.T) {
	h, _, _, _, _ := newBookingHandler()
	c, rec := newContext(t, http.MethodPost, "/v1/rooms/3/reservations", bookingBody, 0, "")
	require.NoError(t, h.Create(withParams(c, "id", "3")))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetPassesAdminActor(t *testing.T) {
	h, b, _, _, _ := newBookingHandler()
	b.view = service.ReservationView{Reservation: model.Reservation{ID: 4, UserID: 8}}
	c, rec := newContext(t, http.MethodGet, "/v1/reservations/4", "", 1, model.RoleAdmin)
	require.NoError(t, h.Get(withParams(c, "id", "4")))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.Actor{UserID: 1, Admin: true}, b.actor)
}

func TestGetForbidden(t *testing.T) {
	h, b, _, _, _ := newBookingHandler()
	b.err = service.ErrForbidden
	c, rec := newContext(t, http.MethodGet, "/v1/reservations/4", "", 2, model.RoleCustomer)
	require.NoError(t, h.Get(withParams(c, "id", "4")))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCancel(t *testing.T) {
	h, b, _, _, _ := newBookingHandler()
	c, rec := newContext(t, http.MethodDelete, "/v1/reservations/4", "", 7, model.RoleCustomer)
	require.NoError(t, h.Cancel(withParams(c, "id", "4")))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(4), b.canceled)

	b.err = service.ErrInvalidTransition
	c, rec = newContext(t, http.MethodDelete, "/v1/reservations/4", "", 7, model.RoleCustomer)
	require.NoError(t, h.Cancel(withParams(c, "id", "4")))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "invalid_transition", decode(t, rec)["error"])
}

func TestInvalidPathID(t *testing.T) {
	h, _, _, _, _ := newBookingHandler()
	c, rec := newContext(t, http.MethodGet, "/v1/reservations/x", "", 7, model.RoleCustomer)
	require.NoError(t, h.Get(withParams(c, "id", "x")))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMine(t *testing.T) {
	h, b, _, _, _ := newBookingHandler()
	b.list = []service.ReservationView{{Reservation: model.Reservation{ID: 1}}, {Reservation: model.Reservation{ID: 2}}}
	c, rec := newContext(t, http.MethodGet, "/v1/my-reservations", "", 7, model.RoleCustomer)
	require.NoError(t, h.Mine(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["items"], 2)
}

func TestTicketDownload(t *testing.T) {
	h, _, _, _, tk := newBookingHandler()
	tk.ticket = model.Ticket{Number: "HT20250601120000-0001"}
	tk.pdf = []byte("%PDF-1.3 test")
	c, rec := newContext(t, http.MethodGet, "/v1/reservations/4/ticket", "", 7, model.RoleCustomer)
	require.NoError(t, h.Ticket(withParams(c, "id", "4")))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "HT20250601120000-0001.pdf")
	assert.Equal(t, "%PDF-1.3 test", rec.Body.String())
}

func TestTicketNotEligible(t *testing.T) {
	h, _, _, _, tk := newBookingHandler()
	tk.err = service.ErrTicketNotEligible
	c, rec := newContext(t, http.MethodGet, "/v1/reservations/4/ticket", "", 7, model.RoleCustomer)
	require.NoError(t, h.Ticket(withParams(c, "id", "4")))
	assert.Equal(t, http.StatusConflict, rec.Code)
}
