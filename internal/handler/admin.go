package handler // back office handlers for rooms, dishes and order statuses

import (
	"context"  // Catalog signatures
	"net/http" // status codes
	"strings"  // trimming and case folding of inputs

	"github.com/labstack/echo/v4" // request context

	"github.com/iliyamo/resort-reservation/internal/model" // room, dish and order types
)

// Catalog is the persistence used by the back office.  *repository.SQLStore
// implements it.
type Catalog interface {
	ListRooms(ctx context.Context) ([]model.Room, error)
	RoomByID(ctx context.Context, id uint64) (model.Room, error)
	InsertRoom(ctx context.Context, r *model.Room) error
	UpdateRoom(ctx context.Context, r *model.Room) error
	RoomNumberTaken(ctx context.Context, number string, excludeID uint64) (bool, error)
	DeleteRoom(ctx context.Context, id uint64) error

	ListDishes(ctx context.Context, onlyAvailable bool) ([]model.Dish, error)
	DishByID(ctx context.Context, id uint64) (model.Dish, error)
	InsertDish(ctx context.Context, d *model.Dish) error
	UpdateDish(ctx context.Context, d *model.Dish) error
	DeleteDish(ctx context.Context, id uint64) error

	ListReservations(ctx context.Context, status model.ReservationStatus) ([]model.Reservation, error)
	ListRestaurantOrders(ctx context.Context, status model.OrderStatus) ([]model.RestaurantOrder, error)
	SetRestaurantOrderStatus(ctx context.Context, id uint64, status model.OrderStatus) error
}

// AdminHandler bundles the back office endpoints.  Reservation status is
// not writable here; cancellations go through the booking routes.
type AdminHandler struct {
	Catalog Catalog
	Errors  *ErrorMapper
	// MenuChanged runs after a dish write so cached menus can be dropped.
	MenuChanged func(ctx context.Context)
}

// NewAdminHandler panics on a nil catalog.
func NewAdminHandler(catalog Catalog, menuChanged func(ctx context.Context)) *AdminHandler {
	if catalog == nil {
		panic("nil catalog passed to NewAdminHandler")
	}
	return &AdminHandler{Catalog: catalog, Errors: DefaultErrors(), MenuChanged: menuChanged}
}

type roomRequest struct {
	Name             *string `json:"name" validate:"omitempty,min=1,max=120"`
	Number           *string `json:"number" validate:"omitempty,min=1,max=20"`
	Plan             *string `json:"plan" validate:"omitempty,oneof=GOLD SILVER BRONZE gold silver bronze"`
	Capacity         *int    `json:"capacity" validate:"omitempty,min=1,max=20"`
	NightlyRateCents *int64  `json:"nightly_rate_cents" validate:"omitempty,min=0"`
	State            *string `json:"state" validate:"omitempty,oneof=AVAILABLE OCCUPIED MAINTENANCE available occupied maintenance"`
}

// apply copies the present fields onto r and reports whether anything
// changed.
func (b roomRequest) apply(r *model.Room) bool {
	before := *r
	if b.Name != nil {
		r.Name = strings.TrimSpace(*b.Name)
	}
	if b.Number != nil {
		r.Number = strings.TrimSpace(*b.Number)
	}
	if b.Plan != nil {
		r.Plan = model.RoomPlan(strings.ToUpper(*b.Plan))
	}
	if b.Capacity != nil {
		r.Capacity = *b.Capacity
	}
	if b.NightlyRateCents != nil {
		r.NightlyRateCents = *b.NightlyRateCents
	}
	if b.State != nil {
		r.State = model.RoomState(strings.ToUpper(*b.State))
	}
	return *r != before
}

// ListRooms handles GET /v1/admin/rooms.  ?q filters by name, plan or
// state, case-insensitively.
func (h *AdminHandler) ListRooms(c echo.Context) error {
	rooms, err := h.Catalog.ListRooms(c.Request().Context())
	if err != nil {
		return h.Errors.Respond(c, err)
	}
	q := strings.ToLower(strings.TrimSpace(c.QueryParam("q")))
	items := make([]model.Room, 0, len(rooms))
	for _, r := range rooms {
		if q == "" ||
			strings.Contains(strings.ToLower(r.Name), q) ||
			strings.Contains(strings.ToLower(string(r.Plan)), q) ||
			strings.Contains(strings.ToLower(string(r.State)), q) {
			items = append(items, r)
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items)})
}

// CreateRoom handles POST /v1/admin/rooms.  Name, number, plan, capacity
// and rate are required; state defaults to AVAILABLE.
func (h *AdminHandler) CreateRoom(c echo.Context) error {
	var body roomRequest
	if msg, ok := bindAndValidate(c, &body); !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	if body.Name == nil || body.Number == nil || body.Plan == nil || body.Capacity == nil || body.NightlyRateCents == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "name, number, plan, capacity and nightly_rate_cents are required",
		})
	}
	room := model.Room{State: model.RoomAvailable}
	body.apply(&room)
	if room.Name == "" || room.Number == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and number must not be blank"})
	}
	ctx := c.Request().Context()
	if taken, err := h.Catalog.RoomNumberTaken(ctx, room.Number, 0); err != nil {
		return h.Errors.Respond(c, err)
	} else if taken {
		return c.JSON(http.StatusConflict, echo.Map{"error": "room_number_taken"})
	}
	if err := h.Catalog.InsertRoom(ctx, &room); err != nil {
		return h.Errors.Respond(c, err)
	}
	return c.JSON(http.StatusCreated, room)
}

// UpdateRoom handles PATCH /v1/admin/rooms/:id.  Only present fields are
// changed.  Setting state to MAINTENANCE blocks new bookings; existing
// reservations and their prices are left as they are.
func (h *AdminHandler) UpdateRoom(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var body roomRequest
	if msg, ok := bindAndValidate(c, &body); !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	ctx := c.Request().Context()
	room, err := h.Catalog.RoomByID(ctx, id)
	if err != nil {
		return h.Errors.Respond(c, err)
	}
	prevNumber := room.Number
	if !body.apply(&room) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "room already has these parameters"})
	}
	if room.Name == "" || room.Number == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and number must not be blank"})
	}
	if room.Number != prevNumber {
		if taken, err := h.Catalog.RoomNumberTaken(ctx, room.Number, id); err != nil {
			return h.Errors.Respond(c, err)
		} else if taken {
			return c.JSON(http.StatusConflict, echo.Map{"error": "room_number_taken"})
		}
	}
	if err := h.Catalog.UpdateRoom(ctx, &room); err != nil {
		return h.Errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, room)
}

// DeleteRoom handles DELETE /v1/admin/rooms/:id.  Rooms with booking
// history cannot be removed; put them in MAINTENANCE instead.
func (h *AdminHandler) DeleteRoom(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.Catalog.DeleteRoom(c.Request().Context(), id); err != nil {
		return h.Errors.Respond(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type dishRequest struct {
	Name       *string `json:"name" validate:"omitempty,min=1,max=120"`
	PriceCents *int64  `json:"price_cents" validate:"omitempty,min=0"`
	Available  *bool   `json:"available"`
}

// ListDishes handles GET /v1/admin/dishes, including unavailable ones.
func (h *AdminHandler) ListDishes(c echo.Context) error {
	dishes, err := h.Catalog.ListDishes(c.Request().Context(), false)
	if err != nil {
		return h.Errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": dishes, "count": len(dishes)})
}

// CreateDish handles POST /v1/admin/dishes.
func (h *AdminHandler) CreateDish(c echo.Context) error {
	var body dishRequest
	if msg, ok := bindAndValidate(c, &body); !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	if body.Name == nil || strings.TrimSpace(*body.Name) == "" || body.PriceCents == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name and price_cents are required"})
	}
	d := model.Dish{Name: strings.TrimSpace(*body.Name), PriceCents: *body.PriceCents, Available: true}
	if body.Available != nil {
		d.Available = *body.Available
	}
	if err := h.Catalog.InsertDish(c.Request().Context(), &d); err != nil {
		return h.Errors.Respond(c, err)
	}
	h.menuChanged(c)
	return c.JSON(http.StatusCreated, d)
}

// UpdateDish handles PATCH /v1/admin/dishes/:id.  Marking a dish
// unavailable keeps it out of new carts; carts that already hold it fail
// at checkout.
func (h *AdminHandler) UpdateDish(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var body dishRequest
	if msg, ok := bindAndValidate(c, &body); !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	ctx := c.Request().Context()
	d, err := h.Catalog.DishByID(ctx, id)
	if err != nil {
		return h.Errors.Respond(c, err)
	}
	if body.Name != nil {
		if name := strings.TrimSpace(*body.Name); name != "" {
			d.Name = name
		}
	}
	if body.PriceCents != nil {
		d.PriceCents = *body.PriceCents
	}
	if body.Available != nil {
		d.Available = *body.Available
	}
	if err := h.Catalog.UpdateDish(ctx, &d); err != nil {
		return h.Errors.Respond(c, err)
	}
	h.menuChanged(c)
	return c.JSON(http.StatusOK, d)
}

// DeleteDish handles DELETE /v1/admin/dishes/:id.
func (h *AdminHandler) DeleteDish(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.Catalog.DeleteDish(c.Request().Context(), id); err != nil {
		return h.Errors.Respond(c, err)
	}
	h.menuChanged(c)
	return c.NoContent(http.StatusNoContent)
}

func (h *AdminHandler) menuChanged(c echo.Context) {
	if h.MenuChanged != nil {
		h.MenuChanged(context.WithoutCancel(c.Request().Context()))
	}
}

// ListReservations handles GET /v1/admin/reservations?status=.  Tickets
// are downloaded through the regular ticket route, which admits admins.
func (h *AdminHandler) ListReservations(c echo.Context) error {
	status := model.ReservationStatus(strings.ToUpper(strings.TrimSpace(c.QueryParam("status"))))
	switch status {
	case "", model.StatusActive, model.StatusCompleted, model.StatusCancelled:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	}
	items, err := h.Catalog.ListReservations(c.Request().Context(), status)
	if err != nil {
		return h.Errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items)})
}

func parseOrderStatus(raw string) (model.OrderStatus, bool) {
	s := model.OrderStatus(strings.ToUpper(strings.TrimSpace(raw)))
	switch s {
	case model.OrderPending, model.OrderConfirmed, model.OrderServed, model.OrderCancelled:
		return s, true
	}
	return s, false
}

// ListOrders handles GET /v1/admin/restaurant/orders?status=.
func (h *AdminHandler) ListOrders(c echo.Context) error {
	var status model.OrderStatus
	if raw := c.QueryParam("status"); raw != "" {
		s, ok := parseOrderStatus(raw)
		if !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
		}
		status = s
	}
	items, err := h.Catalog.ListRestaurantOrders(c.Request().Context(), status)
	if err != nil {
		return h.Errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items)})
}

// SetOrderStatus handles PUT /v1/admin/restaurant/orders/:id/status.
func (h *AdminHandler) SetOrderStatus(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var body struct {
		Status string `json:"status" validate:"required"`
	}
	if msg, ok := bindAndValidate(c, &body); !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	status, ok := parseOrderStatus(body.Status)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	}
	if err := h.Catalog.SetRestaurantOrderStatus(c.Request().Context(), id, status); err != nil {
		return h.Errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "status": status})
}
