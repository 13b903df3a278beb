package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/resort-reservation/internal/cart"
	"github.com/iliyamo/resort-reservation/internal/model"
	"github.com/iliyamo/resort-reservation/internal/service"
)

// Restaurant is the restaurant service as seen by the HTTP layer.
type Restaurant interface {
	Menu(ctx context.Context) ([]model.Dish, error)
	Cart(ctx context.Context, session string) (cart.CartState, error)
	AddItem(ctx context.Context, session string, dishID uint64, quantity int) (cart.CartState, error)
	SetQuantity(ctx context.Context, session string, dishID uint64, quantity int) (cart.CartState, error)
	RemoveItem(ctx context.Context, session string, dishID uint64) (cart.CartState, error)
	SetPartySize(ctx context.Context, session string, n int) (cart.CartState, error)
	ClearCart(ctx context.Context, session string) error
	Checkout(ctx context.Context, userID uint64, session string, reservedFor time.Time) (model.RestaurantOrder, error)
	OrderDocument(ctx context.Context, orderID uint64, actor service.Actor) (model.RestaurantOrder, []byte, error)
}

// RestaurantHandler serves the menu, the session cart and table orders.
type RestaurantHandler struct {
	Service Restaurant
	Errors  *ErrorMapper
}

func NewRestaurantHandler(svc Restaurant) *RestaurantHandler {
	return &RestaurantHandler{Service: svc, Errors: DefaultErrors()}
}

type addItemRequest struct {
	DishID   uint64 `json:"dish_id" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,min=1,max=50"`
}

type setQuantityRequest struct {
	Quantity int `json:"quantity" validate:"min=0,max=50"`
}

type partySizeRequest struct {
	PartySize int `json:"party_size" validate:"required,min=1,max=20"`
}

type checkoutRequest struct {
	ReservedFor time.Time `json:"reserved_for" validate:"required"`
}

// cartView is the JSON shape of a cart.
func cartView(c cart.CartState) echo.Map {
	items := c.Items
	if items == nil {
		items = []cart.CartItem{}
	}
	return echo.Map{
		"items":       items,
		"party_size":  c.PartySize,
		"count":       c.Count(),
		"total_cents": c.TotalCents(),
	}
}

func (h *RestaurantHandler) respondCart(c echo.Context, state cart.CartState, err error) error {
	if err != nil {
		return h.Errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, cartView(state))
}

// Dishes handles GET /v1/restaurant/dishes.
func (h *RestaurantHandler) Dishes(c echo.Context) error {
	dishes, err := h.Service.Menu(c.Request().Context())
	if err != nil {
		return h.Errors.Respond(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": dishes})
}

// Cart handles GET /v1/restaurant/cart.
func (h *RestaurantHandler) Cart(c echo.Context) error {
	state, err := h.Service.Cart(c.Request().Context(), cartSession(c))
	return h.respondCart(c, state, err)
}

// AddItem handles POST /v1/restaurant/cart/items.
func (h *RestaurantHandler) AddItem(c echo.Context) error {
	var body addItemRequest
	if msg, ok := bindAndValidate(c, &body); !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	state, err := h.Service.AddItem(c.Request().Context(), cartSession(c), body.DishID, body.Quantity)
	return h.respondCart(c, state, err)
}

// SetQuantity handles PATCH /v1/restaurant/cart/items/:dish_id.
func (h *RestaurantHandler) SetQuantity(c echo.Context) error {
	dishID, ok := pathID(c, "dish_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid dish id"})
	}
	var body setQuantityRequest
	if msg, ok := bindAndValidate(c, &body); !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	state, err := h.Service.SetQuantity(c.Request().Context(), cartSession(c), dishID, body.Quantity)
	return h.respondCart(c, state, err)
}

// RemoveItem handles DELETE /v1/restaurant/cart/items/:dish_id.
func (h *RestaurantHandler) RemoveItem(c echo.Context) error {
	dishID, ok := pathID(c, "dish_id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid dish id"})
	}
	state, err := h.Service.RemoveItem(c.Request().Context(), cartSession(c), dishID)
	return h.respondCart(c, state, err)
}

// SetPartySize handles PUT /v1/restaurant/cart/party-size.
func (h *RestaurantHandler) SetPartySize(c echo.Context) error {
	var body partySizeRequest
	if msg, ok := bindAndValidate(c, &body); !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	state, err := h.Service.SetPartySize(c.Request().Context(), cartSession(c), body.PartySize)
	return h.respondCart(c, state, err)
}

// ClearCart handles DELETE /v1/restaurant/cart.
func (h *RestaurantHandler) ClearCart(c echo.Context) error {
	if err := h.Service.ClearCart(c.Request().Context(), cartSession(c)); err != nil {
		return h.Errors.Respond(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Checkout handles POST /v1/restaurant/orders.
func (h *RestaurantHandler) Checkout(c echo.Context) error {
	userID, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	var body checkoutRequest
	if msg, ok := bindAndValidate(c, &body); !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
	}
	order, err := h.Service.Checkout(c.Request().Context(), userID, cartSession(c), body.ReservedFor)
	if err != nil {
		return h.Errors.Respond(c, err)
	}
	return c.JSON(http.StatusCreated, order)
}

// OrderTicket handles GET /v1/restaurant/orders/:id/ticket.
func (h *RestaurantHandler) OrderTicket(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid order id"})
	}
	o, pdf, err := h.Service.OrderDocument(c.Request().Context(), id, actor)
	if err != nil {
		return h.Errors.Respond(c, err)
	}
	return sendPDF(c, o.Number, pdf)
}
