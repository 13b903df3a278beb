package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/resort-reservation/internal/handler"    // HTTP handlers
	"github.com/iliyamo/resort-reservation/internal/middleware" // JWT, roles, rate limits, cache, cart session
	"github.com/iliyamo/resort-reservation/internal/model"      // role names
)

// Deps groups what the route table needs.  Middleware fields may be nil,
// in which case the corresponding routes run without them.
type Deps struct {
	JWTSecret string

	Booking    *handler.BookingHandler
	Payment    *handler.PaymentHandler
	Restaurant *handler.RestaurantHandler
	Admin      *handler.AdminHandler
	Ready      echo.HandlerFunc

	RateLimit        echo.MiddlewareFunc // interactive booking and order routes
	WebhookRateLimit echo.MiddlewareFunc // provider callbacks
	MenuCache        echo.MiddlewareFunc
	CartSession      echo.MiddlewareFunc
}

func use(mws ...echo.MiddlewareFunc) []echo.MiddlewareFunc {
	out := make([]echo.MiddlewareFunc, 0, len(mws))
	for _, m := range mws {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}

// RegisterRoutes mounts health checks, the booking API under /v1, the
// restaurant API under /v1/restaurant, the back office under /v1/admin,
// the payment callbacks under /payment and checkout next to the
// reservation routes.
func RegisterRoutes(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)
	if d.Ready != nil {
		e.GET("/readyz", d.Ready)
	}

	auth := middleware.JWTAuth(d.JWTSecret)
	customer := middleware.RequireRole(model.RoleCustomer, model.RoleAdmin)

	if d.Booking != nil {
		registerBooking(e, d, auth, customer)
	}
	if d.Payment != nil {
		p := e.Group("/payment", use(d.WebhookRateLimit)...)
		p.POST("/webhook/:provider", d.Payment.Webhook)
		p.GET("/return/:provider", d.Payment.Return)
		if d.Payment.Checkouts != nil {
			e.POST("/v1/reservations/:id/checkout/:provider", d.Payment.Checkout, use(auth, customer, d.RateLimit)...)
		}
	}
	if d.Restaurant != nil {
		registerRestaurant(e, d, auth, customer)
	}
	if d.Admin != nil {
		registerAdmin(e, d, auth)
	}
}

func registerBooking(e *echo.Echo, d Deps, auth, customer echo.MiddlewareFunc) {
	h := d.Booking

	// Public lookups.
	pub := e.Group("/v1/rooms")
	pub.GET("/:id/availability", h.Availability)
	pub.GET("/:id/calendar", h.Calendar)

	// Everything below needs a customer or admin token.
	v1 := e.Group("/v1", use(auth, customer, d.RateLimit)...)
	v1.POST("/rooms/:id/reservations", h.Create)
	v1.GET("/reservations/:id", h.Get)
	v1.DELETE("/reservations/:id", h.Cancel)
	v1.GET("/reservations/:id/ticket", h.Ticket)
	v1.GET("/my-reservations", h.Mine)
}

func registerRestaurant(e *echo.Echo, d Deps, auth, customer echo.MiddlewareFunc) {
	h := d.Restaurant
	r := e.Group("/v1/restaurant")

	r.GET("/dishes", h.Dishes, use(d.MenuCache)...)

	c := r.Group("/cart", use(d.CartSession)...)
	c.GET("", h.Cart)
	c.DELETE("", h.ClearCart)
	c.POST("/items", h.AddItem)
	c.PATCH("/items/:dish_id", h.SetQuantity)
	c.DELETE("/items/:dish_id", h.RemoveItem)
	c.PUT("/party-size", h.SetPartySize)

	o := r.Group("/orders", use(d.CartSession, auth, customer, d.RateLimit)...)
	o.POST("", h.Checkout)
	o.GET("/:id/ticket", h.OrderTicket)
}

// registerAdmin mounts the back office.  Every route needs an ADMIN token.
func registerAdmin(e *echo.Echo, d Deps, auth echo.MiddlewareFunc) {
	h := d.Admin
	g := e.Group("/v1/admin", use(auth, middleware.RequireRole(model.RoleAdmin), d.RateLimit)...)

	// ---- Rooms ----
	g.GET("/rooms", h.ListRooms)
	g.POST("/rooms", h.CreateRoom)
	g.PATCH("/rooms/:id", h.UpdateRoom)
	g.DELETE("/rooms/:id", h.DeleteRoom)

	// ---- Dishes ----
	g.GET("/dishes", h.ListDishes)
	g.POST("/dishes", h.CreateDish)
	g.PATCH("/dishes/:id", h.UpdateDish)
	g.DELETE("/dishes/:id", h.DeleteDish)

	// ---- Reservations and orders ----
	g.GET("/reservations", h.ListReservations)
	g.GET("/restaurant/orders", h.ListOrders)
	g.PUT("/restaurant/orders/:id/status", h.SetOrderStatus)
}
