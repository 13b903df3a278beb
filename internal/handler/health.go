package handler // declare the package name; contains HTTP handlers

import (
	"context"  // bounded dependency checks
	"net/http" // status codes
	"time"

	"github.com/labstack/echo/v4" // echo is the web framework used for this project
)

// Health is the liveness check.  It returns a plain text "ok" with 200.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

// Pinger is any dependency that can report reachability.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Ready returns a readiness check that pings the database.  A failed ping
// answers 503 so load balancers drain the instance.
func Ready(db Pinger) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"status": "unavailable", "database": err.Error()})
		}
		return c.JSON(http.StatusOK, echo.Map{"status": "ready"})
	}
}
