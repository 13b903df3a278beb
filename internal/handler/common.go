package handler // request helpers shared by the booking, payment and restaurant handlers

import (
	"errors"  // sentinel for a missing identity
	"strconv" // parsing path parameters and numeric claims

	"github.com/labstack/echo/v4" // Echo context access

	"github.com/iliyamo/resort-reservation/internal/middleware" // context keys set by middleware
	"github.com/iliyamo/resort-reservation/internal/model"      // role names
	"github.com/iliyamo/resort-reservation/internal/service"    // Actor
)

var errNoUser = errors.New("invalid user_id in context")

// getUserID reads the authenticated user id stored by JWTAuth.  The claim
// arrives as float64 from JSON decoding, but other numeric forms and
// decimal strings are accepted too.
func getUserID(c echo.Context) (uint64, error) {
	switch t := c.Get(middleware.UserIDKey).(type) { // type switch on the raw claim
	case uint64:
		return t, nil
	case int:
		if t > 0 {
			return uint64(t), nil
		}
	case int64:
		if t > 0 {
			return uint64(t), nil
		}
	case float64:
		if t >= 1 {
			return uint64(t), nil
		}
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil && n > 0 { // "sub" may be a string
			return n, nil
		}
	}
	return 0, errNoUser // missing or malformed value
}

// actorFrom builds the service Actor for the current request.
func actorFrom(c echo.Context) (service.Actor, error) {
	id, err := getUserID(c)
	if err != nil {
		return service.Actor{}, err
	}
	role, _ := c.Get(middleware.RoleKey).(string) // role is optional on the claim set
	return service.Actor{UserID: id, Admin: role == model.RoleAdmin}, nil
}

// pathID parses a positive integer path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 {
		return 0, false
	}
	return n, true
}

// cartSession returns the cart session id issued by the cart middleware.
func cartSession(c echo.Context) string {
	s, _ := c.Get(middleware.CartSessionKey).(string)
	return s
}
