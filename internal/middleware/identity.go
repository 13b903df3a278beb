package middleware

// identity.go holds helpers shared across middleware files.  userKey turns
// the user id stored by JWTAuth into a string usable in rate limit keys;
// anonymous callers fall back to their cart session or "anon".

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

func userKey(c echo.Context) string {
	switch v := c.Get(UserIDKey).(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	}
	if s, ok := c.Get(CartSessionKey).(string); ok && s != "" {
		return "cart-" + s
	}
	return "anon"
}
