package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/resort-reservation/internal/config"
)

// CartSession makes sure every request carries a cart session id.  A
// missing or malformed cookie is replaced with a fresh uuid; the id is
// stored under CartSessionKey.
func CartSession(cfg config.CartConfig) echo.MiddlewareFunc {
	name := cfg.CookieName
	if name == "" {
		name = "cart_session"
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if ck, err := c.Cookie(name); err == nil {
				if id, err := uuid.Parse(ck.Value); err == nil {
					c.Set(CartSessionKey, id.String())
					return next(c)
				}
			}
			id := uuid.NewString()
			c.SetCookie(&http.Cookie{
				Name:     name,
				Value:    id,
				Path:     "/",
				MaxAge:   int(cfg.TTL.Seconds()),
				HttpOnly: true,
				Secure:   cfg.Secure,
				SameSite: http.SameSiteLaxMode,
			})
			c.Set(CartSessionKey, id)
			return next(c)
		}
	}
}
