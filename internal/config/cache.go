package config

import (
	"strings"
	"time"
)

// CacheConfig defines settings for the response cache middleware used on
// the restaurant menu.  When Enabled is false or no Redis client is
// configured, caching is disabled.  Room calendars are never cached.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	TTL          time.Duration
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads CACHE_* variables.  Methods are upper-cased.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		Methods:      parseMethods(envStr("CACHE_METHODS", "GET")),
		TTL:          envDur("CACHE_TTL", 60*time.Second),
		Prefix:       envStr("CACHE_PREFIX", "cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
}

// CartConfig controls the server side restaurant cart.
type CartConfig struct {
	Prefix     string
	TTL        time.Duration
	CookieName string
	Secure     bool
}

// LoadCartConfig reads CART_* variables.
func LoadCartConfig() CartConfig {
	return CartConfig{
		Prefix:     envStr("CART_PREFIX", "cart"),
		TTL:        envDur("CART_TTL", 24*time.Hour),
		CookieName: envStr("CART_COOKIE", "cart_session"),
		Secure:     envBool("CART_COOKIE_SECURE", false),
	}
}

func parseMethods(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(strings.ToUpper(p))
		if p != "" {
			m[p] = true
		}
	}
	return m
}
