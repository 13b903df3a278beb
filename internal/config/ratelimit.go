package config

import "time"

// RateLimitConfig drives the Redis token bucket in front of the booking
// and payment routes.  Webhooks get their own, larger bucket because
// providers retry in bursts.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillTokens   int
	RefillInterval time.Duration
	TTL            time.Duration
	KeyStrategy    string
	Prefix         string
	Debug          bool
}

// LoadRateLimitConfig reads RATE_LIMIT_* for interactive routes.
func LoadRateLimitConfig() RateLimitConfig {
	return normalizeRateLimit(RateLimitConfig{
		Enabled:        envBool("RATE_LIMIT_ENABLED", true),
		Capacity:       envInt("RATE_LIMIT_CAPACITY", 30),
		RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
		RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", 2*time.Second),
		TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", "ip_user_route"),
		Prefix:         envStr("RATE_LIMIT_PREFIX", "rl"),
		Debug:          envBool("RATE_LIMIT_DEBUG", false),
	})
}

// LoadWebhookRateLimitConfig reads WEBHOOK_RATE_LIMIT_*; keys are per
// source IP and route.
func LoadWebhookRateLimitConfig() RateLimitConfig {
	return normalizeRateLimit(RateLimitConfig{
		Enabled:        envBool("WEBHOOK_RATE_LIMIT_ENABLED", true),
		Capacity:       envInt("WEBHOOK_RATE_LIMIT_CAPACITY", 120),
		RefillTokens:   envInt("WEBHOOK_RATE_LIMIT_REFILL_TOKENS", 2),
		RefillInterval: envDur("WEBHOOK_RATE_LIMIT_REFILL_INTERVAL", time.Second),
		TTL:            envDur("WEBHOOK_RATE_LIMIT_TTL", 10*time.Minute),
		KeyStrategy:    "ip_route",
		Prefix:         envStr("RATE_LIMIT_PREFIX", "rl") + ":webhook",
		Debug:          envBool("RATE_LIMIT_DEBUG", false),
	})
}

func normalizeRateLimit(c RateLimitConfig) RateLimitConfig {
	if c.Capacity < 1 {
		c.Capacity = 1
	}
	if c.RefillTokens < 1 {
		c.RefillTokens = 1
	}
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	if minTTL := 5 * c.RefillInterval; c.TTL < minTTL {
		c.TTL = minTTL
	}
	return c
}
