package config

import "time"

// CacheConfig defines settings for the itinerary-search response cache.
// When Enabled is false or no Redis client is available, caching is
// disabled. TTL is deliberately short: cabin availability changes as
// reservation events land, and a stale listing only widens the advisory
// check race the saga already tolerates.
type CacheConfig struct {
	Enabled bool
	TTL     time.Duration
	Prefix  string
}

// LoadCacheConfig reads environment variables to build a CacheConfig.
func LoadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled: envBool("CACHE_ENABLED", true),
		TTL:     envDur("CACHE_TTL", 15*time.Second),
		Prefix:  envStr("CACHE_PREFIX", "cache"),
	}
}

// RateLimitConfig defines settings for the per-client reservation rate
// limiter. Limit requests per Window are allowed for each client before 429
// responses start.
type RateLimitConfig struct {
	Enabled bool
	Limit   int
	Window  time.Duration
	Prefix  string
}

// LoadRateLimitConfig reads environment variables to build a
// RateLimitConfig, clamping nonsensical values.
func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled: envBool("RATE_LIMIT_ENABLED", true),
		Limit:   envInt("RATE_LIMIT_LIMIT", 30),
		Window:  envDur("RATE_LIMIT_WINDOW", time.Minute),
		Prefix:  envStr("RATE_LIMIT_PREFIX", "rl"),
	}
	if cfg.Limit < 1 {
		cfg.Limit = 1
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	return cfg
}
