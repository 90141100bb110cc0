package config

// RateLimitConfig controls the per-IP request limiter.  The limiter uses a
// fixed one-minute window, so the only tunables are the request budget and
// the Redis key prefix.
type RateLimitConfig struct {
	Enabled   bool
	PerMinute int
	Prefix    string
}

// LoadRateLimitConfig reads the limiter settings from the environment and
// clamps them to sane values.
func LoadRateLimitConfig() RateLimitConfig {
	cfg := RateLimitConfig{
		Enabled:   envBool("RATE_LIMIT_ENABLED", true),
		PerMinute: envInt("RATE_LIMIT_PER_MINUTE", 60),
		Prefix:    envStr("RATE_LIMIT_PREFIX", "rl"),
	}
	if cfg.PerMinute < 1 {
		cfg.PerMinute = 1
	}
	return cfg
}
