package config

import (
    "os"
    "strconv"
    "strings"
    "time"
)

// RateLimitConfig drives the Redis token bucket.  Auth endpoints get their
// own, tighter bucket so OTP and password guessing is throttled separately
// from normal API traffic.
type RateLimitConfig struct {
    Enabled        bool
    Capacity       int
    RefillTokens   int
    RefillInterval time.Duration
    TTL            time.Duration
    Prefix         string
    Debug          bool
}

// LoadRateLimitConfig reads RATE_LIMIT_* variables.
func LoadRateLimitConfig() RateLimitConfig {
    return loadRateLimit("RATE_LIMIT", 60, time.Second, "circulink:rl")
}

// LoadAuthRateLimitConfig reads AUTH_RATE_LIMIT_* variables for /v1/auth.
func LoadAuthRateLimitConfig() RateLimitConfig {
    return loadRateLimit("AUTH_RATE_LIMIT", 10, 6*time.Second, "circulink:rl:auth")
}

func loadRateLimit(prefix string, capacity int, every time.Duration, keyPrefix string) RateLimitConfig {
    c := RateLimitConfig{
        Enabled:        envBool(prefix+"_ENABLED", true),
        Capacity:       envInt(prefix+"_CAPACITY", capacity),
        RefillTokens:   envInt(prefix+"_REFILL_TOKENS", 1),
        RefillInterval: envDur(prefix+"_REFILL_INTERVAL", every),
        TTL:            envDur(prefix+"_TTL", 10*time.Minute),
        Prefix:         envStr(prefix+"_PREFIX", keyPrefix),
        Debug:          envBool(prefix+"_DEBUG", false),
    }
    if c.Capacity < 1 { c.Capacity = 1 }
    if c.RefillTokens < 1 { c.RefillTokens = 1 }
    if c.RefillInterval <= 0 { c.RefillInterval = time.Second }
    if minTTL := 5 * c.RefillInterval; c.TTL < minTTL { c.TTL = minTTL }
    return c
}

func envStr(k, d string) string { if v := os.Getenv(k); v != "" { return v }; return d }
func envBool(k string, d bool) bool {
    switch strings.ToLower(os.Getenv(k)) {
    case "1", "true", "yes", "on": return true
    case "0", "false", "no", "off": return false
    }
    return d
}
func envInt(k string, d int) int {
    v := os.Getenv(k); if v == "" { return d }
    if n, err := strconv.Atoi(v); err == nil { return n }
    return d
}
func envDur(k string, d time.Duration) time.Duration {
    v := os.Getenv(k); if v == "" { return d }
    if dur, err := time.ParseDuration(v); err == nil { return dur }
    return d
}
