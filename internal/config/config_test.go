package config

import (
    "testing"
    "time"
)

func TestLoadRateLimitClampsValues(t *testing.T) {
    t.Setenv("RATE_LIMIT_CAPACITY", "0")
    t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
    t.Setenv("RATE_LIMIT_TTL", "1s")

    c := LoadRateLimitConfig()
    if c.Capacity != 1 {
        t.Fatalf("capacity = %d, want 1", c.Capacity)
    }
    if c.TTL != 10*time.Second {
        t.Fatalf("ttl = %s, want 10s", c.TTL)
    }
}

func TestAuthRateLimitIsSeparate(t *testing.T) {
    c := LoadAuthRateLimitConfig()
    if c.Prefix == LoadRateLimitConfig().Prefix {
        t.Fatal("auth limiter must use its own key prefix")
    }
}

func TestBookingLocationFallsBackToUTC(t *testing.T) {
    b := BookingConfig{Timezone: "Nowhere/Atlantis"}
    if b.Location() != time.UTC {
        t.Fatal("expected UTC for an unknown zone")
    }
}

func TestEnvHelpers(t *testing.T) {
    t.Setenv("X_BOOL", "off")
    t.Setenv("X_INT", "nope")
    t.Setenv("X_DUR", "90s")
    if envBool("X_BOOL", true) {
        t.Error("off should parse as false")
    }
    if envInt("X_INT", 7) != 7 {
        t.Error("bad int should fall back to default")
    }
    if envDur("X_DUR", 0) != 90*time.Second {
        t.Error("duration not parsed")
    }
}
