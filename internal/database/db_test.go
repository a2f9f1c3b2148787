package database

import (
	"strings"
	"testing"
)

func TestDSN(t *testing.T) {
	dsn := Options{User: "lib", Pass: "s3cret", Host: "db", Port: "3306", Name: "circulink"}.DSN()
	for _, want := range []string{"lib:s3cret@tcp(db:3306)/circulink", "parseTime=true", "charset=utf8mb4", "clientFoundRows=true"} {
		if !strings.Contains(dsn, want) {
			t.Errorf("dsn %q missing %q", dsn, want)
		}
	}
}

func TestSchemaIsIdempotent(t *testing.T) {
	for i, stmt := range schema {
		if !strings.HasPrefix(strings.TrimSpace(stmt), "CREATE TABLE IF NOT EXISTS") {
			t.Errorf("statement %d is not idempotent", i+1)
		}
	}
}
