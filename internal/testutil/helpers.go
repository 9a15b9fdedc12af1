package testutil

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MakeID generates a fresh UUID string for test entities.
func MakeID() string {
	return uuid.NewString()
}

// Date builds a UTC date for test fixtures.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Dec parses a decimal literal, failing the test on malformed input.
func Dec(t *testing.T, value string) decimal.Decimal {
	t.Helper()

	d, err := decimal.NewFromString(value)
	if err != nil {
		t.Fatalf("Invalid decimal literal %q: %v", value, err)
	}
	return d
}

// DecPtr parses a decimal literal into a pointer.
func DecPtr(t *testing.T, value string) *decimal.Decimal {
	t.Helper()

	d := Dec(t, value)
	return &d
}
