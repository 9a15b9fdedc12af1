// Package validation provides transport-independent input validation
// for the calculation core's write operations.
package validation

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Error collects field-level validation failures.
type Error struct {
	Fields map[string]string
}

func (e *Error) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		msgs = append(msgs, fmt.Sprintf("%s: %s", field, msg))
	}
	return strings.Join(msgs, "; ")
}

// Common validation errors
var (
	ErrInvalidUUID = fmt.Errorf("invalid UUID format")
	ErrEmptySlice  = fmt.Errorf("slice cannot be empty")
)

// ValidateUUID checks if a string is a valid UUID
func ValidateUUID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidUUID, id)
	}
	return nil
}

// ValidateUUIDs validates a slice of UUIDs
func ValidateUUIDs(ids []string) error {
	if len(ids) == 0 {
		return ErrEmptySlice
	}
	for _, id := range ids {
		if err := ValidateUUID(id); err != nil {
			return err
		}
	}
	return nil
}

// isCountryCode reports whether code is a two-letter ISO 3166-1 alpha-2
// code (uppercase).
func isCountryCode(code string) bool {
	if len(code) != 2 {
		return false
	}
	for _, c := range code {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}
