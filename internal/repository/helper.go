package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const dateFormat = "2006-01-02"

// ParseTime parses a date string in "2006-01-02", RFC3339 or SQLite
// CURRENT_TIMESTAMP format.
func ParseTime(str string) (time.Time, error) {
	for _, layout := range []string{dateFormat, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, str); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("failed to parse date %q", str)
}

// parseDecimal parses a stored monetary or rate column.
func parseDecimal(str string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(str)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to parse decimal %q: %w", str, err)
	}
	return d, nil
}

// parseNullDecimal parses a nullable decimal column into a pointer.
func parseNullDecimal(ns sql.NullString) (*decimal.Decimal, error) {
	if !ns.Valid {
		return nil, nil
	}
	d, err := parseDecimal(ns.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// parseNullTime parses a nullable date or datetime column into a pointer.
func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := ParseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// formatNullTime renders a nullable timestamp for storage in RFC3339.
func formatNullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

// formatNullDecimal renders a nullable decimal for storage.
func formatNullDecimal(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}
