package validation

import (
	"strings"
	"time"
)

// ValidateStatementUpload validates the metadata of a statement upload.
//
// Required fields:
//   - fileName: non-empty
//   - periodStart, periodEnd: must be set, periodEnd on or after periodStart
//
// Returns a validation Error with field-specific error messages if validation fails.
func ValidateStatementUpload(fileName string, periodStart, periodEnd time.Time) error {
	errors := make(map[string]string)

	if strings.TrimSpace(fileName) == "" {
		errors["fileName"] = "fileName is required"
	}

	if periodStart.IsZero() {
		errors["periodStart"] = "periodStart is required"
	}
	if periodEnd.IsZero() {
		errors["periodEnd"] = "periodEnd is required"
	}
	if !periodStart.IsZero() && !periodEnd.IsZero() && periodEnd.Before(periodStart) {
		errors["periodEnd"] = "periodEnd must not be before periodStart"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}

	return nil
}
