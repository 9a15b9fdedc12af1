// Package apperrors defines the sentinel errors shared across the
// service and repository layers.
package apperrors

import (
	"errors"
	"fmt"
)

// Domain entity errors represent missing entities in the system.
// These errors indicate that a requested resource does not exist.
var (
	// ErrDividendNotFound indicates that a dividend with the given ID does not exist.
	ErrDividendNotFound = errors.New("dividend not found")

	// ErrStatementNotFound indicates that a dividend statement does not exist
	// or does not belong to the requesting user.
	ErrStatementNotFound = errors.New("dividend statement not found")

	// ErrUserNotFound indicates that a user with the given ID does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrTaxRuleNotFound indicates that no treaty rule matches the requested
	// (source country, residence country, security type, date) combination.
	ErrTaxRuleNotFound = errors.New("tax rule not found")
)

// Business logic errors represent validation failures or constraint violations.
// These errors indicate that an operation cannot be completed due to business rules.
var (
	// ErrInvalidStatusTransition indicates a statement status change that is
	// not allowed by the statement lifecycle.
	ErrInvalidStatusTransition = errors.New("invalid status transition")

	// ErrMissingResidenceCountry indicates that a user has no residence
	// country configured, so no treaty lookup can be performed.
	ErrMissingResidenceCountry = errors.New("user has no residence country defined")

	// ErrDuplicateEntry indicates that an entity with the same unique constraint already exists.
	ErrDuplicateEntry = errors.New("duplicate entry")
)

// InvalidTransitionError reports a rejected statement status transition,
// carrying the current and requested statuses. It unwraps to
// ErrInvalidStatusTransition so callers can match with errors.Is.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition: %s -> %s", e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidStatusTransition
}
