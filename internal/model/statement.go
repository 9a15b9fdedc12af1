package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// StatementStatus is the lifecycle state of an uploaded dividend statement.
type StatementStatus string

const (
	// StatusUploaded: file uploaded, awaiting parsing.
	StatusUploaded StatementStatus = "UPLOADED"
	// StatusParsing: currently being parsed by the parsing agent.
	StatusParsing StatementStatus = "PARSING"
	// StatusParsed: parsing complete, dividends extracted.
	StatusParsed StatementStatus = "PARSED"
	// StatusValidated: dividends validated, forms generated.
	StatusValidated StatementStatus = "VALIDATED"
	// StatusSent: forms submitted to the tax authority.
	StatusSent StatementStatus = "SENT"
	// StatusPaid: reimbursement received. Terminal state.
	StatusPaid StatementStatus = "PAID"
)

// statusTransitions is the closed transition table for the statement
// lifecycle. Transitions are one-directional with no skipping; a status
// not present in the table is unknown.
var statusTransitions = map[StatementStatus][]StatementStatus{
	StatusUploaded:  {StatusParsing},
	StatusParsing:   {StatusParsed},
	StatusParsed:    {StatusValidated},
	StatusValidated: {StatusSent},
	StatusSent:      {StatusPaid},
	StatusPaid:      {},
}

// Valid reports whether s is a known statement status.
func (s StatementStatus) Valid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// CanTransitionTo reports whether moving from s to target is allowed.
func (s StatementStatus) CanTransitionTo(target StatementStatus) bool {
	for _, next := range statusTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the statuses reachable from s.
func (s StatementStatus) AllowedTransitions() []StatementStatus {
	next := statusTransitions[s]
	out := make([]StatementStatus, len(next))
	copy(out, next)
	return out
}

// DividendStatement represents an uploaded broker statement and its
// processing state. The dividend count and totals are populated after
// parsing; the remaining status-specific fields are written by the
// corresponding transitions.
type DividendStatement struct {
	ID               string
	UserID           string
	SourceFileName   string
	SourceFileKey    string // object key in the statement file store
	Broker           string
	PeriodStart      time.Time
	PeriodEnd        time.Time
	Status           StatementStatus
	ParsedBy         string
	ParsedAt         *time.Time
	ValidatedAt      *time.Time
	SentAt           *time.Time
	SentMethod       string
	SentNotes        string
	PaidAt           *time.Time
	PaidAmount       *decimal.Decimal
	DividendCount    int
	TotalGrossAmount decimal.Decimal
	TotalReclaimable decimal.Decimal
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
