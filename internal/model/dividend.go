package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Dividend represents a single dividend payment extracted from a broker
// statement or entered manually. All fields except ReclaimableAmount and
// TreatyRate are set at ingestion; the calculator writes only those two.
type Dividend struct {
	ID                string
	UserID            string
	FormID            string // empty until the dividend is linked to a generated form
	StatementID       string // empty for manually entered dividends
	SecurityName      string
	ISIN              string
	PaymentDate       time.Time
	GrossAmount       decimal.Decimal
	Currency          string
	WithholdingTax    decimal.Decimal
	WithholdingRate   decimal.Decimal
	ReclaimableAmount decimal.Decimal
	TreatyRate        *decimal.Decimal
	SourceCountry     string
	CreatedAt         time.Time
}
