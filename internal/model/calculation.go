package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CalculationResult is the outcome of one reclaim calculation. It is a
// value object and is never persisted; the caller decides whether to
// write ReclaimableAmount and TreatyRate back onto the dividend.
//
// A missing treaty or a treaty without a reduced rate is a successful
// outcome with TreatyApplied false and a zero reclaimable amount, not
// an error.
type CalculationResult struct {
	DividendID           string           `json:"dividendId"`
	SecurityName         string           `json:"securityName"`
	ISIN                 string           `json:"isin"`
	GrossAmount          decimal.Decimal  `json:"grossAmount"`
	Currency             string           `json:"currency"`
	WithholdingTax       decimal.Decimal  `json:"withholdingTax"`
	WithholdingRate      decimal.Decimal  `json:"withholdingRate"`
	SourceCountry        string           `json:"sourceCountry"`
	ResidenceCountry     string           `json:"residenceCountry"`
	TreatyApplied        bool             `json:"treatyApplied"`
	TreatyRate           *decimal.Decimal `json:"treatyRate,omitempty"`
	TreatyWithholdingTax decimal.Decimal  `json:"treatyWithholdingTax"`
	ReclaimableAmount    decimal.Decimal  `json:"reclaimableAmount"`
	TaxRuleID            string           `json:"taxRuleId,omitempty"`
	Notes                string           `json:"notes"`
}

// BatchResult aggregates a batch calculation. Per-dividend failures are
// isolated: they are counted and listed in Errors, and their amounts are
// excluded from the totals. SuccessCount + FailureCount always equals
// ProcessedCount.
type BatchResult struct {
	ProcessedCount         int                 `json:"processedCount"`
	SuccessCount           int                 `json:"successCount"`
	FailureCount           int                 `json:"failureCount"`
	TotalGrossAmount       decimal.Decimal     `json:"totalGrossAmount"`
	TotalWithholdingTax    decimal.Decimal     `json:"totalWithholdingTax"`
	TotalReclaimableAmount decimal.Decimal     `json:"totalReclaimableAmount"`
	Results                []CalculationResult `json:"results,omitempty"`
	Errors                 []string            `json:"errors,omitempty"`
	ProcessingTimeMs       int64               `json:"processingTimeMs"`
	CalculatedAt           time.Time           `json:"calculatedAt"`
}
