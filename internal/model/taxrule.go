package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TaxRule represents a double-taxation treaty rule between a source and
// a residence country for one security type within an effective window.
// Rules are reference data maintained by administrators; the calculator
// only reads them.
type TaxRule struct {
	ID                       string
	SourceCountry            string
	ResidenceCountry         string
	SecurityType             string
	StandardWithholdingRate  decimal.Decimal
	TreatyRate               *decimal.Decimal // nil: treaty exists but defines no reduced rate
	ReliefAtSourceAvailable  bool
	RefundProcedureAvailable bool
	EffectiveFrom            time.Time
	EffectiveTo              *time.Time // nil: open-ended
	Notes                    string
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// ActiveOn reports whether the rule's effective window contains the given date.
func (r *TaxRule) ActiveOn(date time.Time) bool {
	if date.Before(r.EffectiveFrom) {
		return false
	}
	return r.EffectiveTo == nil || !date.After(*r.EffectiveTo)
}

// TreatyRateInfo is the answer to a treaty rate query between two
// countries on a given date.
type TreatyRateInfo struct {
	SourceCountry            string           `json:"sourceCountry"`
	ResidenceCountry         string           `json:"residenceCountry"`
	SecurityType             string           `json:"securityType"`
	Date                     time.Time        `json:"date"`
	StandardWithholdingRate  decimal.Decimal  `json:"standardWithholdingRate"`
	TreatyRate               *decimal.Decimal `json:"treatyRate,omitempty"`
	ReliefAtSourceAvailable  bool             `json:"reliefAtSourceAvailable"`
	RefundProcedureAvailable bool             `json:"refundProcedureAvailable"`
	TaxRuleID                string           `json:"taxRuleId"`
}
