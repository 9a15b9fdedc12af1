package validation

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/taxdividend/reclaim-backend/internal/model"
)

var hundred = decimal.NewFromInt(100)

// ValidateTaxRule validates a treaty rule before it is created or updated.
//
// Required fields:
//   - sourceCountry, residenceCountry: two-letter uppercase country codes
//   - securityType: non-empty
//   - standardWithholdingRate: between 0 and 100
//   - effectiveFrom: must be set
//
// Optional fields (validated if provided):
//   - treatyRate: between 0 and 100
//   - effectiveTo: must not be before effectiveFrom
//
// Returns a validation Error with field-specific error messages if validation fails.
func ValidateTaxRule(rule *model.TaxRule) error {
	errors := make(map[string]string)

	if !isCountryCode(rule.SourceCountry) {
		errors["sourceCountry"] = "must be a two-letter ISO country code"
	}
	if !isCountryCode(rule.ResidenceCountry) {
		errors["residenceCountry"] = "must be a two-letter ISO country code"
	}
	if rule.SourceCountry != "" && rule.SourceCountry == rule.ResidenceCountry {
		errors["residenceCountry"] = "must differ from sourceCountry"
	}

	if strings.TrimSpace(rule.SecurityType) == "" {
		errors["securityType"] = "securityType is required"
	}

	if !validRate(rule.StandardWithholdingRate) {
		errors["standardWithholdingRate"] = "rate must be between 0 and 100"
	}
	if rule.TreatyRate != nil && !validRate(*rule.TreatyRate) {
		errors["treatyRate"] = "rate must be between 0 and 100"
	}

	if rule.EffectiveFrom.IsZero() {
		errors["effectiveFrom"] = "effectiveFrom is required"
	} else if rule.EffectiveTo != nil && rule.EffectiveTo.Before(rule.EffectiveFrom) {
		errors["effectiveTo"] = "effectiveTo must not be before effectiveFrom"
	}

	if len(errors) > 0 {
		return &Error{Fields: errors}
	}

	return nil
}

func validRate(rate decimal.Decimal) bool {
	return !rate.IsNegative() && rate.LessThanOrEqual(hundred)
}
