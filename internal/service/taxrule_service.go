package service

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/taxdividend/reclaim-backend/internal/model"
	"github.com/taxdividend/reclaim-backend/internal/repository"
	"github.com/taxdividend/reclaim-backend/internal/validation"
)

// TaxRuleService exposes treaty reference data: the applicable-rule
// lookup used by the calculator plus the browsing and admin operations.
// Lookups normalize country codes and security types to uppercase and
// default a zero date to today.
type TaxRuleService struct {
	taxRuleRepo *repository.TaxRuleRepository
}

// NewTaxRuleService creates a new TaxRuleService with the provided repository dependency.
func NewTaxRuleService(taxRuleRepo *repository.TaxRuleRepository) *TaxRuleService {
	return &TaxRuleService{taxRuleRepo: taxRuleRepo}
}

// FindApplicableRule returns the single rule whose effective window
// contains the given date for the exact (source, residence, security
// type) triple. There is no partial matching across security types.
// Returns apperrors.ErrTaxRuleNotFound when no rule matches.
func (s *TaxRuleService) FindApplicableRule(sourceCountry, residenceCountry, securityType string, date time.Time) (*model.TaxRule, error) {
	if date.IsZero() {
		date = time.Now().UTC()
	}

	return s.taxRuleRepo.FindApplicableRule(
		strings.ToUpper(sourceCountry),
		strings.ToUpper(residenceCountry),
		strings.ToUpper(securityType),
		date,
	)
}

// GetAllTaxRules retrieves every treaty rule.
func (s *TaxRuleService) GetAllTaxRules() ([]model.TaxRule, error) {
	return s.taxRuleRepo.GetAll()
}

// GetTaxRule retrieves a single rule by ID.
func (s *TaxRuleService) GetTaxRule(id string) (*model.TaxRule, error) {
	return s.taxRuleRepo.GetByID(id)
}

// GetRulesBetweenCountries retrieves all rules between a country pair,
// across all security types and effective windows.
func (s *TaxRuleService) GetRulesBetweenCountries(sourceCountry, residenceCountry string) ([]model.TaxRule, error) {
	return s.taxRuleRepo.GetBySourceAndResidence(
		strings.ToUpper(sourceCountry),
		strings.ToUpper(residenceCountry),
	)
}

// GetActiveRules retrieves rules whose effective window is still open today.
func (s *TaxRuleService) GetActiveRules() ([]model.TaxRule, error) {
	return s.taxRuleRepo.GetActive(time.Now().UTC())
}

// GetExpiredRules retrieves rules whose effective window has closed.
func (s *TaxRuleService) GetExpiredRules() ([]model.TaxRule, error) {
	return s.taxRuleRepo.GetExpired(time.Now().UTC())
}

// HasTaxTreaty reports whether any treaty exists between the two
// countries on the given date, regardless of security type.
func (s *TaxRuleService) HasTaxTreaty(sourceCountry, residenceCountry string, date time.Time) (bool, error) {
	if date.IsZero() {
		date = time.Now().UTC()
	}

	return s.taxRuleRepo.HasTaxTreaty(
		strings.ToUpper(sourceCountry),
		strings.ToUpper(residenceCountry),
		date,
	)
}

// GetTreatyRate answers a treaty rate query for a country pair and
// security type on a given date.
func (s *TaxRuleService) GetTreatyRate(sourceCountry, residenceCountry, securityType string, date time.Time) (*model.TreatyRateInfo, error) {
	if date.IsZero() {
		date = time.Now().UTC()
	}

	rule, err := s.FindApplicableRule(sourceCountry, residenceCountry, securityType, date)
	if err != nil {
		return nil, err
	}

	return &model.TreatyRateInfo{
		SourceCountry:            rule.SourceCountry,
		ResidenceCountry:         rule.ResidenceCountry,
		SecurityType:             rule.SecurityType,
		Date:                     date,
		StandardWithholdingRate:  rule.StandardWithholdingRate,
		TreatyRate:               rule.TreatyRate,
		ReliefAtSourceAvailable:  rule.ReliefAtSourceAvailable,
		RefundProcedureAvailable: rule.RefundProcedureAvailable,
		TaxRuleID:                rule.ID,
	}, nil
}

// CreateTaxRule validates and inserts a new treaty rule. Country codes
// and the security type are normalized to uppercase before validation.
func (s *TaxRuleService) CreateTaxRule(rule *model.TaxRule) (*model.TaxRule, error) {
	normalizeTaxRule(rule)

	if err := validation.ValidateTaxRule(rule); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}
	rule.CreatedAt = now
	rule.UpdatedAt = now

	if err := s.taxRuleRepo.Create(rule); err != nil {
		return nil, err
	}

	return rule, nil
}

// UpdateTaxRule validates and rewrites an existing treaty rule.
func (s *TaxRuleService) UpdateTaxRule(rule *model.TaxRule) (*model.TaxRule, error) {
	normalizeTaxRule(rule)

	if err := validation.ValidateTaxRule(rule); err != nil {
		return nil, err
	}

	rule.UpdatedAt = time.Now().UTC()

	if err := s.taxRuleRepo.Update(rule); err != nil {
		return nil, err
	}

	return rule, nil
}

func normalizeTaxRule(rule *model.TaxRule) {
	rule.SourceCountry = strings.ToUpper(strings.TrimSpace(rule.SourceCountry))
	rule.ResidenceCountry = strings.ToUpper(strings.TrimSpace(rule.ResidenceCountry))
	rule.SecurityType = strings.ToUpper(strings.TrimSpace(rule.SecurityType))
}
