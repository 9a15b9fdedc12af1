package service

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/taxdividend/reclaim-backend/internal/apperrors"
	"github.com/taxdividend/reclaim-backend/internal/model"
)

// calculationScale is the fixed number of decimal places for all
// monetary outputs. Rounding is half-up.
const calculationScale = 2

var oneHundred = decimal.NewFromInt(100)

// TaxRuleLookup is the rule lookup contract the calculator depends on.
// *TaxRuleService satisfies it.
type TaxRuleLookup interface {
	FindApplicableRule(sourceCountry, residenceCountry, securityType string, date time.Time) (*model.TaxRule, error)
}

// DividendStore is the dividend persistence contract the calculator
// depends on. *repository.DividendRepository satisfies it.
type DividendStore interface {
	GetByID(id string) (*model.Dividend, error)
	GetByUserID(userID string) ([]model.Dividend, error)
	GetAllByIDs(ids []string) ([]model.Dividend, error)
	GetUnsubmitted() ([]model.Dividend, error)
	UpdateCalculation(id string, reclaimableAmount decimal.Decimal, treatyRate *decimal.Decimal) error
}

// UserStore supplies residence countries for batch-by-user operations.
// *repository.UserRepository satisfies it.
type UserStore interface {
	GetByID(id string) (*model.User, error)
}

// TaxCalculationService calculates treaty-based reclaimable withholding
// tax for dividends, singly or in batches.
type TaxCalculationService struct {
	dividends  DividendStore
	taxRules   TaxRuleLookup
	users      UserStore
	classifier SecurityTypeClassifier
}

// NewTaxCalculationService creates a new TaxCalculationService with the
// provided store dependencies and the default EQUITY classifier.
func NewTaxCalculationService(dividends DividendStore, taxRules TaxRuleLookup, users UserStore) *TaxCalculationService {
	return &TaxCalculationService{
		dividends:  dividends,
		taxRules:   taxRules,
		users:      users,
		classifier: DefaultSecurityTypeClassifier(),
	}
}

// WithClassifier replaces the security type classifier.
func (s *TaxCalculationService) WithClassifier(classifier SecurityTypeClassifier) *TaxCalculationService {
	s.classifier = classifier
	return s
}

// CalculateForDividend applies the applicable treaty rule (or its
// absence) to a single dividend. A missing treaty or missing reduced
// rate yields a successful zero-reclaim result; only infrastructure
// failures return an error. All monetary outputs carry exactly two
// decimal places, rounded half-up, and the reclaimable amount is
// clamped at zero.
func (s *TaxCalculationService) CalculateForDividend(dividend *model.Dividend, residenceCountry string) (*model.CalculationResult, error) {
	result := &model.CalculationResult{
		DividendID:       dividend.ID,
		SecurityName:     dividend.SecurityName,
		ISIN:             dividend.ISIN,
		GrossAmount:      dividend.GrossAmount,
		Currency:         dividend.Currency,
		WithholdingTax:   dividend.WithholdingTax,
		WithholdingRate:  dividend.WithholdingRate,
		SourceCountry:    dividend.SourceCountry,
		ResidenceCountry: strings.ToUpper(residenceCountry),
	}

	securityType := s.classifier.Classify(dividend)

	rule, err := s.taxRules.FindApplicableRule(dividend.SourceCountry, residenceCountry, securityType, dividend.PaymentDate)
	if err != nil {
		if errors.Is(err, apperrors.ErrTaxRuleNotFound) {
			result.TreatyApplied = false
			result.TreatyWithholdingTax = decimal.Zero.Round(calculationScale)
			result.ReclaimableAmount = decimal.Zero.Round(calculationScale)
			result.Notes = "No tax treaty available. Cannot reclaim withholding tax."
			return result, nil
		}
		return nil, fmt.Errorf("failed to look up tax rule for dividend %s: %w", dividend.ID, err)
	}

	if rule.TreatyRate == nil {
		// Treaty exists but defines no reduced rate.
		result.TreatyApplied = false
		result.TreatyWithholdingTax = decimal.Zero.Round(calculationScale)
		result.ReclaimableAmount = decimal.Zero.Round(calculationScale)
		result.TaxRuleID = rule.ID
		result.Notes = "Tax treaty exists but no reduced rate defined."
		return result, nil
	}

	// What should have been withheld under the treaty rate.
	treatyWithholdingTax := dividend.GrossAmount.
		Mul(*rule.TreatyRate).
		Div(oneHundred).
		Round(calculationScale)

	// Reclaimable is the excess actually withheld, never negative.
	reclaimableAmount := dividend.WithholdingTax.
		Sub(treatyWithholdingTax).
		Round(calculationScale)
	if reclaimableAmount.IsNegative() {
		reclaimableAmount = decimal.Zero.Round(calculationScale)
	}

	result.TreatyApplied = true
	result.TreatyRate = rule.TreatyRate
	result.TreatyWithholdingTax = treatyWithholdingTax
	result.ReclaimableAmount = reclaimableAmount
	result.TaxRuleID = rule.ID

	switch {
	case reclaimableAmount.IsPositive() && rule.RefundProcedureAvailable:
		result.Notes = "Refund procedure available. Can reclaim via forms 5000/5001."
	case reclaimableAmount.IsPositive() && rule.ReliefAtSourceAvailable:
		result.Notes = "Only relief at source available. Refund not possible."
	case reclaimableAmount.IsPositive():
		result.Notes = "No reclaim procedure available despite treaty."
	default:
		result.Notes = "Treaty rate already applied. No additional reclaim possible."
	}

	return result, nil
}

// CalculateForDividendID resolves a dividend by ID and calculates.
func (s *TaxCalculationService) CalculateForDividendID(dividendID, residenceCountry string) (*model.CalculationResult, error) {
	dividend, err := s.dividends.GetByID(dividendID)
	if err != nil {
		return nil, err
	}

	return s.CalculateForDividend(dividend, residenceCountry)
}

// CalculateAndUpdate calculates for one dividend and persists the
// reclaimable amount back onto it. The treaty rate is only written when
// the calculation produced one.
func (s *TaxCalculationService) CalculateAndUpdate(dividendID, residenceCountry string) (*model.CalculationResult, error) {
	dividend, err := s.dividends.GetByID(dividendID)
	if err != nil {
		return nil, err
	}

	result, err := s.CalculateForDividend(dividend, residenceCountry)
	if err != nil {
		return nil, err
	}

	if err := s.dividends.UpdateCalculation(dividend.ID, result.ReclaimableAmount, result.TreatyRate); err != nil {
		return nil, err
	}

	log.Printf("Updated dividend %s with reclaimable amount %s", dividendID, result.ReclaimableAmount)

	return result, nil
}

// CalculateBatch runs the per-dividend calculation over a collection,
// sequentially and in input order. Per-item failures are isolated:
// counted, listed in Errors, and excluded from the totals. The batch
// itself never fails.
func (s *TaxCalculationService) CalculateBatch(dividends []model.Dividend, residenceCountry string) *model.BatchResult {
	start := time.Now()

	batch := &model.BatchResult{
		ProcessedCount: len(dividends),
		CalculatedAt:   time.Now().UTC(),
	}

	totalGross := decimal.Zero
	totalWithholding := decimal.Zero
	totalReclaimable := decimal.Zero

	for i := range dividends {
		dividend := &dividends[i]

		result, err := s.CalculateForDividend(dividend, residenceCountry)
		if err != nil {
			log.Printf("Failed to calculate tax for dividend %s: %v", dividend.ID, err)
			batch.FailureCount++
			batch.Errors = append(batch.Errors, fmt.Sprintf("failed for dividend %s: %v", dividend.ID, err))
			continue
		}

		batch.Results = append(batch.Results, *result)
		batch.SuccessCount++

		totalGross = totalGross.Add(result.GrossAmount)
		totalWithholding = totalWithholding.Add(result.WithholdingTax)
		totalReclaimable = totalReclaimable.Add(result.ReclaimableAmount)
	}

	batch.TotalGrossAmount = totalGross.Round(calculationScale)
	batch.TotalWithholdingTax = totalWithholding.Round(calculationScale)
	batch.TotalReclaimableAmount = totalReclaimable.Round(calculationScale)
	batch.ProcessingTimeMs = time.Since(start).Milliseconds()

	return batch
}

// CalculateBatchByIDs resolves dividend ids, silently drops any not
// owned by the given user, and batch-calculates the rest using the
// owner's residence country.
func (s *TaxCalculationService) CalculateBatchByIDs(dividendIDs []string, userID string) (*model.BatchResult, error) {
	dividends, err := s.dividends.GetAllByIDs(dividendIDs)
	if err != nil {
		return nil, err
	}

	owned := dividends[:0]
	for _, d := range dividends {
		if d.UserID == userID {
			owned = append(owned, d)
		}
	}

	if len(owned) == 0 {
		return emptyBatchResult(), nil
	}

	user, err := s.users.GetByID(owned[0].UserID)
	if err != nil {
		return nil, err
	}

	return s.CalculateBatch(owned, user.ResidenceCountry), nil
}

// CalculateForUser batch-calculates every dividend of a user without
// persisting anything.
func (s *TaxCalculationService) CalculateForUser(userID string) (*model.BatchResult, error) {
	dividends, residenceCountry, err := s.loadUserDividends(userID)
	if err != nil {
		return nil, err
	}
	if len(dividends) == 0 {
		return emptyBatchResult(), nil
	}

	return s.CalculateBatch(dividends, residenceCountry), nil
}

// CalculateAndUpdateForUser batch-calculates every dividend of a user
// and persists the computed values of each successful result.
func (s *TaxCalculationService) CalculateAndUpdateForUser(userID string) (*model.BatchResult, error) {
	dividends, residenceCountry, err := s.loadUserDividends(userID)
	if err != nil {
		return nil, err
	}
	if len(dividends) == 0 {
		return emptyBatchResult(), nil
	}

	batch := s.CalculateBatch(dividends, residenceCountry)

	for _, result := range batch.Results {
		if err := s.dividends.UpdateCalculation(result.DividendID, result.ReclaimableAmount, result.TreatyRate); err != nil {
			return nil, fmt.Errorf("failed to persist calculation for dividend %s: %w", result.DividendID, err)
		}
	}

	log.Printf("Updated %d dividends for user %s with calculated values", batch.SuccessCount, userID)

	return batch, nil
}

// RecalculateUnsubmittedDividends recalculates and persists every
// dividend not yet linked to a generated form, system-wide. Dividends
// whose owner has no residence country are skipped and counted as
// failures. Totals reflect only persisted successes.
func (s *TaxCalculationService) RecalculateUnsubmittedDividends() (*model.BatchResult, error) {
	log.Printf("Recalculating all unsubmitted dividends")

	unsubmitted, err := s.dividends.GetUnsubmitted()
	if err != nil {
		return nil, err
	}
	if len(unsubmitted) == 0 {
		log.Printf("No unsubmitted dividends found")
		return emptyBatchResult(), nil
	}

	start := time.Now()

	batch := &model.BatchResult{
		ProcessedCount: len(unsubmitted),
		CalculatedAt:   time.Now().UTC(),
	}

	totalGross := decimal.Zero
	totalWithholding := decimal.Zero
	totalReclaimable := decimal.Zero

	// Owners repeat across dividends; resolve each user once.
	usersByID := make(map[string]*model.User)

	for i := range unsubmitted {
		dividend := &unsubmitted[i]

		user, ok := usersByID[dividend.UserID]
		if !ok {
			user, err = s.users.GetByID(dividend.UserID)
			if err != nil {
				log.Printf("Skipping dividend %s - failed to resolve owner: %v", dividend.ID, err)
				batch.FailureCount++
				continue
			}
			usersByID[dividend.UserID] = user
		}

		if user.ResidenceCountry == "" {
			log.Printf("Skipping dividend %s - user has no residence country", dividend.ID)
			batch.FailureCount++
			continue
		}

		result, err := s.CalculateForDividend(dividend, user.ResidenceCountry)
		if err != nil {
			log.Printf("Failed to recalculate dividend %s: %v", dividend.ID, err)
			batch.FailureCount++
			continue
		}

		if err := s.dividends.UpdateCalculation(dividend.ID, result.ReclaimableAmount, result.TreatyRate); err != nil {
			log.Printf("Failed to persist recalculation for dividend %s: %v", dividend.ID, err)
			batch.FailureCount++
			continue
		}

		batch.Results = append(batch.Results, *result)
		batch.SuccessCount++

		totalGross = totalGross.Add(result.GrossAmount)
		totalWithholding = totalWithholding.Add(result.WithholdingTax)
		totalReclaimable = totalReclaimable.Add(result.ReclaimableAmount)
	}

	batch.TotalGrossAmount = totalGross.Round(calculationScale)
	batch.TotalWithholdingTax = totalWithholding.Round(calculationScale)
	batch.TotalReclaimableAmount = totalReclaimable.Round(calculationScale)
	batch.ProcessingTimeMs = time.Since(start).Milliseconds()

	log.Printf("Recalculation completed: %d success, %d failures", batch.SuccessCount, batch.FailureCount)

	return batch, nil
}

// FindApplicableTaxRule returns the id of the applicable treaty rule,
// or an empty string when no rule matches.
func (s *TaxCalculationService) FindApplicableTaxRule(sourceCountry, residenceCountry, securityType string, date time.Time) (string, error) {
	rule, err := s.taxRules.FindApplicableRule(sourceCountry, residenceCountry, securityType, date)
	if err != nil {
		if errors.Is(err, apperrors.ErrTaxRuleNotFound) {
			return "", nil
		}
		return "", err
	}

	return rule.ID, nil
}

// loadUserDividends resolves a user and their dividends, failing when
// the user is missing or has no residence country configured.
func (s *TaxCalculationService) loadUserDividends(userID string) ([]model.Dividend, string, error) {
	user, err := s.users.GetByID(userID)
	if err != nil {
		return nil, "", err
	}

	if user.ResidenceCountry == "" {
		return nil, "", fmt.Errorf("%w: user %s", apperrors.ErrMissingResidenceCountry, userID)
	}

	dividends, err := s.dividends.GetByUserID(userID)
	if err != nil {
		return nil, "", err
	}

	return dividends, user.ResidenceCountry, nil
}

func emptyBatchResult() *model.BatchResult {
	return &model.BatchResult{
		TotalGrossAmount:       decimal.Zero.Round(calculationScale),
		TotalWithholdingTax:    decimal.Zero.Round(calculationScale),
		TotalReclaimableAmount: decimal.Zero.Round(calculationScale),
		CalculatedAt:           time.Now().UTC(),
	}
}
