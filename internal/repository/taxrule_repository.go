package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/taxdividend/reclaim-backend/internal/apperrors"
	"github.com/taxdividend/reclaim-backend/internal/model"
)

// TaxRuleRepository provides access to the treaty rule reference data.
type TaxRuleRepository struct {
	db *sql.DB
}

func NewTaxRuleRepository(db *sql.DB) *TaxRuleRepository {
	return &TaxRuleRepository{db: db}
}

const taxRuleColumns = `id, source_country, residence_country, security_type,
	standard_withholding_rate, treaty_rate, relief_at_source_available,
	refund_procedure_available, effective_from, effective_to, notes,
	created_at, updated_at`

// FindApplicableRule returns the rule whose effective window contains the
// given date for the exact (source, residence, security type) triple.
// When several windows overlap, the most recently effective rule wins.
// Returns apperrors.ErrTaxRuleNotFound when no rule matches.
func (r *TaxRuleRepository) FindApplicableRule(sourceCountry, residenceCountry, securityType string, date time.Time) (*model.TaxRule, error) {
	query := `
		SELECT ` + taxRuleColumns + `
		FROM tax_rules
		WHERE source_country = ?
		AND residence_country = ?
		AND security_type = ?
		AND effective_from <= ?
		AND (effective_to IS NULL OR effective_to >= ?)
		ORDER BY effective_from DESC
		LIMIT 1
	`

	day := date.UTC().Format(dateFormat)
	row := r.db.QueryRow(query, sourceCountry, residenceCountry, securityType, day, day)

	rule, err := scanTaxRule(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrTaxRuleNotFound
		}
		return nil, fmt.Errorf("failed to query tax_rules table: %w", err)
	}

	return rule, nil
}

// GetByID returns a single rule or apperrors.ErrTaxRuleNotFound.
func (r *TaxRuleRepository) GetByID(id string) (*model.TaxRule, error) {
	row := r.db.QueryRow(`SELECT `+taxRuleColumns+` FROM tax_rules WHERE id = ?`, id)

	rule, err := scanTaxRule(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrTaxRuleNotFound
		}
		return nil, fmt.Errorf("failed to query tax_rules table: %w", err)
	}

	return rule, nil
}

// GetAll returns every rule ordered by country pair and effective date.
func (r *TaxRuleRepository) GetAll() ([]model.TaxRule, error) {
	query := `
		SELECT ` + taxRuleColumns + `
		FROM tax_rules
		ORDER BY source_country, residence_country, effective_from
	`
	return r.queryRules(query)
}

// GetBySourceAndResidence returns all rules between a country pair.
func (r *TaxRuleRepository) GetBySourceAndResidence(sourceCountry, residenceCountry string) ([]model.TaxRule, error) {
	query := `
		SELECT ` + taxRuleColumns + `
		FROM tax_rules
		WHERE source_country = ? AND residence_country = ?
		ORDER BY effective_from
	`
	return r.queryRules(query, sourceCountry, residenceCountry)
}

// GetActive returns rules whose window is still open on the given date.
func (r *TaxRuleRepository) GetActive(now time.Time) ([]model.TaxRule, error) {
	query := `
		SELECT ` + taxRuleColumns + `
		FROM tax_rules
		WHERE effective_to IS NULL OR effective_to >= ?
		ORDER BY source_country, residence_country
	`
	return r.queryRules(query, now.UTC().Format(dateFormat))
}

// GetExpired returns rules whose window closed before the given date.
func (r *TaxRuleRepository) GetExpired(now time.Time) ([]model.TaxRule, error) {
	query := `
		SELECT ` + taxRuleColumns + `
		FROM tax_rules
		WHERE effective_to IS NOT NULL AND effective_to < ?
		ORDER BY source_country, residence_country
	`
	return r.queryRules(query, now.UTC().Format(dateFormat))
}

// HasTaxTreaty reports whether any treaty rule exists between the two
// countries on the given date, regardless of security type.
func (r *TaxRuleRepository) HasTaxTreaty(sourceCountry, residenceCountry string, date time.Time) (bool, error) {
	query := `
		SELECT COUNT(*)
		FROM tax_rules
		WHERE source_country = ?
		AND residence_country = ?
		AND effective_from <= ?
		AND (effective_to IS NULL OR effective_to >= ?)
	`

	day := date.UTC().Format(dateFormat)
	var count int
	if err := r.db.QueryRow(query, sourceCountry, residenceCountry, day, day).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to query tax_rules table: %w", err)
	}

	return count > 0, nil
}

// Create inserts a new rule.
func (r *TaxRuleRepository) Create(rule *model.TaxRule) error {
	query := `
		INSERT INTO tax_rules (id, source_country, residence_country, security_type,
			standard_withholding_rate, treaty_rate, relief_at_source_available,
			refund_procedure_available, effective_from, effective_to, notes,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var effectiveTo any
	if rule.EffectiveTo != nil {
		effectiveTo = rule.EffectiveTo.UTC().Format(dateFormat)
	}

	_, err := r.db.Exec(query,
		rule.ID,
		rule.SourceCountry,
		rule.ResidenceCountry,
		rule.SecurityType,
		rule.StandardWithholdingRate.String(),
		formatNullDecimal(rule.TreatyRate),
		rule.ReliefAtSourceAvailable,
		rule.RefundProcedureAvailable,
		rule.EffectiveFrom.UTC().Format(dateFormat),
		effectiveTo,
		rule.Notes,
		rule.CreatedAt.UTC().Format(time.RFC3339),
		rule.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: rule for %s -> %s (%s) effective %s",
				apperrors.ErrDuplicateEntry, rule.SourceCountry, rule.ResidenceCountry,
				rule.SecurityType, rule.EffectiveFrom.Format(dateFormat))
		}
		return fmt.Errorf("failed to insert tax rule: %w", err)
	}

	return nil
}

// Update rewrites the mutable fields of an existing rule.
func (r *TaxRuleRepository) Update(rule *model.TaxRule) error {
	query := `
		UPDATE tax_rules
		SET standard_withholding_rate = ?, treaty_rate = ?,
			relief_at_source_available = ?, refund_procedure_available = ?,
			effective_from = ?, effective_to = ?, notes = ?, updated_at = ?
		WHERE id = ?
	`

	var effectiveTo any
	if rule.EffectiveTo != nil {
		effectiveTo = rule.EffectiveTo.UTC().Format(dateFormat)
	}

	result, err := r.db.Exec(query,
		rule.StandardWithholdingRate.String(),
		formatNullDecimal(rule.TreatyRate),
		rule.ReliefAtSourceAvailable,
		rule.RefundProcedureAvailable,
		rule.EffectiveFrom.UTC().Format(dateFormat),
		effectiveTo,
		rule.Notes,
		rule.UpdatedAt.UTC().Format(time.RFC3339),
		rule.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update tax rule: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check updated rows: %w", err)
	}
	if affected == 0 {
		return apperrors.ErrTaxRuleNotFound
	}

	return nil
}

func (r *TaxRuleRepository) queryRules(query string, args ...any) ([]model.TaxRule, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tax_rules table: %w", err)
	}
	defer rows.Close()

	var rules []model.TaxRule
	for rows.Next() {
		rule, err := scanTaxRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tax_rules table results: %w", err)
		}
		rules = append(rules, *rule)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tax_rules table: %w", err)
	}

	return rules, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTaxRule(row rowScanner) (*model.TaxRule, error) {
	var rule model.TaxRule
	var standardRateStr, effectiveFromStr, createdAtStr, updatedAtStr string
	var treatyRateStr, effectiveToStr, notes sql.NullString

	err := row.Scan(
		&rule.ID,
		&rule.SourceCountry,
		&rule.ResidenceCountry,
		&rule.SecurityType,
		&standardRateStr,
		&treatyRateStr,
		&rule.ReliefAtSourceAvailable,
		&rule.RefundProcedureAvailable,
		&effectiveFromStr,
		&effectiveToStr,
		&notes,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return nil, err
	}

	if rule.StandardWithholdingRate, err = parseDecimal(standardRateStr); err != nil {
		return nil, err
	}
	if rule.TreatyRate, err = parseNullDecimal(treatyRateStr); err != nil {
		return nil, err
	}
	if rule.EffectiveFrom, err = ParseTime(effectiveFromStr); err != nil {
		return nil, err
	}
	if rule.EffectiveTo, err = parseNullTime(effectiveToStr); err != nil {
		return nil, err
	}
	if rule.CreatedAt, err = ParseTime(createdAtStr); err != nil {
		return nil, err
	}
	if rule.UpdatedAt, err = ParseTime(updatedAtStr); err != nil {
		return nil, err
	}
	rule.Notes = notes.String

	return &rule, nil
}
