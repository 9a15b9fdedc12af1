package testutil

import (
	"database/sql"
	"testing"

	"github.com/taxdividend/reclaim-backend/internal/repository"
	"github.com/taxdividend/reclaim-backend/internal/service"
)

// NewTestCalculationService wires a TaxCalculationService against the
// given test database.
func NewTestCalculationService(t *testing.T, db *sql.DB) *service.TaxCalculationService {
	t.Helper()

	return service.NewTaxCalculationService(
		repository.NewDividendRepository(db),
		service.NewTaxRuleService(repository.NewTaxRuleRepository(db)),
		repository.NewUserRepository(db),
	)
}

// NewTestTaxRuleService wires a TaxRuleService against the given test database.
func NewTestTaxRuleService(t *testing.T, db *sql.DB) *service.TaxRuleService {
	t.Helper()

	return service.NewTaxRuleService(repository.NewTaxRuleRepository(db))
}

// NewTestStatementService wires a StatementService against the given test database.
func NewTestStatementService(t *testing.T, db *sql.DB) *service.StatementService {
	t.Helper()

	return service.NewStatementService(
		repository.NewStatementRepository(db),
		repository.NewUserRepository(db),
	)
}
