package testutil

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/taxdividend/reclaim-backend/internal/model"
)

const (
	testDateFormat = "2006-01-02"
	testTimeFormat = time.RFC3339
)

// UserBuilder provides a fluent interface for creating test users.
//
// Example usage:
//
//	user := testutil.NewUser().WithResidenceCountry("CH").Build(t, db)
type UserBuilder struct {
	ID               string
	Email            string
	ResidenceCountry string
}

// NewUser creates a UserBuilder with sensible defaults.
func NewUser() *UserBuilder {
	id := MakeID()
	return &UserBuilder{
		ID:               id,
		Email:            fmt.Sprintf("user-%s@example.com", id[:8]),
		ResidenceCountry: "CH",
	}
}

// WithID sets a custom ID.
func (b *UserBuilder) WithID(id string) *UserBuilder {
	b.ID = id
	return b
}

// WithResidenceCountry sets the residence country.
func (b *UserBuilder) WithResidenceCountry(country string) *UserBuilder {
	b.ResidenceCountry = country
	return b
}

// WithoutResidenceCountry clears the residence country.
func (b *UserBuilder) WithoutResidenceCountry() *UserBuilder {
	b.ResidenceCountry = ""
	return b
}

// Build inserts the user and returns the model.
func (b *UserBuilder) Build(t *testing.T, db *sql.DB) *model.User {
	t.Helper()

	var residence any
	if b.ResidenceCountry != "" {
		residence = b.ResidenceCountry
	}

	now := time.Now().UTC()
	_, err := db.Exec(
		`INSERT INTO users (id, email, residence_country, created_at) VALUES (?, ?, ?, ?)`,
		b.ID, b.Email, residence, now.Format(testTimeFormat),
	)
	if err != nil {
		t.Fatalf("Failed to insert test user: %v", err)
	}

	return &model.User{
		ID:               b.ID,
		Email:            b.Email,
		ResidenceCountry: b.ResidenceCountry,
		CreatedAt:        now,
	}
}

// TaxRuleBuilder provides a fluent interface for creating test treaty rules.
//
// Example usage:
//
//	rule := testutil.NewTaxRule().
//	    WithCountries("FR", "CH").
//	    WithTreatyRate("15").
//	    Build(t, db)
type TaxRuleBuilder struct {
	ID                       string
	SourceCountry            string
	ResidenceCountry         string
	SecurityType             string
	StandardWithholdingRate  string
	TreatyRate               *string
	ReliefAtSourceAvailable  bool
	RefundProcedureAvailable bool
	EffectiveFrom            time.Time
	EffectiveTo              *time.Time
	Notes                    string
}

// NewTaxRule creates a TaxRuleBuilder with sensible defaults: an open-ended
// FR -> CH equity rule with a 15% treaty rate and refund procedure.
func NewTaxRule() *TaxRuleBuilder {
	treatyRate := "15"
	return &TaxRuleBuilder{
		ID:                       MakeID(),
		SourceCountry:            "FR",
		ResidenceCountry:         "CH",
		SecurityType:             "EQUITY",
		StandardWithholdingRate:  "30",
		TreatyRate:               &treatyRate,
		RefundProcedureAvailable: true,
		EffectiveFrom:            Date(2020, time.January, 1),
	}
}

// WithCountries sets the source and residence countries.
func (b *TaxRuleBuilder) WithCountries(source, residence string) *TaxRuleBuilder {
	b.SourceCountry = source
	b.ResidenceCountry = residence
	return b
}

// WithSecurityType sets the security type.
func (b *TaxRuleBuilder) WithSecurityType(securityType string) *TaxRuleBuilder {
	b.SecurityType = securityType
	return b
}

// WithStandardRate sets the standard withholding rate.
func (b *TaxRuleBuilder) WithStandardRate(rate string) *TaxRuleBuilder {
	b.StandardWithholdingRate = rate
	return b
}

// WithTreatyRate sets the treaty rate.
func (b *TaxRuleBuilder) WithTreatyRate(rate string) *TaxRuleBuilder {
	b.TreatyRate = &rate
	return b
}

// WithoutTreatyRate clears the treaty rate (treaty without reduced rate).
func (b *TaxRuleBuilder) WithoutTreatyRate() *TaxRuleBuilder {
	b.TreatyRate = nil
	return b
}

// WithReliefAtSource sets relief-at-source availability.
func (b *TaxRuleBuilder) WithReliefAtSource(available bool) *TaxRuleBuilder {
	b.ReliefAtSourceAvailable = available
	return b
}

// WithRefundProcedure sets refund procedure availability.
func (b *TaxRuleBuilder) WithRefundProcedure(available bool) *TaxRuleBuilder {
	b.RefundProcedureAvailable = available
	return b
}

// WithEffectiveFrom sets the start of the effective window.
func (b *TaxRuleBuilder) WithEffectiveFrom(from time.Time) *TaxRuleBuilder {
	b.EffectiveFrom = from
	return b
}

// WithEffectiveTo closes the effective window.
func (b *TaxRuleBuilder) WithEffectiveTo(to time.Time) *TaxRuleBuilder {
	b.EffectiveTo = &to
	return b
}

// Build inserts the rule and returns the model.
func (b *TaxRuleBuilder) Build(t *testing.T, db *sql.DB) *model.TaxRule {
	t.Helper()

	var treatyRate any
	if b.TreatyRate != nil {
		treatyRate = *b.TreatyRate
	}
	var effectiveTo any
	if b.EffectiveTo != nil {
		effectiveTo = b.EffectiveTo.Format(testDateFormat)
	}

	now := time.Now().UTC()
	_, err := db.Exec(
		`INSERT INTO tax_rules (id, source_country, residence_country, security_type,
			standard_withholding_rate, treaty_rate, relief_at_source_available,
			refund_procedure_available, effective_from, effective_to, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.SourceCountry, b.ResidenceCountry, b.SecurityType,
		b.StandardWithholdingRate, treatyRate, b.ReliefAtSourceAvailable,
		b.RefundProcedureAvailable, b.EffectiveFrom.Format(testDateFormat), effectiveTo,
		b.Notes, now.Format(testTimeFormat), now.Format(testTimeFormat),
	)
	if err != nil {
		t.Fatalf("Failed to insert test tax rule: %v", err)
	}

	rule := &model.TaxRule{
		ID:                       b.ID,
		SourceCountry:            b.SourceCountry,
		ResidenceCountry:         b.ResidenceCountry,
		SecurityType:             b.SecurityType,
		StandardWithholdingRate:  decimal.RequireFromString(b.StandardWithholdingRate),
		ReliefAtSourceAvailable:  b.ReliefAtSourceAvailable,
		RefundProcedureAvailable: b.RefundProcedureAvailable,
		EffectiveFrom:            b.EffectiveFrom,
		EffectiveTo:              b.EffectiveTo,
		Notes:                    b.Notes,
		CreatedAt:                now,
		UpdatedAt:                now,
	}
	if b.TreatyRate != nil {
		d := decimal.RequireFromString(*b.TreatyRate)
		rule.TreatyRate = &d
	}
	return rule
}

// DividendBuilder provides a fluent interface for creating test dividends.
//
// Example usage:
//
//	dividend := testutil.NewDividend(user.ID).
//	    WithAmounts("100.00", "30.00").
//	    WithSourceCountry("FR").
//	    Build(t, db)
type DividendBuilder struct {
	ID              string
	UserID          string
	FormID          string
	StatementID     string
	SecurityName    string
	ISIN            string
	PaymentDate     time.Time
	GrossAmount     string
	Currency        string
	WithholdingTax  string
	WithholdingRate string
	SourceCountry   string
}

// NewDividend creates a DividendBuilder with sensible defaults: a French
// equity dividend of 100.00 EUR with 30.00 withheld.
func NewDividend(userID string) *DividendBuilder {
	return &DividendBuilder{
		ID:              MakeID(),
		UserID:          userID,
		SecurityName:    "Total Energies SE",
		ISIN:            "FR0000120271",
		PaymentDate:     Date(2024, time.June, 15),
		GrossAmount:     "100.00",
		Currency:        "EUR",
		WithholdingTax:  "30.00",
		WithholdingRate: "30",
		SourceCountry:   "FR",
	}
}

// WithAmounts sets the gross amount and withholding tax.
func (b *DividendBuilder) WithAmounts(gross, withholdingTax string) *DividendBuilder {
	b.GrossAmount = gross
	b.WithholdingTax = withholdingTax
	return b
}

// WithSourceCountry sets the source country.
func (b *DividendBuilder) WithSourceCountry(country string) *DividendBuilder {
	b.SourceCountry = country
	return b
}

// WithPaymentDate sets the payment date.
func (b *DividendBuilder) WithPaymentDate(date time.Time) *DividendBuilder {
	b.PaymentDate = date
	return b
}

// WithISIN sets the security identifier.
func (b *DividendBuilder) WithISIN(isin string) *DividendBuilder {
	b.ISIN = isin
	return b
}

// WithForm links the dividend to a generated form, marking it submitted.
func (b *DividendBuilder) WithForm(formID string) *DividendBuilder {
	b.FormID = formID
	return b
}

// WithStatement links the dividend to its source statement.
func (b *DividendBuilder) WithStatement(statementID string) *DividendBuilder {
	b.StatementID = statementID
	return b
}

// Build inserts the dividend and returns the model.
func (b *DividendBuilder) Build(t *testing.T, db *sql.DB) *model.Dividend {
	t.Helper()

	var formID, statementID any
	if b.FormID != "" {
		formID = b.FormID
	}
	if b.StatementID != "" {
		statementID = b.StatementID
	}

	now := time.Now().UTC()
	_, err := db.Exec(
		`INSERT INTO dividends (id, user_id, form_id, statement_id, security_name, isin,
			payment_date, gross_amount, currency, withholding_tax, withholding_rate,
			reclaimable_amount, source_country, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, '0', ?, ?)`,
		b.ID, b.UserID, formID, statementID, b.SecurityName, b.ISIN,
		b.PaymentDate.Format(testDateFormat), b.GrossAmount, b.Currency,
		b.WithholdingTax, b.WithholdingRate, b.SourceCountry, now.Format(testTimeFormat),
	)
	if err != nil {
		t.Fatalf("Failed to insert test dividend: %v", err)
	}

	return &model.Dividend{
		ID:                b.ID,
		UserID:            b.UserID,
		FormID:            b.FormID,
		StatementID:       b.StatementID,
		SecurityName:      b.SecurityName,
		ISIN:              b.ISIN,
		PaymentDate:       b.PaymentDate,
		GrossAmount:       decimal.RequireFromString(b.GrossAmount),
		Currency:          b.Currency,
		WithholdingTax:    decimal.RequireFromString(b.WithholdingTax),
		WithholdingRate:   decimal.RequireFromString(b.WithholdingRate),
		ReclaimableAmount: decimal.Zero,
		SourceCountry:     b.SourceCountry,
		CreatedAt:         now,
	}
}

// StatementBuilder provides a fluent interface for creating test statements.
type StatementBuilder struct {
	ID          string
	UserID      string
	FileName    string
	FileKey     string
	Broker      string
	PeriodStart time.Time
	PeriodEnd   time.Time
	Status      model.StatementStatus
}

// NewStatement creates a StatementBuilder with sensible defaults in UPLOADED.
func NewStatement(userID string) *StatementBuilder {
	id := MakeID()
	return &StatementBuilder{
		ID:          id,
		UserID:      userID,
		FileName:    "statement-2024.pdf",
		FileKey:     "statements/" + id + ".pdf",
		Broker:      "Interactive Brokers",
		PeriodStart: Date(2024, time.January, 1),
		PeriodEnd:   Date(2024, time.December, 31),
		Status:      model.StatusUploaded,
	}
}

// WithStatus sets the initial status.
func (b *StatementBuilder) WithStatus(status model.StatementStatus) *StatementBuilder {
	b.Status = status
	return b
}

// WithPeriod sets the covered period.
func (b *StatementBuilder) WithPeriod(start, end time.Time) *StatementBuilder {
	b.PeriodStart = start
	b.PeriodEnd = end
	return b
}

// Build inserts the statement and returns the model.
func (b *StatementBuilder) Build(t *testing.T, db *sql.DB) *model.DividendStatement {
	t.Helper()

	now := time.Now().UTC()
	_, err := db.Exec(
		`INSERT INTO dividend_statements (id, user_id, source_file_name, source_file_key,
			broker, period_start, period_end, status, dividend_count,
			total_gross_amount, total_reclaimable, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, '0', '0', ?, ?)`,
		b.ID, b.UserID, b.FileName, b.FileKey, b.Broker,
		b.PeriodStart.Format(testDateFormat), b.PeriodEnd.Format(testDateFormat),
		string(b.Status), now.Format(testTimeFormat), now.Format(testTimeFormat),
	)
	if err != nil {
		t.Fatalf("Failed to insert test statement: %v", err)
	}

	return &model.DividendStatement{
		ID:               b.ID,
		UserID:           b.UserID,
		SourceFileName:   b.FileName,
		SourceFileKey:    b.FileKey,
		Broker:           b.Broker,
		PeriodStart:      b.PeriodStart,
		PeriodEnd:        b.PeriodEnd,
		Status:           b.Status,
		TotalGrossAmount: decimal.Zero,
		TotalReclaimable: decimal.Zero,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}
