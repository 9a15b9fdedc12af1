package service_test

import (
	"errors"
	"testing"
	"time"

	"github.com/taxdividend/reclaim-backend/internal/apperrors"
	"github.com/taxdividend/reclaim-backend/internal/model"
	"github.com/taxdividend/reclaim-backend/internal/testutil"
	"github.com/taxdividend/reclaim-backend/internal/validation"
)

// TestTaxRuleService_FindApplicableRule tests the rule lookup the
// calculator runs on.
//
// WHY: The lookup decides which treaty rate every calculation uses.
// Exact-triple matching, the effective window, and the tie-break
// between overlapping rules all change reclaim amounts directly.
func TestTaxRuleService_FindApplicableRule(t *testing.T) {
	t.Run("matches the exact country and security type triple", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestTaxRuleService(t, db)

		rule := testutil.NewTaxRule().WithCountries("FR", "CH").Build(t, db)
		testutil.NewTaxRule().WithCountries("FR", "DE").WithTreatyRate("10").Build(t, db)

		found, err := svc.FindApplicableRule("FR", "CH", "EQUITY", testutil.Date(2024, time.June, 1))
		if err != nil {
			t.Fatalf("FindApplicableRule() returned unexpected error: %v", err)
		}
		if found.ID != rule.ID {
			t.Errorf("Expected rule %s, got %s", rule.ID, found.ID)
		}
	})

	t.Run("does not fall back across security types", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestTaxRuleService(t, db)

		testutil.NewTaxRule().WithSecurityType("BOND").Build(t, db)

		_, err := svc.FindApplicableRule("FR", "CH", "EQUITY", testutil.Date(2024, time.June, 1))
		if !errors.Is(err, apperrors.ErrTaxRuleNotFound) {
			t.Errorf("Expected ErrTaxRuleNotFound, got %v", err)
		}
	})

	t.Run("normalizes lowercase inputs", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestTaxRuleService(t, db)

		rule := testutil.NewTaxRule().Build(t, db)

		found, err := svc.FindApplicableRule("fr", "ch", "equity", testutil.Date(2024, time.June, 1))
		if err != nil {
			t.Fatalf("FindApplicableRule() returned unexpected error: %v", err)
		}
		if found.ID != rule.ID {
			t.Errorf("Expected rule %s, got %s", rule.ID, found.ID)
		}
	})

	t.Run("most recently effective rule wins among overlaps", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestTaxRuleService(t, db)

		testutil.NewTaxRule().
			WithTreatyRate("20").
			WithEffectiveFrom(testutil.Date(2015, time.January, 1)).
			Build(t, db)
		newer := testutil.NewTaxRule().
			WithTreatyRate("15").
			WithEffectiveFrom(testutil.Date(2020, time.January, 1)).
			Build(t, db)

		found, err := svc.FindApplicableRule("FR", "CH", "EQUITY", testutil.Date(2024, time.June, 1))
		if err != nil {
			t.Fatalf("FindApplicableRule() returned unexpected error: %v", err)
		}
		if found.ID != newer.ID {
			t.Errorf("Expected the 2020 rule %s to win, got %s", newer.ID, found.ID)
		}
		if found.TreatyRate == nil || !found.TreatyRate.Equal(testutil.Dec(t, "15")) {
			t.Errorf("Expected treaty rate 15, got %v", found.TreatyRate)
		}
	})

	t.Run("honors closed effective windows on boundary dates", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestTaxRuleService(t, db)

		rule := testutil.NewTaxRule().
			WithEffectiveFrom(testutil.Date(2020, time.January, 1)).
			WithEffectiveTo(testutil.Date(2022, time.December, 31)).
			Build(t, db)

		// Both boundaries are inclusive.
		for _, date := range []time.Time{
			testutil.Date(2020, time.January, 1),
			testutil.Date(2022, time.December, 31),
		} {
			found, err := svc.FindApplicableRule("FR", "CH", "EQUITY", date)
			if err != nil {
				t.Fatalf("FindApplicableRule(%s) returned unexpected error: %v", date.Format("2006-01-02"), err)
			}
			if found.ID != rule.ID {
				t.Errorf("Expected rule %s on %s, got %s", rule.ID, date.Format("2006-01-02"), found.ID)
			}
		}

		_, err := svc.FindApplicableRule("FR", "CH", "EQUITY", testutil.Date(2023, time.January, 1))
		if !errors.Is(err, apperrors.ErrTaxRuleNotFound) {
			t.Errorf("Expected ErrTaxRuleNotFound after window close, got %v", err)
		}
	})

	t.Run("defaults a zero date to today", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestTaxRuleService(t, db)

		rule := testutil.NewTaxRule().Build(t, db)

		found, err := svc.FindApplicableRule("FR", "CH", "EQUITY", time.Time{})
		if err != nil {
			t.Fatalf("FindApplicableRule() returned unexpected error: %v", err)
		}
		if found.ID != rule.ID {
			t.Errorf("Expected rule %s, got %s", rule.ID, found.ID)
		}
	})
}

// TestTaxRuleService_Queries tests the browsing operations.
func TestTaxRuleService_Queries(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestTaxRuleService(t, db)

	active := testutil.NewTaxRule().WithCountries("FR", "CH").Build(t, db)
	expired := testutil.NewTaxRule().
		WithCountries("DE", "CH").
		WithEffectiveFrom(testutil.Date(2000, time.January, 1)).
		WithEffectiveTo(testutil.Date(2010, time.December, 31)).
		Build(t, db)

	t.Run("lists active rules", func(t *testing.T) {
		rules, err := svc.GetActiveRules()
		if err != nil {
			t.Fatalf("GetActiveRules() returned unexpected error: %v", err)
		}
		if len(rules) != 1 || rules[0].ID != active.ID {
			t.Errorf("Expected only the open-ended rule, got %d rules", len(rules))
		}
	})

	t.Run("lists expired rules", func(t *testing.T) {
		rules, err := svc.GetExpiredRules()
		if err != nil {
			t.Fatalf("GetExpiredRules() returned unexpected error: %v", err)
		}
		if len(rules) != 1 || rules[0].ID != expired.ID {
			t.Errorf("Expected only the closed rule, got %d rules", len(rules))
		}
	})

	t.Run("lists rules between a country pair", func(t *testing.T) {
		rules, err := svc.GetRulesBetweenCountries("fr", "ch")
		if err != nil {
			t.Fatalf("GetRulesBetweenCountries() returned unexpected error: %v", err)
		}
		if len(rules) != 1 || rules[0].ID != active.ID {
			t.Errorf("Expected one FR->CH rule, got %d", len(rules))
		}
	})

	t.Run("reports treaty existence regardless of security type", func(t *testing.T) {
		has, err := svc.HasTaxTreaty("FR", "CH", testutil.Date(2024, time.June, 1))
		if err != nil {
			t.Fatalf("HasTaxTreaty() returned unexpected error: %v", err)
		}
		if !has {
			t.Error("Expected a treaty between FR and CH")
		}

		has, err = svc.HasTaxTreaty("DE", "CH", testutil.Date(2024, time.June, 1))
		if err != nil {
			t.Fatalf("HasTaxTreaty() returned unexpected error: %v", err)
		}
		if has {
			t.Error("Expected no treaty between DE and CH in 2024")
		}
	})

	t.Run("answers treaty rate queries", func(t *testing.T) {
		info, err := svc.GetTreatyRate("FR", "CH", "EQUITY", testutil.Date(2024, time.June, 1))
		if err != nil {
			t.Fatalf("GetTreatyRate() returned unexpected error: %v", err)
		}
		if info.TaxRuleID != active.ID {
			t.Errorf("Expected rule %s, got %s", active.ID, info.TaxRuleID)
		}
		if info.TreatyRate == nil || !info.TreatyRate.Equal(testutil.Dec(t, "15")) {
			t.Errorf("Expected treaty rate 15, got %v", info.TreatyRate)
		}

		_, err = svc.GetTreatyRate("DE", "CH", "EQUITY", testutil.Date(2024, time.June, 1))
		if !errors.Is(err, apperrors.ErrTaxRuleNotFound) {
			t.Errorf("Expected ErrTaxRuleNotFound, got %v", err)
		}
	})
}

// TestTaxRuleService_CreateTaxRule tests admin rule creation.
//
// WHY: Rules are reference data maintained by hand; normalization and
// validation here are the only guard against malformed treaty entries.
func TestTaxRuleService_CreateTaxRule(t *testing.T) {
	t.Run("normalizes and persists a valid rule", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestTaxRuleService(t, db)

		treatyRate := testutil.Dec(t, "15")
		created, err := svc.CreateTaxRule(&model.TaxRule{
			SourceCountry:            "us",
			ResidenceCountry:         "ch",
			SecurityType:             "equity",
			StandardWithholdingRate:  testutil.Dec(t, "30"),
			TreatyRate:               &treatyRate,
			RefundProcedureAvailable: true,
			EffectiveFrom:            testutil.Date(2020, time.January, 1),
		})
		if err != nil {
			t.Fatalf("CreateTaxRule() returned unexpected error: %v", err)
		}

		if created.ID == "" {
			t.Error("Expected a generated rule id")
		}
		if created.SourceCountry != "US" || created.SecurityType != "EQUITY" {
			t.Errorf("Expected normalized uppercase fields, got %s/%s",
				created.SourceCountry, created.SecurityType)
		}

		found, err := svc.FindApplicableRule("US", "CH", "EQUITY", testutil.Date(2024, time.June, 1))
		if err != nil {
			t.Fatalf("FindApplicableRule() returned unexpected error: %v", err)
		}
		if found.ID != created.ID {
			t.Errorf("Expected created rule %s, got %s", created.ID, found.ID)
		}
	})

	t.Run("rejects a duplicate rule for the same triple and start date", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestTaxRuleService(t, db)

		testutil.NewTaxRule().
			WithCountries("FR", "CH").
			WithEffectiveFrom(testutil.Date(2020, time.January, 1)).
			Build(t, db)

		_, err := svc.CreateTaxRule(&model.TaxRule{
			SourceCountry:           "FR",
			ResidenceCountry:        "CH",
			SecurityType:            "EQUITY",
			StandardWithholdingRate: testutil.Dec(t, "30"),
			EffectiveFrom:           testutil.Date(2020, time.January, 1),
		})
		if !errors.Is(err, apperrors.ErrDuplicateEntry) {
			t.Errorf("Expected ErrDuplicateEntry, got %v", err)
		}
	})

	t.Run("rejects identical source and residence countries", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestTaxRuleService(t, db)

		_, err := svc.CreateTaxRule(&model.TaxRule{
			SourceCountry:           "CH",
			ResidenceCountry:        "CH",
			SecurityType:            "EQUITY",
			StandardWithholdingRate: testutil.Dec(t, "35"),
			EffectiveFrom:           testutil.Date(2020, time.January, 1),
		})

		var verr *validation.Error
		if !errors.As(err, &verr) {
			t.Fatalf("Expected validation.Error, got %v", err)
		}
	})

	t.Run("rejects out-of-range rates", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestTaxRuleService(t, db)

		bad := testutil.Dec(t, "101")
		_, err := svc.CreateTaxRule(&model.TaxRule{
			SourceCountry:           "FR",
			ResidenceCountry:        "CH",
			SecurityType:            "EQUITY",
			StandardWithholdingRate: testutil.Dec(t, "30"),
			TreatyRate:              &bad,
			EffectiveFrom:           testutil.Date(2020, time.January, 1),
		})

		var verr *validation.Error
		if !errors.As(err, &verr) {
			t.Fatalf("Expected validation.Error, got %v", err)
		}
		if _, ok := verr.Fields["treatyRate"]; !ok {
			t.Errorf("Expected treatyRate field error, got %v", verr.Fields)
		}
	})

	t.Run("rejects effectiveTo before effectiveFrom", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestTaxRuleService(t, db)

		to := testutil.Date(2019, time.January, 1)
		_, err := svc.CreateTaxRule(&model.TaxRule{
			SourceCountry:           "FR",
			ResidenceCountry:        "CH",
			SecurityType:            "EQUITY",
			StandardWithholdingRate: testutil.Dec(t, "30"),
			EffectiveFrom:           testutil.Date(2020, time.January, 1),
			EffectiveTo:             &to,
		})

		var verr *validation.Error
		if !errors.As(err, &verr) {
			t.Fatalf("Expected validation.Error, got %v", err)
		}
	})
}

// TestTaxRuleService_UpdateTaxRule tests admin rule rewrites.
func TestTaxRuleService_UpdateTaxRule(t *testing.T) {
	t.Run("rewrites an existing rule", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestTaxRuleService(t, db)

		rule := testutil.NewTaxRule().Build(t, db)

		newRate := testutil.Dec(t, "12.8")
		rule.TreatyRate = &newRate

		updated, err := svc.UpdateTaxRule(rule)
		if err != nil {
			t.Fatalf("UpdateTaxRule() returned unexpected error: %v", err)
		}
		if updated.TreatyRate == nil || !updated.TreatyRate.Equal(newRate) {
			t.Errorf("Expected treaty rate 12.8, got %v", updated.TreatyRate)
		}

		stored, err := svc.GetTaxRule(rule.ID)
		if err != nil {
			t.Fatalf("Failed to reload rule: %v", err)
		}
		if stored.TreatyRate == nil || !stored.TreatyRate.Equal(newRate) {
			t.Errorf("Expected stored treaty rate 12.8, got %v", stored.TreatyRate)
		}
	})

	t.Run("returns not found for unknown rule", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestTaxRuleService(t, db)

		rule := &model.TaxRule{
			ID:                      testutil.MakeID(),
			SourceCountry:           "FR",
			ResidenceCountry:        "CH",
			SecurityType:            "EQUITY",
			StandardWithholdingRate: testutil.Dec(t, "30"),
			EffectiveFrom:           testutil.Date(2020, time.January, 1),
		}

		_, err := svc.UpdateTaxRule(rule)
		if !errors.Is(err, apperrors.ErrTaxRuleNotFound) {
			t.Errorf("Expected ErrTaxRuleNotFound, got %v", err)
		}
	})
}
