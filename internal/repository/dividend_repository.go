package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/taxdividend/reclaim-backend/internal/apperrors"
	"github.com/taxdividend/reclaim-backend/internal/model"
)

// DividendRepository provides access to persisted dividend records.
type DividendRepository struct {
	db *sql.DB
}

func NewDividendRepository(db *sql.DB) *DividendRepository {
	return &DividendRepository{db: db}
}

const dividendColumns = `id, user_id, form_id, statement_id, security_name, isin,
	payment_date, gross_amount, currency, withholding_tax, withholding_rate,
	reclaimable_amount, treaty_rate, source_country, created_at`

// GetByID returns a single dividend or apperrors.ErrDividendNotFound.
func (r *DividendRepository) GetByID(id string) (*model.Dividend, error) {
	row := r.db.QueryRow(`SELECT `+dividendColumns+` FROM dividends WHERE id = ?`, id)

	dividend, err := scanDividend(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrDividendNotFound
		}
		return nil, fmt.Errorf("failed to query dividends table: %w", err)
	}

	return dividend, nil
}

// GetByUserID returns all dividends owned by a user, oldest payment first.
func (r *DividendRepository) GetByUserID(userID string) ([]model.Dividend, error) {
	query := `
		SELECT ` + dividendColumns + `
		FROM dividends
		WHERE user_id = ?
		ORDER BY payment_date ASC
	`
	return r.queryDividends(query, userID)
}

// GetAllByIDs returns the dividends matching the given ids. Missing ids
// are silently absent from the result.
func (r *DividendRepository) GetAllByIDs(ids []string) ([]model.Dividend, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := `
		SELECT ` + dividendColumns + `
		FROM dividends
		WHERE id IN (` + strings.Join(placeholders, ",") + `)
		ORDER BY payment_date ASC
	`
	return r.queryDividends(query, args...)
}

// GetUnsubmitted returns every dividend not yet linked to a generated form.
func (r *DividendRepository) GetUnsubmitted() ([]model.Dividend, error) {
	query := `
		SELECT ` + dividendColumns + `
		FROM dividends
		WHERE form_id IS NULL
		ORDER BY payment_date ASC
	`
	return r.queryDividends(query)
}

// UpdateCalculation writes the computed reclaimable amount back onto a
// dividend. The treaty rate column is only touched when the calculation
// produced one; an existing value is preserved otherwise.
func (r *DividendRepository) UpdateCalculation(id string, reclaimableAmount decimal.Decimal, treatyRate *decimal.Decimal) error {
	var result sql.Result
	var err error

	if treatyRate != nil {
		result, err = r.db.Exec(
			`UPDATE dividends SET reclaimable_amount = ?, treaty_rate = ? WHERE id = ?`,
			reclaimableAmount.String(), treatyRate.String(), id,
		)
	} else {
		result, err = r.db.Exec(
			`UPDATE dividends SET reclaimable_amount = ? WHERE id = ?`,
			reclaimableAmount.String(), id,
		)
	}
	if err != nil {
		return fmt.Errorf("failed to update dividend calculation: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check updated rows: %w", err)
	}
	if affected == 0 {
		return apperrors.ErrDividendNotFound
	}

	return nil
}

func (r *DividendRepository) queryDividends(query string, args ...any) ([]model.Dividend, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query dividends table: %w", err)
	}
	defer rows.Close()

	var dividends []model.Dividend
	for rows.Next() {
		dividend, err := scanDividend(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dividends table results: %w", err)
		}
		dividends = append(dividends, *dividend)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dividends table: %w", err)
	}

	return dividends, nil
}

func scanDividend(row rowScanner) (*model.Dividend, error) {
	var d model.Dividend
	var formID, statementID, treatyRateStr sql.NullString
	var paymentDateStr, grossStr, withholdingStr, rateStr, reclaimableStr, createdAtStr string

	err := row.Scan(
		&d.ID,
		&d.UserID,
		&formID,
		&statementID,
		&d.SecurityName,
		&d.ISIN,
		&paymentDateStr,
		&grossStr,
		&d.Currency,
		&withholdingStr,
		&rateStr,
		&reclaimableStr,
		&treatyRateStr,
		&d.SourceCountry,
		&createdAtStr,
	)
	if err != nil {
		return nil, err
	}

	d.FormID = formID.String
	d.StatementID = statementID.String

	if d.PaymentDate, err = ParseTime(paymentDateStr); err != nil {
		return nil, err
	}
	if d.GrossAmount, err = parseDecimal(grossStr); err != nil {
		return nil, err
	}
	if d.WithholdingTax, err = parseDecimal(withholdingStr); err != nil {
		return nil, err
	}
	if d.WithholdingRate, err = parseDecimal(rateStr); err != nil {
		return nil, err
	}
	if d.ReclaimableAmount, err = parseDecimal(reclaimableStr); err != nil {
		return nil, err
	}
	if d.TreatyRate, err = parseNullDecimal(treatyRateStr); err != nil {
		return nil, err
	}
	if d.CreatedAt, err = ParseTime(createdAtStr); err != nil {
		return nil, err
	}

	return &d, nil
}
