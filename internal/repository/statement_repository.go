package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/taxdividend/reclaim-backend/internal/apperrors"
	"github.com/taxdividend/reclaim-backend/internal/model"
)

// StatementRepository provides access to uploaded dividend statements.
type StatementRepository struct {
	db *sql.DB
}

func NewStatementRepository(db *sql.DB) *StatementRepository {
	return &StatementRepository{db: db}
}

const statementColumns = `id, user_id, source_file_name, source_file_key, broker,
	period_start, period_end, status, parsed_by, parsed_at, validated_at,
	sent_at, sent_method, sent_notes, paid_at, paid_amount, dividend_count,
	total_gross_amount, total_reclaimable, created_at, updated_at`

// GetByID returns a statement regardless of owner, or
// apperrors.ErrStatementNotFound.
func (r *StatementRepository) GetByID(id string) (*model.DividendStatement, error) {
	row := r.db.QueryRow(`SELECT `+statementColumns+` FROM dividend_statements WHERE id = ?`, id)
	return r.scanOne(row)
}

// GetByIDAndUserID returns a statement scoped to its owner. A statement
// owned by another user is reported as not found.
func (r *StatementRepository) GetByIDAndUserID(id, userID string) (*model.DividendStatement, error) {
	row := r.db.QueryRow(
		`SELECT `+statementColumns+` FROM dividend_statements WHERE id = ? AND user_id = ?`,
		id, userID,
	)
	return r.scanOne(row)
}

// GetByUserID returns all statements of a user, newest first.
func (r *StatementRepository) GetByUserID(userID string) ([]model.DividendStatement, error) {
	query := `
		SELECT ` + statementColumns + `
		FROM dividend_statements
		WHERE user_id = ?
		ORDER BY created_at DESC
	`
	return r.queryStatements(query, userID)
}

// GetByUserIDAndStatus returns the user's statements in one status, newest first.
func (r *StatementRepository) GetByUserIDAndStatus(userID string, status model.StatementStatus) ([]model.DividendStatement, error) {
	query := `
		SELECT ` + statementColumns + `
		FROM dividend_statements
		WHERE user_id = ? AND status = ?
		ORDER BY created_at DESC
	`
	return r.queryStatements(query, userID, string(status))
}

// CountByStatus counts the user's statements in one status.
func (r *StatementRepository) CountByStatus(userID string, status model.StatementStatus) (int, error) {
	var count int
	err := r.db.QueryRow(
		`SELECT COUNT(*) FROM dividend_statements WHERE user_id = ? AND status = ?`,
		userID, string(status),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to query dividend_statements table: %w", err)
	}
	return count, nil
}

// Create inserts a new statement.
func (r *StatementRepository) Create(st *model.DividendStatement) error {
	query := `
		INSERT INTO dividend_statements (id, user_id, source_file_name, source_file_key,
			broker, period_start, period_end, status, parsed_by, parsed_at, validated_at,
			sent_at, sent_method, sent_notes, paid_at, paid_amount, dividend_count,
			total_gross_amount, total_reclaimable, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Exec(query,
		st.ID,
		st.UserID,
		st.SourceFileName,
		st.SourceFileKey,
		st.Broker,
		st.PeriodStart.UTC().Format(dateFormat),
		st.PeriodEnd.UTC().Format(dateFormat),
		string(st.Status),
		st.ParsedBy,
		formatNullTime(st.ParsedAt),
		formatNullTime(st.ValidatedAt),
		formatNullTime(st.SentAt),
		st.SentMethod,
		st.SentNotes,
		formatNullTime(st.PaidAt),
		formatNullDecimal(st.PaidAmount),
		st.DividendCount,
		st.TotalGrossAmount.String(),
		st.TotalReclaimable.String(),
		st.CreatedAt.UTC().Format(time.RFC3339),
		st.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert dividend statement: %w", err)
	}

	return nil
}

// Update rewrites the mutable fields of an existing statement.
func (r *StatementRepository) Update(st *model.DividendStatement) error {
	query := `
		UPDATE dividend_statements
		SET status = ?, parsed_by = ?, parsed_at = ?, validated_at = ?, sent_at = ?,
			sent_method = ?, sent_notes = ?, paid_at = ?, paid_amount = ?,
			dividend_count = ?, total_gross_amount = ?, total_reclaimable = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.Exec(query,
		string(st.Status),
		st.ParsedBy,
		formatNullTime(st.ParsedAt),
		formatNullTime(st.ValidatedAt),
		formatNullTime(st.SentAt),
		st.SentMethod,
		st.SentNotes,
		formatNullTime(st.PaidAt),
		formatNullDecimal(st.PaidAmount),
		st.DividendCount,
		st.TotalGrossAmount.String(),
		st.TotalReclaimable.String(),
		st.UpdatedAt.UTC().Format(time.RFC3339),
		st.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update dividend statement: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check updated rows: %w", err)
	}
	if affected == 0 {
		return apperrors.ErrStatementNotFound
	}

	return nil
}

// Delete removes a statement row. Linked dividends keep their rows; the
// statement_id foreign key is set to NULL by the schema.
func (r *StatementRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM dividend_statements WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete dividend statement: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if affected == 0 {
		return apperrors.ErrStatementNotFound
	}

	return nil
}

func (r *StatementRepository) scanOne(row rowScanner) (*model.DividendStatement, error) {
	st, err := scanStatement(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrStatementNotFound
		}
		return nil, fmt.Errorf("failed to query dividend_statements table: %w", err)
	}
	return st, nil
}

func (r *StatementRepository) queryStatements(query string, args ...any) ([]model.DividendStatement, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query dividend_statements table: %w", err)
	}
	defer rows.Close()

	var statements []model.DividendStatement
	for rows.Next() {
		st, err := scanStatement(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan dividend_statements table results: %w", err)
		}
		statements = append(statements, *st)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating dividend_statements table: %w", err)
	}

	return statements, nil
}

func scanStatement(row rowScanner) (*model.DividendStatement, error) {
	var st model.DividendStatement
	var statusStr, periodStartStr, periodEndStr, createdAtStr, updatedAtStr string
	var broker, parsedBy, sentMethod, sentNotes sql.NullString
	var parsedAt, validatedAt, sentAt, paidAt, paidAmount sql.NullString
	var totalGrossStr, totalReclaimableStr string

	err := row.Scan(
		&st.ID,
		&st.UserID,
		&st.SourceFileName,
		&st.SourceFileKey,
		&broker,
		&periodStartStr,
		&periodEndStr,
		&statusStr,
		&parsedBy,
		&parsedAt,
		&validatedAt,
		&sentAt,
		&sentMethod,
		&sentNotes,
		&paidAt,
		&paidAmount,
		&st.DividendCount,
		&totalGrossStr,
		&totalReclaimableStr,
		&createdAtStr,
		&updatedAtStr,
	)
	if err != nil {
		return nil, err
	}

	st.Status = model.StatementStatus(statusStr)
	st.Broker = broker.String
	st.ParsedBy = parsedBy.String
	st.SentMethod = sentMethod.String
	st.SentNotes = sentNotes.String

	if st.PeriodStart, err = ParseTime(periodStartStr); err != nil {
		return nil, err
	}
	if st.PeriodEnd, err = ParseTime(periodEndStr); err != nil {
		return nil, err
	}
	if st.ParsedAt, err = parseNullTime(parsedAt); err != nil {
		return nil, err
	}
	if st.ValidatedAt, err = parseNullTime(validatedAt); err != nil {
		return nil, err
	}
	if st.SentAt, err = parseNullTime(sentAt); err != nil {
		return nil, err
	}
	if st.PaidAt, err = parseNullTime(paidAt); err != nil {
		return nil, err
	}
	if st.PaidAmount, err = parseNullDecimal(paidAmount); err != nil {
		return nil, err
	}
	if st.TotalGrossAmount, err = parseDecimal(totalGrossStr); err != nil {
		return nil, err
	}
	if st.TotalReclaimable, err = parseDecimal(totalReclaimableStr); err != nil {
		return nil, err
	}
	if st.CreatedAt, err = ParseTime(createdAtStr); err != nil {
		return nil, err
	}
	if st.UpdatedAt, err = ParseTime(updatedAtStr); err != nil {
		return nil, err
	}

	return &st, nil
}
