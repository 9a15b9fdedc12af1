package service

import (
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/taxdividend/reclaim-backend/internal/apperrors"
	"github.com/taxdividend/reclaim-backend/internal/model"
	"github.com/taxdividend/reclaim-backend/internal/repository"
	"github.com/taxdividend/reclaim-backend/internal/validation"
)

// StatementService manages the lifecycle of uploaded dividend
// statements. Status transitions follow the closed chain
// UPLOADED -> PARSING -> PARSED -> VALIDATED -> SENT -> PAID and are
// validated against the transition table before any field is mutated.
type StatementService struct {
	statementRepo *repository.StatementRepository
	userRepo      *repository.UserRepository
}

// NewStatementService creates a new StatementService with the provided repository dependencies.
func NewStatementService(statementRepo *repository.StatementRepository, userRepo *repository.UserRepository) *StatementService {
	return &StatementService{
		statementRepo: statementRepo,
		userRepo:      userRepo,
	}
}

// StatusUpdate carries a requested transition plus the optional fields
// the target status may record. Fields for other statuses are ignored.
type StatusUpdate struct {
	Status     model.StatementStatus
	ParsedBy   string           // PARSING
	SentMethod string           // SENT
	SentNotes  string           // SENT
	PaidAmount *decimal.Decimal // PAID
	PaidAt     *time.Time       // PAID, defaults to now
}

// UploadStatement records a newly uploaded statement file. The file
// itself has already been stored; only its name and object key are kept
// here. The statement starts in UPLOADED with zeroed aggregates.
func (s *StatementService) UploadStatement(userID, fileName, fileKey, broker string, periodStart, periodEnd time.Time) (*model.DividendStatement, error) {
	if _, err := s.userRepo.GetByID(userID); err != nil {
		return nil, err
	}

	if err := validation.ValidateStatementUpload(fileName, periodStart, periodEnd); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	statement := &model.DividendStatement{
		ID:               uuid.NewString(),
		UserID:           userID,
		SourceFileName:   fileName,
		SourceFileKey:    fileKey,
		Broker:           broker,
		PeriodStart:      periodStart,
		PeriodEnd:        periodEnd,
		Status:           model.StatusUploaded,
		DividendCount:    0,
		TotalGrossAmount: decimal.Zero,
		TotalReclaimable: decimal.Zero,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.statementRepo.Create(statement); err != nil {
		return nil, err
	}

	log.Printf("Statement %s uploaded for user %s (broker %s)", statement.ID, userID, broker)

	return statement, nil
}

// GetStatement retrieves a statement scoped to its owner.
func (s *StatementService) GetStatement(id, userID string) (*model.DividendStatement, error) {
	return s.statementRepo.GetByIDAndUserID(id, userID)
}

// ListStatements retrieves a user's statements, optionally filtered by status.
func (s *StatementService) ListStatements(userID string, status model.StatementStatus) ([]model.DividendStatement, error) {
	if status != "" {
		return s.statementRepo.GetByUserIDAndStatus(userID, status)
	}
	return s.statementRepo.GetByUserID(userID)
}

// CountByStatus counts a user's statements in one status.
func (s *StatementService) CountByStatus(userID string, status model.StatementStatus) (int, error) {
	return s.statementRepo.CountByStatus(userID, status)
}

// UpdateStatus applies a status transition to a statement scoped to its
// owner. The transition is validated before any mutation; an
// apperrors.InvalidTransitionError is returned for transitions not in
// the lifecycle chain, and the statement is left untouched.
func (s *StatementService) UpdateStatus(id, userID string, update StatusUpdate) (*model.DividendStatement, error) {
	statement, err := s.statementRepo.GetByIDAndUserID(id, userID)
	if err != nil {
		return nil, err
	}

	if !statement.Status.CanTransitionTo(update.Status) {
		return nil, &apperrors.InvalidTransitionError{
			From: string(statement.Status),
			To:   string(update.Status),
		}
	}

	now := time.Now().UTC()
	statement.Status = update.Status
	statement.UpdatedAt = now

	switch update.Status {
	case model.StatusParsing:
		if update.ParsedBy != "" {
			statement.ParsedBy = update.ParsedBy
		}

	case model.StatusParsed:
		statement.ParsedAt = &now

	case model.StatusValidated:
		statement.ValidatedAt = &now

	case model.StatusSent:
		statement.SentAt = &now
		if update.SentMethod != "" {
			statement.SentMethod = update.SentMethod
		}
		if update.SentNotes != "" {
			statement.SentNotes = update.SentNotes
		}

	case model.StatusPaid:
		if update.PaidAt != nil {
			statement.PaidAt = update.PaidAt
		} else {
			statement.PaidAt = &now
		}
		if update.PaidAmount != nil {
			statement.PaidAmount = update.PaidAmount
		}
	}

	if err := s.statementRepo.Update(statement); err != nil {
		return nil, err
	}

	log.Printf("Statement %s status updated to %s", id, update.Status)

	return statement, nil
}

// UpdateAfterParsing records parsing-derived aggregates on a statement.
// This is not a status transition and works in any status.
func (s *StatementService) UpdateAfterParsing(id string, dividendCount int, totalGross, totalReclaimable decimal.Decimal) error {
	statement, err := s.statementRepo.GetByID(id)
	if err != nil {
		return err
	}

	statement.DividendCount = dividendCount
	statement.TotalGrossAmount = totalGross
	statement.TotalReclaimable = totalReclaimable
	statement.UpdatedAt = time.Now().UTC()

	if err := s.statementRepo.Update(statement); err != nil {
		return err
	}

	log.Printf("Statement %s updated after parsing: %d dividends, total gross %s, total reclaimable %s",
		id, dividendCount, totalGross, totalReclaimable)

	return nil
}

// DeleteStatement removes a statement scoped to its owner. Deleting the
// stored file is the storage collaborator's concern.
func (s *StatementService) DeleteStatement(id, userID string) error {
	statement, err := s.statementRepo.GetByIDAndUserID(id, userID)
	if err != nil {
		return err
	}

	return s.statementRepo.Delete(statement.ID)
}
