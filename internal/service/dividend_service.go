package service

import (
	"github.com/taxdividend/reclaim-backend/internal/model"
)

// DividendService exposes read access to dividend records for browsing
// and for the recalculation worker. Dividend creation belongs to the
// statement parsing pipeline, which writes through its own channel.
type DividendService struct {
	dividends DividendStore
}

// NewDividendService creates a new DividendService with the provided store dependency.
func NewDividendService(dividends DividendStore) *DividendService {
	return &DividendService{dividends: dividends}
}

// GetDividend retrieves a single dividend record.
func (s *DividendService) GetDividend(id string) (*model.Dividend, error) {
	return s.dividends.GetByID(id)
}

// GetDividendsByUser retrieves all dividend records owned by a user.
func (s *DividendService) GetDividendsByUser(userID string) ([]model.Dividend, error) {
	return s.dividends.GetByUserID(userID)
}

// GetUnsubmittedDividends retrieves every dividend not yet linked to a
// generated form.
func (s *DividendService) GetUnsubmittedDividends() ([]model.Dividend, error) {
	return s.dividends.GetUnsubmitted()
}
