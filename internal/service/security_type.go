package service

import "github.com/taxdividend/reclaim-backend/internal/model"

// SecurityTypeEquity is the only security type currently classified.
const SecurityTypeEquity = "EQUITY"

// SecurityTypeClassifier determines the security type used for treaty
// rule lookup. Swapping the implementation is the extension point for
// ISIN-prefix based bond/fund classification; the calculator itself
// never needs to change.
type SecurityTypeClassifier interface {
	Classify(dividend *model.Dividend) string
}

type equityClassifier struct{}

func (equityClassifier) Classify(*model.Dividend) string {
	return SecurityTypeEquity
}

// DefaultSecurityTypeClassifier classifies every dividend as EQUITY.
func DefaultSecurityTypeClassifier() SecurityTypeClassifier {
	return equityClassifier{}
}
