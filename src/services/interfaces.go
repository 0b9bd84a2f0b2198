package services

import (
	"time"

	"github.com/AgasiArgent/kvota-sub003/src/models"
)

// CalculationRequest is one immutable input snapshot for a calculation run.
// AsOf is the caller-supplied valuation date; the engine never reads a clock.
type CalculationRequest struct {
	Quote    models.QuoteInput      `json:"quote"`
	Products []models.ProductInput  `json:"products"`
	AsOf     time.Time              `json:"as_of"`
}

// CalculationOutcome is the versioned result of one run: per-product results,
// the quote summary, the financing breakdown and the exact rates used. The
// caller persists it as an immutable snapshot keyed by RunID.
type CalculationOutcome struct {
	RunID     string                         `json:"run_id"`
	Results   []models.CalculationResult     `json:"results"`
	Summary   models.QuoteCalculationSummary `json:"summary"`
	Financing models.FinancingBreakdown      `json:"financing"`
	Snapshot  models.ExchangeRateSnapshot    `json:"snapshot"`
}

// CalculationService runs the full calculation for one quote version.
type CalculationService interface {
	Calculate(req CalculationRequest) (*CalculationOutcome, error)
}
