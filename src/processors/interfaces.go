package processors

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/AgasiArgent/kvota-sub003/src/models"
)

// Normalizer converts a currency-tagged input value into the canonical
// accounting currency, retaining the rate provenance for audit.
type Normalizer interface {
	Normalize(value decimal.Decimal, currency models.Currency, asOf time.Time, orgID string) (models.MonetaryAmount, error)
}

// Allocator distributes a quote-level lump sum across products so the shares
// sum exactly to the input total.
type Allocator interface {
	Allocate(total decimal.Decimal, bases []decimal.Decimal) ([]decimal.Decimal, error)
	AllocateMixed(total decimal.Decimal, individual []*decimal.Decimal, bases []decimal.Decimal) ([]decimal.Decimal, error)
}

// FinancingResolver computes the two-stage compounding financing cost from
// the project timeline, with plan-vs-fact delta attribution per event.
type FinancingResolver interface {
	Resolve(in FinancingInput) (models.FinancingBreakdown, error)
}
