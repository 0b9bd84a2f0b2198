package processors

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/AgasiArgent/kvota-sub003/src/models"
	"github.com/AgasiArgent/kvota-sub003/src/rates"
	"github.com/AgasiArgent/kvota-sub003/src/utils"
)

type monetaryNormalizerImpl struct {
	provider  rates.Provider
	canonical models.Currency
}

// NewMonetaryNormalizer builds a normalizer against the given rate provider.
// Pass a per-run rate cache as the provider so all fields of a run resolve
// against one frozen rate set.
func NewMonetaryNormalizer(provider rates.Provider, canonical models.Currency) Normalizer {
	return &monetaryNormalizerImpl{provider: provider, canonical: canonical}
}

func (n *monetaryNormalizerImpl) Normalize(value decimal.Decimal, currency models.Currency, asOf time.Time, orgID string) (models.MonetaryAmount, error) {
	if !currency.Valid() {
		return models.MonetaryAmount{}, models.NewValidationError("", "currency", "unsupported currency code "+string(currency))
	}

	// Identity short-circuit: no provider lookup, the rate is exactly 1 and
	// ValueCanonical is the untouched input value.
	if currency == n.canonical {
		return models.MonetaryAmount{
			Value:          value,
			Currency:       currency,
			ValueCanonical: value,
			RateUsed:       decimal.NewFromInt(1),
			RateSource:     models.RateSourceIdentity,
			RateDate:       utils.DateOnly(asOf),
		}, nil
	}

	rate, err := n.provider.GetRate(currency, n.canonical, asOf, orgID)
	if err != nil {
		return models.MonetaryAmount{}, err
	}
	if !rate.Value.IsPositive() {
		return models.MonetaryAmount{}, &models.CalculationError{
			Kind:     models.ErrRateUnavailable,
			Currency: currency,
			Date:     asOf,
			Detail:   "resolved rate is not positive",
		}
	}

	return models.MonetaryAmount{
		Value:          value,
		Currency:       currency,
		ValueCanonical: value.Mul(rate.Value),
		RateUsed:       rate.Value,
		RateSource:     rate.Source,
		RateDate:       rate.Date,
	}, nil
}
