package rates

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/AgasiArgent/kvota-sub003/src/models"
)

// Rate is one resolved exchange rate: multiply an amount in the "from"
// currency by Value to get the "to" currency.
type Rate struct {
	Value  decimal.Decimal
	Source models.RateSource
	Date   time.Time // date the rate is actually for (differs from the asked date on fallback)
}

// Provider resolves an exchange rate for a (from, to, date, org) tuple.
// Implementations must prefer an organization manual override, then the
// central-bank daily rate, then the nearest date within the fallback window.
type Provider interface {
	GetRate(from, to models.Currency, date time.Time, orgID string) (Rate, error)
}

// storeProvider resolves rates from the rate store. Stored rates quote each
// currency against the canonical currency; cross rates go through it.
type storeProvider struct {
	store        *Store
	canonical    models.Currency
	fallbackDays int
}

func NewStoreProvider(store *Store, canonical models.Currency, fallbackDays int) Provider {
	return &storeProvider{store: store, canonical: canonical, fallbackDays: fallbackDays}
}

var one = decimal.NewFromInt(1)

func (p *storeProvider) GetRate(from, to models.Currency, date time.Time, orgID string) (Rate, error) {
	// Identity short-circuit: exact 1, no lookup. Downstream fields assume
	// bit-for-bit identity for canonical-to-canonical conversion.
	if from == to {
		return Rate{Value: one, Source: models.RateSourceIdentity, Date: date}, nil
	}

	if to == p.canonical {
		return p.toCanonical(from, date, orgID)
	}
	if from == p.canonical {
		r, err := p.toCanonical(to, date, orgID)
		if err != nil {
			return Rate{}, err
		}
		return Rate{Value: one.Div(r.Value), Source: r.Source, Date: r.Date}, nil
	}

	// Cross rate via the canonical currency.
	rFrom, err := p.toCanonical(from, date, orgID)
	if err != nil {
		return Rate{}, err
	}
	rTo, err := p.toCanonical(to, date, orgID)
	if err != nil {
		return Rate{}, err
	}
	return Rate{Value: rFrom.Value.Div(rTo.Value), Source: combineSources(rFrom.Source, rTo.Source), Date: rFrom.Date}, nil
}

func (p *storeProvider) toCanonical(currency models.Currency, date time.Time, orgID string) (Rate, error) {
	if manual, found, err := p.store.ManualRate(orgID, currency); err != nil {
		return Rate{}, err
	} else if found && manual.IsPositive() {
		return Rate{Value: manual, Source: models.RateSourceManual, Date: date}, nil
	}

	if rate, found, err := p.store.CentralRate(currency, date); err != nil {
		return Rate{}, err
	} else if found && rate.IsPositive() {
		return Rate{Value: rate, Source: models.RateSourceCentralBank, Date: date}, nil
	}

	if rate, rateDate, found, err := p.store.NearestCentralRate(currency, date, p.fallbackDays); err != nil {
		return Rate{}, err
	} else if found && rate.IsPositive() {
		return Rate{Value: rate, Source: models.RateSourceFallback, Date: rateDate}, nil
	}

	return Rate{}, &models.CalculationError{
		Kind:     models.ErrRateUnavailable,
		Currency: currency,
		Date:     date,
	}
}

// combineSources picks the provenance tag for a cross rate built from two
// canonical-leg rates: report the weaker of the two.
func combineSources(a, b models.RateSource) models.RateSource {
	if a == models.RateSourceFallback || b == models.RateSourceFallback {
		return models.RateSourceFallback
	}
	if a == models.RateSourceCentralBank || b == models.RateSourceCentralBank {
		return models.RateSourceCentralBank
	}
	return models.RateSourceManual
}
