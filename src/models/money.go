package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Currency is one of the five currency codes the quoting system accepts.
type Currency string

const (
	CurrencyRUB Currency = "RUB"
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyCNY Currency = "CNY"
	CurrencyAED Currency = "AED"
)

// SupportedCurrencies is the closed set of codes accepted by input validation.
var SupportedCurrencies = []Currency{CurrencyRUB, CurrencyUSD, CurrencyEUR, CurrencyCNY, CurrencyAED}

func (c Currency) Valid() bool {
	for _, s := range SupportedCurrencies {
		if c == s {
			return true
		}
	}
	return false
}

// RateSource records where an exchange rate came from, for audit display.
type RateSource string

const (
	RateSourceIdentity    RateSource = "identity"     // same-currency conversion, rate is exactly 1
	RateSourceManual      RateSource = "manual"       // organization override table
	RateSourceCentralBank RateSource = "central_bank" // daily central-bank rate for the exact date
	RateSourceFallback    RateSource = "fallback"     // nearest central-bank rate within the window
)

// MonetaryAmount is a currency-tagged value together with its conversion into
// the canonical accounting currency and the rate provenance used to get there.
// Immutable once built by the normalizer; downstream phases read it only.
type MonetaryAmount struct {
	Value          decimal.Decimal `json:"value"`
	Currency       Currency        `json:"currency"`
	ValueCanonical decimal.Decimal `json:"value_canonical"`
	RateUsed       decimal.Decimal `json:"rate_used"`
	RateSource     RateSource      `json:"rate_source"`
	RateDate       time.Time       `json:"rate_date"`
}
