package models

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the four failure classes of the engine. Wrapped by
// CalculationError so callers can errors.Is against the class while still
// seeing which product/field blocked the run.
var (
	ErrValidation           = errors.New("validation error")
	ErrRateUnavailable      = errors.New("exchange rate unavailable")
	ErrInvalidTimelineOrder = errors.New("invalid timeline order")
	ErrAllocationImbalance  = errors.New("allocation imbalance")
)

// CalculationError identifies exactly which input blocked a calculation run.
type CalculationError struct {
	Kind      error // one of the sentinel errors above
	ProductID string
	Field     string
	Currency  Currency
	Date      time.Time
	Detail    string
}

func (e *CalculationError) Error() string {
	msg := e.Kind.Error()
	if e.ProductID != "" {
		msg += fmt.Sprintf(": product %s", e.ProductID)
	}
	if e.Field != "" {
		msg += fmt.Sprintf(": field %s", e.Field)
	}
	if e.Currency != "" {
		msg += fmt.Sprintf(" (%s", e.Currency)
		if !e.Date.IsZero() {
			msg += " on " + e.Date.Format("2006-01-02")
		}
		msg += ")"
	} else if !e.Date.IsZero() {
		msg += " (" + e.Date.Format("2006-01-02") + ")"
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *CalculationError) Unwrap() error { return e.Kind }

// NewValidationError reports a malformed or out-of-range input field.
func NewValidationError(productID, field, detail string) *CalculationError {
	return &CalculationError{Kind: ErrValidation, ProductID: productID, Field: field, Detail: detail}
}

// NewRateUnavailableError reports a missing exchange rate for a specific field.
func NewRateUnavailableError(productID, field string, currency Currency, date time.Time) *CalculationError {
	return &CalculationError{Kind: ErrRateUnavailable, ProductID: productID, Field: field, Currency: currency, Date: date}
}
