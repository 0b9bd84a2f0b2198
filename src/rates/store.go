package rates

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"github.com/AgasiArgent/kvota-sub003/src/models"
	"github.com/AgasiArgent/kvota-sub003/src/utils"
)

const (
	storeCacheExpiration      = 15 * time.Minute
	storeCacheCleanupInterval = 30 * time.Minute
)

// Store reads and writes exchange rates in the rates database. Central-bank
// daily rates are read-through cached; manual overrides are read fresh every
// time so an admin edit takes effect on the next run.
type Store struct {
	db        *sql.DB
	rateCache *cache.Cache
}

func NewStore(db *sql.DB) *Store {
	return &Store{
		db:        db,
		rateCache: cache.New(storeCacheExpiration, storeCacheCleanupInterval),
	}
}

// CentralRate returns the central-bank rate for the currency on the exact date.
func (s *Store) CentralRate(currency models.Currency, date time.Time) (decimal.Decimal, bool, error) {
	key := fmt.Sprintf("cbr_%s_%s", currency, utils.DateOnly(date).Format(utils.DateFormat))
	if cached, found := s.rateCache.Get(key); found {
		return cached.(decimal.Decimal), true, nil
	}

	var rateStr string
	err := s.db.QueryRow(
		`SELECT rate FROM central_bank_rates WHERE currency = ? AND rate_date = ?`,
		string(currency), utils.DateOnly(date).Format(utils.DateFormat),
	).Scan(&rateStr)
	if err == sql.ErrNoRows {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("querying central bank rate for %s: %w", currency, err)
	}

	rate, err := decimal.NewFromString(rateStr)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("invalid stored rate %q for %s: %w", rateStr, currency, err)
	}
	s.rateCache.Set(key, rate, cache.DefaultExpiration)
	return rate, true, nil
}

// NearestCentralRate returns the central-bank rate closest to the date within
// ±windowDays. Ties between an earlier and a later date at the same distance
// resolve to the earlier date.
func (s *Store) NearestCentralRate(currency models.Currency, date time.Time, windowDays int) (decimal.Decimal, time.Time, bool, error) {
	day := utils.DateOnly(date)
	for dist := 1; dist <= windowDays; dist++ {
		for _, candidate := range []time.Time{day.AddDate(0, 0, -dist), day.AddDate(0, 0, dist)} {
			rate, found, err := s.CentralRate(currency, candidate)
			if err != nil {
				return decimal.Zero, time.Time{}, false, err
			}
			if found {
				return rate, candidate, true, nil
			}
		}
	}
	return decimal.Zero, time.Time{}, false, nil
}

// ManualRate returns the organization's manual override rate for the currency
// against the canonical currency, if one is configured.
func (s *Store) ManualRate(orgID string, currency models.Currency) (decimal.Decimal, bool, error) {
	var rateStr string
	err := s.db.QueryRow(
		`SELECT rate FROM manual_rates WHERE org_id = ? AND currency = ?`,
		orgID, string(currency),
	).Scan(&rateStr)
	if err == sql.ErrNoRows {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("querying manual rate for org %s currency %s: %w", orgID, currency, err)
	}

	rate, err := decimal.NewFromString(rateStr)
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("invalid stored manual rate %q for org %s: %w", rateStr, orgID, err)
	}
	return rate, true, nil
}

// UpsertCentralRate stores a central-bank daily rate.
func (s *Store) UpsertCentralRate(currency models.Currency, date time.Time, rate decimal.Decimal) error {
	_, err := s.db.Exec(
		`INSERT INTO central_bank_rates (currency, rate_date, rate) VALUES (?, ?, ?)
		 ON CONFLICT(currency, rate_date) DO UPDATE SET rate = excluded.rate, fetched_at = CURRENT_TIMESTAMP`,
		string(currency), utils.DateOnly(date).Format(utils.DateFormat), rate.String(),
	)
	if err != nil {
		return fmt.Errorf("upserting central bank rate for %s: %w", currency, err)
	}
	s.rateCache.Delete(fmt.Sprintf("cbr_%s_%s", currency, utils.DateOnly(date).Format(utils.DateFormat)))
	return nil
}

// UpsertManualRate stores an organization override rate.
func (s *Store) UpsertManualRate(orgID string, currency models.Currency, rate decimal.Decimal) error {
	_, err := s.db.Exec(
		`INSERT INTO manual_rates (org_id, currency, rate) VALUES (?, ?, ?)
		 ON CONFLICT(org_id, currency) DO UPDATE SET rate = excluded.rate, updated_at = CURRENT_TIMESTAMP`,
		orgID, string(currency), rate.String(),
	)
	if err != nil {
		return fmt.Errorf("upserting manual rate for org %s currency %s: %w", orgID, currency, err)
	}
	return nil
}
