package rates

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/AgasiArgent/kvota-sub003/src/models"
	"github.com/AgasiArgent/kvota-sub003/src/utils"
)

// RunCache wraps a Provider for the duration of one calculation run. Each
// distinct (from, to, date, org) tuple is resolved against the underlying
// provider at most once, so every product in the run sees the same rate, and
// the resolved set doubles as the run's persisted ExchangeRateSnapshot.
//
// Construct a fresh RunCache per run; never share one across runs.
type RunCache struct {
	provider Provider

	mu      sync.Mutex
	entries map[string]Rate
	meta    map[string]models.RateEntry
}

func NewRunCache(provider Provider) *RunCache {
	return &RunCache{
		provider: provider,
		entries:  make(map[string]Rate),
		meta:     make(map[string]models.RateEntry),
	}
}

func (c *RunCache) GetRate(from, to models.Currency, date time.Time, orgID string) (Rate, error) {
	day := utils.DateOnly(date)
	// Identity lookups never hit the provider and are not part of the
	// snapshot; the snapshot records only rates that were actually resolved.
	if from == to {
		return Rate{Value: one, Source: models.RateSourceIdentity, Date: day}, nil
	}
	key := fmt.Sprintf("%s|%s|%s|%s", from, to, day.Format(utils.DateFormat), orgID)

	c.mu.Lock()
	if rate, found := c.entries[key]; found {
		c.mu.Unlock()
		return rate, nil
	}
	c.mu.Unlock()

	rate, err := c.provider.GetRate(from, to, day, orgID)
	if err != nil {
		return Rate{}, err
	}

	c.mu.Lock()
	// Another goroutine may have resolved the same tuple concurrently; keep
	// the first stored entry so the run stays internally consistent.
	if existing, found := c.entries[key]; found {
		c.mu.Unlock()
		return existing, nil
	}
	c.entries[key] = rate
	c.meta[key] = models.RateEntry{
		From:     from,
		To:       to,
		OrgID:    orgID,
		AsOf:     day,
		Rate:     rate.Value,
		Source:   rate.Source,
		RateDate: rate.Date,
	}
	c.mu.Unlock()
	return rate, nil
}

// Snapshot returns the rates this run resolved, deterministically ordered.
func (c *RunCache) Snapshot() models.ExchangeRateSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.meta))
	for k := range c.meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	entries := make([]models.RateEntry, 0, len(keys))
	for _, k := range keys {
		entries = append(entries, c.meta[k])
	}
	return models.ExchangeRateSnapshot{Entries: entries}
}
