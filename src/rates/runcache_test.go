package rates

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/AgasiArgent/kvota-sub003/src/models"
)

// countingProvider resolves every pair to a fixed rate and counts calls.
type countingProvider struct {
	calls atomic.Int64
}

func (p *countingProvider) GetRate(from, to models.Currency, date time.Time, orgID string) (Rate, error) {
	p.calls.Add(1)
	return Rate{Value: decimal.NewFromInt(2), Source: models.RateSourceCentralBank, Date: date}, nil
}

func TestRunCacheResolvesEachTupleOnce(t *testing.T) {
	provider := &countingProvider{}
	cache := NewRunCache(provider)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.GetRate(models.CurrencyUSD, models.CurrencyRUB, day("2026-03-02"), "org-1"); err != nil {
				t.Errorf("GetRate returned error: %v", err)
			}
		}()
	}
	wg.Wait()

	// Concurrent misses may race to the provider, but the cache must keep a
	// single entry and serve it for every later lookup.
	if _, err := cache.GetRate(models.CurrencyUSD, models.CurrencyRUB, day("2026-03-02"), "org-1"); err != nil {
		t.Fatalf("GetRate returned error: %v", err)
	}
	snapshot := cache.Snapshot()
	if len(snapshot.Entries) != 1 {
		t.Fatalf("expected 1 snapshot entry, got %d", len(snapshot.Entries))
	}
}

func TestRunCacheSnapshotDeterministicOrder(t *testing.T) {
	provider := &countingProvider{}
	cache := NewRunCache(provider)

	lookups := []struct {
		from, to models.Currency
	}{
		{models.CurrencyUSD, models.CurrencyRUB},
		{models.CurrencyEUR, models.CurrencyRUB},
		{models.CurrencyCNY, models.CurrencyRUB},
	}
	for _, l := range lookups {
		if _, err := cache.GetRate(l.from, l.to, day("2026-03-02"), "org-1"); err != nil {
			t.Fatal(err)
		}
	}

	first := cache.Snapshot()
	second := cache.Snapshot()
	if len(first.Entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(first.Entries))
	}
	for i := range first.Entries {
		if first.Entries[i] != second.Entries[i] {
			t.Fatalf("snapshot order differs between calls at entry %d", i)
		}
	}
	// Sorted by cache key: CNY < EUR < USD.
	if first.Entries[0].From != models.CurrencyCNY || first.Entries[2].From != models.CurrencyUSD {
		t.Fatalf("expected deterministic CNY..USD ordering, got %v", first.Entries)
	}
}

func TestRunCacheDistinctTuplesResolvedSeparately(t *testing.T) {
	provider := &countingProvider{}
	cache := NewRunCache(provider)

	if _, err := cache.GetRate(models.CurrencyUSD, models.CurrencyRUB, day("2026-03-02"), "org-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := cache.GetRate(models.CurrencyUSD, models.CurrencyRUB, day("2026-03-03"), "org-1"); err != nil {
		t.Fatal(err)
	}
	if _, err := cache.GetRate(models.CurrencyUSD, models.CurrencyRUB, day("2026-03-02"), "org-2"); err != nil {
		t.Fatal(err)
	}

	if entries := len(cache.Snapshot().Entries); entries != 3 {
		t.Fatalf("expected 3 distinct snapshot entries, got %d", entries)
	}
}
