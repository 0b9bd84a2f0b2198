package rates

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/AgasiArgent/kvota-sub003/src/database"
	"github.com/AgasiArgent/kvota-sub003/src/models"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("opening in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := database.EnsureSchema(db); err != nil {
		t.Fatalf("ensuring schema: %v", err)
	}
	return NewStore(db)
}

func TestGetRateIdentityShortCircuit(t *testing.T) {
	// No stored rates at all: identity must still resolve, with rate exactly 1.
	provider := NewStoreProvider(newTestStore(t), models.CurrencyRUB, 3)

	rate, err := provider.GetRate(models.CurrencyRUB, models.CurrencyRUB, day("2026-03-02"), "org-1")
	if err != nil {
		t.Fatalf("GetRate returned error: %v", err)
	}
	if rate.Source != models.RateSourceIdentity {
		t.Errorf("expected identity source, got %s", rate.Source)
	}
	if !rate.Value.Equal(decimal.NewFromInt(1)) {
		t.Errorf("identity rate must be exactly 1, got %s", rate.Value)
	}
}

func TestGetRateManualOverridePreferred(t *testing.T) {
	store := newTestStore(t)
	if err := store.UpsertCentralRate(models.CurrencyUSD, day("2026-03-02"), d("92.5")); err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertManualRate("org-1", models.CurrencyUSD, d("95")); err != nil {
		t.Fatal(err)
	}
	provider := NewStoreProvider(store, models.CurrencyRUB, 3)

	rate, err := provider.GetRate(models.CurrencyUSD, models.CurrencyRUB, day("2026-03-02"), "org-1")
	if err != nil {
		t.Fatalf("GetRate returned error: %v", err)
	}
	if rate.Source != models.RateSourceManual || !rate.Value.Equal(d("95")) {
		t.Fatalf("expected manual 95, got %s from %s", rate.Value, rate.Source)
	}

	// A different organization without an override sees the central rate.
	rate, err = provider.GetRate(models.CurrencyUSD, models.CurrencyRUB, day("2026-03-02"), "org-2")
	if err != nil {
		t.Fatalf("GetRate returned error: %v", err)
	}
	if rate.Source != models.RateSourceCentralBank || !rate.Value.Equal(d("92.5")) {
		t.Fatalf("expected central bank 92.5, got %s from %s", rate.Value, rate.Source)
	}
}

func TestGetRateNearestDateFallback(t *testing.T) {
	store := newTestStore(t)
	if err := store.UpsertCentralRate(models.CurrencyEUR, day("2026-03-01"), d("100.2")); err != nil {
		t.Fatal(err)
	}
	provider := NewStoreProvider(store, models.CurrencyRUB, 3)

	rate, err := provider.GetRate(models.CurrencyEUR, models.CurrencyRUB, day("2026-03-03"), "org-1")
	if err != nil {
		t.Fatalf("GetRate returned error: %v", err)
	}
	if rate.Source != models.RateSourceFallback {
		t.Errorf("expected fallback source, got %s", rate.Source)
	}
	if !rate.Date.Equal(day("2026-03-01")) {
		t.Errorf("expected rate date 2026-03-01, got %s", rate.Date.Format("2006-01-02"))
	}
	if !rate.Value.Equal(d("100.2")) {
		t.Errorf("expected 100.2, got %s", rate.Value)
	}
}

func TestGetRateOutsideFallbackWindow(t *testing.T) {
	store := newTestStore(t)
	if err := store.UpsertCentralRate(models.CurrencyEUR, day("2026-02-20"), d("100.2")); err != nil {
		t.Fatal(err)
	}
	provider := NewStoreProvider(store, models.CurrencyRUB, 3)

	_, err := provider.GetRate(models.CurrencyEUR, models.CurrencyRUB, day("2026-03-03"), "org-1")
	if !errors.Is(err, models.ErrRateUnavailable) {
		t.Fatalf("expected ErrRateUnavailable beyond the ±3 day window, got %v", err)
	}
	var calcErr *models.CalculationError
	if !errors.As(err, &calcErr) {
		t.Fatalf("expected CalculationError, got %T", err)
	}
	if calcErr.Currency != models.CurrencyEUR || !calcErr.Date.Equal(day("2026-03-03")) {
		t.Errorf("error must carry the attempted currency and date, got %s / %s", calcErr.Currency, calcErr.Date)
	}
}

func TestGetRateInverseFromCanonical(t *testing.T) {
	store := newTestStore(t)
	if err := store.UpsertCentralRate(models.CurrencyUSD, day("2026-03-02"), d("80")); err != nil {
		t.Fatal(err)
	}
	provider := NewStoreProvider(store, models.CurrencyRUB, 3)

	rate, err := provider.GetRate(models.CurrencyRUB, models.CurrencyUSD, day("2026-03-02"), "org-1")
	if err != nil {
		t.Fatalf("GetRate returned error: %v", err)
	}
	if !rate.Value.Equal(d("0.0125")) {
		t.Fatalf("expected inverse rate 0.0125, got %s", rate.Value)
	}
}

func TestGetRateCrossViaCanonical(t *testing.T) {
	store := newTestStore(t)
	if err := store.UpsertCentralRate(models.CurrencyUSD, day("2026-03-02"), d("80")); err != nil {
		t.Fatal(err)
	}
	if err := store.UpsertCentralRate(models.CurrencyEUR, day("2026-03-02"), d("100")); err != nil {
		t.Fatal(err)
	}
	provider := NewStoreProvider(store, models.CurrencyRUB, 3)

	rate, err := provider.GetRate(models.CurrencyUSD, models.CurrencyEUR, day("2026-03-02"), "org-1")
	if err != nil {
		t.Fatalf("GetRate returned error: %v", err)
	}
	if !rate.Value.Equal(d("0.8")) {
		t.Fatalf("expected cross rate 0.8, got %s", rate.Value)
	}
	if rate.Source != models.RateSourceCentralBank {
		t.Fatalf("expected central bank source, got %s", rate.Source)
	}
}
