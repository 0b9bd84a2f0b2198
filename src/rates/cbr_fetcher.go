package rates

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/AgasiArgent/kvota-sub003/src/logger"
	"github.com/AgasiArgent/kvota-sub003/src/models"
	"github.com/AgasiArgent/kvota-sub003/src/utils"
)

// cbrValCurs mirrors the daily rates XML of the Central Bank of Russia.
type cbrValCurs struct {
	Date    string `xml:"Date,attr"`
	Valutes []struct {
		CharCode string `xml:"CharCode"`
		Nominal  int64  `xml:"Nominal"`
		Value    string `xml:"Value"`
	} `xml:"Valute"`
}

// CBRFetcher pulls daily central-bank rates and stores them for the provider.
// Outbound requests are rate limited; the endpoint throttles aggressive clients.
type CBRFetcher struct {
	store      *Store
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewCBRFetcher(store *Store, baseURL string, timeout time.Duration, requestsPerSec float64) *CBRFetcher {
	return &CBRFetcher{
		store:      store,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSec), 1),
	}
}

// FetchDate fetches and stores the daily rates for one date, returning the
// number of supported currencies stored.
func (f *CBRFetcher) FetchDate(ctx context.Context, date time.Time) (int, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	url := fmt.Sprintf("%s?date_req=%s", f.baseURL, utils.DateOnly(date).Format("02/01/2006"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fetching central bank rates for %s: %w", date.Format(utils.DateFormat), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("central bank endpoint returned status %d for %s", resp.StatusCode, date.Format(utils.DateFormat))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("reading central bank response: %w", err)
	}

	return f.storeRates(body, date)
}

// FetchRange fetches every date in [from, to] inclusive.
func (f *CBRFetcher) FetchRange(ctx context.Context, from, to time.Time) error {
	for d := utils.DateOnly(from); !d.After(utils.DateOnly(to)); d = d.AddDate(0, 0, 1) {
		count, err := f.FetchDate(ctx, d)
		if err != nil {
			return err
		}
		logger.L.Info("Stored central bank rates", "date", d.Format(utils.DateFormat), "currencies", count)
	}
	return nil
}

func (f *CBRFetcher) storeRates(body []byte, date time.Time) (int, error) {
	var payload cbrValCurs
	decoder := xml.NewDecoder(strings.NewReader(string(body)))
	// The endpoint declares windows-1251; character codes and values are
	// plain ASCII so a pass-through reader is sufficient.
	decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
	if err := decoder.Decode(&payload); err != nil {
		return 0, fmt.Errorf("parsing central bank rates XML: %w", err)
	}

	stored := 0
	for _, v := range payload.Valutes {
		currency := models.Currency(v.CharCode)
		if !currency.Valid() {
			continue
		}
		// Values use a comma decimal separator and are quoted per Nominal units.
		value, err := decimal.NewFromString(strings.ReplaceAll(v.Value, ",", "."))
		if err != nil {
			logger.L.Warn("Skipping malformed central bank rate value", "currency", v.CharCode, "value", v.Value, "error", err)
			continue
		}
		nominal := v.Nominal
		if nominal <= 0 {
			nominal = 1
		}
		perUnit := value.Div(decimal.NewFromInt(nominal))
		if err := f.store.UpsertCentralRate(currency, date, perUnit); err != nil {
			return stored, err
		}
		stored++
	}
	return stored, nil
}
