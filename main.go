package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/AgasiArgent/kvota-sub003/src/config"
	"github.com/AgasiArgent/kvota-sub003/src/database"
	"github.com/AgasiArgent/kvota-sub003/src/logger"
	"github.com/AgasiArgent/kvota-sub003/src/models"
	"github.com/AgasiArgent/kvota-sub003/src/rates"
	"github.com/AgasiArgent/kvota-sub003/src/services"
	"github.com/AgasiArgent/kvota-sub003/src/utils"
)

func main() {
	inputPath := flag.String("input", "", "path to a calculation request JSON file")
	outputPath := flag.String("output", "", "path to write the calculation outcome JSON (default: stdout)")
	fetchFrom := flag.String("fetch-from", "", "fetch central bank rates starting at this date (YYYY-MM-DD)")
	fetchTo := flag.String("fetch-to", "", "fetch central bank rates up to this date (YYYY-MM-DD, default: fetch-from)")
	flag.Parse()

	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("Kvota calculation engine starting...")

	database.InitDB(config.Cfg.RatesDBPath)
	store := rates.NewStore(database.DB)

	if *fetchFrom != "" {
		if err := runFetch(store, *fetchFrom, *fetchTo); err != nil {
			logger.L.Error("Rate fetch failed", "error", err)
			os.Exit(1)
		}
		if *inputPath == "" {
			return
		}
	}

	if *inputPath == "" {
		fmt.Fprintln(os.Stderr, "usage: provide -input <request.json> and/or -fetch-from <date>")
		os.Exit(2)
	}

	if err := runCalculation(store, *inputPath, *outputPath); err != nil {
		var calcErr *models.CalculationError
		if errors.As(err, &calcErr) {
			logger.L.Error("Calculation blocked by input",
				"kind", calcErr.Kind.Error(),
				"productID", calcErr.ProductID,
				"field", calcErr.Field,
				"currency", calcErr.Currency,
				"date", calcErr.Date.Format(utils.DateFormat))
		} else {
			logger.L.Error("Calculation failed", "error", err)
		}
		os.Exit(1)
	}
}

func runFetch(store *rates.Store, fromStr, toStr string) error {
	from, err := time.Parse(utils.DateFormat, fromStr)
	if err != nil {
		return fmt.Errorf("invalid -fetch-from date %q: %w", fromStr, err)
	}
	to := from
	if toStr != "" {
		to, err = time.Parse(utils.DateFormat, toStr)
		if err != nil {
			return fmt.Errorf("invalid -fetch-to date %q: %w", toStr, err)
		}
	}

	fetcher := rates.NewCBRFetcher(store, config.Cfg.CBRBaseURL, config.Cfg.FetchTimeout, config.Cfg.FetchRatePerSec)
	return fetcher.FetchRange(context.Background(), from, to)
}

func runCalculation(store *rates.Store, inputPath, outputPath string) error {
	raw, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("reading request file: %w", err)
	}

	var req services.CalculationRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return fmt.Errorf("parsing request file: %w", err)
	}

	provider := rates.NewStoreProvider(store, config.Cfg.CanonicalCurrency, config.Cfg.RateFallbackDays)
	service := services.NewCalculationService(provider, config.Cfg.CanonicalCurrency, config.Cfg.MoneyPrecision)

	outcome, err := service.Calculate(req)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(outcome, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding outcome: %w", err)
	}

	if outputPath == "" {
		fmt.Println(string(out))
		return nil
	}
	if err := os.WriteFile(outputPath, out, 0o644); err != nil {
		return fmt.Errorf("writing outcome file: %w", err)
	}
	logger.L.Info("Outcome written", "path", outputPath, "runID", outcome.RunID)
	return nil
}
