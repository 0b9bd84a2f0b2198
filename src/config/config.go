package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/AgasiArgent/kvota-sub003/src/models"
)

type AppConfig struct {
	LogLevel          string
	RatesDBPath       string
	CanonicalCurrency models.Currency
	// MoneyPrecision is the number of fractional digits kept at the output
	// boundary. Intermediate arithmetic is not rounded.
	MoneyPrecision int32
	// RateFallbackDays is the ± window for nearest-date rate fallback.
	RateFallbackDays int

	CBRBaseURL      string
	FetchTimeout    time.Duration
	FetchRatePerSec float64
}

var Cfg *AppConfig

func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults. Error (if any):", errEnv)
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	canonical := models.Currency(getEnv("CANONICAL_CURRENCY", "RUB"))
	if !canonical.Valid() {
		log.Fatalf("FATAL: CANONICAL_CURRENCY '%s' is not a supported currency code.", canonical)
	}

	fetchTimeoutStr := getEnv("CBR_FETCH_TIMEOUT", "20s")
	fetchTimeout, err := time.ParseDuration(fetchTimeoutStr)
	if err != nil {
		log.Printf("WARNING: Invalid CBR_FETCH_TIMEOUT format '%s'. Using default 20s. Error: %v", fetchTimeoutStr, err)
		fetchTimeout = 20 * time.Second
	}

	fetchRateStr := getEnv("CBR_FETCH_RATE_PER_SEC", "2")
	fetchRate, err := strconv.ParseFloat(fetchRateStr, 64)
	if err != nil || fetchRate <= 0 {
		log.Printf("WARNING: Invalid CBR_FETCH_RATE_PER_SEC '%s'. Using default 2. Error: %v", fetchRateStr, err)
		fetchRate = 2
	}

	Cfg = &AppConfig{
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		RatesDBPath:       getEnv("RATES_DB_PATH", "./kvota_rates.db"),
		CanonicalCurrency: canonical,
		MoneyPrecision:    int32(getEnvAsInt("MONEY_PRECISION", 2)),
		RateFallbackDays:  getEnvAsInt("RATE_FALLBACK_DAYS", 3),
		CBRBaseURL:        getEnv("CBR_BASE_URL", "https://www.cbr.ru/scripts/XML_daily.asp"),
		FetchTimeout:      fetchTimeout,
		FetchRatePerSec:   fetchRate,
	}

	if Cfg.MoneyPrecision < 2 {
		log.Fatalf("FATAL: MONEY_PRECISION must be at least 2, got %d.", Cfg.MoneyPrecision)
	}

	log.Printf("Configuration loaded: LogLevel=%s, RatesDBPath=%s, CanonicalCurrency=%s, MoneyPrecision=%d",
		Cfg.LogLevel, Cfg.RatesDBPath, Cfg.CanonicalCurrency, Cfg.MoneyPrecision)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		log.Printf("Integer value for %s not set or empty, using default: %d", key, fallback)
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}
