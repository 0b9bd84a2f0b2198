package database

import (
	"database/sql"
	stdlog "log"

	_ "modernc.org/sqlite"

	"github.com/AgasiArgent/kvota-sub003/src/logger"
)

var DB *sql.DB

// InitDB opens the rates database and ensures the schema. The engine only
// reads exchange rates from here; quote persistence lives in the surrounding
// service and is out of scope.
func InitDB(databasePath string) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}

	DB = db

	logger.L.Info("Ensuring rate tables", "databasePath", databasePath)
	if err := EnsureSchema(db); err != nil {
		stdlog.Fatalf("failed to create rate tables: %v", err)
	}
}

// EnsureSchema creates the rate tables if they do not exist. Exposed so tests
// can run against an in-memory database.
func EnsureSchema(db *sql.DB) error {
	createTableStatement := `
	CREATE TABLE IF NOT EXISTS central_bank_rates (
		currency TEXT NOT NULL,
		rate_date TEXT NOT NULL,
		rate TEXT NOT NULL,
		fetched_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (currency, rate_date)
	);

	CREATE TABLE IF NOT EXISTS manual_rates (
		org_id TEXT NOT NULL,
		currency TEXT NOT NULL,
		rate TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (org_id, currency)
	);

	CREATE INDEX IF NOT EXISTS idx_central_bank_rates_date ON central_bank_rates(rate_date);
	`
	_, err := db.Exec(createTableStatement)
	return err
}
