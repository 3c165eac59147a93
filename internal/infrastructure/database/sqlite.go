package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/eslsoft/quizstats/internal/infrastructure/config"
)

// NewSQLite opens the single-connection SQLite database used for local runs and tests.
func NewSQLite(cfg *config.Config) (*sqlx.DB, func(), error) {
	dsn, err := cfg.DatabaseURL()
	if err != nil {
		return nil, nil, fmt.Errorf("determine database dsn: %w", err)
	}
	return OpenSQLite(dsn)
}

// OpenSQLite opens dsn with the sqlite3 driver. ":memory:" yields a private database.
func OpenSQLite(dsn string) (*sqlx.DB, func(), error) {
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection keeps ":memory:" databases alive and serializes writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("configure sqlite busy timeout: %w", err)
	}

	return db, func() {
		_ = db.Close()
	}, nil
}
