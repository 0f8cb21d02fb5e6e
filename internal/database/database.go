// Package database implements the persistence layer on SQLite: the
// machine registry, the reservation store, the override ledger and the
// rooftop request/booking collections. All write paths run inside
// transactions and re-validate conflicting state at commit time.
package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

// DB wraps the SQLite connection pool.
type DB struct {
	*sql.DB
	logger *zerolog.Logger
}

// NewDB opens (creating if necessary) the database at path and
// bootstraps the schema.
func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// WAL mode and a busy timeout keep concurrent request handlers from
	// tripping over SQLITE_BUSY.
	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=on"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	instance := &DB{DB: db, logger: logger}
	if err := instance.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("Database initialized")
	return instance, nil
}

func (db *DB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS machines (
			name TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			slot_duration INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS bookings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			room_number TEXT NOT NULL,
			machine_name TEXT NOT NULL,
			machine_type TEXT NOT NULL,
			date TEXT NOT NULL,
			slot_start INTEGER NOT NULL,
			duration INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(machine_name, date, slot_start)
		)`,

		`CREATE TABLE IF NOT EXISTS slot_overrides (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			machine_name TEXT NOT NULL,
			status TEXT NOT NULL,
			start_date TEXT NOT NULL,
			end_date TEXT NOT NULL,
			start_slot INTEGER,
			end_slot INTEGER,
			created_by TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS rooftop_requests (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			room_number TEXT NOT NULL,
			date TEXT NOT NULL,
			reason TEXT NOT NULL,
			contact TEXT NOT NULL,
			time_span TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'REQUESTED',
			reviewed_by TEXT,
			reviewed_at DATETIME,
			decision_reason TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE TABLE IF NOT EXISTS rooftop_bookings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			room_number TEXT NOT NULL,
			date TEXT NOT NULL UNIQUE,
			reason TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_bookings_date ON bookings(date)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_machine_date ON bookings(machine_name, date)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_room_date ON bookings(room_number, date)`,
		`CREATE INDEX IF NOT EXISTS idx_overrides_machine ON slot_overrides(machine_name)`,
		`CREATE INDEX IF NOT EXISTS idx_overrides_dates ON slot_overrides(start_date, end_date)`,
		`CREATE INDEX IF NOT EXISTS idx_rooftop_requests_room_date ON rooftop_requests(room_number, date)`,
		`CREATE INDEX IF NOT EXISTS idx_rooftop_requests_status ON rooftop_requests(status)`,
		`CREATE INDEX IF NOT EXISTS idx_rooftop_bookings_date ON rooftop_bookings(date)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("error executing query %s: %w", query, err)
		}
	}
	return nil
}

func (db *DB) Close() error {
	return db.DB.Close()
}
