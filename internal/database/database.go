package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"chairbook/internal/domain"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"
)

// ErrNotFound is returned when a snapshot row does not exist.
var ErrNotFound = domain.ErrNotFound

// DB keeps the last good backend snapshot so reads survive a backend outage.
type DB struct {
	db     *sql.DB
	logger *zerolog.Logger
}

var _ domain.SnapshotStore = (*DB)(nil)

func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("Snapshot database initialized")
	return &DB{db: db, logger: logger}, nil
}

func (db *DB) Close() error {
	return db.db.Close()
}

func createTables(db *sql.DB) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS chairs (
            id INTEGER PRIMARY KEY,
            name TEXT NOT NULL,
            location TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL DEFAULT 'active',
            description TEXT NOT NULL DEFAULT '',
            created_at DATETIME,
            updated_at DATETIME
        )`,
		`CREATE TABLE IF NOT EXISTS availabilities (
            id INTEGER PRIMARY KEY,
            chair_id INTEGER NOT NULL,
            day_of_week INTEGER NOT NULL,
            start_time TEXT NOT NULL,
            end_time TEXT NOT NULL,
            is_active BOOLEAN NOT NULL DEFAULT 1,
            valid_from TEXT,
            valid_to TEXT,
            created_at DATETIME,
            updated_at DATETIME
        )`,
		`CREATE TABLE IF NOT EXISTS bookings (
            id INTEGER PRIMARY KEY,
            user_id INTEGER NOT NULL,
            chair_id INTEGER NOT NULL,
            start_time DATETIME NOT NULL,
            end_time DATETIME NOT NULL,
            status TEXT NOT NULL,
            notes TEXT NOT NULL DEFAULT '',
            created_at DATETIME,
            updated_at DATETIME
        )`,
		`CREATE TABLE IF NOT EXISTS sync_state (
            resource TEXT PRIMARY KEY,
            synced_at DATETIME NOT NULL
        )`,

		`CREATE INDEX IF NOT EXISTS idx_availabilities_chair ON availabilities(chair_id, day_of_week)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_chair_start ON bookings(chair_id, start_time)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_status ON bookings(status)`,
	}

	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return fmt.Errorf("exec migration %s: %w", trimSQL(q), err)
		}
	}
	return nil
}

// SyncedAt reports when resource was last saved. Zero time when never.
func (db *DB) SyncedAt(ctx context.Context, resource string) (time.Time, error) {
	var t time.Time
	err := db.db.QueryRowContext(ctx, `SELECT synced_at FROM sync_state WHERE resource = ?`, resource).Scan(&t)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	return t, err
}

func markSynced(ctx context.Context, tx *sql.Tx, resource string) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO sync_state (resource, synced_at) VALUES (?, ?)
        ON CONFLICT(resource) DO UPDATE SET synced_at = excluded.synced_at`, resource, time.Now().UTC())
	return err
}

func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			db.logger.Error().Err(rbErr).Msg("Rollback failed")
		}
		return err
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func trimSQL(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 60 {
		return s[:60] + "..."
	}
	return s
}
