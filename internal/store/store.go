package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const currentVersion = 2

// timeLayout keeps millisecond precision and sorts lexically in UTC.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// ErrNotFound is returned when a keyed row does not exist.
var ErrNotFound = errors.New("not found")

type Store struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One connection: an in-memory database lives and dies with it, and the
	// HTTP server and retry scheduler share this handle.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// NewMemory creates an in-memory store for testing.
func NewMemory() (*Store, error) {
	return New(":memory:")
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	var version int
	err := s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	if version >= currentVersion {
		return nil
	}

	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
	}
	if version < 2 {
		if err := s.migrateV2(); err != nil {
			return err
		}
	}

	_, err = s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentVersion))
	return err
}

func (s *Store) migrateV1() error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS running_sessions (
		user_id         TEXT PRIMARY KEY,
		session_id      TEXT NOT NULL,
		title           TEXT NOT NULL,
		started_at      TEXT NOT NULL,
		elapsed_seconds INTEGER NOT NULL DEFAULT 0,
		project         TEXT NOT NULL DEFAULT '',
		tags            TEXT NOT NULL DEFAULT '[]',
		skill           TEXT NOT NULL DEFAULT '',
		intensity       TEXT NOT NULL DEFAULT '',
		notes           TEXT NOT NULL DEFAULT '',
		updated_at      TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id          TEXT PRIMARY KEY,
		user_id     TEXT NOT NULL,
		title       TEXT NOT NULL,
		started_at  TEXT NOT NULL,
		ended_at    TEXT NOT NULL,
		duration    INTEGER NOT NULL,
		project     TEXT NOT NULL DEFAULT '',
		tags        TEXT NOT NULL DEFAULT '[]',
		skill       TEXT NOT NULL DEFAULT '',
		intensity   TEXT NOT NULL DEFAULT '',
		notes       TEXT NOT NULL DEFAULT '',
		created_at  TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_user_start ON sessions(user_id, started_at);

	CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	INSERT OR IGNORE INTO settings (key, value) VALUES
		('adjust_step', '300'),
		('daily_goal',  '28800'),
		('week_start',  'monday');
	`
	_, err := s.db.Exec(ddl)
	return err
}

// migrateV2 adds the spreadsheet connection and its sync log.
func (s *Store) migrateV2() error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS connections (
		user_id          TEXT PRIMARY KEY,
		spreadsheet_id   TEXT NOT NULL DEFAULT '',
		sheet_name       TEXT NOT NULL DEFAULT '',
		columns          TEXT NOT NULL DEFAULT '{}',
		required         TEXT NOT NULL DEFAULT '[]',
		time_format      TEXT NOT NULL DEFAULT '',
		timezone         TEXT NOT NULL DEFAULT '',
		value_input      TEXT NOT NULL DEFAULT '',
		duration_format  TEXT NOT NULL DEFAULT '',
		updated_at       TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sync_logs (
		id           TEXT PRIMARY KEY,
		user_id      TEXT NOT NULL,
		session_id   TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		operation    TEXT NOT NULL,
		status       TEXT NOT NULL,
		reason       TEXT NOT NULL DEFAULT '',
		retry_count  INTEGER NOT NULL DEFAULT 0,
		created_at   TEXT NOT NULL,
		updated_at   TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sync_logs_status ON sync_logs(status, updated_at);
	`
	_, err := s.db.Exec(ddl)
	return err
}

// DefaultDBPath returns ~/.config/sheetclock/sheetclock.db
func DefaultDBPath() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "sheetclock", "sheetclock.db"), nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t.UTC()
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
