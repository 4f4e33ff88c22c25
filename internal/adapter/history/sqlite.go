package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/couchcryptid/synop-dashboard/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS history (
  stacja              TEXT NOT NULL,
  temperatura         REAL NOT NULL,
  wilgotnosc_wzgledna REAL NOT NULL,
  cisnienie           REAL NOT NULL,
  data_pobrania       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_station_date ON history(stacja, data_pobrania);
`

const insertSQL = `INSERT INTO history (stacja, temperatura, wilgotnosc_wzgledna, cisnienie, data_pobrania) VALUES (?, ?, ?, ?, ?)`

const selectSQL = `SELECT stacja, temperatura, wilgotnosc_wzgledna, cisnienie, data_pobrania
FROM history
WHERE stacja = ? AND data_pobrania >= ?
ORDER BY data_pobrania, rowid`

// SQLiteStore keeps the log in an insert-only SQLite table.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and ensures the schema.
// Use ":memory:" for an ephemeral store.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Append inserts all rows in a single transaction.
func (s *SQLiteStore) Append(ctx context.Context, date time.Time, obs []domain.Observation) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range domain.HistoryEntries(obs, date) {
		if _, err := stmt.ExecContext(ctx, e.Station, e.Temperature, e.Humidity, e.Pressure, e.CapturedOn.Format(DateLayout)); err != nil {
			return 0, fmt.Errorf("insert %s: %w", e.Station, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(obs), nil
}

// Load queries entries for one station. Dates are stored as YYYY-MM-DD so the
// lower bound compares lexically; the exact instant check runs in Go.
func (s *SQLiteStore) Load(ctx context.Context, station string, since time.Time) Result {
	rows, err := s.db.QueryContext(ctx, selectSQL, station, since.UTC().Format(DateLayout))
	if err != nil {
		return unavailable(err.Error())
	}
	defer rows.Close()

	var entries []domain.HistoryEntry
	for rows.Next() {
		var (
			e   domain.HistoryEntry
			day string
		)
		if err := rows.Scan(&e.Station, &e.Temperature, &e.Humidity, &e.Pressure, &day); err != nil {
			return unavailable(err.Error())
		}
		if e.CapturedOn, err = time.Parse(DateLayout, day); err != nil {
			continue
		}
		if inWindow(e, station, since) {
			entries = append(entries, e)
		}
	}
	if err := rows.Err(); err != nil {
		return unavailable(err.Error())
	}
	return resultOf(entries)
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
