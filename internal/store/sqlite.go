package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver
	"github.com/rs/zerolog"

	"villabook/internal/tariff"
)

// DB is the sqlite-backed tariff store used by the admin API. Each room
// owns a set of tariff rows kept in the legacy inclusive-boundary form;
// conversion to half-open entries happens on load via tariff.FromRows.
type DB struct {
	*sql.DB
	logger *zerolog.Logger
}

// NewDB opens (creating if needed) the tariff database.
func NewDB(path string, logger *zerolog.Logger) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	instance := &DB{DB: db, logger: logger}
	if err := instance.createTables(); err != nil {
		return nil, fmt.Errorf("create tables: %w", err)
	}

	logger.Info().Str("path", path).Msg("tariff database initialized")
	return instance, nil
}

func (db *DB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS rooms (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT UNIQUE NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS tariffs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			room_id INTEGER NOT NULL,
			date_from TEXT NOT NULL,
			date_to TEXT NOT NULL,
			nightly_rate TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY(room_id) REFERENCES rooms(id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tariffs_room ON tariffs(room_id, date_from)`,
	}

	for _, query := range queries {
		if _, err := db.Exec(query); err != nil {
			return fmt.Errorf("executing query %s: %w", query, err)
		}
	}
	return nil
}

// EnsureRoom creates the room row if missing and returns its id.
func (db *DB) EnsureRoom(ctx context.Context, name string) (int64, error) {
	_, err := db.ExecContext(ctx, `INSERT OR IGNORE INTO rooms (name) VALUES (?)`, name)
	if err != nil {
		return 0, err
	}
	var id int64
	err = db.QueryRowContext(ctx, `SELECT id FROM rooms WHERE name = ?`, name).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Rows returns the legacy tariff rows for a room, ordered by start date.
func (db *DB) Rows(ctx context.Context, room string) ([]tariff.Row, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT t.date_from, t.date_to, t.nightly_rate
		FROM tariffs t JOIN rooms r ON r.id = t.room_id
		WHERE r.name = ?
		ORDER BY t.date_from`, room)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []tariff.Row
	for rows.Next() {
		var r tariff.Row
		if err := rows.Scan(&r.Start, &r.End, &r.Rate); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ReplaceRows swaps a room's entire tariff table in one transaction. The
// new table is validated before anything is written.
func (db *DB) ReplaceRows(ctx context.Context, room string, newRows []tariff.Row) error {
	if _, err := tariff.FromRows(newRows); err != nil {
		return err
	}

	roomID, err := db.EnsureRoom(ctx, room)
	if err != nil {
		return fmt.Errorf("ensure room %s: %w", room, err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM tariffs WHERE room_id = ?`, roomID); err != nil {
		return err
	}
	for _, r := range newRows {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO tariffs (room_id, date_from, date_to, nightly_rate)
			VALUES (?, ?, ?, ?)`, roomID, r.Start, r.End, r.Rate)
		if err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	db.logger.Info().Str("room", room).Int("rows", len(newRows)).Msg("tariff table replaced")
	return nil
}

// TariffTable loads and validates the tariff table for a room.
func (db *DB) TariffTable(ctx context.Context, room string) (*tariff.Table, error) {
	rows, err := db.Rows(ctx, room)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no tariff rows for room %s", room)
	}
	table, err := tariff.FromRows(rows)
	if err != nil {
		return nil, fmt.Errorf("tariff table for %s: %w", room, err)
	}
	return table, nil
}

// ImportCSV seeds a room's table from a legacy CSV store. Used once at
// migration time and from the admin import endpoint.
func (db *DB) ImportCSV(ctx context.Context, csvStore *CSVStore, room string) error {
	rows, err := csvStore.Rows(ctx, room)
	if err != nil {
		return err
	}
	return db.ReplaceRows(ctx, room, rows)
}

func (db *DB) Close() error {
	return db.DB.Close()
}
