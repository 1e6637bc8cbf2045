// Package store loads and persists tariff tables. Two backends exist:
// the legacy per-room CSV files the property manager already maintains,
// and a sqlite database serving the admin API.
package store

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"villabook/internal/tariff"
)

// Legacy CSV header columns, in on-disk order.
var csvHeader = []string{"data inizio", "data fine", "costo"}

// CSVStore reads one tariff file per room from a directory, e.g.
// rooms_prices/Calypso.csv.
type CSVStore struct {
	dir string
}

// NewCSVStore creates a store rooted at dir.
func NewCSVStore(dir string) *CSVStore {
	return &CSVStore{dir: dir}
}

// TariffTable loads and validates the tariff table for a room.
func (s *CSVStore) TariffTable(_ context.Context, room string) (*tariff.Table, error) {
	rows, err := s.readRows(room)
	if err != nil {
		return nil, err
	}
	table, err := tariff.FromRows(rows)
	if err != nil {
		return nil, fmt.Errorf("tariff file for %s: %w", room, err)
	}
	return table, nil
}

// Rows returns the raw legacy rows for a room, unvalidated, for the
// admin surface to display even when the file is inconsistent.
func (s *CSVStore) Rows(_ context.Context, room string) ([]tariff.Row, error) {
	return s.readRows(room)
}

// ReplaceRows replaces a room's tariff file. The table is validated
// first; an inconsistent table is rejected and the file left untouched.
func (s *CSVStore) ReplaceRows(_ context.Context, room string, rows []tariff.Row) error {
	if _, err := tariff.FromRows(rows); err != nil {
		return err
	}

	path := s.path(room)
	f, err := os.CreateTemp(filepath.Dir(path), ".tariff-*")
	if err != nil {
		return fmt.Errorf("create temp tariff file: %w", err)
	}
	defer os.Remove(f.Name())

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		f.Close()
		return err
	}
	for _, row := range rows {
		if err := w.Write([]string{row.Start, row.End, row.Rate}); err != nil {
			f.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(f.Name(), path)
}

func (s *CSVStore) path(room string) string {
	// Room names come from config, but never trust them as paths.
	return filepath.Join(s.dir, filepath.Base(room)+".csv")
}

func (s *CSVStore) readRows(room string) ([]tariff.Row, error) {
	f, err := os.Open(s.path(room))
	if err != nil {
		return nil, fmt.Errorf("open tariff file for %s: %w", room, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse tariff file for %s: %w", room, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("tariff file for %s is empty", room)
	}

	if err := checkHeader(records[0]); err != nil {
		return nil, fmt.Errorf("tariff file for %s: %w", room, err)
	}

	rows := make([]tariff.Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		if len(rec) < 3 {
			return nil, fmt.Errorf("tariff file for %s: short row %v", room, rec)
		}
		rows = append(rows, tariff.Row{Start: rec[0], End: rec[1], Rate: rec[2]})
	}
	return rows, nil
}

func checkHeader(header []string) error {
	if len(header) < len(csvHeader) {
		return fmt.Errorf("unexpected header %v", header)
	}
	for i, want := range csvHeader {
		got := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff")))
		if got != want {
			return fmt.Errorf("unexpected header column %q, want %q", header[i], want)
		}
	}
	return nil
}
