package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"fincanon/internal/store"
	"fincanon/pkg/models"
)

type Store struct {
	db *sql.DB
}

func New(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite: path is required")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// UpsertSeries replaces the persisted series for a company in full.
func (s *Store) UpsertSeries(ctx context.Context, series *models.CompanySeries) error {
	if series == nil || series.Code == "" {
		return fmt.Errorf("sqlite: series with a company code is required")
	}

	payload, err := json.Marshal(series)
	if err != nil {
		return err
	}

	syncedAt := series.SyncedAt
	if syncedAt.IsZero() {
		syncedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO company_series (code, name, venue, series, synced_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(code)
		DO UPDATE SET
			name = excluded.name,
			venue = excluded.venue,
			series = excluded.series,
			synced_at = excluded.synced_at
	`, series.Code, series.Name, series.Venue, string(payload), syncedAt.UTC().Format(time.RFC3339))
	return err
}

func (s *Store) GetSeries(ctx context.Context, code string) (*models.CompanySeries, error) {
	row := s.db.QueryRowContext(ctx, `SELECT series FROM company_series WHERE code = ?`, code)

	var payload string
	if err := row.Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return decodeSeries(payload)
}

// SearchByName matches a substring of the company name or an exact code.
func (s *Store) SearchByName(ctx context.Context, query string) ([]*models.CompanySeries, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT series FROM company_series
		WHERE name LIKE ? OR code = ?
		ORDER BY code
	`, "%"+query+"%", query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.CompanySeries
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		series, err := decodeSeries(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, series)
	}
	return out, rows.Err()
}

func decodeSeries(payload string) (*models.CompanySeries, error) {
	var series models.CompanySeries
	if err := json.Unmarshal([]byte(payload), &series); err != nil {
		return nil, fmt.Errorf("sqlite: corrupt series payload: %w", err)
	}
	return &series, nil
}

func (s *Store) migrate() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS company_series (
			code TEXT NOT NULL PRIMARY KEY,
			name TEXT NOT NULL,
			venue TEXT NOT NULL,
			series TEXT NOT NULL,
			synced_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_company_series_name ON company_series(name);`,
	}

	for _, statement := range statements {
		if _, err := s.db.Exec(statement); err != nil {
			return err
		}
	}

	return nil
}
