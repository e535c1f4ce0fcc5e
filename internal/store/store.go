// Package store defines the persistence contract for assembled company
// series. Ingestion replaces a company's record wholesale; there is no
// incremental merge of a stale series with a fresh one.
package store

import (
	"context"
	"errors"

	"fincanon/pkg/models"
)

// ErrNotFound is returned when no series has been ingested for a code.
var ErrNotFound = errors.New("store: series not found")

type Store interface {
	UpsertSeries(ctx context.Context, series *models.CompanySeries) error
	GetSeries(ctx context.Context, code string) (*models.CompanySeries, error)
	SearchByName(ctx context.Context, query string) ([]*models.CompanySeries, error)
	Close() error
}

// NopStore discards writes and finds nothing. Pipelines run against it
// when persistence is disabled.
type NopStore struct{}

func (s *NopStore) UpsertSeries(ctx context.Context, series *models.CompanySeries) error {
	_ = ctx
	_ = series
	return nil
}

func (s *NopStore) GetSeries(ctx context.Context, code string) (*models.CompanySeries, error) {
	_ = ctx
	_ = code
	return nil, ErrNotFound
}

func (s *NopStore) SearchByName(ctx context.Context, query string) ([]*models.CompanySeries, error) {
	_ = ctx
	_ = query
	return nil, nil
}

func (s *NopStore) Close() error {
	return nil
}
