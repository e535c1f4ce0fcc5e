package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"fincanon/internal/store"
	"fincanon/pkg/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "fincanon.db"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleSeries(code, name string, revenue string) *models.CompanySeries {
	return &models.CompanySeries{
		Code:  code,
		Name:  name,
		Venue: "TWSE",
		Periods: []models.CanonicalPeriod{
			{FiscalYear: 113, Quarter: models.Q1},
		},
		Cells: map[models.CanonicalMetric]map[string]models.FormattedValue{
			models.MetricRevenue: {
				"113Q1": {Display: revenue, Provenance: &models.Provenance{Provider: "yahoo"}},
			},
		},
		SyncedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestUpsertAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	want := sampleSeries("2330", "台積電", "989,918")
	if err := s.UpsertSeries(ctx, want); err != nil {
		t.Fatalf("UpsertSeries: %v", err)
	}

	got, err := s.GetSeries(ctx, "2330")
	if err != nil {
		t.Fatalf("GetSeries: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}

func TestUpsertReplacesWholesale(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertSeries(ctx, sampleSeries("2330", "台積電", "989,918")); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	fresh := sampleSeries("2330", "台積電", "1,000,000")
	fresh.Periods = []models.CanonicalPeriod{{FiscalYear: 113, Quarter: models.Q2}}
	fresh.Cells[models.MetricRevenue] = map[string]models.FormattedValue{
		"113Q2": {Display: "1,000,000"},
	}
	if err := s.UpsertSeries(ctx, fresh); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := s.GetSeries(ctx, "2330")
	if err != nil {
		t.Fatalf("GetSeries: %v", err)
	}
	if _, stale := got.Cells[models.MetricRevenue]["113Q1"]; stale {
		t.Fatal("stale cell survived re-ingestion; upsert must replace in full")
	}
	if got.Cell(models.MetricRevenue, "113Q2").Display != "1,000,000" {
		t.Fatalf("fresh cell missing: %+v", got.Cells)
	}
}

func TestGetMissingIsNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetSeries(context.Background(), "9999"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("got %v, want store.ErrNotFound", err)
	}
}

func TestSearchByName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, series := range []*models.CompanySeries{
		sampleSeries("2330", "台積電", "989,918"),
		sampleSeries("2317", "鴻海", "500,000"),
		sampleSeries("2454", "聯發科", "120,000"),
	} {
		if err := s.UpsertSeries(ctx, series); err != nil {
			t.Fatalf("UpsertSeries %s: %v", series.Code, err)
		}
	}

	byName, err := s.SearchByName(ctx, "台積")
	if err != nil {
		t.Fatalf("SearchByName: %v", err)
	}
	if len(byName) != 1 || byName[0].Code != "2330" {
		t.Fatalf("name search = %v, want just 2330", byName)
	}

	byCode, err := s.SearchByName(ctx, "2454")
	if err != nil {
		t.Fatalf("SearchByName: %v", err)
	}
	if len(byCode) != 1 || byCode[0].Name != "聯發科" {
		t.Fatalf("code search = %v, want just 聯發科", byCode)
	}

	none, err := s.SearchByName(ctx, "nomatch")
	if err != nil {
		t.Fatalf("SearchByName: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("got %d results, want 0", len(none))
	}
}

func TestUpsertRequiresCode(t *testing.T) {
	s := newTestStore(t)
	if err := s.UpsertSeries(context.Background(), &models.CompanySeries{}); err == nil {
		t.Fatal("expected error for series without a code")
	}
}
