package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"fincanon/internal/infra"
	"fincanon/internal/provider"
	"fincanon/internal/recon"
	"fincanon/internal/roster"
	"fincanon/pkg/models"
)

// fakeProvider serves canned observations per statement kind and
// records the codes it was asked about.
type fakeProvider struct {
	name  string
	obs   map[models.StatementKind][]models.RawObservation
	err   error
	codes []string
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Ping(ctx context.Context) error { return nil }

func (f *fakeProvider) FetchStatements(ctx context.Context, code string, kind models.StatementKind, since time.Time) ([]models.RawObservation, error) {
	f.codes = append(f.codes, code)
	if f.err != nil {
		return nil, f.err
	}
	return f.obs[kind], nil
}

// memStore records upserts in memory.
type memStore struct {
	series map[string]*models.CompanySeries
	err    error
}

func newMemStore() *memStore {
	return &memStore{series: make(map[string]*models.CompanySeries)}
}

func (m *memStore) UpsertSeries(ctx context.Context, s *models.CompanySeries) error {
	if m.err != nil {
		return m.err
	}
	m.series[s.Code] = s
	return nil
}

func (m *memStore) GetSeries(ctx context.Context, code string) (*models.CompanySeries, error) {
	return m.series[code], nil
}

func (m *memStore) SearchByName(ctx context.Context, q string) ([]*models.CompanySeries, error) {
	return nil, nil
}

func (m *memStore) Close() error { return nil }

func balanceObs(providerName, label string, value float64) models.RawObservation {
	return models.RawObservation{
		Provider:  providerName,
		Kind:      models.StatementBalance,
		Label:     label,
		PeriodEnd: time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		Value:     value,
	}
}

func monthlyRevObs(month int, value float64) models.RawObservation {
	return models.RawObservation{
		Provider:  "mops",
		Kind:      models.StatementMonthlyRevenue,
		Label:     "當月營收",
		PeriodEnd: time.Date(2024, time.Month(month), 28, 0, 0, 0, 0, time.UTC),
		Value:     value,
	}
}

func newRunner(st *memStore, providers ...provider.StatementProvider) *Runner {
	registry := provider.NewRegistry()
	var order []string
	for _, p := range providers {
		registry.Register(p)
		order = append(order, p.Name())
	}
	engine := recon.New(order, 1911)
	since := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	fixed := func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return NewRunner(registry, engine, st, since, WithClock(fixed))
}

func company() roster.Company {
	return roster.Company{Code: "2330", Name: "台積電", Venue: "TWSE"}
}

func TestRunCompanyPrimaryWins(t *testing.T) {
	primary := &fakeProvider{name: "yahoo", obs: map[models.StatementKind][]models.RawObservation{
		models.StatementBalance: {balanceObs("yahoo", "Total Assets", 2_000_000_000)},
	}}
	secondary := &fakeProvider{name: "mops", obs: map[models.StatementKind][]models.RawObservation{
		models.StatementBalance: {balanceObs("mops", "資產總計", 1_999_000_000)},
	}}
	st := newMemStore()

	series, err := newRunner(st, primary, secondary).RunCompany(context.Background(), company())
	if err != nil {
		t.Fatalf("RunCompany: %v", err)
	}

	cell := series.Cell(models.MetricTotalAssets, "113Q1")
	if cell.Display != "2,000,000" {
		t.Errorf("assets cell = %q, want primary's 2,000,000", cell.Display)
	}
	if cell.Provenance == nil || cell.Provenance.Provider != "yahoo" {
		t.Errorf("provenance = %+v, want yahoo", cell.Provenance)
	}
	if st.series["2330"] == nil {
		t.Fatal("series not persisted")
	}
	// Yahoo gets the venue-suffixed ticker.
	if primary.codes[0] != "2330.TW" {
		t.Errorf("primary asked for %q, want 2330.TW", primary.codes[0])
	}
}

func TestRunCompanySecondaryFallback(t *testing.T) {
	primary := &fakeProvider{name: "yahoo"}
	secondary := &fakeProvider{name: "mops", obs: map[models.StatementKind][]models.RawObservation{
		models.StatementBalance: {balanceObs("mops", "資產總計", 1_999_000_000)},
	}}
	st := newMemStore()

	series, err := newRunner(st, primary, secondary).RunCompany(context.Background(), company())
	if err != nil {
		t.Fatalf("RunCompany: %v", err)
	}
	cell := series.Cell(models.MetricTotalAssets, "113Q1")
	if cell.Provenance == nil || cell.Provenance.Provider != "mops" {
		t.Errorf("provenance = %+v, want the secondary provider", cell.Provenance)
	}
}

func TestRunCompanyPrimaryTransportErrorFallsThrough(t *testing.T) {
	primary := &fakeProvider{name: "yahoo", err: errors.New("upstream 502")}
	secondary := &fakeProvider{name: "mops", obs: map[models.StatementKind][]models.RawObservation{
		models.StatementBalance: {balanceObs("mops", "資產總計", 1_999_000_000)},
	}}

	series, err := newRunner(newMemStore(), primary, secondary).RunCompany(context.Background(), company())
	if err != nil {
		t.Fatalf("RunCompany: %v", err)
	}
	if got := series.Cell(models.MetricTotalAssets, "113Q1").Display; got != "1,999,000" {
		t.Errorf("assets cell = %q, want the secondary's value", got)
	}
}

func TestRunCompanyMonthlyFeedFromSecondary(t *testing.T) {
	// Primary settles statements but carries no monthly feed; the
	// secondary's feed must still reach revenue synthesis.
	primary := &fakeProvider{name: "yahoo", obs: map[models.StatementKind][]models.RawObservation{
		models.StatementBalance: {balanceObs("yahoo", "Total Assets", 2_000_000_000)},
	}}
	secondary := &fakeProvider{name: "mops", obs: map[models.StatementKind][]models.RawObservation{
		models.StatementMonthlyRevenue: {
			monthlyRevObs(1, 100_000_000),
			monthlyRevObs(2, 110_000_000),
		},
	}}

	series, err := newRunner(newMemStore(), primary, secondary).RunCompany(context.Background(), company())
	if err != nil {
		t.Fatalf("RunCompany: %v", err)
	}
	cell := series.Cell(models.MetricRevenue, "113Q1")
	if cell.Display != "210,000" {
		t.Fatalf("revenue cell = %q, want synthesized 210,000", cell.Display)
	}
	if cell.Provenance == nil || !cell.Provenance.Partial {
		t.Errorf("provenance = %+v, want a partial aggregate", cell.Provenance)
	}
}

func TestRunCompanyEmptyEverywhereStillPersists(t *testing.T) {
	st := newMemStore()
	series, err := newRunner(st, &fakeProvider{name: "yahoo"}, &fakeProvider{name: "mops"}).
		RunCompany(context.Background(), company())
	if err != nil {
		t.Fatalf("an empty series is a valid result, got %v", err)
	}
	if len(series.Periods) != 0 {
		t.Fatalf("periods = %v, want none", series.Periods)
	}
	if st.series["2330"] == nil {
		t.Fatal("empty series must still be persisted")
	}
}

func TestRunBatchAccounting(t *testing.T) {
	st := newMemStore()
	primary := &fakeProvider{name: "yahoo", obs: map[models.StatementKind][]models.RawObservation{
		models.StatementBalance: {balanceObs("yahoo", "Total Assets", 2_000_000_000)},
	}}
	runner := newRunner(st, primary)

	companies := []roster.Company{
		{Code: "2330", Name: "台積電", Venue: "TWSE"},
		{Code: "", Name: "broken"},
		{Code: "2317", Name: "鴻海", Venue: "TWSE"},
	}
	result := runner.RunBatch(context.Background(), companies, infra.NopPacer{})

	if len(result.Synced) != 2 {
		t.Fatalf("synced = %v, want 2330 and 2317", result.Synced)
	}
	if len(result.Skipped) != 1 || result.Skipped[0].Reason == "" {
		t.Fatalf("skipped = %v, want one skip with a reason", result.Skipped)
	}
}

func TestRunBatchStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := newRunner(newMemStore(), &fakeProvider{name: "yahoo"})
	result := runner.RunBatch(ctx, []roster.Company{company(), {Code: "2317"}}, infra.NopPacer{})
	if len(result.Synced)+len(result.Skipped) != 0 {
		t.Fatalf("cancelled batch ran companies: %+v", result)
	}
}

func TestRunCompanyStoreFailure(t *testing.T) {
	st := newMemStore()
	st.err = errors.New("disk full")
	if _, err := newRunner(st, &fakeProvider{name: "yahoo"}).RunCompany(context.Background(), company()); err == nil {
		t.Fatal("expected persist error")
	}
}
