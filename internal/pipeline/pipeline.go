// Package pipeline drives the per-company ingestion chain: fetch raw
// observations from providers in priority order, reconcile them into a
// canonical series, and persist the result. The batch driver iterates
// companies sequentially with a pacing delay in between.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/phuslu/log"

	"fincanon/internal/provider"
	"fincanon/internal/recon"
	"fincanon/internal/roster"
	"fincanon/internal/store"
	"fincanon/pkg/models"
	"fincanon/pkg/utils"
)

// Runner wires the providers, the reconciliation engine, and the store
// for pipeline runs. Construct once; Runner holds no per-company state.
type Runner struct {
	registry *provider.Registry
	engine   *recon.Engine
	store    store.Store
	since    time.Time
	now      func() time.Time
	logger   log.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithClock overrides the wall clock used for SyncedAt stamps.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// NewRunner creates a Runner. since bounds how far back observations are
// requested from providers.
func NewRunner(registry *provider.Registry, engine *recon.Engine, st store.Store, since time.Time, opts ...Option) *Runner {
	r := &Runner{
		registry: registry,
		engine:   engine,
		store:    st,
		since:    since,
		now:      time.Now,
		logger:   log.DefaultLogger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunCompany executes the full pipeline for one company and returns the
// assembled series. The primary provider is consulted first; when it
// yields no usable statement observations the fetches are re-run against
// the next provider in priority order. The monthly revenue feed is
// collected from every provider regardless, since only some carry it.
func (r *Runner) RunCompany(ctx context.Context, company roster.Company) (*models.CompanySeries, error) {
	if company.Code == "" {
		return nil, fmt.Errorf("pipeline: company code is required")
	}

	var (
		observations []models.RawObservation
		seq          int
		statements   int
	)
	for _, prov := range r.registry.InOrder() {
		obs, err := r.fetchAll(ctx, prov, company)
		if err != nil {
			r.logger.Warn().
				Err(err).
				Str("code", company.Code).
				Str("provider", prov.Name()).
				Msg("provider fetch failed, trying next")
			continue
		}
		for _, o := range obs {
			seq++
			o.Seq = seq
			observations = append(observations, o)
			if o.Kind != models.StatementMonthlyRevenue {
				statements++
			}
		}
		if statements > 0 {
			// Lower-priority providers are still asked for the monthly
			// feed so revenue synthesis has inputs.
			observations = append(observations, r.fetchMonthlyRest(ctx, company, prov.Name(), &seq)...)
			break
		}
	}

	series := r.engine.Run(company.Code, company.Name, company.Venue, observations, r.now().UTC())
	if err := r.store.UpsertSeries(ctx, series); err != nil {
		return nil, fmt.Errorf("pipeline: persist %s: %w", company.Code, err)
	}
	r.logger.Info().
		Str("code", company.Code).
		Int("observations", len(observations)).
		Int("periods", len(series.Periods)).
		Msg("company synced")
	return series, nil
}

// fetchAll pulls every statement kind from one provider. A transport
// failure on any kind fails the provider as a whole; provider-side
// absence is an empty slice, not a failure.
func (r *Runner) fetchAll(ctx context.Context, prov provider.StatementProvider, company roster.Company) ([]models.RawObservation, error) {
	ticker := utils.ProviderTicker(company.Code, company.Venue)
	var out []models.RawObservation
	for _, kind := range models.StatementKinds {
		obs, err := prov.FetchStatements(ctx, ticker, kind, r.since)
		if err != nil {
			return nil, err
		}
		out = append(out, obs...)
	}
	return out, nil
}

// fetchMonthlyRest collects the monthly revenue feed from the providers
// that were not consulted for statements. Failures here only cost the
// synthesis fallback and are logged, not propagated.
func (r *Runner) fetchMonthlyRest(ctx context.Context, company roster.Company, settled string, seq *int) []models.RawObservation {
	var out []models.RawObservation
	for _, prov := range r.registry.InOrder() {
		if prov.Name() == settled {
			continue
		}
		obs, err := prov.FetchStatements(ctx, utils.ProviderTicker(company.Code, company.Venue), models.StatementMonthlyRevenue, r.since)
		if err != nil {
			r.logger.Warn().
				Err(err).
				Str("code", company.Code).
				Str("provider", prov.Name()).
				Msg("monthly revenue fetch failed")
			continue
		}
		for _, o := range obs {
			*seq++
			o.Seq = *seq
			out = append(out, o)
		}
	}
	return out
}
