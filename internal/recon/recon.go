// Package recon implements the canonical reconciliation pipeline for one
// company's raw observations: period bucketing, priority-ordered value
// resolution, derived-metric calculation, unit normalization, and final
// series assembly. Every stage is pure; network I/O and persistence live
// in the calling pipeline.
package recon

import (
	"time"

	"github.com/phuslu/log"

	"fincanon/pkg/models"
)

// Engine holds the run-time parameters the stages share: the provider
// priority order (primary first) and the fiscal epoch used to convert
// calendar years into fiscal years.
type Engine struct {
	order  []string
	epoch  int
	logger log.Logger
}

// New creates an Engine. order lists provider ids by priority, primary
// first; epoch is the domestic fiscal epoch (1911 for the ROC calendar).
func New(order []string, epoch int) *Engine {
	return &Engine{
		order:  append([]string(nil), order...),
		epoch:  epoch,
		logger: log.DefaultLogger,
	}
}

// Run executes the full stage chain over one company's observations and
// returns the assembled series. The same inputs always produce the same
// series.
func (e *Engine) Run(code, name, venue string, obs []models.RawObservation, syncedAt time.Time) *models.CompanySeries {
	buckets := e.Bucketize(obs)
	cells := e.Resolve(buckets)
	e.Derive(cells, MonthlyRevenue(obs))
	series := e.Assemble(code, name, venue, cells, syncedAt)
	e.logger.Debug().
		Str("code", code).
		Int("observations", len(obs)).
		Int("periods", len(series.Periods)).
		Msg("series reconciled")
	return series
}
