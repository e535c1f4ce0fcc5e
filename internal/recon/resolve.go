package recon

import (
	"fincanon/internal/alias"
	"fincanon/pkg/models"
)

// Cells is the resolver output: one selected value per populated
// (period, metric) pair. A missing entry is an unresolved cell.
type Cells map[models.CanonicalPeriod]map[models.CanonicalMetric]models.ResolvedValue

// Set stores a resolved value for a cell.
func (c Cells) Set(period models.CanonicalPeriod, metric models.CanonicalMetric, v models.ResolvedValue) {
	row, ok := c[period]
	if !ok {
		row = make(map[models.CanonicalMetric]models.ResolvedValue)
		c[period] = row
	}
	row[metric] = v
}

// Get returns the resolved value for a cell, if any.
func (c Cells) Get(period models.CanonicalPeriod, metric models.CanonicalMetric) (models.ResolvedValue, bool) {
	v, ok := c[period][metric]
	return v, ok
}

// Resolve selects one value per (metric, period) from the bucketed
// observations. Providers are consulted in priority order and the first
// provider holding any observation for the cell settles it; within that
// provider the lowest-ranked label wins and a repeated label is broken
// by the most recently fetched observation. No arithmetic happens here.
func (e *Engine) Resolve(buckets map[models.CanonicalPeriod]*models.PeriodBucket) Cells {
	cells := make(Cells, len(buckets))
	for period, bucket := range buckets {
		for metric, obs := range bucket.Observations {
			if v, ok := e.resolveMetric(metric, obs); ok {
				cells.Set(period, metric, v)
			}
		}
	}
	return cells
}

func (e *Engine) resolveMetric(metric models.CanonicalMetric, obs []models.RawObservation) (models.ResolvedValue, bool) {
	for i, provider := range e.order {
		var (
			best     models.RawObservation
			bestRank = -1
		)
		for _, o := range obs {
			if o.Provider != provider {
				continue
			}
			rank := alias.Rank(metric, provider, o.Label)
			if rank < 0 {
				continue
			}
			switch {
			case bestRank < 0, rank < bestRank:
				best, bestRank = o, rank
			case rank == bestRank && o.Seq > best.Seq:
				best = o
			}
		}
		if bestRank < 0 {
			continue
		}
		return models.ResolvedValue{
			Value: best.Value,
			Provenance: models.Provenance{
				Provider:  provider,
				Label:     best.Label,
				Contested: contestedBy(obs, e.order[i+1:]),
			},
		}, true
	}
	return models.ResolvedValue{}, false
}

// contestedBy reports whether a lower-priority provider also reported
// this cell. Priority still picks the winner; the flag only surfaces
// that a disagreement was possible.
func contestedBy(obs []models.RawObservation, rest []string) bool {
	for _, provider := range rest {
		for _, o := range obs {
			if o.Provider == provider {
				return true
			}
		}
	}
	return false
}
