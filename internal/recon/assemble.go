package recon

import (
	"sort"
	"time"

	"fincanon/pkg/models"
)

// Assemble builds the final per-company matrix from resolved cells.
// Columns are the periods that resolved at least one metric, most recent
// first; rows are the full canonical metric set. Unresolved cells stay
// absent and render as the unavailable sentinel through Cell.
func (e *Engine) Assemble(code, name, venue string, cells Cells, syncedAt time.Time) *models.CompanySeries {
	periods := make([]models.CanonicalPeriod, 0, len(cells))
	for period, row := range cells {
		if len(row) > 0 {
			periods = append(periods, period)
		}
	}
	sort.Slice(periods, func(i, j int) bool { return periods[j].Before(periods[i]) })

	series := &models.CompanySeries{
		Code:     code,
		Name:     name,
		Venue:    venue,
		Periods:  periods,
		Cells:    make(map[models.CanonicalMetric]map[string]models.FormattedValue, len(models.AllMetrics)),
		SyncedAt: syncedAt,
	}
	for _, metric := range models.AllMetrics {
		row := make(map[string]models.FormattedValue)
		for _, period := range periods {
			v, ok := cells.Get(period, metric)
			if !ok {
				continue
			}
			prov := v.Provenance
			row[period.Label()] = models.FormattedValue{
				Display:    Normalize(metric, v.Value),
				Provenance: &prov,
			}
		}
		series.Cells[metric] = row
	}
	return series
}
