package recon

import (
	"math"

	"fincanon/internal/alias"
	"fincanon/pkg/models"
)

// Bucketize groups raw statement observations into canonical period
// buckets. The bucket key carries only (fiscal year, quarter), never the
// day of month, so statements reported a day or two apart by different
// providers share a bucket. Observations whose labels match no
// registered alias are dropped silently, as are non-finite values.
// Monthly revenue observations are not statement facts and are routed
// through MonthlyRevenue instead.
func (e *Engine) Bucketize(obs []models.RawObservation) map[models.CanonicalPeriod]*models.PeriodBucket {
	buckets := make(map[models.CanonicalPeriod]*models.PeriodBucket)
	for _, o := range obs {
		if o.Kind == models.StatementMonthlyRevenue {
			continue
		}
		if math.IsNaN(o.Value) || math.IsInf(o.Value, 0) {
			continue
		}
		metric, ok := alias.Reverse(o.Provider, o.Label)
		if !ok {
			continue
		}
		period := models.PeriodFromDate(o.PeriodEnd, e.epoch, o.Annual)
		bucket, ok := buckets[period]
		if !ok {
			bucket = &models.PeriodBucket{Period: period}
			buckets[period] = bucket
		}
		bucket.Add(metric, o)
	}
	return buckets
}

// MonthlyRevenue extracts the monthly revenue feed into a per-month map.
// When a month is reported more than once the most recently fetched
// observation wins.
func MonthlyRevenue(obs []models.RawObservation) map[models.YearMonth]models.RawObservation {
	months := make(map[models.YearMonth]models.RawObservation)
	for _, o := range obs {
		if o.Kind != models.StatementMonthlyRevenue {
			continue
		}
		if math.IsNaN(o.Value) || math.IsInf(o.Value, 0) {
			continue
		}
		key := models.YearMonth{Year: o.PeriodEnd.Year(), Month: int(o.PeriodEnd.Month())}
		if prev, ok := months[key]; ok && prev.Seq >= o.Seq {
			continue
		}
		months[key] = o
	}
	return months
}
