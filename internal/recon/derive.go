package recon

import (
	"math"

	"fincanon/pkg/models"
)

// materialityFloor separates a genuinely zero annual total from one that
// makes a reported-zero fourth quarter implausible.
const materialityFloor = 0.05

// Derive fills cells the resolver could not settle from direct
// observations: quarterly revenue synthesized from the monthly feed,
// fourth quarters imputed from annual totals, and the debt ratio. Every
// rule short-circuits to unresolved when an input is unresolved; nothing
// here panics or emits NaN.
func (e *Engine) Derive(cells Cells, monthly map[models.YearMonth]models.RawObservation) {
	e.synthesizeRevenue(cells, monthly)
	e.imputeFourthQuarters(cells)
	e.deriveDebtRatio(cells)
}

// synthesizeRevenue fills unresolved quarterly revenue from the monthly
// revenue feed. A quarter with at least one reported month gets the sum
// of whatever months are known; fewer than three is tagged partial. A
// quarter may exist only in the feed: monthly revenue publishes weeks
// before the quarter's statements, so candidate quarters come from the
// feed as well as from already-bucketed periods.
func (e *Engine) synthesizeRevenue(cells Cells, monthly map[models.YearMonth]models.RawObservation) {
	if len(monthly) == 0 {
		return
	}
	for _, period := range revenueCandidates(cells, monthly, e.epoch) {
		if _, ok := cells.Get(period, models.MetricRevenue); ok {
			continue
		}
		var (
			sum      float64
			known    int
			provider string
			label    string
		)
		for _, ym := range period.Months(e.epoch) {
			o, ok := monthly[ym]
			if !ok {
				continue
			}
			sum += o.Value
			known++
			provider, label = o.Provider, o.Label
		}
		if known == 0 {
			continue
		}
		cells.Set(period, models.MetricRevenue, models.ResolvedValue{
			Value: sum,
			Provenance: models.Provenance{
				Provider: provider,
				Label:    label,
				Partial:  known < 3,
			},
		})
	}
}

// revenueCandidates lists every quarter that could receive synthesized
// revenue: each non-annual period already holding cells, plus the
// quarter of every reported month.
func revenueCandidates(cells Cells, monthly map[models.YearMonth]models.RawObservation, epoch int) []models.CanonicalPeriod {
	seen := make(map[models.CanonicalPeriod]bool)
	var periods []models.CanonicalPeriod
	add := func(p models.CanonicalPeriod) {
		if p.Quarter != models.QuarterAnnual && !seen[p] {
			seen[p] = true
			periods = append(periods, p)
		}
	}
	for period := range cells {
		add(period)
	}
	for ym := range monthly {
		add(models.CanonicalPeriod{
			FiscalYear: ym.Year - epoch,
			Quarter:    models.Quarter((ym.Month-1)/3 + 1),
		})
	}
	return periods
}

// imputeFourthQuarters fills a missing Q4 from the fiscal year's annual
// total minus the known quarters. The rule runs per metric and fires only
// when at least one of Q1..Q3 resolved; an annual total alone never
// fabricates a quarter. A Q4 that reports exactly zero against a
// materially non-zero annual total is treated as missing.
func (e *Engine) imputeFourthQuarters(cells Cells) {
	for _, year := range fiscalYears(cells) {
		annualPeriod := models.CanonicalPeriod{FiscalYear: year, Quarter: models.QuarterAnnual}
		q4Period := models.CanonicalPeriod{FiscalYear: year, Quarter: models.Q4}
		for _, metric := range models.AllMetrics {
			if metric == models.MetricDebtRatio {
				continue
			}
			annual, ok := cells.Get(annualPeriod, metric)
			if !ok {
				continue
			}
			if q4, ok := cells.Get(q4Period, metric); ok {
				if q4.Value != 0 || math.Abs(annual.Value) <= materialityFloor {
					continue
				}
			}
			var (
				sum   float64
				known int
			)
			for _, q := range []models.Quarter{models.Q1, models.Q2, models.Q3} {
				v, ok := cells.Get(models.CanonicalPeriod{FiscalYear: year, Quarter: q}, metric)
				if !ok {
					continue
				}
				sum += v.Value
				known++
			}
			if known == 0 {
				continue
			}
			cells.Set(q4Period, metric, models.ResolvedValue{
				Value: annual.Value - sum,
				Provenance: models.Provenance{
					Provider: annual.Provenance.Provider,
					Imputed:  true,
					Partial:  known < 3,
				},
			})
		}
	}
}

// deriveDebtRatio computes liabilities over assets as a percentage for
// every period where both sides resolved and assets are positive.
func (e *Engine) deriveDebtRatio(cells Cells) {
	for period := range cells {
		liabilities, ok := cells.Get(period, models.MetricTotalLiabilities)
		if !ok {
			continue
		}
		assets, ok := cells.Get(period, models.MetricTotalAssets)
		if !ok || assets.Value <= 0 {
			continue
		}
		cells.Set(period, models.MetricDebtRatio, models.ResolvedValue{
			Value: liabilities.Value / assets.Value * 100,
			Provenance: models.Provenance{
				Provider: assets.Provenance.Provider,
				Imputed:  liabilities.Provenance.Imputed || assets.Provenance.Imputed,
			},
		})
	}
}

func fiscalYears(cells Cells) []int {
	seen := make(map[int]bool)
	var years []int
	for period := range cells {
		if !seen[period.FiscalYear] {
			seen[period.FiscalYear] = true
			years = append(years, period.FiscalYear)
		}
	}
	return years
}
