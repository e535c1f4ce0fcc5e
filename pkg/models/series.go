// Package models defines the canonical data model for fincanon:
// raw provider observations, canonical metrics and periods, period
// buckets, resolved values with provenance, and the assembled
// per-company series that gets persisted.
package models

import (
	"fmt"
	"time"
)

// CanonicalMetric is one of the fixed financial line items the engine
// tracks. The set is closed; adding a metric requires extending the
// alias registry as well.
type CanonicalMetric string

const (
	MetricRevenue            CanonicalMetric = "revenue"
	MetricTotalAssets        CanonicalMetric = "total_assets"
	MetricTotalLiabilities   CanonicalMetric = "total_liabilities"
	MetricDebtRatio          CanonicalMetric = "debt_ratio" // derived, never reported directly
	MetricCurrentAssets      CanonicalMetric = "current_assets"
	MetricCurrentLiabilities CanonicalMetric = "current_liabilities"
	MetricEPS                CanonicalMetric = "eps"
	MetricOperatingCashFlow  CanonicalMetric = "operating_cash_flow"
)

// AllMetrics lists every canonical metric in display (row) order.
var AllMetrics = []CanonicalMetric{
	MetricRevenue,
	MetricTotalAssets,
	MetricTotalLiabilities,
	MetricDebtRatio,
	MetricCurrentAssets,
	MetricCurrentLiabilities,
	MetricEPS,
	MetricOperatingCashFlow,
}

// DisplayName returns the human-readable row label for a metric.
func (m CanonicalMetric) DisplayName() string {
	switch m {
	case MetricRevenue:
		return "Revenue"
	case MetricTotalAssets:
		return "Total Assets"
	case MetricTotalLiabilities:
		return "Total Liabilities"
	case MetricDebtRatio:
		return "Debt Ratio"
	case MetricCurrentAssets:
		return "Current Assets"
	case MetricCurrentLiabilities:
		return "Current Liabilities"
	case MetricEPS:
		return "EPS"
	case MetricOperatingCashFlow:
		return "Operating Cash Flow"
	default:
		return string(m)
	}
}

// IsMonetary reports whether the metric is a monetary magnitude that the
// unit normalizer rescales to thousands. Per-share and ratio metrics are
// left in native units.
func (m CanonicalMetric) IsMonetary() bool {
	switch m {
	case MetricRevenue, MetricTotalAssets, MetricTotalLiabilities,
		MetricCurrentAssets, MetricCurrentLiabilities, MetricOperatingCashFlow:
		return true
	default:
		return false
	}
}

// StatementKind identifies which disclosure table an observation came from.
type StatementKind string

const (
	StatementIncome         StatementKind = "income"
	StatementBalance        StatementKind = "balance"
	StatementCashFlow       StatementKind = "cashflow"
	StatementMonthlyRevenue StatementKind = "monthly_revenue"
)

// StatementKinds lists the kinds an ingestion adapter is asked for, in
// fetch order.
var StatementKinds = []StatementKind{
	StatementIncome,
	StatementBalance,
	StatementCashFlow,
	StatementMonthlyRevenue,
}

// RawObservation is a single (date, label, value) fact as reported by one
// provider. Provenance (Provider, Label) is retained for auditability and
// tie-break diagnostics. Observations are immutable once created.
type RawObservation struct {
	Provider  string        `json:"provider"`
	Kind      StatementKind `json:"kind"`
	Label     string        `json:"label"`
	PeriodEnd time.Time     `json:"period_end"`
	Annual    bool          `json:"annual"` // true for fiscal-year totals
	Value     float64       `json:"value"`
	Seq       int           `json:"seq"` // fetch ordinal; higher = fetched later
}

// Quarter identifies the quarter component of a canonical period.
// QuarterAnnual marks a fiscal-year total bucket.
type Quarter int

const (
	QuarterAnnual Quarter = 0
	Q1            Quarter = 1
	Q2            Quarter = 2
	Q3            Quarter = 3
	Q4            Quarter = 4
)

// CanonicalPeriod is the normalized (fiscal year, quarter-or-annual)
// bucket. FiscalYear is already epoch-adjusted (ROC era by default) and
// the day component of the source date never contributes, which is what
// lets observations reported a day or two apart share a bucket.
type CanonicalPeriod struct {
	FiscalYear int     `json:"fiscal_year"`
	Quarter    Quarter `json:"quarter"`
}

// PeriodFromDate derives the canonical period for a period-end date.
// epoch is the domestic fiscal epoch (1911 for the ROC calendar);
// annual marks fiscal-year totals.
func PeriodFromDate(end time.Time, epoch int, annual bool) CanonicalPeriod {
	p := CanonicalPeriod{FiscalYear: end.Year() - epoch}
	if annual {
		p.Quarter = QuarterAnnual
		return p
	}
	p.Quarter = Quarter((int(end.Month())-1)/3 + 1)
	return p
}

// Label renders the display label, e.g. "113Q4" or "113FY".
func (p CanonicalPeriod) Label() string {
	if p.Quarter == QuarterAnnual {
		return fmt.Sprintf("%dFY", p.FiscalYear)
	}
	return fmt.Sprintf("%dQ%d", p.FiscalYear, p.Quarter)
}

// ord orders periods within a fiscal year: Q1..Q4, then the FY total.
func (p CanonicalPeriod) ord() int {
	if p.Quarter == QuarterAnnual {
		return 5
	}
	return int(p.Quarter)
}

// Before reports whether p is chronologically earlier than other.
func (p CanonicalPeriod) Before(other CanonicalPeriod) bool {
	if p.FiscalYear != other.FiscalYear {
		return p.FiscalYear < other.FiscalYear
	}
	return p.ord() < other.ord()
}

// Months returns the calendar (year, month) pairs a quarter spans.
// epoch converts the fiscal year back to the calendar year. Annual
// periods return nil.
func (p CanonicalPeriod) Months(epoch int) []YearMonth {
	if p.Quarter == QuarterAnnual {
		return nil
	}
	year := p.FiscalYear + epoch
	first := (int(p.Quarter)-1)*3 + 1
	return []YearMonth{
		{Year: year, Month: first},
		{Year: year, Month: first + 1},
		{Year: year, Month: first + 2},
	}
}

// YearMonth keys monthly revenue values by calendar year and month.
type YearMonth struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// PeriodBucket collects, per canonical metric, every raw observation that
// mapped into one canonical period. Buckets are transient: they live for
// a single company's pipeline run.
type PeriodBucket struct {
	Period       CanonicalPeriod
	Observations map[CanonicalMetric][]RawObservation
}

// Add appends an observation under the given metric.
func (b *PeriodBucket) Add(metric CanonicalMetric, obs RawObservation) {
	if b.Observations == nil {
		b.Observations = make(map[CanonicalMetric][]RawObservation)
	}
	b.Observations[metric] = append(b.Observations[metric], obs)
}

// Provenance records which provider/label/rule produced a resolved value.
type Provenance struct {
	Provider  string `json:"provider,omitempty"`
	Label     string `json:"label,omitempty"`
	Imputed   bool   `json:"imputed,omitempty"`   // derived from annual − known quarters
	Partial   bool   `json:"partial,omitempty"`   // aggregate over an incomplete input set
	Contested bool   `json:"contested,omitempty"` // another provider also reported this cell
}

// ResolvedValue is one selected raw fact (or derived value) for a
// (metric, period) cell, before unit normalization.
type ResolvedValue struct {
	Value      float64    `json:"value"`
	Provenance Provenance `json:"provenance"`
}

// Unavailable is the display sentinel for unresolved cells.
const Unavailable = "N/A"

// FormattedValue is a rendered cell: either a display string or the
// explicit unavailable sentinel, plus optional provenance.
type FormattedValue struct {
	Display     string      `json:"display"`
	Unavailable bool        `json:"unavailable,omitempty"`
	Provenance  *Provenance `json:"provenance,omitempty"`
}

// NoData returns the unavailable sentinel cell.
func NoData() FormattedValue {
	return FormattedValue{Display: Unavailable, Unavailable: true}
}

// CompanySeries is the canonical per-company matrix: rows = canonical
// metrics, columns = canonical periods, cells = formatted values. It is
// the only persisted entity; identity is Code and each ingestion run
// replaces the prior record wholesale.
type CompanySeries struct {
	Code     string            `json:"code"`
	Name     string            `json:"name"`
	Venue    string            `json:"venue"`
	Periods  []CanonicalPeriod `json:"periods"` // most recent first
	Cells    map[CanonicalMetric]map[string]FormattedValue `json:"cells"`
	SyncedAt time.Time         `json:"synced_at"`
}

// Cell returns the formatted value for (metric, period label), or the
// unavailable sentinel when the cell was never populated.
func (s *CompanySeries) Cell(metric CanonicalMetric, periodLabel string) FormattedValue {
	if row, ok := s.Cells[metric]; ok {
		if v, ok := row[periodLabel]; ok {
			return v
		}
	}
	return NoData()
}
