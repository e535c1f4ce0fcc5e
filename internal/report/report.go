// Package report renders a persisted company series for review and
// applies the revenue-threshold underwriting decision. Both are
// consumers of the canonical series, downstream of reconciliation.
package report

import (
	"fmt"
	"strconv"
	"strings"

	"fincanon/pkg/models"
)

// Decision is the underwriting grouping for one company.
type Decision struct {
	GroupA        bool    `json:"group_a"`
	LatestRevenue float64 `json:"latest_revenue_thousands"`
	LatestPeriod  string  `json:"latest_period,omitempty"`
	Reason        string  `json:"reason"`
}

// Decide applies the revenue floor: a company whose most recent
// quarterly revenue (in thousands of native currency) meets the floor
// is Group A, otherwise Group B. A series with no resolved quarterly
// revenue cannot be graded.
func Decide(series *models.CompanySeries, floorThousands float64) Decision {
	for _, period := range series.Periods {
		if period.Quarter == models.QuarterAnnual {
			continue
		}
		cell := series.Cell(models.MetricRevenue, period.Label())
		if cell.Unavailable {
			continue
		}
		revenue, err := parseThousands(cell.Display)
		if err != nil {
			continue
		}
		d := Decision{
			LatestRevenue: revenue,
			LatestPeriod:  period.Label(),
		}
		if revenue >= floorThousands {
			d.GroupA = true
			d.Reason = fmt.Sprintf("latest quarterly revenue %s meets the floor", cell.Display)
		} else {
			d.Reason = fmt.Sprintf("latest quarterly revenue %s is under the floor", cell.Display)
		}
		return d
	}
	return Decision{Reason: "no quarterly revenue resolved"}
}

// parseThousands reads a comma-grouped thousands cell back to a number.
func parseThousands(display string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(display, ",", ""), 64)
}

// Render produces a markdown review table: one row per canonical
// metric, one column per period, most recent first, with the
// unavailable sentinel for unresolved cells.
func Render(series *models.CompanySeries) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s %s (%s)\n\n", series.Code, series.Name, series.Venue)
	if !series.SyncedAt.IsZero() {
		fmt.Fprintf(&b, "Synced %s\n\n", series.SyncedAt.Format("2006-01-02 15:04"))
	}
	if len(series.Periods) == 0 {
		b.WriteString("No statement data available.\n")
		return b.String()
	}

	b.WriteString("| Metric |")
	for _, period := range series.Periods {
		fmt.Fprintf(&b, " %s |", period.Label())
	}
	b.WriteString("\n|---|")
	for range series.Periods {
		b.WriteString("---|")
	}
	b.WriteString("\n")

	for _, metric := range models.AllMetrics {
		fmt.Fprintf(&b, "| %s |", metric.DisplayName())
		for _, period := range series.Periods {
			cell := series.Cell(metric, period.Label())
			fmt.Fprintf(&b, " %s |", annotate(cell))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// annotate suffixes a cell with its provenance markers: * imputed,
// ~ partial aggregate, ! contested between providers.
func annotate(cell models.FormattedValue) string {
	if cell.Unavailable || cell.Provenance == nil {
		return cell.Display
	}
	out := cell.Display
	if cell.Provenance.Imputed {
		out += "*"
	}
	if cell.Provenance.Partial {
		out += "~"
	}
	if cell.Provenance.Contested {
		out += "!"
	}
	return out
}
