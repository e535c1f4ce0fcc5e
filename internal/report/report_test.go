package report

import (
	"strings"
	"testing"
	"time"

	"fincanon/pkg/models"
)

func sampleSeries() *models.CompanySeries {
	return &models.CompanySeries{
		Code:  "2330",
		Name:  "台積電",
		Venue: "TWSE",
		Periods: []models.CanonicalPeriod{
			{FiscalYear: 113, Quarter: models.Q1},
			{FiscalYear: 112, Quarter: models.QuarterAnnual},
			{FiscalYear: 112, Quarter: models.Q4},
		},
		Cells: map[models.CanonicalMetric]map[string]models.FormattedValue{
			models.MetricRevenue: {
				"113Q1": {Display: "989,918", Provenance: &models.Provenance{Provider: "yahoo"}},
				"112FY": {Display: "4,000,000", Provenance: &models.Provenance{Provider: "yahoo"}},
				"112Q4": {Display: "950,000", Provenance: &models.Provenance{Imputed: true}},
			},
			models.MetricEPS: {
				"113Q1": {Display: "8.70", Provenance: &models.Provenance{Provider: "yahoo", Contested: true}},
			},
		},
		SyncedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestDecideGroupA(t *testing.T) {
	d := Decide(sampleSeries(), 15_000_000)
	if d.GroupA {
		t.Fatalf("989,918 thousand is under the 15,000,000 floor: %+v", d)
	}
	if d.LatestPeriod != "113Q1" || d.LatestRevenue != 989918 {
		t.Fatalf("decision used wrong cell: %+v", d)
	}

	d = Decide(sampleSeries(), 500_000)
	if !d.GroupA {
		t.Fatalf("989,918 thousand meets a 500,000 floor: %+v", d)
	}
}

func TestDecideSkipsAnnualColumns(t *testing.T) {
	series := sampleSeries()
	// Remove quarterly revenue; only the annual total remains, which
	// must not drive the quarterly-revenue decision.
	delete(series.Cells[models.MetricRevenue], "113Q1")
	delete(series.Cells[models.MetricRevenue], "112Q4")

	d := Decide(series, 500_000)
	if d.GroupA || d.LatestPeriod != "" {
		t.Fatalf("annual column drove the decision: %+v", d)
	}
}

func TestDecideEmptySeries(t *testing.T) {
	d := Decide(&models.CompanySeries{Code: "9999"}, 15_000_000)
	if d.GroupA || d.Reason == "" {
		t.Fatalf("ungradable series must carry a reason: %+v", d)
	}
}

func TestRender(t *testing.T) {
	out := Render(sampleSeries())

	for _, want := range []string{
		"# 2330 台積電 (TWSE)",
		"| Metric | 113Q1 | 112FY | 112Q4 |",
		"989,918",
		"950,000*", // imputed marker
		"8.70!",    // contested marker
		models.Unavailable,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("rendered report missing %q:\n%s", want, out)
		}
	}
}

func TestRenderEmptySeries(t *testing.T) {
	out := Render(&models.CompanySeries{Code: "9999", Name: "新上市"})
	if !strings.Contains(out, "No statement data") {
		t.Fatalf("empty series rendering:\n%s", out)
	}
}
