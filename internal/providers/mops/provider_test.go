package mops

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fincanon/pkg/models"
)

const balanceQuarterly = `<html><body>
<table class="hasBorder">
<tr><th>項目</th><th>113年3月31日</th><th>112年12月31日</th></tr>
<tr><td>資產總計</td><td>1,234,567</td><td>1,200,000</td></tr>
<tr><td>負債總計</td><td>(400,000)</td><td>390,000</td></tr>
<tr><td>流動資產合計</td><td>-</td><td>800,000</td></tr>
</table>
</body></html>`

const monthlyPage = `<html><body>
<table>
<tr><th>月份</th><th>營收</th></tr>
<tr><td>113年1月</td><td>989,918</td></tr>
<tr><td>113年2月</td><td>850,000</td></tr>
<tr><td>合計</td><td>1,839,918</td></tr>
</table>
</body></html>`

func newTestProvider(t *testing.T, handler http.HandlerFunc) (*Provider, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(WithBaseURL(srv.URL)), srv
}

func TestFetchStatementsBalance(t *testing.T) {
	var calls []string
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.URL.RawQuery)
		if strings.Contains(r.URL.RawQuery, "scope=annual") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(balanceQuarterly))
	})

	obs, err := p.FetchStatements(context.Background(), "2330", models.StatementBalance, time.Time{})
	if err != nil {
		t.Fatalf("FetchStatements: %v", err)
	}
	// Two periods of assets and liabilities, one current-assets cell
	// with a figure. The dash cell is a non-observation.
	if len(obs) != 5 {
		t.Fatalf("got %d observations, want 5", len(obs))
	}
	if len(calls) != 2 {
		t.Fatalf("got %d page fetches, want quarterly and annual", len(calls))
	}

	byLabel := map[string][]models.RawObservation{}
	for _, o := range obs {
		if o.Provider != "mops" || o.Kind != models.StatementBalance || o.Annual {
			t.Fatalf("unexpected observation shape: %+v", o)
		}
		byLabel[o.Label] = append(byLabel[o.Label], o)
	}
	assets := byLabel["資產總計"]
	if len(assets) != 2 {
		t.Fatalf("got %d 資產總計 observations, want 2", len(assets))
	}
	if got := assets[0].Value; got != 1234567000 {
		t.Errorf("thousand rescale: got %v, want 1234567000", got)
	}
	if want := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC); !assets[0].PeriodEnd.Equal(want) {
		t.Errorf("ROC date: got %v, want %v", assets[0].PeriodEnd, want)
	}
	if got := byLabel["負債總計"][0].Value; got != -400000000 {
		t.Errorf("parenthesized negative: got %v, want -400000000", got)
	}
}

func TestFetchStatementsSinceFilter(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.RawQuery, "scope=annual") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(balanceQuarterly))
	})

	since := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	obs, err := p.FetchStatements(context.Background(), "2330", models.StatementBalance, since)
	if err != nil {
		t.Fatalf("FetchStatements: %v", err)
	}
	for _, o := range obs {
		if o.PeriodEnd.Before(since) {
			t.Errorf("observation at %v survived since filter", o.PeriodEnd)
		}
	}
	if len(obs) != 2 {
		t.Fatalf("got %d observations since 2024, want 2", len(obs))
	}
}

func TestFetchMonthlyRevenue(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "t21sc09") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(monthlyPage))
	})

	obs, err := p.FetchStatements(context.Background(), "2330", models.StatementMonthlyRevenue, time.Time{})
	if err != nil {
		t.Fatalf("FetchStatements: %v", err)
	}
	// The 合計 footer row has no month and is skipped.
	if len(obs) != 2 {
		t.Fatalf("got %d monthly observations, want 2", len(obs))
	}
	jan := obs[0]
	if jan.Label != "當月營收" || jan.Kind != models.StatementMonthlyRevenue {
		t.Fatalf("unexpected observation shape: %+v", jan)
	}
	if want := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC); !jan.PeriodEnd.Equal(want) {
		t.Errorf("month end: got %v, want %v", jan.PeriodEnd, want)
	}
	if jan.Value != 989918000 {
		t.Errorf("thousand rescale: got %v, want 989918000", jan.Value)
	}
}

func TestFetchStatementsMissingPageIsAbsence(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	obs, err := p.FetchStatements(context.Background(), "9999", models.StatementIncome, time.Time{})
	if err != nil {
		t.Fatalf("missing pages should not error: %v", err)
	}
	if len(obs) != 0 {
		t.Fatalf("got %d observations, want 0", len(obs))
	}
}

func TestFetchStatementsServerErrorIsTransport(t *testing.T) {
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	if _, err := p.FetchStatements(context.Background(), "2330", models.StatementBalance, time.Time{}); err == nil {
		t.Fatal("expected transport error on 502")
	}
}

func TestFetchStatementsUsesCache(t *testing.T) {
	var hits int
	p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte(monthlyPage))
	})

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := p.FetchStatements(ctx, "2330", models.StatementMonthlyRevenue, time.Time{}); err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
	}
	if hits != 1 {
		t.Fatalf("got %d upstream fetches, want 1", hits)
	}
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1,234,567", 1234567, true},
		{"(400,000)", -400000, true},
		{" 12.5 ", 12.5, true},
		{"-", 0, false},
		{"", 0, false},
		{"n/a", 0, false},
	}
	for _, tc := range cases {
		got, ok := parseAmount(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("parseAmount(%q) = %v, %v; want %v, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
