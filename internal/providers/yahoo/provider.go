// Package yahoo implements the primary statement ingestion adapter.
// It wraps the Yahoo Finance v10 quoteSummary API's statement-history
// modules and emits raw (date, label, value) observations carrying this
// provider's published line-item captions, so reconciliation stays
// label-driven.
//
// Yahoo Finance carries no monthly revenue feed for domestic issuers;
// that statement kind is a structural absence here (empty result).
package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/phuslu/log"

	"fincanon/internal/infra"
	"fincanon/internal/provider"
	"fincanon/pkg/models"
	"fincanon/pkg/utils"
)

const providerName = "yahoo"

// DefaultBaseURL is the production Yahoo Finance API host.
const DefaultBaseURL = "https://query1.finance.yahoo.com"

// captions maps quoteSummary statement fields to the captions this
// provider publishes for them, per statement kind. Only captioned
// fields become observations; everything else the module reports is a
// provider-specific fact outside the canonical metric set.
var captions = map[models.StatementKind][]struct {
	field   string
	caption string
}{
	models.StatementIncome: {
		{"totalRevenue", "Total Revenue"},
		{"operatingRevenue", "Operating Revenue"},
		{"basicEPS", "Basic EPS"},
		{"dilutedEPS", "Diluted EPS"},
	},
	models.StatementBalance: {
		{"totalAssets", "Total Assets"},
		{"totalLiabilitiesNetMinorityInterest", "Total Liabilities Net Minority Interest"},
		{"totalLiab", "Total Liab"},
		{"totalCurrentAssets", "Current Assets"},
		{"totalCurrentLiabilities", "Current Liabilities"},
	},
	models.StatementCashFlow: {
		{"operatingCashFlow", "Operating Cash Flow"},
		{"totalCashFromOperatingActivities", "Total Cash From Operating Activities"},
	},
}

// modules maps a statement kind to its annual and quarterly
// quoteSummary module names.
var modules = map[models.StatementKind][2]string{
	models.StatementIncome:   {"incomeStatementHistory", "incomeStatementHistoryQuarterly"},
	models.StatementBalance:  {"balanceSheetHistory", "balanceSheetHistoryQuarterly"},
	models.StatementCashFlow: {"cashflowStatementHistory", "cashflowStatementHistoryQuarterly"},
}

// Provider implements provider.StatementProvider for Yahoo Finance.
type Provider struct {
	baseURL string
	venue   string
	cache   *infra.Cache
	logger  log.Logger
}

// Option configures the Provider.
type Option func(*Provider)

// WithBaseURL overrides the API host (tests point it at an httptest server).
func WithBaseURL(baseURL string) Option {
	return func(p *Provider) { p.baseURL = baseURL }
}

// WithVenue sets the listing venue used to suffix company codes.
func WithVenue(venue string) Option {
	return func(p *Provider) { p.venue = venue }
}

// New creates the Yahoo Finance adapter.
func New(opts ...Option) *Provider {
	p := &Provider{
		baseURL: DefaultBaseURL,
		venue:   utils.VenueTWSE,
		cache:   infra.NewCache(1 * time.Hour),
		logger:  log.DefaultLogger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the provider id.
func (p *Provider) Name() string { return providerName }

// Ping checks connectivity to Yahoo Finance.
func (p *Provider) Ping(ctx context.Context) error {
	url := fmt.Sprintf("%s/v10/finance/quoteSummary/2330.TW?modules=incomeStatementHistory", p.baseURL)
	body, _, err := infra.DoGet(ctx, url, jsonHeaders())
	if err != nil {
		return fmt.Errorf("yahoo ping: %w", err)
	}
	body.Close()
	return nil
}

// FetchStatements fetches one statement kind for a company. Both the
// annual and quarterly module variants are requested in a single call;
// annual rows are marked so the bucketer can key them to the ANNUAL
// period. Absence of the requested modules is a successful empty result.
func (p *Provider) FetchStatements(ctx context.Context, code string, kind models.StatementKind, since time.Time) ([]models.RawObservation, error) {
	if kind == models.StatementMonthlyRevenue {
		return nil, nil // structural absence at this provider
	}
	mods, ok := modules[kind]
	if !ok {
		return nil, nil
	}

	ticker := utils.ProviderTicker(code, p.venue)
	cacheKey := fmt.Sprintf("%s:%s:%s", ticker, kind, since.Format("2006-01-02"))
	if cached, ok := p.cache.Get(cacheKey); ok {
		return cached.([]models.RawObservation), nil
	}

	url := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=%s,%s",
		p.baseURL, ticker, mods[0], mods[1])

	var resp quoteSummaryResponse
	if err := fetchJSON(ctx, url, &resp); err != nil {
		return nil, &provider.TransportError{Provider: providerName, Op: "fetch " + string(kind), Err: err}
	}
	if resp.QuoteSummary.Error != nil {
		// The API reports "no fundamentals data" as an error payload;
		// that is provider-side absence, not a transport failure.
		p.logger.Debug().Str("ticker", ticker).Str("kind", string(kind)).
			Str("api_error", resp.QuoteSummary.Error.Description).Msg("yahoo returned error payload")
		return nil, nil
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, nil
	}

	r := resp.QuoteSummary.Result[0]
	var obs []models.RawObservation
	switch kind {
	case models.StatementIncome:
		obs = append(obs, p.parse(kind, incomeStatements(r.IncomeStatementHistory), true, since)...)
		obs = append(obs, p.parse(kind, incomeStatements(r.IncomeStatementHistoryQuarterly), false, since)...)
	case models.StatementBalance:
		obs = append(obs, p.parse(kind, balanceStatements(r.BalanceSheetHistory), true, since)...)
		obs = append(obs, p.parse(kind, balanceStatements(r.BalanceSheetHistoryQuarterly), false, since)...)
	case models.StatementCashFlow:
		obs = append(obs, p.parse(kind, cashflowStatements(r.CashflowStatementHistory), true, since)...)
		obs = append(obs, p.parse(kind, cashflowStatements(r.CashflowStatementHistoryQuarterly), false, since)...)
	}

	p.cache.Set(cacheKey, obs)
	return obs, nil
}

// parse converts one module's statements into raw observations.
func (p *Provider) parse(kind models.StatementKind, stmts []statement, annual bool, since time.Time) []models.RawObservation {
	var out []models.RawObservation
	for _, stmt := range stmts {
		end, ok := endDate(stmt)
		if !ok || end.Before(since) {
			continue
		}
		for _, c := range captions[kind] {
			v, present := stmt[c.field]
			if !present {
				continue
			}
			if math.IsNaN(v.Raw) || math.IsInf(v.Raw, 0) {
				continue // malformed value: drop the observation only
			}
			out = append(out, models.RawObservation{
				Provider:  providerName,
				Kind:      kind,
				Label:     c.caption,
				PeriodEnd: end,
				Annual:    annual,
				Value:     v.Raw,
			})
		}
	}
	return out
}

func incomeStatements(c *incomeContainer) []statement {
	if c == nil {
		return nil
	}
	return c.Statements
}

func balanceStatements(c *balanceContainer) []statement {
	if c == nil {
		return nil
	}
	return c.Statements
}

func cashflowStatements(c *cashflowContainer) []statement {
	if c == nil {
		return nil
	}
	return c.Statements
}

// endDate extracts the reporting period end from a statement row.
func endDate(stmt statement) (time.Time, bool) {
	v, ok := stmt["endDate"]
	if !ok {
		return time.Time{}, false
	}
	if v.Fmt != "" {
		if t, err := time.Parse("2006-01-02", v.Fmt); err == nil {
			return t, true
		}
	}
	if v.Raw > 0 {
		return time.Unix(int64(v.Raw), 0).UTC(), true
	}
	return time.Time{}, false
}

func jsonHeaders() map[string]string {
	return map[string]string{"Accept": "application/json"}
}

// fetchJSON performs a GET request and decodes the response into dest.
func fetchJSON(ctx context.Context, url string, dest any) error {
	body, _, err := infra.DoGet(ctx, url, jsonHeaders())
	if err != nil {
		return err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("parse JSON: %w", err)
	}
	return nil
}
