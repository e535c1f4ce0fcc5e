// Package mops implements the secondary statement ingestion adapter.
// It scrapes statement tables and the monthly revenue feed from a
// MOPS-style disclosure site (HTML, Chinese line-item captions) and
// emits raw observations keyed by those captions.
//
// MOPS is consulted when the primary provider has no usable statements
// for a company; its monthly revenue feed is also the only source for
// the quarterly revenue synthesis fallback.
package mops

import (
	"context"
	"fmt"
	"time"

	"github.com/phuslu/log"

	"fincanon/internal/infra"
	"fincanon/pkg/models"
	"fincanon/pkg/utils"
)

const providerName = "mops"

// DefaultBaseURL is the production disclosure site host.
const DefaultBaseURL = "https://mops.twse.com.tw"

// Provider implements provider.StatementProvider for the disclosure site.
type Provider struct {
	baseURL string
	cache   *infra.Cache
	logger  log.Logger
}

// Option configures the Provider.
type Option func(*Provider)

// WithBaseURL overrides the site host (tests point it at an httptest server).
func WithBaseURL(baseURL string) Option {
	return func(p *Provider) { p.baseURL = baseURL }
}

// New creates the MOPS adapter.
func New(opts ...Option) *Provider {
	p := &Provider{
		baseURL: DefaultBaseURL,
		cache:   infra.NewCache(6 * time.Hour),
		logger:  log.DefaultLogger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the provider id.
func (p *Provider) Name() string { return providerName }

// Ping checks connectivity to the disclosure site.
func (p *Provider) Ping(ctx context.Context) error {
	body, _, err := infra.DoGet(ctx, p.baseURL+"/index.html", htmlHeaders())
	if err != nil {
		return fmt.Errorf("mops ping: %w", err)
	}
	body.Close()
	return nil
}

// FetchStatements fetches one statement kind for a company. Statement
// kinds map to the site's quarterly and annual report pages; monthly
// revenue maps to the monthly feed page. A page without the expected
// table is a successful empty result.
func (p *Provider) FetchStatements(ctx context.Context, code string, kind models.StatementKind, since time.Time) ([]models.RawObservation, error) {
	// Venue-suffixed tickers ("2330.TW") reduce to the bare code here.
	code = utils.ExtractCode(code)
	cacheKey := fmt.Sprintf("%s:%s:%s", code, kind, since.Format("2006-01-02"))
	if cached, ok := p.cache.Get(cacheKey); ok {
		return cached.([]models.RawObservation), nil
	}

	var (
		obs []models.RawObservation
		err error
	)
	if kind == models.StatementMonthlyRevenue {
		obs, err = p.fetchMonthlyRevenue(ctx, code, since)
	} else {
		obs, err = p.fetchStatementTables(ctx, code, kind, since)
	}
	if err != nil {
		return nil, err
	}

	p.cache.Set(cacheKey, obs)
	return obs, nil
}

func htmlHeaders() map[string]string {
	return map[string]string{"Accept": "text/html,application/xhtml+xml"}
}
