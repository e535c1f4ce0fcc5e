package mops

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"fincanon/internal/infra"
	"fincanon/internal/provider"
	"fincanon/pkg/models"
)

// Monetary line items on the site are stated in thousands; per-share
// figures are not. Values are rescaled here so every provider reports
// in native currency units.
var perShareCaptions = map[string]bool{
	"基本每股盈餘": true,
	"稀釋每股盈餘": true,
}

var statementPages = map[models.StatementKind]string{
	models.StatementIncome:   "/mops/web/ajax_t164sb04",
	models.StatementBalance:  "/mops/web/ajax_t164sb03",
	models.StatementCashFlow: "/mops/web/ajax_t164sb05",
}

// rocDate matches period-end column headers like "112年12月31日".
var rocDate = regexp.MustCompile(`(\d{2,3})年(\d{1,2})月(\d{1,2})日`)

// rocMonth matches monthly feed rows like "113年1月".
var rocMonth = regexp.MustCompile(`(\d{2,3})年(\d{1,2})月`)

func (p *Provider) fetchStatementTables(ctx context.Context, code string, kind models.StatementKind, since time.Time) ([]models.RawObservation, error) {
	page, ok := statementPages[kind]
	if !ok {
		return nil, fmt.Errorf("mops: no page for statement kind %q", kind)
	}

	var out []models.RawObservation
	for _, scope := range []string{"quarterly", "annual"} {
		url := fmt.Sprintf("%s%s?co_id=%s&scope=%s", p.baseURL, page, code, scope)
		doc, err := p.fetchDocument(ctx, url)
		if err != nil {
			return nil, err
		}
		if doc == nil {
			continue
		}
		out = append(out, p.parseStatementTable(doc, kind, scope == "annual", since)...)
	}
	return out, nil
}

// parseStatementTable reads the first statement table on the page. The
// header row carries one period-end date per value column; each body
// row is a line-item caption followed by that item's value for each
// period. Rows whose caption nothing downstream recognizes still get
// emitted; the registry decides what counts.
func (p *Provider) parseStatementTable(doc *goquery.Document, kind models.StatementKind, annual bool, since time.Time) []models.RawObservation {
	table := doc.Find("table.hasBorder").First()
	if table.Length() == 0 {
		table = doc.Find("table").First()
	}
	if table.Length() == 0 {
		return nil
	}

	var ends []time.Time
	table.Find("tr").First().Find("th").Each(func(i int, th *goquery.Selection) {
		if i == 0 {
			return
		}
		if end, ok := parseROCDate(th.Text()); ok {
			ends = append(ends, end)
		} else {
			ends = append(ends, time.Time{})
		}
	})
	if len(ends) == 0 {
		return nil
	}

	var out []models.RawObservation
	table.Find("tr").Each(func(i int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < 2 {
			return
		}
		caption := strings.TrimSpace(cells.First().Text())
		if caption == "" {
			return
		}
		cells.Each(func(j int, td *goquery.Selection) {
			if j == 0 || j > len(ends) {
				return
			}
			end := ends[j-1]
			if end.IsZero() || end.Before(since) {
				return
			}
			value, ok := parseAmount(td.Text())
			if !ok {
				return
			}
			if !perShareCaptions[caption] {
				value *= 1000
			}
			out = append(out, models.RawObservation{
				Provider:  providerName,
				Kind:      kind,
				Label:     caption,
				PeriodEnd: end,
				Annual:    annual,
				Value:     value,
			})
		})
	})
	return out
}

// fetchMonthlyRevenue scrapes the monthly revenue feed. Each row is a
// report month and the revenue booked for it; the observation's period
// end is the last day of that month.
func (p *Provider) fetchMonthlyRevenue(ctx context.Context, code string, since time.Time) ([]models.RawObservation, error) {
	url := fmt.Sprintf("%s/mops/web/t21sc09?co_id=%s", p.baseURL, code)
	doc, err := p.fetchDocument(ctx, url)
	if err != nil || doc == nil {
		return nil, err
	}

	var out []models.RawObservation
	doc.Find("table tr").Each(func(i int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < 2 {
			return
		}
		m := rocMonth.FindStringSubmatch(strings.TrimSpace(cells.Eq(0).Text()))
		if m == nil {
			return
		}
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		if month < 1 || month > 12 {
			return
		}
		end := endOfMonth(year+1911, time.Month(month))
		if end.Before(since) {
			return
		}
		value, ok := parseAmount(cells.Eq(1).Text())
		if !ok {
			return
		}
		out = append(out, models.RawObservation{
			Provider:  providerName,
			Kind:      models.StatementMonthlyRevenue,
			Label:     "當月營收",
			PeriodEnd: end,
			Value:     value * 1000,
		})
	})
	return out, nil
}

// fetchDocument GETs a page and parses it. A 404 means the company has
// no such report and is returned as a nil document, not an error.
func (p *Provider) fetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	body, status, err := infra.DoGet(ctx, url, htmlHeaders())
	if err != nil {
		if status == 404 {
			p.logger.Debug().Str("url", url).Msg("mops page not published")
			return nil, nil
		}
		return nil, &provider.TransportError{Provider: providerName, Op: "get " + url, Err: err}
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, &provider.TransportError{Provider: providerName, Op: "parse " + url, Err: err}
	}
	return doc, nil
}

func parseROCDate(s string) (time.Time, bool) {
	m := rocDate.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	day, _ := strconv.Atoi(m[3])
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	return time.Date(year+1911, time.Month(month), day, 0, 0, 0, 0, time.UTC), true
}

// parseAmount reads a table cell amount: comma-grouped digits, with
// parentheses marking negatives. Dashes and blanks mean no figure.
func parseAmount(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	if s == "" || s == "-" || s == "--" {
		return 0, false
	}
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if negative {
		v = -v
	}
	return v, true
}

func endOfMonth(year int, month time.Month) time.Time {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1)
}
