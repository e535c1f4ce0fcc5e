// Package roster supplies the list of companies a batch run iterates:
// a static code/name/venue file, optionally narrowed to companies that
// appeared in a disclosure announcement feed recently.
package roster

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/mmcdole/gofeed"

	"fincanon/pkg/utils"
)

// Company is one roster entry.
type Company struct {
	Code  string `json:"code"`
	Name  string `json:"name"`
	Venue string `json:"venue"`
}

// LoadFile reads a roster CSV of code,name,venue rows. A header row is
// detected by a non-numeric first column and skipped. Venue defaults to
// the main board when the column is empty.
func LoadFile(path string) ([]Company, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("roster: %w", err)
	}
	defer f.Close()
	return parse(f)
}

func parse(r io.Reader) ([]Company, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	reader.Comment = '#'

	var companies []Company
	seen := make(map[string]bool)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("roster: %w", err)
		}
		if len(record) < 2 {
			continue
		}
		code := strings.TrimSpace(record[0])
		if code == "" || !numeric(code) || seen[code] {
			continue
		}
		seen[code] = true
		company := Company{
			Code:  code,
			Name:  strings.TrimSpace(record[1]),
			Venue: utils.VenueTWSE,
		}
		if len(record) > 2 {
			if venue := strings.TrimSpace(record[2]); venue != "" {
				company.Venue = venue
			}
		}
		companies = append(companies, company)
	}
	return companies, nil
}

func numeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// Watcher narrows a roster to companies mentioned in a disclosure
// announcement feed, so scheduled runs only refresh issuers with fresh
// filings.
type Watcher struct {
	feedURL string
	parser  *gofeed.Parser
}

// codePattern matches a company code inside an announcement title.
// Three-digit runs (ROC years) never match.
var codePattern = regexp.MustCompile(`\d{4,6}`)

// NewWatcher creates a Watcher over an RSS/Atom announcement feed.
func NewWatcher(feedURL string) *Watcher {
	return &Watcher{feedURL: feedURL, parser: gofeed.NewParser()}
}

// RecentCodes returns the company codes mentioned in current feed items,
// deduplicated in feed order. Items without an extractable code are
// ignored.
func (w *Watcher) RecentCodes(ctx context.Context) ([]string, error) {
	feed, err := w.parser.ParseURLWithContext(w.feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("roster: fetch feed: %w", err)
	}

	var codes []string
	seen := make(map[string]bool)
	for _, item := range feed.Items {
		code := codePattern.FindString(item.Title)
		if code == "" || seen[code] {
			continue
		}
		seen[code] = true
		codes = append(codes, code)
	}
	return codes, nil
}

// Filter keeps the roster companies whose codes appear in keep,
// preserving roster order.
func Filter(companies []Company, keep []string) []Company {
	allowed := make(map[string]bool, len(keep))
	for _, code := range keep {
		allowed[code] = true
	}
	var out []Company
	for _, c := range companies {
		if allowed[c.Code] {
			out = append(out, c)
		}
	}
	return out
}
