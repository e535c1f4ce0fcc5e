// Package alias implements the metric alias registry: the static,
// totally ordered mapping between canonical metrics and the
// provider-specific line-item labels that report them.
//
// The registry is read-only at run time. For a given (metric, provider)
// the candidate list index is the priority rank; absence of an entry
// means the provider cannot supply that metric at all.
package alias

import "fincanon/pkg/models"

// registry maps provider id → canonical metric → ordered label candidates.
// Rank 0 is the preferred label; later entries are fallbacks the provider
// uses for some issuers or older disclosure vintages.
var registry = map[string]map[models.CanonicalMetric][]string{
	"yahoo": {
		models.MetricRevenue:            {"Total Revenue", "Operating Revenue"},
		models.MetricTotalAssets:        {"Total Assets"},
		models.MetricTotalLiabilities:   {"Total Liabilities Net Minority Interest", "Total Liab"},
		models.MetricCurrentAssets:      {"Current Assets", "Total Current Assets"},
		models.MetricCurrentLiabilities: {"Current Liabilities", "Total Current Liabilities"},
		models.MetricEPS:                {"Basic EPS", "Diluted EPS"},
		models.MetricOperatingCashFlow:  {"Operating Cash Flow", "Total Cash From Operating Activities"},
	},
	"mops": {
		models.MetricRevenue:            {"營業收入合計", "營業收入", "當月營收"},
		models.MetricTotalAssets:        {"資產總計", "資產總額"},
		models.MetricTotalLiabilities:   {"負債總計", "負債總額"},
		models.MetricCurrentAssets:      {"流動資產合計", "流動資產"},
		models.MetricCurrentLiabilities: {"流動負債合計", "流動負債"},
		models.MetricEPS:                {"基本每股盈餘", "稀釋每股盈餘"},
		models.MetricOperatingCashFlow:  {"營業活動之淨現金流入（流出）", "營業活動之淨現金流入"},
	},
}

// reverse maps provider id → source label → canonical metric. Built once
// at init from the forward table; a label maps to the first metric that
// claims it.
var reverse = func() map[string]map[string]models.CanonicalMetric {
	rev := make(map[string]map[string]models.CanonicalMetric, len(registry))
	for provider, metrics := range registry {
		rev[provider] = make(map[string]models.CanonicalMetric)
		for _, metric := range models.AllMetrics {
			for _, label := range metrics[metric] {
				if _, taken := rev[provider][label]; !taken {
					rev[provider][label] = metric
				}
			}
		}
	}
	return rev
}()

// Lookup returns the ordered label candidates for a metric at a provider.
// The slice index is the priority rank. A nil result means the provider
// has no way to report that metric (structural absence, not an error).
func Lookup(metric models.CanonicalMetric, provider string) []string {
	metrics, ok := registry[provider]
	if !ok {
		return nil
	}
	return metrics[metric]
}

// Rank returns the priority rank of a label for (metric, provider), or
// -1 when the label is not registered for that pair.
func Rank(metric models.CanonicalMetric, provider, label string) int {
	for i, candidate := range Lookup(metric, provider) {
		if candidate == label {
			return i
		}
	}
	return -1
}

// Reverse maps a provider's source label back to its canonical metric.
// Unregistered labels return ok=false; the bucketer discards those
// observations silently.
func Reverse(provider, label string) (models.CanonicalMetric, bool) {
	labels, ok := reverse[provider]
	if !ok {
		return "", false
	}
	metric, ok := labels[label]
	return metric, ok
}

// Providers returns the provider ids the registry knows about.
func Providers() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}
