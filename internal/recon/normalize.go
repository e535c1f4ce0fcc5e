package recon

import (
	"fincanon/pkg/models"
	"fincanon/pkg/utils"
)

// Normalize renders a resolved raw value for display. Monetary
// magnitudes are rescaled to thousands with truncating division and
// comma grouping; EPS stays in native units with two decimals; the debt
// ratio is already a percentage.
func Normalize(metric models.CanonicalMetric, value float64) string {
	switch {
	case metric.IsMonetary():
		return utils.FormatThousands(value)
	case metric == models.MetricDebtRatio:
		return utils.FormatRatioPct(value)
	default:
		return utils.FormatEPS(value)
	}
}
