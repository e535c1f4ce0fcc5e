package pipeline

import (
	"context"

	"fincanon/internal/infra"
	"fincanon/internal/roster"
)

// Skip records one company the batch could not sync and why.
type Skip struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// BatchResult accounts one batch run.
type BatchResult struct {
	Synced  []string `json:"synced"`
	Skipped []Skip   `json:"skipped"`
}

// RunBatch iterates the companies sequentially, waiting on the pacer
// between them so provider rate ceilings are respected. A company-level
// failure is recorded as a skip and the batch moves on; cancellation
// stops the batch before the next company without discarding what was
// already synced.
func (r *Runner) RunBatch(ctx context.Context, companies []roster.Company, pacer infra.Pacer) BatchResult {
	var result BatchResult
	for i, company := range companies {
		if i > 0 {
			if err := pacer.Wait(ctx); err != nil {
				r.logger.Info().Err(err).Msg("batch stopped")
				return result
			}
		} else if ctx.Err() != nil {
			return result
		}

		if _, err := r.RunCompany(ctx, company); err != nil {
			r.logger.Warn().Err(err).Str("code", company.Code).Msg("company skipped")
			result.Skipped = append(result.Skipped, Skip{Code: company.Code, Reason: err.Error()})
			continue
		}
		result.Synced = append(result.Synced, company.Code)
	}
	return result
}
