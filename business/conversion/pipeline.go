package conversion

import (
	"context"
	"fmt"

	"myGreenInsight/pkg/logger"
	"myGreenInsight/pkg/metrics"
)

// step is one stage of the tracking pipeline. Required steps abort the run
// on failure; best-effort steps only log. rollback undoes a completed
// required step.
type step struct {
	name       string
	bestEffort bool
	run        func(ctx context.Context, st *trackState) error
	rollback   func(ctx context.Context, st *trackState) error
}

// runPipeline executes steps in order. When a required step fails, the
// rollbacks of the required steps that already completed run in reverse.
func runPipeline(ctx context.Context, st *trackState, steps []step) error {
	done := make([]step, 0, len(steps))

	for _, s := range steps {
		if err := ctx.Err(); err != nil && !s.bestEffort {
			unwind(ctx, st, done)
			return fmt.Errorf("context error: %w", err)
		}

		err := s.run(ctx, st)
		if err == nil {
			if !s.bestEffort {
				done = append(done, s)
			}
			continue
		}

		if s.bestEffort {
			metrics.ConversionEnrichmentFailures.WithLabelValues(s.name).Inc()
			logger.Warn("conversion enrichment step failed",
				"step", s.name,
				"conversion_id", st.conversion.ID,
				"error", err,
			)
			st.warnings = append(st.warnings, fmt.Sprintf("%s: %v", s.name, err))
			continue
		}

		unwind(ctx, st, done)
		return fmt.Errorf("%s: %w", s.name, err)
	}
	return nil
}

func unwind(ctx context.Context, st *trackState, done []step) {
	for i := len(done) - 1; i >= 0; i-- {
		s := done[i]
		if s.rollback == nil {
			continue
		}
		// rollbacks run even when the request context is gone
		if err := s.rollback(context.WithoutCancel(ctx), st); err != nil {
			logger.Error("conversion rollback failed", "step", s.name, "conversion_id", st.conversion.ID, "error", err)
		}
	}
}
