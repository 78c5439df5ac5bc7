package main

import (
	"context"
	"sync"
	"time"

	"myGreenInsight/domain"
	"myGreenInsight/pkg/logger"
)

// job is one scheduled batch. run returns the batch summary so failures of
// single items are logged without failing the job.
type job struct {
	name    string
	spec    string
	timeout time.Duration
	run     func(ctx context.Context) (domain.BatchSummary, error)

	mu sync.Mutex
}

// execute runs the job unless a previous run is still going.
func (j *job) execute(parent context.Context) bool {
	if !j.mu.TryLock() {
		logger.Warn("job_skipped_overlap", "job", j.name)
		return false
	}
	defer j.mu.Unlock()

	ctx, cancel := context.WithTimeout(parent, j.timeout)
	defer cancel()

	start := time.Now()
	summary, err := j.run(ctx)
	if err != nil {
		logger.Error("job_failed", "job", j.name, "error", err, "elapsed", time.Since(start).String())
		return true
	}

	logger.Info("job_finished",
		"job", j.name,
		"processed", summary.Processed,
		"errors", summary.Errors,
		"elapsed", time.Since(start).String(),
	)
	for _, f := range summary.Failed {
		logger.Warn("job_item_failed", "job", j.name, "item", f.ID, "error", f.Error)
	}
	return true
}
