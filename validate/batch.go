package validate

import (
	"context"
	"sync"
	"time"

	"github.com/fhirschema/core/worker"
)

// ValidateBatch validates many values concurrently, one job per value,
// bounding concurrency with a semaphore of 4 workers so a large batch cannot
// spawn unbounded goroutines. Results preserve input order.
func (v *Validator) ValidateBatch(ctx context.Context, jobs []worker.Job) *worker.BatchResult {
	return v.validateBatch(ctx, jobs, 4)
}

// ValidateBatchN is ValidateBatch with an explicit concurrency bound;
// workers <= 0 falls back to 4.
func (v *Validator) ValidateBatchN(ctx context.Context, jobs []worker.Job, workers int) *worker.BatchResult {
	if workers <= 0 {
		workers = 4
	}
	return v.validateBatch(ctx, jobs, workers)
}

func (v *Validator) validateBatch(ctx context.Context, jobs []worker.Job, workers int) *worker.BatchResult {
	results := make([]*worker.JobResult, len(jobs))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, job := range jobs {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, j worker.Job) {
			defer wg.Done()
			defer func() { <-sem }()

			start := time.Now()
			result, err := v.ValidateBytes(ctx, j.Value, j.SchemaURLs)
			results[idx] = &worker.JobResult{
				ID:       j.ID,
				Result:   result,
				Error:    err,
				Duration: time.Since(start).Nanoseconds(),
			}
		}(i, job)
	}
	wg.Wait()

	batch := &worker.BatchResult{Results: results, TotalJobs: len(jobs)}
	for _, r := range results {
		batch.CompletedJobs++
		batch.TotalDuration += r.Duration
		if r.Error != nil {
			batch.FailedJobs++
		}
	}
	return batch
}
