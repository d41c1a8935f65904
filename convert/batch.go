package convert

import (
	"context"
	"sync"

	"github.com/fhirschema/core/schema"
)

// ConvertResult is one StructureDefinition's outcome within a batch.
type ConvertResult struct {
	Schema *schema.Schema
	Error  error
}

// ConvertBatch converts many StructureDefinitions concurrently, bounded by
// workers goroutines at a time. A workers value <= 0 defaults to 4.
// Grounded on engine/validator.go's ValidateBatch: an indexed result slice
// filled by goroutines gated through a buffered-channel semaphore, rather
// than the full worker.Pool machinery (which is shaped around validating a
// single value against named schemas, not converting SD documents).
func ConvertBatch(ctx context.Context, sds []*StructureDefinition, workers int) []ConvertResult {
	if workers <= 0 {
		workers = 4
	}

	results := make([]ConvertResult, len(sds))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	converter := New()
	for i, sd := range sds {
		wg.Add(1)
		go func(idx int, sd *StructureDefinition) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				results[idx] = ConvertResult{Error: ctx.Err()}
				return
			case sem <- struct{}{}:
			}
			defer func() { <-sem }()

			s, err := converter.Convert(sd)
			results[idx] = ConvertResult{Schema: s, Error: err}
		}(i, sd)
	}

	wg.Wait()
	return results
}
