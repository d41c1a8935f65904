package validate

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/fhirschema/core/worker"
)

func TestValidateBatch(t *testing.T) {
	reg := newRegistry(t, patientSchema())
	v := New(reg, nil, DefaultOptions())

	good, _ := json.Marshal(map[string]any{"resourceType": "Patient", "active": true})
	bad, _ := json.Marshal(map[string]any{"resourceType": "Patient", "active": "yes"})

	jobs := []worker.Job{
		{ID: "1", Value: good},
		{ID: "2", Value: bad},
	}

	batch := v.ValidateBatchN(context.Background(), jobs, 2)

	if batch.TotalJobs != 2 {
		t.Fatalf("expected 2 total jobs, got %d", batch.TotalJobs)
	}
	if batch.ErrorCount() == 0 {
		t.Fatalf("expected at least one validation error across the batch")
	}

	byID := make(map[string]*worker.JobResult, len(batch.Results))
	for _, r := range batch.Results {
		byID[r.ID] = r
	}

	if r, ok := byID["1"]; !ok || r.Result == nil || !r.Result.Valid {
		t.Fatalf("expected job 1 to be valid, got %+v", r)
	}
	if r, ok := byID["2"]; !ok || r.Result == nil || r.Result.Valid {
		t.Fatalf("expected job 2 to be invalid, got %+v", r)
	}
}
