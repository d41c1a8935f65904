package fhirschema

import (
	"runtime"
	"testing"
)

func TestDefaultOptions(t *testing.T) {
	o := DefaultOptions()

	if !o.Strict {
		t.Error("Strict should be true by default")
	}
	if o.MaxDepth != 64 {
		t.Errorf("MaxDepth = %d, want 64", o.MaxDepth)
	}
	if o.WorkerCount != runtime.NumCPU() {
		t.Errorf("WorkerCount = %d, want %d", o.WorkerCount, runtime.NumCPU())
	}
	if o.ExpressionCacheSize != 2000 {
		t.Errorf("ExpressionCacheSize = %d, want 2000", o.ExpressionCacheSize)
	}
	if !o.EnablePooling {
		t.Error("EnablePooling should be true by default")
	}
	if o.TrackPositions {
		t.Error("TrackPositions should be false by default")
	}
}

func TestWithStrict(t *testing.T) {
	o := DefaultOptions()
	WithStrict(false)(o)
	if o.Strict {
		t.Error("expected Strict to be false")
	}
}

func TestWithMaxDepthIgnoresNonPositive(t *testing.T) {
	o := DefaultOptions()
	WithMaxDepth(0)(o)
	if o.MaxDepth != 64 {
		t.Errorf("MaxDepth changed by non-positive value: got %d", o.MaxDepth)
	}
	WithMaxDepth(-5)(o)
	if o.MaxDepth != 64 {
		t.Errorf("MaxDepth changed by negative value: got %d", o.MaxDepth)
	}
	WithMaxDepth(10)(o)
	if o.MaxDepth != 10 {
		t.Errorf("MaxDepth = %d, want 10", o.MaxDepth)
	}
}

func TestWithWorkerCountIgnoresNonPositive(t *testing.T) {
	o := DefaultOptions()
	WithWorkerCount(0)(o)
	if o.WorkerCount != runtime.NumCPU() {
		t.Error("WorkerCount should be unchanged by 0")
	}
	WithWorkerCount(3)(o)
	if o.WorkerCount != 3 {
		t.Errorf("WorkerCount = %d, want 3", o.WorkerCount)
	}
}

func TestPresets(t *testing.T) {
	fast := DefaultOptions()
	for _, opt := range FastOptions() {
		opt(fast)
	}
	if fast.ExpressionCacheSize != 5000 {
		t.Errorf("FastOptions ExpressionCacheSize = %d, want 5000", fast.ExpressionCacheSize)
	}

	strict := DefaultOptions()
	for _, opt := range StrictOptions() {
		opt(strict)
	}
	if !strict.Strict || strict.MaxDepth != 32 {
		t.Errorf("StrictOptions = %+v", strict)
	}

	debug := DefaultOptions()
	for _, opt := range DebugOptions() {
		opt(debug)
	}
	if !debug.TrackPositions || debug.EnablePooling {
		t.Errorf("DebugOptions = %+v", debug)
	}
}
