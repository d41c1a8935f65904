package fhirschema

import (
	"testing"
	"time"

	"github.com/fhirschema/core/issue"
)

func TestMetricsRecordValidation(t *testing.T) {
	m := NewMetrics()

	m.RecordValidation(10*time.Millisecond, true)
	m.RecordValidation(20*time.Millisecond, false)

	if got := m.ValidationsTotal(); got != 2 {
		t.Errorf("ValidationsTotal() = %d, want 2", got)
	}
	if got := m.ValidationRate(); got != 0.5 {
		t.Errorf("ValidationRate() = %v, want 0.5", got)
	}
	if avg := m.AverageValidationTime(); avg != 15*time.Millisecond {
		t.Errorf("AverageValidationTime() = %v, want 15ms", avg)
	}
}

func TestMetricsCacheRate(t *testing.T) {
	m := NewMetrics()
	m.RecordCacheHit()
	m.RecordCacheHit()
	m.RecordCacheMiss()

	if got := m.CacheHitRate(); got < 0.666 || got > 0.667 {
		t.Errorf("CacheHitRate() = %v, want ~0.667", got)
	}
}

func TestMetricsRecordIssues(t *testing.T) {
	m := NewMetrics()
	m.RecordIssues([]issue.Issue{
		{Severity: issue.SeverityError},
		{Severity: issue.SeverityWarning},
		{Severity: issue.SeverityInformation},
		{Severity: issue.SeverityError},
	})

	snap := m.Snapshot()
	if snap.ErrorsTotal != 2 {
		t.Errorf("ErrorsTotal = %d, want 2", snap.ErrorsTotal)
	}
	if snap.WarningsTotal != 1 {
		t.Errorf("WarningsTotal = %d, want 1", snap.WarningsTotal)
	}
	if snap.InfosTotal != 1 {
		t.Errorf("InfosTotal = %d, want 1", snap.InfosTotal)
	}
}

func TestMetricsOpStats(t *testing.T) {
	m := NewMetrics()
	m.RecordOp("convert", 5*time.Millisecond, 0)
	m.RecordOp("convert", 15*time.Millisecond, 2)

	stats, ok := m.OpStats("convert")
	if !ok {
		t.Fatal("expected stats for \"convert\"")
	}
	if stats.Invocations != 2 {
		t.Errorf("Invocations = %d, want 2", stats.Invocations)
	}
	if stats.IssuesFound != 2 {
		t.Errorf("IssuesFound = %d, want 2", stats.IssuesFound)
	}
	if stats.AvgTime != 10*time.Millisecond {
		t.Errorf("AvgTime = %v, want 10ms", stats.AvgTime)
	}

	if _, ok := m.OpStats("missing"); ok {
		t.Error("expected no stats for unrecorded operation")
	}
}

func TestMetricsReset(t *testing.T) {
	m := NewMetrics()
	m.RecordValidation(time.Millisecond, true)
	m.RecordCacheHit()
	m.RecordIssue(issue.SeverityError)
	m.RecordOp("convert", time.Millisecond, 1)

	m.Reset()

	if m.ValidationsTotal() != 0 {
		t.Error("expected ValidationsTotal to reset to 0")
	}
	snap := m.Snapshot()
	if snap.CacheHits != 0 || snap.ErrorsTotal != 0 {
		t.Errorf("expected counters to reset: %+v", snap)
	}
	if _, ok := m.OpStats("convert"); ok {
		t.Error("expected op stats to be cleared on reset")
	}
}
