package fhirschema

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/fhirschema/core/issue"
)

// Metrics tracks engine performance using lock-free atomic operations. All
// methods are safe for concurrent use.
type Metrics struct {
	conversionsTotal atomic.Uint64
	conversionsOK    atomic.Uint64

	validationsTotal atomic.Uint64
	validationsValid atomic.Uint64

	validationTimeTotal atomic.Uint64
	validationTimeMin   atomic.Uint64
	validationTimeMax   atomic.Uint64

	cacheHits   atomic.Uint64
	cacheMisses atomic.Uint64

	errorsTotal   atomic.Uint64
	warningsTotal atomic.Uint64
	infosTotal    atomic.Uint64

	// opTiming tracks per-operation timing, keyed by a caller-chosen label
	// such as "convert" or "validate" rather than fixed validation phases —
	// this engine runs one cooperative walk, not a multi-phase pipeline.
	opTiming sync.Map // map[string]*opMetrics
}

type opMetrics struct {
	invocations atomic.Uint64
	totalTime   atomic.Uint64
	issuesFound atomic.Uint64
}

// NewMetrics creates a new Metrics instance.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.validationTimeMin.Store(^uint64(0))
	return m
}

// RecordConversion records a completed Convert call.
func (m *Metrics) RecordConversion(ok bool) {
	m.conversionsTotal.Add(1)
	if ok {
		m.conversionsOK.Add(1)
	}
}

// RecordValidation records a completed Validate call.
func (m *Metrics) RecordValidation(duration time.Duration, valid bool) {
	m.validationsTotal.Add(1)
	if valid {
		m.validationsValid.Add(1)
	}

	ns := uint64(duration.Nanoseconds())
	m.validationTimeTotal.Add(ns)

	for {
		old := m.validationTimeMin.Load()
		if ns >= old {
			break
		}
		if m.validationTimeMin.CompareAndSwap(old, ns) {
			break
		}
	}
	for {
		old := m.validationTimeMax.Load()
		if ns <= old {
			break
		}
		if m.validationTimeMax.CompareAndSwap(old, ns) {
			break
		}
	}
}

// RecordCacheHit records a resolver or expression-cache hit.
func (m *Metrics) RecordCacheHit() { m.cacheHits.Add(1) }

// RecordCacheMiss records a resolver or expression-cache miss.
func (m *Metrics) RecordCacheMiss() { m.cacheMisses.Add(1) }

// RecordIssue tallies one issue by severity.
func (m *Metrics) RecordIssue(severity issue.Severity) {
	switch severity {
	case issue.SeverityError, issue.SeverityFatal:
		m.errorsTotal.Add(1)
	case issue.SeverityWarning:
		m.warningsTotal.Add(1)
	case issue.SeverityInformation:
		m.infosTotal.Add(1)
	}
}

// RecordIssues tallies every issue in a batch.
func (m *Metrics) RecordIssues(issues []issue.Issue) {
	for _, i := range issues {
		m.RecordIssue(i.Severity)
	}
}

// RecordOp records timing for a named operation (e.g. "convert", "validate").
func (m *Metrics) RecordOp(name string, duration time.Duration, issuesFound int) {
	om := m.getOrCreateOp(name)
	om.invocations.Add(1)
	om.totalTime.Add(uint64(duration.Nanoseconds()))
	om.issuesFound.Add(uint64(issuesFound))
}

func (m *Metrics) getOrCreateOp(name string) *opMetrics {
	if v, ok := m.opTiming.Load(name); ok {
		return v.(*opMetrics)
	}
	om := &opMetrics{}
	actual, _ := m.opTiming.LoadOrStore(name, om)
	return actual.(*opMetrics)
}

// ValidationsTotal returns the total number of Validate calls.
func (m *Metrics) ValidationsTotal() uint64 { return m.validationsTotal.Load() }

// ValidationRate returns the fraction of validations that were valid.
func (m *Metrics) ValidationRate() float64 {
	total := m.validationsTotal.Load()
	if total == 0 {
		return 0
	}
	return float64(m.validationsValid.Load()) / float64(total)
}

// AverageValidationTime returns the mean Validate duration.
func (m *Metrics) AverageValidationTime() time.Duration {
	total := m.validationsTotal.Load()
	if total == 0 {
		return 0
	}
	return time.Duration(m.validationTimeTotal.Load() / total)
}

// CacheHitRate returns the fraction of cache lookups that hit.
func (m *Metrics) CacheHitRate() float64 {
	hits := m.cacheHits.Load()
	total := hits + m.cacheMisses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}

// OpStats holds statistics for one named operation.
type OpStats struct {
	Name        string
	Invocations uint64
	TotalTime   time.Duration
	AvgTime     time.Duration
	IssuesFound uint64
}

// OpStats returns statistics for a specific operation name.
func (m *Metrics) OpStats(name string) (OpStats, bool) {
	v, ok := m.opTiming.Load(name)
	if !ok {
		return OpStats{Name: name}, false
	}
	om := v.(*opMetrics)
	invocations := om.invocations.Load()
	var avg time.Duration
	if invocations > 0 {
		avg = time.Duration(om.totalTime.Load() / invocations)
	}
	return OpStats{
		Name:        name,
		Invocations: invocations,
		TotalTime:   time.Duration(om.totalTime.Load()),
		AvgTime:     avg,
		IssuesFound: om.issuesFound.Load(),
	}, true
}

// Snapshot is a point-in-time view of every metric.
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"`

	ConversionsTotal uint64 `json:"conversions_total"`
	ConversionsOK    uint64 `json:"conversions_ok"`

	ValidationsTotal uint64  `json:"validations_total"`
	ValidationsValid uint64  `json:"validations_valid"`
	ValidationRate   float64 `json:"validation_rate"`

	AvgValidationTimeNs uint64 `json:"avg_validation_time_ns"`
	MinValidationTimeNs uint64 `json:"min_validation_time_ns"`
	MaxValidationTimeNs uint64 `json:"max_validation_time_ns"`

	CacheHits    uint64  `json:"cache_hits"`
	CacheMisses  uint64  `json:"cache_misses"`
	CacheHitRate float64 `json:"cache_hit_rate"`

	ErrorsTotal   uint64 `json:"errors_total"`
	WarningsTotal uint64 `json:"warnings_total"`
	InfosTotal    uint64 `json:"infos_total"`
}

// Snapshot returns the current values of every metric.
func (m *Metrics) Snapshot() Snapshot {
	total := m.validationsTotal.Load()
	var avg, rate float64
	if total > 0 {
		avg = float64(m.validationTimeTotal.Load()) / float64(total)
		rate = float64(m.validationsValid.Load()) / float64(total)
	}
	minTime := m.validationTimeMin.Load()
	if minTime == ^uint64(0) {
		minTime = 0
	}
	return Snapshot{
		Timestamp:           time.Now(),
		ConversionsTotal:    m.conversionsTotal.Load(),
		ConversionsOK:       m.conversionsOK.Load(),
		ValidationsTotal:    total,
		ValidationsValid:    m.validationsValid.Load(),
		ValidationRate:      rate,
		AvgValidationTimeNs: uint64(avg),
		MinValidationTimeNs: minTime,
		MaxValidationTimeNs: m.validationTimeMax.Load(),
		CacheHits:           m.cacheHits.Load(),
		CacheMisses:         m.cacheMisses.Load(),
		CacheHitRate:        m.CacheHitRate(),
		ErrorsTotal:         m.errorsTotal.Load(),
		WarningsTotal:       m.warningsTotal.Load(),
		InfosTotal:          m.infosTotal.Load(),
	}
}

// Reset clears every metric.
func (m *Metrics) Reset() {
	m.conversionsTotal.Store(0)
	m.conversionsOK.Store(0)
	m.validationsTotal.Store(0)
	m.validationsValid.Store(0)
	m.validationTimeTotal.Store(0)
	m.validationTimeMin.Store(^uint64(0))
	m.validationTimeMax.Store(0)
	m.cacheHits.Store(0)
	m.cacheMisses.Store(0)
	m.errorsTotal.Store(0)
	m.warningsTotal.Store(0)
	m.infosTotal.Store(0)
	m.opTiming.Range(func(key, _ any) bool {
		m.opTiming.Delete(key)
		return true
	})
}
