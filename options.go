package fhirschema

import (
	"runtime"

	"github.com/fhirschema/core/constraint"
)

// Option configures an Engine.
type Option func(*Options)

// Options holds all configuration for an Engine.
type Options struct {
	// Strict rejects values carrying a field no applicable schema declares
	// (§6 "strict"). Defaults to true.
	Strict bool

	// MaxDepth bounds recursive descent against cyclic content references
	// or base chains (§6 "max_depth"). Defaults to 64.
	MaxDepth int

	// WorkerCount sizes batch conversion/validation concurrency. Defaults
	// to runtime.NumCPU().
	WorkerCount int

	// ExpressionCacheSize bounds the compiled-constraint-expression LRU used
	// by the default FHIRPathAdapter. Ignored when an Evaluator is supplied
	// explicitly via WithEvaluator.
	ExpressionCacheSize int

	// EnablePooling is recorded but New does not pass it on: the validator
	// always draws issue.Result and pool.PathBuilder values from their
	// sync.Pool, whatever its value. Defaults to true.
	EnablePooling bool

	// TrackPositions is passed to validate.Options, which does not act on it:
	// issues never get Line/Column from it. issue.EnrichPositions fills those
	// in when a caller runs it over the source bytes. Defaults to false.
	TrackPositions bool

	// evaluator overrides the constraint.Evaluator an Engine uses. Set via
	// WithEvaluator; nil means New falls back to a FHIRPathAdapter sized by
	// ExpressionCacheSize.
	evaluator constraint.Evaluator
}

// DefaultOptions returns the configuration an Engine uses when New is
// called with no options.
func DefaultOptions() *Options {
	return &Options{
		Strict:              true,
		MaxDepth:            64,
		WorkerCount:         runtime.NumCPU(),
		ExpressionCacheSize: 2000,
		EnablePooling:       true,
		TrackPositions:      false,
	}
}

// WithStrict toggles strict mode (§6). When false, properties not declared
// by any applicable schema are skipped instead of raising UnknownElement.
func WithStrict(strict bool) Option {
	return func(o *Options) { o.Strict = strict }
}

// WithMaxDepth bounds recursive descent. Values <= 0 are ignored.
func WithMaxDepth(depth int) Option {
	return func(o *Options) {
		if depth > 0 {
			o.MaxDepth = depth
		}
	}
}

// WithWorkerCount sets the concurrency used by ConvertBatch/ValidateBatch.
// Values <= 0 are ignored.
func WithWorkerCount(count int) Option {
	return func(o *Options) {
		if count > 0 {
			o.WorkerCount = count
		}
	}
}

// WithExpressionCache sizes the default FHIRPathAdapter's compiled
// expression cache. Values <= 0 are ignored.
func WithExpressionCache(size int) Option {
	return func(o *Options) {
		if size > 0 {
			o.ExpressionCacheSize = size
		}
	}
}

// WithPooling sets Options.EnablePooling (see there: the validator pools
// regardless).
func WithPooling(enable bool) Option {
	return func(o *Options) { o.EnablePooling = enable }
}

// WithPositionTracking sets Options.TrackPositions (see there: no issue gets
// a line/column from it).
func WithPositionTracking(enable bool) Option {
	return func(o *Options) { o.TrackPositions = enable }
}

// FastOptions returns options tuned for throughput: larger caches, no
// position tracking, pooling on.
func FastOptions() []Option {
	return []Option{
		WithExpressionCache(5000),
		WithPositionTracking(false),
		WithPooling(true),
	}
}

// StrictOptions returns options for conservative validation: strict mode
// and a shallower max depth so malformed cyclic input fails fast.
func StrictOptions() []Option {
	return []Option{
		WithStrict(true),
		WithMaxDepth(32),
	}
}

// DebugOptions returns options that set position tracking on and pooling
// off. Both are only recorded on Options; see TrackPositions and
// EnablePooling for what the engine does with them.
func DebugOptions() []Option {
	return []Option{
		WithPositionTracking(true),
		WithPooling(false),
	}
}
