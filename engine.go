package fhirschema

import (
	"context"
	"time"

	"github.com/fhirschema/core/collector"
	"github.com/fhirschema/core/constraint"
	"github.com/fhirschema/core/convert"
	"github.com/fhirschema/core/issue"
	"github.com/fhirschema/core/schema"
	"github.com/fhirschema/core/validate"
	"github.com/fhirschema/core/worker"
)

// Engine bundles a Registry, a Converter, and a Validator behind the
// functional-options configuration in options.go, so a caller gets a
// ready-to-use core without assembling C3-C9 by hand. Using Engine is
// optional: every subsystem it wires remains independently usable (a
// caller with its own resolver.Resolver, constraint.Evaluator, or worker
// pool can skip Engine entirely).
type Engine struct {
	registry  collector.TypeResolver
	converter *convert.Converter
	validator *validate.Validator
	evaluator constraint.Evaluator
	metrics   *Metrics
	opts      *Options
}

// New creates an Engine backed by reg. A nil evaluator (the common case,
// set via WithEvaluator) falls back to a FHIRPathAdapter sized by
// Options.ExpressionCacheSize; pass constraint.NoopEvaluator{} explicitly
// via WithEvaluator to skip constraint evaluation entirely.
func New(reg collector.TypeResolver, opts ...Option) (*Engine, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	evaluator := o.evaluator
	if evaluator == nil {
		evaluator = constraint.NewFHIRPathAdapter(o.ExpressionCacheSize)
	}

	e := &Engine{
		registry:  reg,
		converter: convert.New(),
		evaluator: evaluator,
		metrics:   NewMetrics(),
		opts:      o,
	}
	e.validator = validate.New(reg, e.evaluator, validate.Options{
		Strict:         o.Strict,
		MaxDepth:       o.MaxDepth,
		TrackPositions: o.TrackPositions,
	})
	return e, nil
}

// WithEvaluator overrides the constraint.Evaluator an Engine uses, replacing
// the default FHIRPathAdapter. Pass constraint.NoopEvaluator{} to skip
// constraint evaluation entirely (§4.8's "missing engine is tolerated").
func WithEvaluator(evaluator constraint.Evaluator) Option {
	return func(o *Options) { o.evaluator = evaluator }
}

// Convert compiles raw StructureDefinition JSON into a Schema. The caller
// is responsible for publishing it via Registry.Put when it should become
// resolvable by later Validate calls.
func (e *Engine) Convert(sdJSON []byte) (*schema.Schema, error) {
	start := time.Now()
	s, err := e.converter.ConvertJSON(sdJSON)
	e.metrics.RecordConversion(err == nil)
	e.metrics.RecordOp("convert", time.Since(start), 0)
	return s, err
}

// ConvertAndPublish compiles sdJSON and, on success, stores it in reg so
// subsequent Validate calls can resolve it by URL or type name.
func (e *Engine) ConvertAndPublish(sdJSON []byte) (*schema.Schema, error) {
	s, err := e.Convert(sdJSON)
	if err != nil {
		return nil, err
	}
	if putter, ok := e.registry.(interface{ Put(*schema.Schema) error }); ok {
		if err := putter.Put(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Validate checks value against the schemas named by schemaURLs, per §4.6.
// The returned Result must be released with Result.Release when the caller
// is done with it.
func (e *Engine) Validate(ctx context.Context, value any, schemaURLs []string) (*issue.Result, error) {
	start := time.Now()
	result, err := e.validator.Validate(ctx, value, schemaURLs)
	e.metrics.RecordValidation(time.Since(start), result == nil || result.Valid)
	if result != nil {
		e.metrics.RecordIssues(result.Issues)
		e.metrics.RecordOp("validate", time.Since(start), len(result.Issues))
	}
	return result, err
}

// ValidateWithProfiles validates value against profile canonical URLs.
func (e *Engine) ValidateWithProfiles(ctx context.Context, value any, profileURLs []string) (*issue.Result, error) {
	return e.Validate(ctx, value, profileURLs)
}

// NewPool creates a worker.Pool backed by this Engine's Validator, sized by
// Options.WorkerCount unless overridden.
func (e *Engine) NewPool(workers int) *worker.Pool {
	if workers <= 0 {
		workers = e.opts.WorkerCount
	}
	return worker.NewPool(e.validator, workers)
}

// ValidateBatch validates many values concurrently using Options.WorkerCount
// as the concurrency bound.
func (e *Engine) ValidateBatch(ctx context.Context, jobs []worker.Job) *worker.BatchResult {
	return e.validator.ValidateBatchN(ctx, jobs, e.opts.WorkerCount)
}

// ConvertBatch compiles many StructureDefinitions concurrently using
// Options.WorkerCount as the concurrency bound.
func (e *Engine) ConvertBatch(ctx context.Context, sds []*convert.StructureDefinition) []convert.ConvertResult {
	return convert.ConvertBatch(ctx, sds, e.opts.WorkerCount)
}

// Metrics returns the Engine's metrics collector.
func (e *Engine) Metrics() *Metrics { return e.metrics }

// Registry returns the resolver.Resolver-compatible registry backing this
// Engine.
func (e *Engine) Registry() collector.TypeResolver { return e.registry }
