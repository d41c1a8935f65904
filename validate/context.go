package validate

import (
	"context"

	"github.com/fhirschema/core/issue"
	"github.com/fhirschema/core/pool"
)

// Options controls how a single validate call behaves.
type Options struct {
	// Strict rejects values carrying a field no applicable schema declares.
	// Defaults to true.
	Strict bool

	// MaxDepth bounds recursive descent, guarding against cyclic content
	// references or base chains reachable through pathological input.
	// Defaults to 64.
	MaxDepth int

	// TrackPositions is recorded but not read by the Validator: issues never
	// get Line/Column from it. issue.EnrichPositions fills those in when a
	// caller runs it over the source bytes.
	TrackPositions bool
}

// DefaultOptions returns the Options a validate call uses when the caller
// passes none explicitly.
func DefaultOptions() Options {
	return Options{Strict: true, MaxDepth: 64}
}

// walkContext is the per-validation state threaded through one recursive
// descent: its own issue accumulator, path builder, and cancellation check,
// never shared between concurrent validate calls.
type walkContext struct {
	ctx                context.Context
	opts               Options
	result             *issue.Result
	path               *pool.PathBuilder
	depth              int
	constraintsSkipped bool
}

func newWalkContext(ctx context.Context, opts Options) *walkContext {
	return &walkContext{
		ctx:    ctx,
		opts:   opts,
		result: issue.AcquireResult(),
		path:   pool.AcquirePathBuilder(),
	}
}

func (w *walkContext) release() {
	w.path.Release()
	w.path = nil
}

// cancelled reports whether the caller's context has been cancelled since
// the last check, recording it on the result the first time it fires.
func (w *walkContext) cancelled() bool {
	select {
	case <-w.ctx.Done():
		if !w.result.Cancelled {
			w.result.Cancelled = true
		}
		return true
	default:
		return false
	}
}

// descend runs fn with name appended to the path, then restores the path to
// its prior length — the mark/truncate pattern that avoids an allocation per
// descent step.
func (w *walkContext) descend(name string, fn func()) {
	mark := w.path.Len()
	w.path.AppendWithDot(name)
	w.depth++
	fn()
	w.depth--
	w.path.Truncate(mark)
}

// descendIndexed is descend for an array item at index.
func (w *walkContext) descendIndexed(index int, fn func()) {
	mark := w.path.Len()
	w.path.AppendIndex(index)
	w.depth++
	fn()
	w.depth--
	w.path.Truncate(mark)
}

func (w *walkContext) currentPath() string {
	return w.path.String()
}
