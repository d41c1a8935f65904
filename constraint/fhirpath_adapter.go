package constraint

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fhirschema/core/cache"
	"github.com/gofhir/fhirpath"
	"github.com/gofhir/fhirpath/types"
)

// FHIRPathAdapter is the concrete Evaluator backed by the injected FHIRPath
// engine. Compiled expressions are kept in an LRU so a constraint re-used
// across many values (the common case — most constraints are declared once
// per element, evaluated once per instance of that element) is compiled
// only the first time it is seen.
type FHIRPathAdapter struct {
	cache *cache.Cache[string, *fhirpath.Expression]
}

// NewFHIRPathAdapter creates an adapter with an expression cache sized for
// size compiled expressions.
func NewFHIRPathAdapter(size int) *FHIRPathAdapter {
	return &FHIRPathAdapter{cache: cache.New[string, *fhirpath.Expression](size)}
}

// Evaluate compiles (or reuses) expression and runs it against env.Value,
// applying FHIRPath truthiness (empty collection = false, a single boolean
// = its value, any other non-empty collection = true). The underlying
// engine evaluates against a single JSON document, so env.Resource and
// env.RootResource are not separately bound; %resource and %rootResource
// references inside expression resolve against env.Value itself. Most
// constraints are written relative to the element they're declared on,
// so this covers the common case without embedding a second evaluation
// context the engine has no variable-binding hook for.
func (a *FHIRPathAdapter) Evaluate(ctx context.Context, expression string, env Env) (bool, error) {
	compiled, err := a.getOrCompile(expression)
	if err != nil {
		return false, fmt.Errorf("compile %q: %w", expression, err)
	}

	valueBytes, err := toJSON(env.Value)
	if err != nil {
		return false, fmt.Errorf("encode constraint context: %w", err)
	}

	result, err := compiled.Evaluate(valueBytes)
	if err != nil {
		return false, fmt.Errorf("evaluate %q: %w", expression, err)
	}
	return toBool(result), nil
}

func (a *FHIRPathAdapter) getOrCompile(expression string) (*fhirpath.Expression, error) {
	if compiled, ok := a.cache.Get(expression); ok {
		return compiled, nil
	}
	compiled, err := fhirpath.Compile(expression)
	if err != nil {
		return nil, err
	}
	a.cache.Set(expression, compiled)
	return compiled, nil
}

func toJSON(value any) ([]byte, error) {
	switch v := value.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		return json.Marshal(v)
	}
}

func toBool(result types.Collection) bool {
	if len(result) == 0 {
		return false
	}
	if len(result) == 1 {
		if b, ok := result[0].(types.Boolean); ok {
			return b.Bool()
		}
	}
	return true
}
