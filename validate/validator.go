// Package validate implements the element validator (C6) and slicing
// evaluator (C7): a single cooperative recursive descent over a value and
// its applicable schema set, producing structured issues.
package validate

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/fhirschema/core/collector"
	"github.com/fhirschema/core/constraint"
	"github.com/fhirschema/core/issue"
	"github.com/fhirschema/core/pool"
	"github.com/fhirschema/core/schema"
)

// seenPool reuses the small bool-keyed "have we visited this name yet"
// maps that every level of the recursive descent allocates (descendObject's
// companion set, checkRequired/checkExcluded/checkConstraints's dedup sets,
// widen's seen-URL set), cutting GC pressure on deep documents.
var seenPool = pool.NewMapPool[string, bool](8)

// Validator runs validate() against a value for a caller-supplied set of
// schema URLs, per §4.6.
type Validator struct {
	resolver  collector.TypeResolver
	evaluator constraint.Evaluator
	opts      Options
}

// New creates a Validator. A nil evaluator falls back to
// constraint.NoopEvaluator, tolerating a missing expression engine per §4.8.
func New(reg collector.TypeResolver, evaluator constraint.Evaluator, opts Options) *Validator {
	if evaluator == nil {
		evaluator = constraint.NoopEvaluator{}
	}
	if opts.MaxDepth == 0 {
		opts.MaxDepth = DefaultOptions().MaxDepth
	}
	return &Validator{resolver: reg, evaluator: evaluator, opts: opts}
}

// Validate checks value against the schemas named by schemaURLs (plus
// whatever the value itself declares), returning a fresh Result the caller
// owns. Release it with Result.Release when done.
func (v *Validator) Validate(ctx context.Context, value any, schemaURLs []string) (*issue.Result, error) {
	w := newWalkContext(ctx, v.opts)
	defer w.release()

	set, issues := collector.Collect(value, schemaURLs, v.resolver)
	w.result.AddAll(issues)
	w.result.SchemaURLs = urlsOf(set.Schemas())

	if schemas := set.Schemas(); len(schemas) > 0 && schemas[0].Type != "" {
		w.path.WriteString(schemas[0].Type)
	}

	elements := schemaRoots(set.Schemas())
	v.validateAtLevel(w, value, elements, value, value)

	return w.result, nil
}

// ValidateWithProfiles validates value against profile URLs, the entry
// point §6 names separately from Validate for callers that think in terms
// of profiles rather than bare schema URLs. Mechanically identical: profile
// canonical URLs resolve through the same resolver.
func (v *Validator) ValidateWithProfiles(ctx context.Context, value any, profileURLs []string) (*issue.Result, error) {
	return v.Validate(ctx, value, profileURLs)
}

// ValidateBytes parses data as JSON and validates it, satisfying
// worker.Validator for batch use.
func (v *Validator) ValidateBytes(ctx context.Context, data []byte, schemaURLs []string) (*issue.Result, error) {
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		result := issue.AcquireResult()
		result.Add(issue.AsError(issue.TypeMismatch).
			Message("input is not valid JSON: " + err.Error()).Build())
		return result, nil
	}
	return v.Validate(ctx, value, schemaURLs)
}

// schemaRoot adapts a *schema.Schema to the uniform *schema.Element "body"
// shape the recursive descent operates on, so a root schema and a nested
// backbone/complex-type element are handled identically (§4.6 step 8's
// descent treats any depth uniformly).
func schemaRoot(s *schema.Schema) *schema.Element {
	return &schema.Element{
		Type:       s.Type,
		Elements:   s.Elements,
		Required:   s.Required,
		Excluded:   s.Excluded,
		Constraint: s.Constraint,
	}
}

func schemaRoots(schemas []*schema.Schema) []*schema.Element {
	out := make([]*schema.Element, 0, len(schemas))
	for _, s := range schemas {
		out = append(out, schemaRoot(s))
	}
	return out
}

func urlsOf(schemas []*schema.Schema) []string {
	urls := make([]string, 0, len(schemas))
	for _, s := range schemas {
		urls = append(urls, s.URL)
	}
	return urls
}

// validateAtLevel runs the eight-step order against value using elements as
// the combined applicable bodies for this level, per §4.6.
func (v *Validator) validateAtLevel(w *walkContext, value any, elements []*schema.Element, resource, rootResource any) {
	if w.cancelled() {
		return
	}
	if w.depth > w.opts.MaxDepth {
		w.result.Add(issue.AsError(issue.UnknownElement).
			Message("maximum descent depth exceeded").At(w.currentPath()).Build())
		return
	}

	// Step 1: dynamic schema extension.
	elements = v.widen(w, value, elements)

	// Step 2: type check.
	v.checkType(w, value, elements)

	obj, isObject := value.(map[string]any)

	// Step 3/4: required/excluded, only meaningful for object values.
	if isObject {
		v.checkRequired(w, obj, elements)
		v.checkExcluded(w, obj, elements)
	}

	// Step 5: pattern.
	for _, el := range elements {
		if el.Pattern == nil {
			continue
		}
		if !containsPattern(value, el.Pattern) {
			w.result.Add(issue.AsError(issue.PatternMismatch).
				Message("value does not match the declared pattern").
				At(w.currentPath()).Build())
		}
	}

	children := combinedChildren(elements)

	// Step 6: choice exclusivity.
	if isObject {
		v.checkChoices(w, obj, children)
	}

	// Step 7: constraints.
	v.checkConstraints(w, value, elements, resource, rootResource)

	// Step 8: structural descent.
	if isObject {
		v.descendObject(w, obj, children, resource, rootResource)
	}
}

// widen applies §4.5 step 4/5 at this boundary: resolving the declared types
// of elements and whatever the value itself declares (resourceType,
// meta.profile, url), appending the newly resolved schemas as additional
// bodies for this level.
func (v *Validator) widen(w *walkContext, value any, elements []*schema.Element) []*schema.Element {
	byType, issues := collector.ForElements(elements, v.resolver)
	w.result.AddAll(issues)
	dynamic, issues := collector.Collect(value, nil, v.resolver)
	w.result.AddAll(issues)

	extra := append(byType.Schemas(), dynamic.Schemas()...)
	if len(extra) == 0 {
		return elements
	}

	out := make([]*schema.Element, len(elements), len(elements)+len(extra))
	copy(out, elements)
	seen := seenPool.Acquire()
	defer seenPool.Release(seen)
	for _, s := range extra {
		if seen[s.URL] {
			continue
		}
		seen[s.URL] = true
		out = append(out, schemaRoot(s))
	}
	return out
}

func (v *Validator) checkType(w *walkContext, value any, elements []*schema.Element) {
	for _, el := range elements {
		if len(el.Refers) > 0 {
			v.checkReferenceTarget(w, value, el)
		}
		if el.Type == "" {
			continue
		}
		if isPrimitiveTypeName(el.Type) {
			ok, ctxVals := checkPrimitive(value, el.Type)
			if !ok {
				b := issue.AsError(issue.TypeMismatch).
					Message("value does not conform to type " + el.Type).At(w.currentPath())
				for k, val := range ctxVals {
					b = b.WithContext(k, val)
				}
				w.result.Add(b.Build())
			}
			continue
		}
		if _, isObject := value.(map[string]any); !isObject {
			w.result.Add(issue.AsError(issue.TypeMismatch).
				Message("value must be an object for type " + el.Type).
				At(w.currentPath()).
				WithContext("expected", "object").Build())
		}
	}
}

// checkReferenceTarget checks a Reference(...)-typed element's target type
// against the allowed set in el.Refers, per the ReferenceTargetInvalid issue.
// The target type is read from an explicit "type" field if present, else
// from the resource-type prefix of a relative "reference" string
// ("Patient/123" -> "Patient"); a reference this element's value doesn't
// carry enough information to classify (a contained reference, a bare
// identifier-only reference) is not flagged.
func (v *Validator) checkReferenceTarget(w *walkContext, value any, el *schema.Element) {
	obj, ok := value.(map[string]any)
	if !ok {
		return
	}

	var target string
	if t, ok := obj["type"].(string); ok && t != "" {
		target = t
	} else if ref, ok := obj["reference"].(string); ok {
		if idx := strings.Index(ref, "/"); idx > 0 && !strings.HasPrefix(ref, "#") {
			target = ref[:idx]
		}
	}
	if target == "" {
		return
	}

	for _, allowed := range el.Refers {
		if allowed == target {
			return
		}
	}
	w.result.Add(issue.AsError(issue.ReferenceTargetInvalid).
		Message("reference target type " + target + " is not among the allowed types").
		At(w.currentPath()).WithContext("target", target).WithContext("allowed", el.Refers).Build())
}

func isPrimitiveTypeName(name string) bool {
	return name != "" && name[0] >= 'a' && name[0] <= 'z'
}

func (v *Validator) checkRequired(w *walkContext, obj map[string]any, elements []*schema.Element) {
	seen := seenPool.Acquire()
	defer seenPool.Release(seen)
	for _, el := range elements {
		for _, name := range el.Required {
			if seen[name] {
				continue
			}
			seen[name] = true
			if !hasProperty(obj, name) {
				w.result.Add(issue.AsError(issue.RequiredMissing).
					Message("required element " + name + " is missing").
					At(w.currentPath()).WithContext("name", name).Build())
			}
		}
	}
}

func (v *Validator) checkExcluded(w *walkContext, obj map[string]any, elements []*schema.Element) {
	seen := seenPool.Acquire()
	defer seenPool.Release(seen)
	for _, el := range elements {
		for _, name := range el.Excluded {
			if seen[name] {
				continue
			}
			seen[name] = true
			if hasProperty(obj, name) {
				w.result.Add(issue.AsError(issue.ExcludedPresent).
					Message("excluded element " + name + " is present").
					At(w.currentPath()).WithContext("name", name).Build())
			}
		}
	}
}

// hasProperty reports presence per §4.6 step 3: a non-null value under name,
// or a primitive companion "_name" carrying extension data.
func hasProperty(obj map[string]any, name string) bool {
	if v, ok := obj[name]; ok && v != nil {
		return true
	}
	if v, ok := obj["_"+name]; ok && v != nil {
		return true
	}
	return false
}

func (v *Validator) checkChoices(w *walkContext, obj map[string]any, children map[string][]*schema.Element) {
	for name, defs := range children {
		for _, def := range defs {
			if !def.IsChoiceBase() {
				continue
			}
			present := 0
			for _, variant := range def.Choices {
				if hasProperty(obj, variant) {
					present++
				}
			}
			if present > 1 {
				base := w.currentPath()
				if base != "" {
					base += "."
				}
				base += name
				w.result.Add(issue.AsError(issue.ChoiceMultiple).
					Message("more than one choice variant is present").
					At(base).WithContext("choices", def.Choices).Build())
			}
			break
		}
	}
}

func (v *Validator) checkConstraints(w *walkContext, value any, elements []*schema.Element, resource, rootResource any) {
	seen := seenPool.Acquire()
	defer seenPool.Release(seen)
	for _, el := range elements {
		for key, c := range el.Constraint {
			if seen[key] {
				continue
			}
			seen[key] = true

			ok, err := v.evaluator.Evaluate(w.ctx, c.Expression, constraint.Env{
				Value: value, Resource: resource, RootResource: rootResource,
			})
			if err != nil {
				if err == constraint.ErrUnavailable {
					v.emitConstraintsSkippedOnce(w)
					continue
				}
				w.result.Add(issue.AsError(issue.ConstraintError).
					Message("constraint " + key + " failed to evaluate: " + err.Error()).
					At(w.currentPath()).WithContext("key", key).Build())
				continue
			}
			if !ok {
				severity := issue.SeverityError
				if c.Severity == "warning" {
					severity = issue.SeverityWarning
				}
				w.result.Add(issue.NewIssue(severity, issue.ConstraintViolated).
					Message(c.Human).At(w.currentPath()).WithContext("key", key).Build())
			}
		}
	}
}

func (v *Validator) emitConstraintsSkippedOnce(w *walkContext) {
	if w.constraintsSkipped {
		return
	}
	w.constraintsSkipped = true
	w.result.Add(issue.AsWarning(issue.ConstraintsSkipped).
		Message("no constraint evaluator configured; constraints were not checked").Build())
}

// combinedChildren unions each element's direct children by name across the
// applicable bodies, so a property definition can be contributed to by
// more than one schema at once.
func combinedChildren(elements []*schema.Element) map[string][]*schema.Element {
	out := make(map[string][]*schema.Element)
	for _, el := range elements {
		for name, child := range el.Elements {
			out[name] = append(out[name], child)
		}
	}
	return out
}

// descendObject implements §4.6 step 8 over an object value's own properties.
func (v *Validator) descendObject(w *walkContext, obj map[string]any, children map[string][]*schema.Element, resource, rootResource any) {
	companions := seenPool.Acquire()
	defer seenPool.Release(companions)
	for key := range obj {
		if strings.HasPrefix(key, "_") {
			companions[strings.TrimPrefix(key, "_")] = true
		}
	}

	for key, value := range obj {
		if key == "resourceType" {
			continue
		}
		if strings.HasPrefix(key, "_") {
			continue // companion values are not validated; only their presence is recorded above
		}

		defs, ok := children[key]
		if !ok || len(defs) == 0 {
			if w.opts.Strict {
				w.result.Add(issue.AsError(issue.UnknownElement).
					Message("unknown element " + key).
					At(w.currentPath()+"."+key).WithContext("name", key).Build())
			}
			continue
		}

		w.descend(key, func() {
			v.descendProperty(w, value, defs, companions[key], resource, rootResource)
		})
	}
}

func arrayExpectation(defs []*schema.Element) (mustArray, mustScalar bool) {
	for _, d := range defs {
		if d.Array {
			mustArray = true
		} else {
			mustScalar = true
		}
	}
	return
}

func (v *Validator) descendProperty(w *walkContext, value any, defs []*schema.Element, hasCompanion bool, resource, rootResource any) {
	mustArray, mustScalar := arrayExpectation(defs)
	arr, isArray := value.([]any)

	if isArray && mustScalar && !mustArray {
		w.result.Add(issue.AsError(issue.UnexpectedArray).
			Message("element does not allow multiple values").At(w.currentPath()).Build())
		return
	}
	if !isArray && mustArray && !mustScalar {
		w.result.Add(issue.AsError(issue.ExpectedArray).
			Message("element requires an array").At(w.currentPath()).Build())
		return
	}

	if !isArray {
		v.validateAtLevel(w, value, defs, resource, rootResource)
		return
	}

	var slicing *schema.Slicing
	for _, d := range defs {
		if d.Slicing != nil {
			slicing = d.Slicing
			break
		}
	}

	if slicing != nil {
		v.validateSlicedArray(w, arr, slicing, defs, resource, rootResource)
		return
	}

	checkArrayCardinality(w, defs, len(arr))

	for i, item := range arr {
		if item == nil && hasCompanion {
			continue
		}
		idx := i
		w.descendIndexed(idx, func() {
			v.validateAtLevel(w, item, defs, resource, rootResource)
		})
	}
}

// checkArrayCardinality applies the parent Element's own min/max across an
// entire array occurrence, per §4.6 step 8 / §4.7 step 5 — every array is
// bounds-checked this way whether or not it carries a Slicing.
func checkArrayCardinality(w *walkContext, defs []*schema.Element, length int) {
	for _, d := range defs {
		if d.Max != nil && length > *d.Max || length < d.Min {
			w.result.Add(issue.AsError(issue.CardinalityViolation).
				Message("array occurs "+strconv.Itoa(length)+" times, outside its declared bounds").
				At(w.currentPath()).Build())
			return
		}
	}
}
