package convert

import (
	"encoding/json"
	"strings"

	"github.com/fhirschema/core/schema"
)

// transform applies §4.3 step 4 to one differential element: cardinality,
// type/reference encoding, fixed/pattern capture, binding, constraints,
// slicing declaration, and flags. It never touches body.Elements, which the
// stack machine owns.
func transform(body *schema.Element, ed ElementDefinition) error {
	min, max, array, err := cardinalityParts(ed)
	if err != nil {
		return err
	}
	body.Min = min
	body.Max = max
	body.Array = array

	switch {
	case ed.ContentReference != "":
		body.ElementReference = strings.TrimPrefix(ed.ContentReference, "#")
	case len(ed.Type) == 1:
		body.Type = ed.Type[0].Code
		if body.Type == "Reference" && len(ed.Type[0].TargetProfile) > 0 {
			body.Refers = referenceTargets(ed.Type[0].TargetProfile)
		}
	case len(ed.Type) > 1:
		// Multiple types without a "[x]" path component is not valid FHIR
		// outside a choice element; take the first declared type rather than
		// fail the whole conversion over it.
		body.Type = ed.Type[0].Code
	}

	if fixedVal, _, ok := ed.GetFixed(); ok {
		var v any
		if err := json.Unmarshal(fixedVal, &v); err == nil {
			body.Pattern = v
		}
	} else if patternVal, _, ok := ed.GetPattern(); ok {
		var v any
		if err := json.Unmarshal(patternVal, &v); err == nil {
			body.Pattern = v
		}
	}

	if ed.Binding != nil {
		body.Binding = &schema.Binding{
			Strength: schema.BindingStrength(ed.Binding.Strength),
			ValueSet: ed.Binding.ValueSet,
		}
	}

	for _, c := range ed.Constraint {
		if body.Constraint == nil {
			body.Constraint = make(map[string]schema.Constraint)
		}
		body.Constraint[c.Key] = schema.Constraint{
			Expression: c.Expression,
			Severity:   c.Severity,
			Human:      c.Human,
		}
	}

	if ed.Slicing != nil {
		discs := make([]schema.Discriminator, len(ed.Slicing.Discriminator))
		for i, d := range ed.Slicing.Discriminator {
			discs[i] = schema.Discriminator{Kind: schema.DiscriminatorKind(d.Type), Path: d.Path}
		}
		body.Slicing = &schema.Slicing{
			Discriminator: discs,
			Rules:         schema.SlicingRules(ed.Slicing.Rules),
			Ordered:       ed.Slicing.Ordered,
		}
	}

	body.MustSupport = ed.MustSupport
	body.IsModifier = ed.IsModifier
	body.IsSummary = ed.IsSummary

	return nil
}

// referenceTargets extracts the type name (the last path segment) from each
// targetProfile canonical URL.
func referenceTargets(profiles []string) []string {
	names := make([]string, 0, len(profiles))
	for _, p := range profiles {
		if idx := strings.LastIndexByte(p, '/'); idx >= 0 {
			names = append(names, p[idx+1:])
		} else {
			names = append(names, p)
		}
	}
	return names
}

// cardinalityParts maps an ElementDefinition's min/max into the FS (Min,
// Max, Array) triple, raising ErrInvalidCardinality when max is explicitly
// narrower than min. An element whose max is absent from the differential
// (inherited unchanged from its base) defaults to a scalar (1, non-array) —
// differential-only conversion has no snapshot to resolve the true
// inherited bound.
func cardinalityParts(ed ElementDefinition) (min int, max *int, array bool, err error) {
	min = ed.MinValue()

	maxVal, unbounded, ok := ed.MaxValue()
	if !ok {
		one := 1
		return min, &one, false, nil
	}
	if unbounded {
		return min, nil, true, nil
	}
	if maxVal < min {
		return 0, nil, false, ErrInvalidCardinality
	}
	m := maxVal
	return min, &m, maxVal > 1, nil
}
