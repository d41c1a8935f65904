package convert

import (
	"github.com/fhirschema/core/schema"
)

// nonSliceDepth counts the open non-slice frames, i.e. the length of
// openRawPath() without rebuilding the slice.
func (st *converterState) nonSliceDepth() int {
	n := 0
	for _, f := range st.stack {
		if !f.isSlice {
			n++
		}
	}
	return n
}

// reconcileSliceContext decides whether the currently open slice frame (if
// any) should close before the incoming element is processed. A slice stays
// open across its own slicing-declaration entry and any of its descendant
// element entries; it closes as soon as a sibling slice, a sibling element,
// or an ancestor element is seen next, per §4.3's "exit-slice" action.
func (st *converterState) reconcileSliceContext(raw []string, commonLen int, curSliceName string) error {
	t := st.top()
	if t == nil || !t.isSlice {
		return nil
	}

	if curSliceName != "" && curSliceName == t.sliceName {
		return nil
	}
	if curSliceName == "" && len(raw) > t.rawDepth && commonLen >= t.rawDepth {
		// Descendant of the slice's own body, e.g. "identifier.system"
		// following "identifier" sliceName=MRN.
		return nil
	}

	f := st.stack[len(st.stack)-1]
	st.stack = st.stack[:len(st.stack)-1]
	return st.attach(f)
}

// popTo closes frames until only `target` non-slice frames remain open,
// attaching each closed frame's body to its new parent. Closing all the way
// to 0 also closes any trailing slice frame, since a slice can never be the
// outermost open context at the end of conversion.
func (st *converterState) popTo(target int) error {
	for st.nonSliceDepth() > target {
		f := st.stack[len(st.stack)-1]
		st.stack = st.stack[:len(st.stack)-1]
		if err := st.attach(f); err != nil {
			return err
		}
	}
	if target == 0 {
		for len(st.stack) > 0 {
			f := st.stack[len(st.stack)-1]
			st.stack = st.stack[:len(st.stack)-1]
			if err := st.attach(f); err != nil {
				return err
			}
		}
	}
	return nil
}

// attach installs a closed frame's body into what is now the top of the
// stack (or the root schema), per §4.3's "exit"/"exit-slice" actions.
func (st *converterState) attach(f *frame) error {
	if f.isSlice {
		return st.attachSlice(f)
	}
	elements, addRequired, addExcluded := st.parentBody()
	elements[f.name] = f.body
	if f.body.Min >= 1 {
		addRequired(f.name)
	}
	if f.body.Max != nil && *f.body.Max == 0 {
		addExcluded(f.name)
	}
	return nil
}

// attachSlice installs a closed slice frame into its still-open base
// container's Slicing.Slices map.
func (st *converterState) attachSlice(f *frame) error {
	base := st.top()
	if base == nil || base.isSlice {
		return &ConvertError{Err: ErrStackImbalance, Path: f.name + ":" + f.sliceName}
	}
	if base.body.Slicing == nil {
		base.body.Slicing = &schema.Slicing{Rules: schema.RulesOpen}
	}
	if base.body.Slicing.Slices == nil {
		base.body.Slicing.Slices = make(map[string]*schema.SliceSchema)
	}
	base.body.Array = true

	base.body.Slicing.Slices[f.sliceName] = &schema.SliceSchema{
		Match:  deriveSliceMatch(base.body.Slicing.Discriminator, f.body),
		Min:    f.body.Min,
		Max:    f.body.Max,
		Schema: f.body,
	}
	return nil
}

// deriveSliceMatch resolves each "value"/"pattern" discriminator against the
// slice body's own fixed/pattern values, producing the concrete match rules
// the validator evaluates per array item (§4.7). Discriminators that cannot
// be resolved this way (type/profile/exists, or a path with no corresponding
// pattern in the slice body) are left for the validator's own discriminator
// evaluation and omitted here.
func deriveSliceMatch(discriminators []schema.Discriminator, sliceBody *schema.Element) []schema.SliceMatch {
	matches := make([]schema.SliceMatch, 0, len(discriminators))
	for _, d := range discriminators {
		if d.Kind != schema.DiscriminatorValue && d.Kind != schema.DiscriminatorPattern {
			continue
		}
		var value any
		switch {
		case d.Path == "$this":
			value = sliceBody.Pattern
		default:
			if el, ok := sliceBody.Elements[d.Path]; ok {
				value = el.Pattern
			}
		}
		if value == nil {
			continue
		}
		matches = append(matches, schema.SliceMatch{Path: d.Path, Value: value})
	}
	return matches
}
