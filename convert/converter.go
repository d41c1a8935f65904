// Package convert implements the stack-based differential-to-FHIR-Schema
// compiler (C3): it turns the flat, path-indexed element list of a
// StructureDefinition into a nested schema.Schema document.
package convert

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fhirschema/core/elementpath"
	"github.com/fhirschema/core/schema"
	"github.com/goccy/go-yaml"
)

// Converter errors. These are programming/input errors that indicate either
// a malformed SD or a converter bug; they are never retried and always
// surface directly to the caller.
var (
	ErrMalformedPath      = errors.New("malformed-path")
	ErrStackImbalance     = errors.New("stack-imbalance")
	ErrInvalidCardinality = errors.New("invalid-cardinality")
	ErrUnresolvedChoice   = errors.New("unresolved-choice")
)

// ConvertError wraps one of the sentinel errors above with the offending
// element path.
type ConvertError struct {
	Err  error
	Path string
}

func (e *ConvertError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err, e.Path)
}

func (e *ConvertError) Unwrap() error { return e.Err }

// frame is one open container on the conversion stack. A plain frame holds
// the element body being assembled for one raw path component; a slice
// frame additionally records the slice name it represents and sits logically
// one level inside its base frame without consuming an extra raw path
// component (see reconcileSliceContext).
type frame struct {
	name      string
	isSlice   bool
	sliceName string
	body      *schema.Element
	rawDepth  int
}

// Converter runs the stack machine described in §4.3 against one
// StructureDefinition at a time. It holds no state between calls to Convert.
type Converter struct{}

// New creates a Converter.
func New() *Converter {
	return &Converter{}
}

// Convert compiles a StructureDefinition into a Schema.
func (c *Converter) Convert(sd *StructureDefinition) (*schema.Schema, error) {
	s, err := header(sd)
	if err != nil {
		return nil, err
	}

	elements := sd.Elements()
	if len(elements) == 0 {
		// Primitive-type SDs (and any SD with no body elements) produce a
		// header-only FS, per §4.3 "Primitive-type SDs" special case.
		return s, nil
	}

	s.Elements = make(map[string]*schema.Element)
	st := &converterState{schema: s}

	for _, ed := range elements {
		if ed.Path == "" {
			return nil, &ConvertError{Err: ErrMalformedPath, Path: ed.Path}
		}
		raw := elementpath.Parse(ed.Path)
		if raw.Len() == 0 {
			// The root element entry (just the type name, e.g. "Patient")
			// carries only resource-level constraints; it has no cardinality
			// or type of its own and never pushes a frame.
			for _, c := range ed.Constraint {
				if s.Constraint == nil {
					s.Constraint = make(map[string]schema.Constraint)
				}
				s.Constraint[c.Key] = schema.Constraint{Expression: c.Expression, Severity: c.Severity, Human: c.Human}
			}
			continue
		}

		if raw.IsChoice() {
			if err := st.processChoice(raw, ed); err != nil {
				return nil, err
			}
			continue
		}

		if err := st.processElement(raw.Components, ed); err != nil {
			return nil, err
		}
	}

	if err := st.popTo(0); err != nil {
		return nil, err
	}
	if len(st.stack) != 0 {
		return nil, &ConvertError{Err: ErrStackImbalance, Path: "<end>"}
	}

	return s, nil
}

// ConvertJSON decodes an SD from JSON and converts it.
func (c *Converter) ConvertJSON(data []byte) (*schema.Schema, error) {
	var sd StructureDefinition
	if err := json.Unmarshal(data, &sd); err != nil {
		return nil, err
	}
	return c.Convert(&sd)
}

// ConvertYAML decodes an SD from YAML and converts it, per §6's allowance of
// either encoding for converter input documents.
func (c *Converter) ConvertYAML(data []byte) (*schema.Schema, error) {
	jsonData, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, err
	}
	return c.ConvertJSON(jsonData)
}

// header synthesizes the FS header fields and the class invariant from the
// SD's top-level fields, per §4.3 "Header synthesis".
func header(sd *StructureDefinition) (*schema.Schema, error) {
	kind := schema.Kind(sd.Kind)
	derivation := schema.Derivation(sd.Derivation)
	class := schema.DeriveClass(kind, derivation, sd.Type)
	if class == "" {
		return nil, fmt.Errorf("cannot derive class for kind=%q derivation=%q type=%q", sd.Kind, sd.Derivation, sd.Type)
	}

	return &schema.Schema{
		URL:         sd.URL,
		Name:        sd.Name,
		Type:        sd.Type,
		Version:     sd.Version,
		Description: sd.Description,
		Base:        sd.BaseDefinition,
		Kind:        kind,
		Class:       class,
		Derivation:  derivation,
		Abstract:    sd.Abstract,
	}, nil
}

// converterState holds the stack and root schema for one Convert call.
type converterState struct {
	schema *schema.Schema
	stack  []*frame
}

// top returns the current innermost frame, or nil at the root.
func (st *converterState) top() *frame {
	if len(st.stack) == 0 {
		return nil
	}
	return st.stack[len(st.stack)-1]
}

// openRawPath returns the raw (non-slice) component names of every
// currently open frame, bottom to top.
func (st *converterState) openRawPath() []string {
	names := make([]string, 0, len(st.stack))
	for _, f := range st.stack {
		if f.isSlice {
			continue
		}
		names = append(names, f.name)
	}
	return names
}

// parentBody returns the Elements map that new children attach to, plus
// functions appending a name to the matching Required and Excluded sets:
// those of the top frame's body, or of the root schema when no frame is open.
func (st *converterState) parentBody() (elements map[string]*schema.Element, addRequired func(string), addExcluded func(string)) {
	if t := st.top(); t != nil {
		if t.body.Elements == nil {
			t.body.Elements = make(map[string]*schema.Element)
		}
		return t.body.Elements,
			func(name string) { t.body.Required = append(t.body.Required, name) },
			func(name string) { t.body.Excluded = append(t.body.Excluded, name) }
	}
	return st.schema.Elements,
		func(name string) { st.schema.Required = append(st.schema.Required, name) },
		func(name string) { st.schema.Excluded = append(st.schema.Excluded, name) }
}

// processElement runs one non-choice differential element through action
// calculation and execution (§4.3 steps 2-5).
func (st *converterState) processElement(raw []string, ed ElementDefinition) error {
	openPath := elementpath.Path{Components: st.openRawPath()}
	curPath := elementpath.Path{Components: raw}
	commonLen := elementpath.CommonPrefix(openPath, curPath).Len()

	if err := st.reconcileSliceContext(raw, commonLen, ed.SliceName); err != nil {
		return err
	}
	if err := st.popTo(commonLen); err != nil {
		return err
	}

	for depth := commonLen; depth < len(raw)-1; depth++ {
		st.stack = append(st.stack, &frame{
			name:     raw[depth],
			body:     &schema.Element{Elements: make(map[string]*schema.Element)},
			rawDepth: depth + 1,
		})
	}

	name := raw[len(raw)-1]

	if ed.SliceName != "" {
		// The base container for this array must already be open (pushed by
		// the slicing-declaring element processed just before its slices);
		// if not, synthesize an empty one so a malformed/partial input still
		// produces a structurally sound schema.
		base := st.top()
		if base == nil || base.isSlice || base.name != name || base.rawDepth != len(raw) {
			base = &frame{name: name, body: &schema.Element{Elements: make(map[string]*schema.Element)}, rawDepth: len(raw)}
			st.stack = append(st.stack, base)
		}
		sliceBody := &schema.Element{Elements: make(map[string]*schema.Element)}
		if err := transform(sliceBody, ed); err != nil {
			return &ConvertError{Err: err, Path: ed.Path}
		}
		st.stack = append(st.stack, &frame{
			name: name, isSlice: true, sliceName: ed.SliceName, body: sliceBody, rawDepth: len(raw),
		})
		return nil
	}

	// Plain element: reuse the still-open frame at this exact depth (we are
	// adding a child to an already-open slice body or backbone), otherwise
	// push a fresh one.
	var f *frame
	if t := st.top(); t != nil && t.rawDepth == len(raw) && t.name == name {
		f = t
	} else {
		f = &frame{name: name, body: &schema.Element{Elements: make(map[string]*schema.Element)}, rawDepth: len(raw)}
		st.stack = append(st.stack, f)
	}
	if err := transform(f.body, ed); err != nil {
		return &ConvertError{Err: err, Path: ed.Path}
	}
	return nil
}

// processChoice implements §4.2/§4.3 choice expansion: the "…[x]" pseudo
// element becomes a parent entry carrying Choices plus one sibling Element
// per declared type, all attached directly under the enclosing container —
// choice variants never themselves hold a differential sub-tree.
func (st *converterState) processChoice(curPath elementpath.Path, ed ElementDefinition) error {
	raw := curPath.Components
	if len(ed.Type) == 0 {
		return &ConvertError{Err: ErrUnresolvedChoice, Path: ed.Path}
	}

	openPath := elementpath.Path{Components: st.openRawPath()}
	commonLen := elementpath.CommonPrefix(openPath, curPath).Len()

	if err := st.reconcileSliceContext(raw, commonLen, ""); err != nil {
		return err
	}
	if err := st.popTo(commonLen); err != nil {
		return err
	}
	for depth := commonLen; depth < len(raw)-1; depth++ {
		st.stack = append(st.stack, &frame{
			name:     raw[depth],
			body:     &schema.Element{Elements: make(map[string]*schema.Element)},
			rawDepth: depth + 1,
		})
	}

	choiceComponent := raw[len(raw)-1]
	typeCodes := make([]string, len(ed.Type))
	for i, t := range ed.Type {
		typeCodes[i] = t.Code
	}
	names := elementpath.ExpandChoice(choiceComponent, typeCodes)

	min, max, _, err := cardinalityParts(ed)
	if err != nil {
		return &ConvertError{Err: err, Path: ed.Path}
	}

	elements, addRequired, _ := st.parentBody()
	base := &schema.Element{Choices: names, Min: min, Max: max}
	elements[choiceComponent] = base
	if min >= 1 {
		addRequired(choiceComponent)
	}

	one := 1
	for i, name := range names {
		elements[name] = &schema.Element{
			ChoiceOf:    choiceComponent,
			Type:        typeCodes[i],
			Min:         0,
			Max:         &one,
			MustSupport: ed.MustSupport,
			IsModifier:  ed.IsModifier,
			IsSummary:   ed.IsSummary,
		}
	}
	return nil
}
