package schema

import (
	"encoding/json"
	"fmt"
)

// BindingStrength records how tightly a terminology binding constrains a code.
type BindingStrength string

const (
	BindingRequired   BindingStrength = "required"
	BindingExtensible BindingStrength = "extensible"
	BindingPreferred  BindingStrength = "preferred"
	BindingExample    BindingStrength = "example"
)

// Binding is a terminology binding's metadata. The core captures it but does
// not evaluate codes against a value set — see DESIGN.md.
type Binding struct {
	Strength BindingStrength `json:"strength" yaml:"strength"`
	ValueSet string          `json:"valueSet,omitempty" yaml:"valueSet,omitempty"`
}

// DiscriminatorKind names how a slicing discriminator locates its value.
type DiscriminatorKind string

const (
	DiscriminatorValue   DiscriminatorKind = "value"
	DiscriminatorPattern DiscriminatorKind = "pattern"
	DiscriminatorType    DiscriminatorKind = "type"
	DiscriminatorProfile DiscriminatorKind = "profile"
	DiscriminatorExists  DiscriminatorKind = "exists"
)

// Discriminator is one rule in an ordered discriminator list.
type Discriminator struct {
	Kind DiscriminatorKind `json:"kind" yaml:"kind"`
	Path string            `json:"path" yaml:"path"`
}

// SlicingRules controls what happens to array items matching no slice.
type SlicingRules string

const (
	RulesClosed     SlicingRules = "closed"
	RulesOpen       SlicingRules = "open"
	RulesOpenAtEnd  SlicingRules = "openAtEnd"
)

// Slicing partitions an array-valued element into named, discriminator-
// identified slices.
type Slicing struct {
	Discriminator []Discriminator         `json:"discriminator,omitempty" yaml:"discriminator,omitempty"`
	Rules         SlicingRules            `json:"rules" yaml:"rules"`
	Ordered       bool                    `json:"ordered,omitempty" yaml:"ordered,omitempty"`
	Slices        map[string]*SliceSchema `json:"slices,omitempty" yaml:"slices,omitempty"`
}

// SliceMatch is one path→value pair an array item must satisfy to belong to
// a slice, derived from the parent's discriminator list plus the slice
// body's fixed/pattern values at conversion time.
type SliceMatch struct {
	Path  string `json:"path" yaml:"path"`
	Value any    `json:"value" yaml:"value"`
}

// SliceSchema is one named partition of a sliced array.
type SliceSchema struct {
	Match  []SliceMatch `json:"match,omitempty" yaml:"match,omitempty"`
	Min    int          `json:"min" yaml:"min"`
	Max    *int         `json:"max,omitempty" yaml:"max,omitempty"` // nil = unbounded
	Schema *Element     `json:"schema" yaml:"schema"`
}

// Element is one field definition within a Schema or a nested structure.
type Element struct {
	Array bool `json:"array,omitempty" yaml:"array,omitempty"`
	Min   int  `json:"min" yaml:"min"`
	Max   *int `json:"max,omitempty" yaml:"max,omitempty"` // nil = unbounded

	// Exactly one of Type, Refers, ElementReference, or ChoiceOf is set,
	// except on a choice group's base element which carries none of them
	// but does carry Choices.
	Type             string   `json:"type,omitempty" yaml:"type,omitempty"`
	Refers           []string `json:"refers,omitempty" yaml:"refers,omitempty"`
	ElementReference string   `json:"elementReference,omitempty" yaml:"elementReference,omitempty"`
	ChoiceOf         string   `json:"choiceOf,omitempty" yaml:"choiceOf,omitempty"`
	Choices          []string `json:"choices,omitempty" yaml:"choices,omitempty"`

	Pattern    any                    `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Binding    *Binding               `json:"binding,omitempty" yaml:"binding,omitempty"`
	Constraint map[string]Constraint  `json:"constraint,omitempty" yaml:"constraint,omitempty"`
	Slicing    *Slicing               `json:"slicing,omitempty" yaml:"slicing,omitempty"`

	MustSupport bool `json:"mustSupport,omitempty" yaml:"mustSupport,omitempty"`
	IsModifier  bool `json:"isModifier,omitempty" yaml:"isModifier,omitempty"`
	IsSummary   bool `json:"isSummary,omitempty" yaml:"isSummary,omitempty"`

	// Elements, Required, and Excluded give a backbone/complex-type element
	// the same nested body shape as a top-level Schema, so structural
	// descent (§4.6 step 8) can treat any depth uniformly.
	Elements map[string]*Element `json:"elements,omitempty" yaml:"elements,omitempty"`
	Required []string            `json:"required,omitempty" yaml:"required,omitempty"`
	Excluded []string            `json:"excluded,omitempty" yaml:"excluded,omitempty"`
}

// MaxUnbounded reports whether the element's Max is the unbounded sentinel.
func (e *Element) MaxUnbounded() bool {
	return e.Max == nil
}

// IsChoiceBase reports whether this element is the parent "base" element of
// a choice group (carries Choices, not a ChoiceOf back-reference).
func (e *Element) IsChoiceBase() bool {
	return len(e.Choices) > 0
}

// validate checks the "exactly one of type/refers/elementReference/choiceOf"
// invariant for this element and recurses into nested elements and slices.
func (e *Element) validate(name string) error {
	if !e.IsChoiceBase() {
		set := 0
		if e.Type != "" {
			set++
		}
		if len(e.Refers) > 0 {
			set++
		}
		if e.ElementReference != "" {
			set++
		}
		if e.ChoiceOf != "" {
			set++
		}
		if set > 1 {
			return fmt.Errorf("element %q: more than one of type/refers/elementReference/choiceOf set", name)
		}
	}
	for childName, child := range e.Elements {
		if err := child.validate(name + "." + childName); err != nil {
			return err
		}
	}
	if e.Slicing != nil {
		for sliceName, slice := range e.Slicing.Slices {
			if slice.Schema == nil {
				continue
			}
			if err := slice.Schema.validate(name + ":" + sliceName); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Element) MarshalJSON() ([]byte, error) {
	type alias Element
	return json.Marshal((*alias)(e))
}

func (e *Element) UnmarshalJSON(data []byte) error {
	type alias Element
	return json.Unmarshal(data, (*alias)(e))
}
