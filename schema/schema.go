// Package schema defines the FHIR Schema (FS) document model: the compact,
// composable representation the converter produces and the validator
// consumes. Every type here is round-trippable through JSON and YAML.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/goccy/go-yaml"
)

// Kind classifies what an SD/FS describes.
type Kind string

const (
	KindResource      Kind = "resource"
	KindComplexType   Kind = "complex-type"
	KindPrimitiveType Kind = "primitive-type"
	KindLogical       Kind = "logical"
)

// Class is the FS-level classification derived from (Kind, Derivation, Type).
type Class string

const (
	ClassResource  Class = "resource"
	ClassProfile   Class = "profile"
	ClassType      Class = "type"
	ClassExtension Class = "extension"
	ClassLogical   Class = "logical"
)

// Derivation records whether a schema specializes a base type or constrains it.
type Derivation string

const (
	DerivationSpecialization Derivation = "specialization"
	DerivationConstraint     Derivation = "constraint"
)

// DeriveClass computes Class deterministically from (kind, derivation, type),
// per the invariant in the data model: class is never stored independently.
func DeriveClass(kind Kind, derivation Derivation, typeName string) Class {
	switch {
	case kind == KindResource && derivation == DerivationConstraint:
		return ClassProfile
	case kind == KindResource:
		return ClassResource
	case (kind == KindComplexType || kind == KindPrimitiveType) && typeName == "Extension":
		return ClassExtension
	case kind == KindComplexType || kind == KindPrimitiveType:
		return ClassType
	case kind == KindLogical:
		return ClassLogical
	default:
		return ""
	}
}

// Schema is a converted FHIR Schema document: one resource, type, or profile.
type Schema struct {
	URL         string     `json:"url" yaml:"url"`
	Name        string     `json:"name" yaml:"name"`
	Type        string     `json:"type" yaml:"type"`
	Version     string     `json:"version,omitempty" yaml:"version,omitempty"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Base        string     `json:"base,omitempty" yaml:"base,omitempty"`
	Kind        Kind       `json:"kind" yaml:"kind"`
	Class       Class      `json:"class" yaml:"class"`
	Derivation  Derivation `json:"derivation" yaml:"derivation"`
	Abstract    bool       `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// Elements is nil when the schema carries no element map (e.g. a
	// primitive-type header), and non-nil-but-empty when the document
	// explicitly asserts "no elements" — the two are not equivalent (§4.1).
	Elements map[string]*Element `json:"elements,omitempty" yaml:"elements,omitempty"`

	Required   []string              `json:"required,omitempty" yaml:"required,omitempty"`
	Excluded   []string              `json:"excluded,omitempty" yaml:"excluded,omitempty"`
	Constraint map[string]Constraint `json:"constraint,omitempty" yaml:"constraint,omitempty"`

	// Extensions maps extension URL to its slot definition. The converter
	// never fills it (extension slices stay in the `extension` element's
	// Slicing); it is set only when a schema document carries it.
	Extensions map[string]*ExtensionSlot `json:"extensions,omitempty" yaml:"extensions,omitempty"`
}

// ExtensionSlot records an extension slice's occurrence bounds, keyed by the
// extension's canonical URL rather than its slice name.
type ExtensionSlot struct {
	Min    int      `json:"min" yaml:"min"`
	Max    *int     `json:"max,omitempty" yaml:"max,omitempty"` // nil = unbounded
	Schema *Element `json:"schema,omitempty" yaml:"schema,omitempty"`
}

// Constraint is a single named invariant expression.
type Constraint struct {
	Expression string `json:"expression" yaml:"expression"`
	Severity   string `json:"severity" yaml:"severity"` // error | warning
	Human      string `json:"human,omitempty" yaml:"human,omitempty"`
}

// Equal compares two schemas by canonical URL, per §4.1 ("equality by
// canonical URL").
func (s *Schema) Equal(other *Schema) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.URL == other.URL
}

// Validate checks the class-derivation invariant and the "Element either has
// exactly one of type/refers/elementReference/choiceOf" invariant across the
// whole element tree. It does not mutate the schema.
func (s *Schema) Validate() error {
	want := DeriveClass(s.Kind, s.Derivation, s.Type)
	if s.Class != want {
		return fmt.Errorf("schema %s: class %q does not match derived class %q for kind=%q derivation=%q type=%q",
			s.URL, s.Class, want, s.Kind, s.Derivation, s.Type)
	}
	for name, el := range s.Elements {
		if err := el.validate(name); err != nil {
			return fmt.Errorf("schema %s: %w", s.URL, err)
		}
	}
	return nil
}

// MarshalJSON and UnmarshalJSON are the default struct-tag-driven encodings;
// they are declared explicitly here only so the round-trip invariant (§8) is
// documented at the type that owns it — the FS wire format is exactly the
// JSON tags above, no hidden fields.
func (s *Schema) MarshalJSON() ([]byte, error) {
	type alias Schema
	return json.Marshal((*alias)(s))
}

func (s *Schema) UnmarshalJSON(data []byte) error {
	type alias Schema
	return json.Unmarshal(data, (*alias)(s))
}

// MarshalYAML/UnmarshalYAML encode through goccy/go-yaml using the `yaml`
// tags above, which mirror the `json` tags one for one, so both encodings
// carry the same field set for the dual-encoding round trip §6 requires.
func (s *Schema) MarshalYAML() ([]byte, error) {
	type alias Schema
	return yaml.Marshal((*alias)(s))
}

func (s *Schema) UnmarshalYAML(data []byte) error {
	type alias Schema
	return yaml.Unmarshal(data, (*alias)(s))
}
