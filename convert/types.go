package convert

import (
	"encoding/json"
	"strconv"
	"strings"
)

// StructureDefinition is the converter's input document: a minimal view of
// an SD carrying just what §6 requires. Grounded on
// pkg/registry.StructureDefinition, generalized to prefer a differential
// over a snapshot (§4.3: "the ordered differential element list") and to
// accept either encoding via the shared raw-JSON path.
type StructureDefinition struct {
	ResourceType   string `json:"resourceType"`
	URL            string `json:"url"`
	Name           string `json:"name"`
	Version        string `json:"version"`
	Description    string `json:"description"`
	Type           string `json:"type"`
	Kind           string `json:"kind"`
	Derivation     string `json:"derivation"`
	BaseDefinition string `json:"baseDefinition"`
	Abstract       bool   `json:"abstract"`

	Differential *ElementList `json:"differential,omitempty"`
	Snapshot     *ElementList `json:"snapshot,omitempty"`
}

// ElementList holds the element array from either differential or snapshot.
type ElementList struct {
	Element []ElementDefinition `json:"element"`
}

// Elements returns the differential's elements, falling back to the
// snapshot's when no differential is present, per §6 ("differential...
// preferred, or snapshot").
func (sd *StructureDefinition) Elements() []ElementDefinition {
	if sd.Differential != nil && len(sd.Differential.Element) > 0 {
		return sd.Differential.Element
	}
	if sd.Snapshot != nil {
		return sd.Snapshot.Element
	}
	return nil
}

// TypeRef is one entry in an ElementDefinition's `type` array.
type TypeRef struct {
	Code          string   `json:"code"`
	Profile       []string `json:"profile,omitempty"`
	TargetProfile []string `json:"targetProfile,omitempty"`
}

// BindingDef is an ElementDefinition's terminology binding.
type BindingDef struct {
	Strength string `json:"strength"`
	ValueSet string `json:"valueSet"`
}

// ConstraintDef is one entry in an ElementDefinition's `constraint` array.
type ConstraintDef struct {
	Key        string `json:"key"`
	Severity   string `json:"severity"`
	Human      string `json:"human"`
	Expression string `json:"expression"`
}

// DiscriminatorDef is one entry in a SlicingDef's discriminator list.
type DiscriminatorDef struct {
	Type string `json:"type"`
	Path string `json:"path"`
}

// SlicingDef is an ElementDefinition's slicing declaration.
type SlicingDef struct {
	Discriminator []DiscriminatorDef `json:"discriminator,omitempty"`
	Rules         string             `json:"rules"`
	Ordered       bool               `json:"ordered,omitempty"`
}

// ElementDefinition is one entry in a differential or snapshot element list.
// Known fields are typed; fixed[x]/pattern[x] are extracted dynamically from
// a retained raw copy rather than enumerated, the same technique
// pkg/registry.ElementDefinition uses to support all of the standard's
// polymorphic element names without a 45-branch type switch.
type ElementDefinition struct {
	Path             string          `json:"path"`
	SliceName        string          `json:"sliceName,omitempty"`
	Min              *int            `json:"min,omitempty"`
	Max              string          `json:"max,omitempty"`
	Type             []TypeRef       `json:"type,omitempty"`
	Binding          *BindingDef     `json:"binding,omitempty"`
	Constraint       []ConstraintDef `json:"constraint,omitempty"`
	Slicing          *SlicingDef     `json:"slicing,omitempty"`
	ContentReference string          `json:"contentReference,omitempty"`
	MustSupport      bool            `json:"mustSupport,omitempty"`
	IsModifier       bool            `json:"isModifier,omitempty"`
	IsSummary        bool            `json:"isSummary,omitempty"`

	raw json.RawMessage
}

// UnmarshalJSON retains the raw bytes alongside the typed decode so
// GetFixed/GetPattern can recover fixed[x]/pattern[x] afterward.
func (ed *ElementDefinition) UnmarshalJSON(data []byte) error {
	type alias ElementDefinition
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	a.raw = append(json.RawMessage(nil), data...)
	*ed = ElementDefinition(a)
	return nil
}

// GetFixed extracts a fixed[x] value and its type suffix from the retained
// raw JSON, e.g. {"fixedBoolean": true} -> (RawMessage(true), "Boolean", true).
func (ed *ElementDefinition) GetFixed() (value json.RawMessage, typeSuffix string, exists bool) {
	return extractPrefixedValue(ed.raw, "fixed")
}

// GetPattern extracts a pattern[x] value and its type suffix.
func (ed *ElementDefinition) GetPattern() (value json.RawMessage, typeSuffix string, exists bool) {
	return extractPrefixedValue(ed.raw, "pattern")
}

func extractPrefixedValue(raw json.RawMessage, prefix string) (json.RawMessage, string, bool) {
	if raw == nil {
		return nil, "", false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, "", false
	}
	for key, value := range obj {
		if strings.HasPrefix(key, prefix) && key != prefix {
			return value, strings.TrimPrefix(key, prefix), true
		}
	}
	return nil, "", false
}

// MaxValue parses the ElementDefinition's Max field, returning (value,
// unbounded, ok). Max is "*" for unbounded, else a non-negative integer.
func (ed *ElementDefinition) MaxValue() (value int, unbounded bool, ok bool) {
	if ed.Max == "" {
		return 0, false, false
	}
	if ed.Max == "*" {
		return 0, true, true
	}
	n, err := strconv.Atoi(ed.Max)
	if err != nil || n < 0 {
		return 0, false, false
	}
	return n, false, true
}

// MinValue returns the ElementDefinition's Min, defaulting to 0 when absent.
func (ed *ElementDefinition) MinValue() int {
	if ed.Min == nil {
		return 0
	}
	return *ed.Min
}
