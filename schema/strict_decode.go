package schema

import (
	"encoding/json"
	"fmt"

	"github.com/goccy/go-yaml"
)

// ErrUnknownKeyword is returned (wrapped with the offending key) when a
// schema document carries a field outside the declared field set.
type ErrUnknownKeyword struct {
	Key string
}

func (e *ErrUnknownKeyword) Error() string {
	return fmt.Sprintf("unknown-keyword: %q is not a declared field", e.Key)
}

// schemaFields and elementFields are the exact field sets §3 enumerates,
// keyed by wire name. Kept as sets rather than derived via reflection so the
// contract is visible at a glance and doesn't silently drift from struct tags.
var schemaFields = fieldSet(
	"url", "name", "type", "version", "description", "base",
	"kind", "class", "derivation", "abstract",
	"elements", "required", "excluded", "constraint", "extensions",
)

var elementFields = fieldSet(
	"array", "min", "max",
	"type", "refers", "elementReference", "choiceOf", "choices",
	"pattern", "binding", "constraint", "slicing",
	"mustSupport", "isModifier", "isSummary",
	"elements", "required", "excluded",
)

func fieldSet(names ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		m[n] = struct{}{}
	}
	return m
}

// DecodeStrictJSON parses a Schema from JSON, rejecting any key (at the
// schema level or within any nested Element) that isn't in the declared
// field set. This is the technique the converter's raw-retention decode
// uses in reverse: instead of keeping unknown keys for later dynamic
// extraction, strict mode rejects them outright, per §6's round-trip
// invariant ("Unknown fields MUST be rejected... during schema load").
func DecodeStrictJSON(data []byte) (*Schema, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if err := checkKeys(raw, schemaFields); err != nil {
		return nil, err
	}
	if elementsRaw, ok := raw["elements"]; ok {
		if err := checkElementMapKeys(elementsRaw); err != nil {
			return nil, err
		}
	}
	if extensionsRaw, ok := raw["extensions"]; ok {
		if err := checkExtensionsMapKeys(extensionsRaw); err != nil {
			return nil, err
		}
	}

	var s Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// DecodeStrictYAML mirrors DecodeStrictJSON for the YAML encoding, since §6
// allows either format for schema documents.
func DecodeStrictYAML(data []byte) (*Schema, error) {
	jsonData, err := yaml.YAMLToJSON(data)
	if err != nil {
		return nil, err
	}
	return DecodeStrictJSON(jsonData)
}

func checkKeys(raw map[string]json.RawMessage, allowed map[string]struct{}) error {
	for key := range raw {
		if _, ok := allowed[key]; !ok {
			return &ErrUnknownKeyword{Key: key}
		}
	}
	return nil
}

func checkElementMapKeys(data json.RawMessage) error {
	var elements map[string]json.RawMessage
	if err := json.Unmarshal(data, &elements); err != nil {
		return err
	}
	for name, elData := range elements {
		if err := checkElementKeys(elData); err != nil {
			return fmt.Errorf("element %q: %w", name, err)
		}
	}
	return nil
}

// checkElementKeys validates one Element body's own field set and recurses
// into every nested Element it can carry, so an UnknownKeyword buried in a
// slice's sub-schema or an extension slot's schema is caught the same as
// one at the top level.
func checkElementKeys(data json.RawMessage) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if err := checkKeys(raw, elementFields); err != nil {
		return err
	}
	if nested, ok := raw["elements"]; ok {
		if err := checkElementMapKeys(nested); err != nil {
			return err
		}
	}
	if slicingRaw, ok := raw["slicing"]; ok {
		if err := checkSlicingSliceKeys(slicingRaw); err != nil {
			return err
		}
	}
	return nil
}

// checkSlicingSliceKeys recurses into each declared slice's own Element
// sub-schema under slicing.slices[name].schema.
func checkSlicingSliceKeys(data json.RawMessage) error {
	var slicing struct {
		Slices map[string]json.RawMessage `json:"slices"`
	}
	if err := json.Unmarshal(data, &slicing); err != nil {
		return err
	}
	for name, sliceData := range slicing.Slices {
		var slice struct {
			Schema json.RawMessage `json:"schema"`
		}
		if err := json.Unmarshal(sliceData, &slice); err != nil {
			return err
		}
		if len(slice.Schema) == 0 {
			continue
		}
		if err := checkElementKeys(slice.Schema); err != nil {
			return fmt.Errorf("slice %q: %w", name, err)
		}
	}
	return nil
}

// checkExtensionsMapKeys recurses into the schema-level extensions map,
// each entry's Schema field being an Element subject to the same rules.
func checkExtensionsMapKeys(data json.RawMessage) error {
	var extensions map[string]json.RawMessage
	if err := json.Unmarshal(data, &extensions); err != nil {
		return err
	}
	for url, extData := range extensions {
		var ext struct {
			Schema json.RawMessage `json:"schema"`
		}
		if err := json.Unmarshal(extData, &ext); err != nil {
			return err
		}
		if len(ext.Schema) == 0 {
			continue
		}
		if err := checkElementKeys(ext.Schema); err != nil {
			return fmt.Errorf("extension %q: %w", url, err)
		}
	}
	return nil
}
