package schema

import (
	"encoding/json"
	"testing"
)

func TestDeriveClass(t *testing.T) {
	tests := []struct {
		kind       Kind
		derivation Derivation
		typeName   string
		want       Class
	}{
		{KindResource, DerivationConstraint, "Patient", ClassProfile},
		{KindResource, DerivationSpecialization, "Patient", ClassResource},
		{KindComplexType, DerivationSpecialization, "Extension", ClassExtension},
		{KindPrimitiveType, DerivationSpecialization, "Extension", ClassExtension},
		{KindComplexType, DerivationSpecialization, "HumanName", ClassType},
		{KindPrimitiveType, DerivationSpecialization, "boolean", ClassType},
		{KindLogical, DerivationSpecialization, "MyLogical", ClassLogical},
	}

	for _, tt := range tests {
		if got := DeriveClass(tt.kind, tt.derivation, tt.typeName); got != tt.want {
			t.Errorf("DeriveClass(%s,%s,%s) = %s; want %s", tt.kind, tt.derivation, tt.typeName, got, tt.want)
		}
	}
}

func TestSchema_Validate_ClassMismatch(t *testing.T) {
	s := &Schema{
		URL: "https://example.org/Patient", Type: "Patient",
		Kind: KindResource, Derivation: DerivationSpecialization, Class: ClassProfile,
	}
	if err := s.Validate(); err == nil {
		t.Error("expected class mismatch error")
	}
}

func TestSchema_Equal(t *testing.T) {
	a := &Schema{URL: "https://example.org/Patient"}
	b := &Schema{URL: "https://example.org/Patient", Name: "different"}
	c := &Schema{URL: "https://example.org/Observation"}

	if !a.Equal(b) {
		t.Error("expected equal by URL despite differing Name")
	}
	if a.Equal(c) {
		t.Error("expected not equal for differing URL")
	}
}

func TestSchema_RoundTripJSON(t *testing.T) {
	maxOne := 1
	s := &Schema{
		URL: "https://example.org/Patient", Name: "Patient", Type: "Patient",
		Kind: KindResource, Derivation: DerivationSpecialization, Class: ClassResource,
		Elements: map[string]*Element{
			"active": {Type: "boolean", Max: &maxOne},
		},
		Required: []string{"active"},
	}

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var s2 Schema
	if err := json.Unmarshal(data, &s2); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if s2.URL != s.URL || s2.Required[0] != "active" {
		t.Errorf("round trip mismatch: %+v", s2)
	}
	if s2.Elements["active"] == nil || s2.Elements["active"].Type != "boolean" {
		t.Errorf("round trip lost nested element: %+v", s2.Elements)
	}
}

func TestSchema_EmptyElementsNotNil(t *testing.T) {
	s := &Schema{
		URL: "https://example.org/code", Type: "code",
		Kind: KindPrimitiveType, Derivation: DerivationSpecialization, Class: ClassType,
		Elements: map[string]*Element{},
	}
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var s2 Schema
	if err := json.Unmarshal(data, &s2); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if s2.Elements == nil {
		t.Error("expected non-nil empty elements map to survive round trip")
	}
}

func TestElement_ChoiceInvariant(t *testing.T) {
	el := &Element{Type: "boolean", ChoiceOf: "deceased[x]"}
	if err := el.validate("deceasedBoolean"); err == nil {
		t.Error("expected error: Type and ChoiceOf both set")
	}

	base := &Element{Choices: []string{"deceasedBoolean", "deceasedDateTime"}}
	if err := base.validate("deceased[x]"); err != nil {
		t.Errorf("choice base element should validate cleanly: %v", err)
	}
}
