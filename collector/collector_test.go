package collector

import (
	"testing"

	"github.com/fhirschema/core/resolver"
	"github.com/fhirschema/core/schema"
)

func newReg() *resolver.Registry {
	r := resolver.New()
	r.Put(&schema.Schema{
		URL: "https://example.org/Patient", Name: "Patient", Type: "Patient",
		Kind: schema.KindResource, Derivation: schema.DerivationSpecialization, Class: schema.ClassResource,
	})
	r.Put(&schema.Schema{
		URL: "https://example.org/USCorePatient", Type: "Patient",
		Kind: schema.KindResource, Derivation: schema.DerivationConstraint, Class: schema.ClassProfile,
		Base: "https://example.org/Patient",
	})
	r.Put(&schema.Schema{
		URL: "https://example.org/HumanName", Name: "HumanName", Type: "HumanName",
		Kind: schema.KindComplexType, Derivation: schema.DerivationSpecialization, Class: schema.ClassType,
	})
	return r
}

func TestCollect_ByURL(t *testing.T) {
	reg := newReg()
	set, issues := Collect(map[string]any{}, []string{"https://example.org/Patient"}, reg)
	if len(issues) != 0 {
		t.Fatalf("issues = %v", issues)
	}
	if len(set.Schemas()) != 1 {
		t.Fatalf("Schemas() = %v", set.Schemas())
	}
}

func TestCollect_ByResourceType(t *testing.T) {
	reg := newReg()
	value := map[string]any{"resourceType": "Patient"}
	set, issues := Collect(value, nil, reg)
	if len(issues) != 0 {
		t.Fatalf("issues = %v", issues)
	}
	if len(set.Schemas()) != 1 || set.Schemas()[0].Type != "Patient" {
		t.Fatalf("Schemas() = %v", set.Schemas())
	}
}

func TestCollect_UnresolvedURL(t *testing.T) {
	reg := newReg()
	_, issues := Collect(map[string]any{}, []string{"https://example.org/Missing"}, reg)
	if len(issues) != 1 || issues[0].Code != "unknown-schema" {
		t.Fatalf("issues = %v", issues)
	}
}

func TestCollect_MetaProfileAndAncestors(t *testing.T) {
	reg := newReg()
	value := map[string]any{
		"meta": map[string]any{"profile": []any{"https://example.org/USCorePatient"}},
	}
	set, issues := Collect(value, nil, reg)
	if len(issues) != 0 {
		t.Fatalf("issues = %v", issues)
	}
	urls := make(map[string]bool)
	for _, s := range set.Schemas() {
		urls[s.URL] = true
	}
	if !urls["https://example.org/USCorePatient"] || !urls["https://example.org/Patient"] {
		t.Errorf("expected profile + ancestor, got %v", set.Schemas())
	}
}

func TestForElements_ResolvesComplexType(t *testing.T) {
	reg := newReg()
	elements := []*schema.Element{{Type: "HumanName"}, {Type: "string"}}
	set, issues := ForElements(elements, reg)
	if len(issues) != 0 {
		t.Fatalf("issues = %v", issues)
	}
	if len(set.Schemas()) != 1 || set.Schemas()[0].Type != "HumanName" {
		t.Fatalf("Schemas() = %v", set.Schemas())
	}
}

func TestForElements_UnknownComplexType(t *testing.T) {
	reg := newReg()
	elements := []*schema.Element{{Type: "UnknownThing"}}
	_, issues := ForElements(elements, reg)
	if len(issues) != 1 || issues[0].Code != "unknown-schema" {
		t.Fatalf("issues = %v", issues)
	}
}
