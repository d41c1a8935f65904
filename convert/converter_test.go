package convert

import (
	"testing"

	"github.com/fhirschema/core/schema"
)

func intPtr(n int) *int { return &n }

func elementList(eds ...ElementDefinition) *ElementList {
	return &ElementList{Element: eds}
}

func ed(path string, min int, max string) ElementDefinition {
	m := min
	return ElementDefinition{Path: path, Min: &m, Max: max}
}

func TestConvert_BasicElements(t *testing.T) {
	sd := &StructureDefinition{
		URL: "https://example.org/Patient", Name: "Patient", Type: "Patient",
		Kind: "resource", Derivation: "specialization",
		Differential: elementList(
			ed("Patient", 0, "*"),
			ed("Patient.active", 0, "1"),
			ed("Patient.name", 0, "*"),
			ed("Patient.name.family", 0, "1"),
			ed("Patient.name.given", 0, "*"),
		),
	}

	s, err := New().Convert(sd)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if s.Class != schema.ClassResource {
		t.Fatalf("Class = %q", s.Class)
	}

	name, ok := s.Elements["name"]
	if !ok {
		t.Fatalf("missing name element")
	}
	if !name.Array {
		t.Errorf("name.Array = false, want true")
	}
	family, ok := name.Elements["family"]
	if !ok || family.Max == nil || *family.Max != 1 {
		t.Errorf("name.family = %+v", family)
	}
	given, ok := name.Elements["given"]
	if !ok || !given.Array {
		t.Errorf("name.given = %+v", given)
	}
}

func TestConvert_ChoiceExpansion(t *testing.T) {
	deceased := ElementDefinition{
		Path: "Patient.deceased[x]",
		Type: []TypeRef{{Code: "boolean"}, {Code: "dateTime"}},
	}
	sd := &StructureDefinition{
		URL: "https://example.org/Patient", Name: "Patient", Type: "Patient",
		Kind: "resource", Derivation: "specialization",
		Differential: elementList(ed("Patient", 0, "*"), deceased),
	}

	s, err := New().Convert(sd)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	base, ok := s.Elements["deceased[x]"]
	if !ok {
		t.Fatalf("missing deceased[x] base element")
	}
	if !base.IsChoiceBase() {
		t.Errorf("deceased[x] is not a choice base")
	}
	wantChoices := []string{"deceasedBoolean", "deceasedDateTime"}
	if len(base.Choices) != 2 || base.Choices[0] != wantChoices[0] || base.Choices[1] != wantChoices[1] {
		t.Errorf("Choices = %v, want %v", base.Choices, wantChoices)
	}

	boolVariant, ok := s.Elements["deceasedBoolean"]
	if !ok || boolVariant.ChoiceOf != "deceased[x]" || boolVariant.Type != "boolean" {
		t.Errorf("deceasedBoolean = %+v", boolVariant)
	}
	dtVariant, ok := s.Elements["deceasedDateTime"]
	if !ok || dtVariant.ChoiceOf != "deceased[x]" || dtVariant.Type != "dateTime" {
		t.Errorf("deceasedDateTime = %+v", dtVariant)
	}
}

func TestConvert_Slicing(t *testing.T) {
	slicingDecl := ed("Patient.identifier", 0, "*")
	slicingDecl.Slicing = &SlicingDef{
		Discriminator: []DiscriminatorDef{{Type: "value", Path: "system"}},
		Rules:         "open",
	}
	mrn := ElementDefinition{Path: "Patient.identifier", SliceName: "MRN", Min: intPtr(0), Max: "1"}
	mrnSystem := ed("Patient.identifier.system", 1, "1")

	sd := &StructureDefinition{
		URL: "https://example.org/Patient", Name: "Patient", Type: "Patient",
		Kind: "resource", Derivation: "specialization",
		Differential: elementList(
			ed("Patient", 0, "*"),
			slicingDecl,
			mrn,
			mrnSystem,
		),
	}

	s, err := New().Convert(sd)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	identifier, ok := s.Elements["identifier"]
	if !ok {
		t.Fatalf("missing identifier element")
	}
	if identifier.Slicing == nil {
		t.Fatalf("identifier.Slicing is nil")
	}
	if identifier.Slicing.Rules != schema.RulesOpen {
		t.Errorf("Rules = %q", identifier.Slicing.Rules)
	}
	mrnSlice, ok := identifier.Slicing.Slices["MRN"]
	if !ok {
		t.Fatalf("missing MRN slice")
	}
	if mrnSlice.Schema == nil {
		t.Fatalf("MRN slice schema is nil")
	}
	if _, ok := mrnSlice.Schema.Elements["system"]; !ok {
		t.Errorf("MRN slice missing system child: %+v", mrnSlice.Schema.Elements)
	}
}

func TestConvert_StackBalance(t *testing.T) {
	sd := &StructureDefinition{
		URL: "https://example.org/Patient", Name: "Patient", Type: "Patient",
		Kind: "resource", Derivation: "specialization",
		Differential: elementList(
			ed("Patient", 0, "*"),
			ed("Patient.contact", 0, "*"),
			ed("Patient.contact.name", 0, "1"),
			ed("Patient.contact.name.family", 0, "1"),
			ed("Patient.active", 0, "1"),
		),
	}
	s, err := New().Convert(sd)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if _, ok := s.Elements["active"]; !ok {
		t.Errorf("active element lost after returning from a nested backbone")
	}
	contact := s.Elements["contact"]
	if contact == nil || contact.Elements["name"] == nil || contact.Elements["name"].Elements["family"] == nil {
		t.Errorf("contact.name.family not nested correctly: %+v", contact)
	}
}

func TestConvert_MalformedPath(t *testing.T) {
	sd := &StructureDefinition{
		URL: "https://example.org/Patient", Type: "Patient", Kind: "resource", Derivation: "specialization",
		Differential: elementList(ElementDefinition{Path: ""}),
	}
	_, err := New().Convert(sd)
	var convErr *ConvertError
	if err == nil {
		t.Fatal("expected error")
	}
	if !asConvertError(err, &convErr) || convErr.Err != ErrMalformedPath {
		t.Errorf("err = %v, want ErrMalformedPath", err)
	}
}

func TestConvert_InvalidCardinality(t *testing.T) {
	sd := &StructureDefinition{
		URL: "https://example.org/Patient", Type: "Patient", Kind: "resource", Derivation: "specialization",
		Differential: elementList(ed("Patient", 0, "*"), ed("Patient.active", 2, "1")),
	}
	_, err := New().Convert(sd)
	var convErr *ConvertError
	if err == nil {
		t.Fatal("expected error")
	}
	if !asConvertError(err, &convErr) || convErr.Err != ErrInvalidCardinality {
		t.Errorf("err = %v, want ErrInvalidCardinality", err)
	}
}

// A non-choice element ("value", not "value[x]") declaring more than one
// type is invalid FHIR, but the converter tolerates it by taking the first
// declared type rather than failing the whole conversion.
func TestConvert_MultiTypeNonChoiceTakesFirstType(t *testing.T) {
	min := 0
	valueElement := ElementDefinition{
		Path: "Patient.value", Min: &min, Max: "1",
		Type: []TypeRef{{Code: "string"}, {Code: "integer"}},
	}
	sd := &StructureDefinition{
		URL: "https://example.org/Patient", Type: "Patient", Kind: "resource", Derivation: "specialization",
		Differential: elementList(ed("Patient", 0, "*"), valueElement),
	}

	s, err := New().Convert(sd)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}

	value, ok := s.Elements["value"]
	if !ok {
		t.Fatalf("missing value element")
	}
	if value.Type != "string" {
		t.Errorf("value.Type = %q, want %q (first declared type)", value.Type, "string")
	}
}

func TestConvert_UnresolvedChoice(t *testing.T) {
	sd := &StructureDefinition{
		URL: "https://example.org/Patient", Type: "Patient", Kind: "resource", Derivation: "specialization",
		Differential: elementList(ed("Patient", 0, "*"), ElementDefinition{Path: "Patient.value[x]"}),
	}
	_, err := New().Convert(sd)
	var convErr *ConvertError
	if err == nil {
		t.Fatal("expected error")
	}
	if !asConvertError(err, &convErr) || convErr.Err != ErrUnresolvedChoice {
		t.Errorf("err = %v, want ErrUnresolvedChoice", err)
	}
}

func TestConvert_PrimitiveTypeHeaderOnly(t *testing.T) {
	sd := &StructureDefinition{
		URL: "https://example.org/string", Name: "string", Type: "string",
		Kind: "primitive-type", Derivation: "specialization",
	}
	s, err := New().Convert(sd)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if s.Elements != nil {
		t.Errorf("primitive-type schema should have nil Elements, got %v", s.Elements)
	}
	if s.Class != schema.ClassType {
		t.Errorf("Class = %q", s.Class)
	}
}

func asConvertError(err error, target **ConvertError) bool {
	ce, ok := err.(*ConvertError)
	if !ok {
		return false
	}
	*target = ce
	return true
}
