// Package elementpath parses and manipulates the dotted element paths used
// throughout conversion and validation: "Patient.contact.name.given" style
// sequences, with choice-type ("[x]") detection and expansion.
package elementpath

import "strings"

// ChoiceSuffix is the literal token marking a choice-type path component.
const ChoiceSuffix = "[x]"

// Path is a parsed, type-prefix-stripped sequence of path components.
type Path struct {
	Components []string
}

// Parse splits a dotted path into components, stripping the leading type
// prefix (the schema's declared type, e.g. "Patient" in "Patient.name.given").
// "Patient" alone parses to an empty Path — the root has no components.
func Parse(path string) Path {
	parts := strings.Split(path, ".")
	if len(parts) <= 1 {
		return Path{}
	}
	return Path{Components: parts[1:]}
}

// String renders the path back to dotted form without a type prefix.
func (p Path) String() string {
	return strings.Join(p.Components, ".")
}

// Len returns the number of components.
func (p Path) Len() int {
	return len(p.Components)
}

// IsChoice reports whether the path's last component ends with "[x]".
func (p Path) IsChoice() bool {
	if len(p.Components) == 0 {
		return false
	}
	return IsChoiceComponent(p.Components[len(p.Components)-1])
}

// IsChoiceComponent reports whether a single path component is a choice-type
// placeholder, e.g. "value[x]".
func IsChoiceComponent(component string) bool {
	return strings.HasSuffix(component, ChoiceSuffix)
}

// BaseName strips the "[x]" suffix from a choice component, e.g.
// "value[x]" -> "value".
func BaseName(choiceComponent string) string {
	return strings.TrimSuffix(choiceComponent, ChoiceSuffix)
}

// ExpandChoice computes the expanded sibling element names for a choice
// component given its declared type codes, per §4.2: base "value[x]" with
// types [boolean, dateTime] expands to ["valueBoolean", "valueDateTime"].
func ExpandChoice(choiceComponent string, typeCodes []string) []string {
	base := BaseName(choiceComponent)
	names := make([]string, len(typeCodes))
	for i, code := range typeCodes {
		names[i] = base + capitalize(code)
	}
	return names
}

// capitalize upper-cases the first rune of a FHIR type code, e.g.
// "dateTime" -> "DateTime", "boolean" -> "Boolean".
func capitalize(s string) string {
	if s == "" {
		return s
	}
	b := []byte(s)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] = b[0] - ('a' - 'A')
	}
	return string(b)
}

// CommonPrefix returns the longest sequence of components common to both
// paths, compared position by position from the root.
func CommonPrefix(a, b Path) Path {
	n := a.Len()
	if b.Len() < n {
		n = b.Len()
	}
	i := 0
	for i < n && a.Components[i] == b.Components[i] {
		i++
	}
	return Path{Components: append([]string(nil), a.Components[:i]...)}
}

// SliceSuffix splits a component of the form "foo:sliceName" into its base
// name and slice name. ok is false when the component carries no slice
// suffix.
func SliceSuffix(component string) (base, slice string, ok bool) {
	idx := strings.IndexByte(component, ':')
	if idx < 0 {
		return component, "", false
	}
	return component[:idx], component[idx+1:], true
}

// WithSlice reattaches a slice suffix to a base component name.
func WithSlice(base, slice string) string {
	if slice == "" {
		return base
	}
	return base + ":" + slice
}
