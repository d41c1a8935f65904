package validate

import (
	"sort"
	"strconv"

	"github.com/fhirschema/core/issue"
	"github.com/fhirschema/core/pool"
	"github.com/fhirschema/core/schema"
)

// matchSlice reports whether item satisfies every discriminator slicing
// declares for sliceName's definition, per §4.7 step 2: a match is equality
// (value), structural subset (pattern), type-name equality (type), URL
// membership (profile), or presence equality (exists). All discriminators
// in the list must agree; the first slice whose discriminators all agree is
// the match (caller iterates slices in the lexical order of their names).
func matchSlice(item any, slicing *schema.Slicing, slice *schema.SliceSchema) bool {
	for _, d := range slicing.Discriminator {
		if !evaluateDiscriminator(item, d, slice) {
			return false
		}
	}
	return true
}

func evaluateDiscriminator(item any, d schema.Discriminator, slice *schema.SliceSchema) bool {
	switch d.Kind {
	case schema.DiscriminatorValue, schema.DiscriminatorPattern:
		return evaluateValueOrPattern(item, d.Path, slice)
	case schema.DiscriminatorType:
		return evaluateType(item, d.Path, slice)
	case schema.DiscriminatorProfile:
		return evaluateProfile(item, d.Path, slice)
	case schema.DiscriminatorExists:
		return evaluateExists(item, d.Path, slice)
	default:
		return true
	}
}

// evaluateValueOrPattern compares the item's value at d.Path against the
// precomputed match the converter resolved from the slice body's own
// fixed/pattern values (convert.deriveSliceMatch). Structural subset
// (containsPattern) covers both cases — a fixed value is a pattern with no
// further descendants to omit.
func evaluateValueOrPattern(item any, path string, slice *schema.SliceSchema) bool {
	actual := valueAtPath(item, path)
	if actual == nil {
		return false
	}
	for _, m := range slice.Match {
		if m.Path == path {
			return containsPattern(actual, m.Value)
		}
	}
	return false
}

func evaluateType(item any, path string, slice *schema.SliceSchema) bool {
	if slice.Schema == nil {
		return true
	}
	target := slice.Schema
	if path != "$this" {
		if child, ok := slice.Schema.Elements[path]; ok {
			target = child
		}
	}
	if target.Type == "" {
		return true
	}
	actualType := detectType(item, path)
	return actualType == "" || actualType == target.Type
}

func evaluateProfile(item any, path string, slice *schema.SliceSchema) bool {
	if slice.Schema == nil {
		return true
	}
	target := slice.Schema
	if path != "$this" {
		if child, ok := slice.Schema.Elements[path]; ok {
			target = child
		}
	}
	if len(target.Refers) == 0 {
		return true
	}
	declared := declaredProfiles(item, path)
	if len(declared) == 0 {
		return false
	}
	for _, d := range declared {
		for _, r := range target.Refers {
			if d == r {
				return true
			}
		}
	}
	return false
}

func evaluateExists(item any, path string, slice *schema.SliceSchema) bool {
	actualExists := valueAtPath(item, path) != nil
	expectedExists := true
	if slice.Schema != nil {
		if child, ok := slice.Schema.Elements[path]; ok {
			if child.Max != nil && *child.Max == 0 {
				expectedExists = false
			} else if child.Min >= 1 {
				expectedExists = true
			}
		}
	}
	return actualExists == expectedExists
}

// valueAtPath extracts a dotted field path from item, descending into
// nested objects. $this refers to item itself.
func valueAtPath(item any, path string) any {
	if path == "$this" || path == "" {
		return item
	}
	obj, ok := item.(map[string]any)
	if !ok {
		return nil
	}
	return obj[path]
}

// detectType infers the FHIR type name of the value at path within item:
// an explicit resourceType field, or a polymorphic field name suffix for
// choice elements (e.g. "valueQuantity" detected via the "value" base path).
func detectType(item any, path string) string {
	obj, ok := item.(map[string]any)
	if !ok {
		return ""
	}
	if path == "$this" {
		if rt, ok := obj["resourceType"].(string); ok {
			return rt
		}
		return ""
	}
	for key := range obj {
		if len(key) > len(path) && key[:len(path)] == path {
			suffix := key[len(path):]
			if suffix != "" && suffix[0] >= 'A' && suffix[0] <= 'Z' {
				return suffix
			}
		}
	}
	return ""
}

func declaredProfiles(item any, path string) []string {
	target := valueAtPath(item, path)
	obj, ok := target.(map[string]any)
	if !ok {
		return nil
	}
	if url, ok := obj["url"].(string); ok && url != "" {
		return []string{url}
	}
	meta, ok := obj["meta"].(map[string]any)
	if !ok {
		return nil
	}
	raw, ok := meta["profile"].([]any)
	if !ok {
		return nil
	}
	var profiles []string
	for _, p := range raw {
		if s, ok := p.(string); ok {
			profiles = append(profiles, s)
		}
	}
	return profiles
}

// validateSlicedArray runs §4.7 over one array property: matching each item
// to a slice, checking the slicing's closure rule and each slice's
// cardinality, the parent element's own cardinality across the whole array,
// then recursing into each item with its matched slice's schema folded in.
//
// Slices have no explicit declaration-order field on SliceSchema, so match
// order is the slice names sorted lexically — stable across runs, though not
// guaranteed to equal the original differential's declaration order.
func (v *Validator) validateSlicedArray(w *walkContext, arr []any, slicing *schema.Slicing, defs []*schema.Element, resource, rootResource any) {
	namesPtr := pool.AcquireStringSlice()
	defer pool.ReleaseStringSlice(namesPtr)
	names := *namesPtr
	for name := range slicing.Slices {
		names = append(names, name)
	}
	sort.Strings(names)
	*namesPtr = names

	matches := make([]string, len(arr))
	counts := make(map[string]int)
	lastMatchedIdx := -1

	for i, item := range arr {
		for _, name := range names {
			if matchSlice(item, slicing, slicing.Slices[name]) {
				matches[i] = name
				counts[name]++
				lastMatchedIdx = i
				break
			}
		}
	}

	for i, name := range matches {
		if name != "" {
			continue
		}
		unmatched := false
		switch slicing.Rules {
		case schema.RulesClosed:
			unmatched = true
		case schema.RulesOpenAtEnd:
			unmatched = i < lastMatchedIdx
		}
		if unmatched {
			w.descendIndexed(i, func() {
				w.result.Add(issue.AsError(issue.SlicingUnmatched).
					Message("array item matches no slice").At(w.currentPath()).Build())
			})
		}
	}

	for _, name := range names {
		slice := slicing.Slices[name]
		count := counts[name]
		if count < slice.Min || (slice.Max != nil && count > *slice.Max) {
			w.result.Add(issue.AsError(issue.SliceCardinality).
				Message("slice "+name+" occurs "+strconv.Itoa(count)+" times, outside its declared bounds").
				At(w.currentPath()).WithContext("slice", name).WithContext("count", count).Build())
		}
	}

	checkArrayCardinality(w, defs, len(arr))

	for i, item := range arr {
		itemDefs := defs
		if name := matches[i]; name != "" {
			if slice := slicing.Slices[name].Schema; slice != nil {
				itemDefs = append(append([]*schema.Element{}, defs...), slice)
			}
		}
		idx := i
		w.descendIndexed(idx, func() {
			v.validateAtLevel(w, item, itemDefs, resource, rootResource)
		})
	}
}
