// Package collector computes the applicable schema set for a value (§4.5):
// the union of schemas whose rules apply to that value, discovered from the
// caller-provided URLs plus whatever the value itself declares.
package collector

import (
	"fmt"

	"github.com/fhirschema/core/issue"
	"github.com/fhirschema/core/resolver"
	"github.com/fhirschema/core/schema"
)

// TypeResolver is what the collector needs beyond the minimal Resolver
// trait (§6): type-name lookup, used to resolve a `resourceType` value and
// an Element's declared `type` to the schema describing it.
type TypeResolver interface {
	resolver.Resolver
	ResolveType(name string) (*schema.Schema, bool)
}

// Set is a deduplicated, ordered applicable schema set.
type Set struct {
	schemas []*schema.Schema
	seen    map[string]bool
}

// NewSet creates an empty Set.
func NewSet() *Set {
	return &Set{seen: make(map[string]bool)}
}

// Add inserts s (and its base ancestors) into the set if not already present,
// by canonical URL, per §4.5 "deduplication by URL... cycles terminate once
// a URL is seen".
func (s *Set) Add(sch *schema.Schema, reg resolver.Resolver) {
	if sch == nil || s.seen[sch.URL] {
		return
	}
	s.seen[sch.URL] = true
	s.schemas = append(s.schemas, sch)

	if registry, ok := reg.(interface {
		Ancestors(*schema.Schema) []*schema.Schema
	}); ok {
		for _, ancestor := range registry.Ancestors(sch) {
			s.Add(ancestor, reg)
		}
		return
	}

	// Fallback for a Resolver that isn't *resolver.Registry: walk Base
	// manually, still cycle-safe via s.seen.
	cur := sch
	for cur.Base != "" && !s.seen[cur.Base] {
		base, ok := reg.Resolve(cur.Base)
		if !ok {
			break
		}
		s.seen[cur.Base] = true
		s.schemas = append(s.schemas, base)
		cur = base
	}
}

// Schemas returns the accumulated schemas in discovery order.
func (s *Set) Schemas() []*schema.Schema {
	return s.schemas
}

// Collect computes the applicable schema set for a top-level value given
// the caller's initial schema URLs, per §4.5 steps 1-3 and 5. It resolves
// the caller's URLs, the value's own `resourceType`, its `meta.profile`
// list, and (when the value is itself an extension slot occurrence) its
// `url` field. Unresolved URLs produce UnknownSchema issues but never abort.
func Collect(value any, urls []string, reg TypeResolver) (*Set, []issue.Issue) {
	set := NewSet()
	var issues []issue.Issue

	for _, url := range urls {
		s, ok := reg.Resolve(url)
		if !ok {
			issues = append(issues, issue.AsError(issue.UnknownSchema).
				Message(fmt.Sprintf("schema %q could not be resolved", url)).Build())
			continue
		}
		set.Add(s, reg)
	}

	obj, ok := value.(map[string]any)
	if !ok {
		return set, issues
	}

	if rt, ok := obj["resourceType"].(string); ok && rt != "" {
		if s, ok := reg.ResolveType(rt); ok {
			set.Add(s, reg)
		} else {
			issues = append(issues, issue.AsError(issue.UnknownSchema).
				Message(fmt.Sprintf("resourceType %q could not be resolved", rt)).Build())
		}
	}

	if meta, ok := obj["meta"].(map[string]any); ok {
		if profiles, ok := meta["profile"].([]any); ok {
			for _, p := range profiles {
				url, ok := p.(string)
				if !ok || url == "" {
					continue
				}
				if s, ok := reg.Resolve(url); ok {
					set.Add(s, reg)
				} else {
					issues = append(issues, issue.AsError(issue.UnknownSchema).
						Message(fmt.Sprintf("profile %q could not be resolved", url)).Build())
				}
			}
		}
	}

	if url, ok := obj["url"].(string); ok && url != "" {
		if s, ok := reg.Resolve(url); ok {
			set.Add(s, reg)
		}
		// A bare extension "url" with no matching registered definition is
		// not an error by itself — not every extension need be registered.
	}

	return set, issues
}

// ForElements resolves the schemas backing the declared `type` of a set of
// combined Element definitions for one property, widening the applicable
// set for that property's descent (§4.5 step 4, §4.6 step 8). Elements with
// no `type` (backbone elements, choice bases, element references) need no
// resolution — their structure already lives in the enclosing schema.
func ForElements(elements []*schema.Element, reg TypeResolver) (*Set, []issue.Issue) {
	set := NewSet()
	var issues []issue.Issue
	seenTypes := make(map[string]bool)

	for _, el := range elements {
		if el == nil || el.Type == "" || seenTypes[el.Type] {
			continue
		}
		seenTypes[el.Type] = true

		s, ok := reg.ResolveType(el.Type)
		if !ok {
			// Primitive types (string, boolean, ...) are validated by the
			// primitive format table, not a resolved schema; only report
			// complex-looking type names (capitalized) as unresolved.
			if len(el.Type) > 0 && el.Type[0] >= 'A' && el.Type[0] <= 'Z' {
				issues = append(issues, issue.AsError(issue.UnknownSchema).
					Message(fmt.Sprintf("type %q could not be resolved", el.Type)).Build())
			}
			continue
		}
		set.Add(s, reg)
	}

	return set, issues
}
