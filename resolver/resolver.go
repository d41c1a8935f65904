// Package resolver implements the process-wide schema registry: a
// lock-protected URL→Schema map plus a type-name index, per §4.4.
package resolver

import (
	"sync"

	"github.com/fhirschema/core/schema"
)

// Resolver is the trait-like interface the validator and converter depend on
// (§6 "Resolver integration contract"). Implementations may back onto
// memory, disk, or network stores.
type Resolver interface {
	Resolve(url string) (*schema.Schema, bool)
	Put(s *schema.Schema) error
}

// Registry is the in-memory Resolver: a sync.RWMutex-guarded map from
// canonical URL to Schema plus a type-name index. Reads never block reads;
// writes (Put) are exclusive. Grounded on pkg/registry.Registry's locking
// discipline, narrowed to the two operations §4.4 names.
type Registry struct {
	mu     sync.RWMutex
	byURL  map[string]*schema.Schema
	byType map[string]*schema.Schema
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		byURL:  make(map[string]*schema.Schema),
		byType: make(map[string]*schema.Schema),
	}
}

// Resolve looks up a schema by its canonical URL.
func (r *Registry) Resolve(url string) (*schema.Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byURL[url]
	return s, ok
}

// ResolveType looks up the schema whose Type equals name and whose Class is
// "resource" or "type" — the base-type lookup §4.4 describes (e.g.
// resolving "Patient" to its canonical resource schema, not a profile of it).
func (r *Registry) ResolveType(name string) (*schema.Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byType[name]
	return s, ok
}

// Put inserts a schema under its canonical URL and, if it is a base resource
// or type (not a profile), under its type name. Put is idempotent: inserting
// a schema equal (by URL) to the one already stored is a no-op.
func (r *Registry) Put(s *schema.Schema) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byURL[s.URL]; ok && existing.Equal(s) {
		return nil
	}

	r.byURL[s.URL] = s

	if s.Class == schema.ClassResource || s.Class == schema.ClassType {
		if _, exists := r.byType[s.Type]; !exists {
			r.byType[s.Type] = s
		}
	}
	return nil
}

// Count returns the number of schemas indexed by URL.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byURL)
}

// AllURLs returns every registered canonical URL.
func (r *Registry) AllURLs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	urls := make([]string, 0, len(r.byURL))
	for url := range r.byURL {
		urls = append(urls, url)
	}
	return urls
}

// Ancestors returns the transitive chain of base schemas for s, starting
// with s.Base's schema, deduplicated and cycle-safe by URL (§9 "cyclic
// schema references").
func (r *Registry) Ancestors(s *schema.Schema) []*schema.Schema {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*schema.Schema
	seen := map[string]bool{s.URL: true}
	cur := s
	for cur.Base != "" {
		if seen[cur.Base] {
			break
		}
		seen[cur.Base] = true
		next, ok := r.byURL[cur.Base]
		if !ok {
			break
		}
		out = append(out, next)
		cur = next
	}
	return out
}
