package validate

import (
	"encoding/json"
	"reflect"
)

// deepEqual reports whether actual and expected are JSON-equal, used for
// fixed[x] comparisons where the standard's value must match exactly.
// Grounded on pkg/fixedpattern/compare.go's DeepEqual, adapted to compare
// decoded Go values directly instead of round-tripping through
// json.RawMessage first.
func deepEqual(actual, expected any) bool {
	if actual == nil && expected == nil {
		return true
	}
	if actual == nil || expected == nil {
		return false
	}
	return reflect.DeepEqual(normalizeJSON(actual), normalizeJSON(expected))
}

// containsPattern reports whether actual structurally subsumes pattern: every
// object field the pattern names must be present in actual with an equal or
// matching value, and every array item the pattern lists must be found
// somewhere in actual.
func containsPattern(actual, pattern any) bool {
	if pattern == nil {
		return true
	}
	if actual == nil {
		return false
	}
	return matchRecursive(normalizeJSON(actual), normalizeJSON(pattern))
}

func matchRecursive(actual, pattern any) bool {
	switch p := pattern.(type) {
	case map[string]any:
		a, ok := actual.(map[string]any)
		if !ok {
			return false
		}
		for key, pval := range p {
			aval, exists := a[key]
			if !exists {
				return false
			}
			if !matchRecursive(aval, pval) {
				return false
			}
		}
		return true

	case []any:
		a, ok := actual.([]any)
		if !ok {
			return false
		}
		for _, pitem := range p {
			found := false
			for _, aitem := range a {
				if matchRecursive(aitem, pitem) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
		return true

	default:
		return reflect.DeepEqual(actual, pattern)
	}
}

// normalizeJSON round-trips v through JSON so numeric types compare uniformly
// (a Go int and a decoded float64 must be treated as the same JSON number).
func normalizeJSON(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}
	return out
}
