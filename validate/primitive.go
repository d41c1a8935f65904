package validate

import (
	"fmt"
	"regexp"
)

// jsonType classifies the JSON shape a primitive value is expected to take.
type jsonType int

const (
	jsonUnknown jsonType = iota
	jsonBoolean
	jsonNumber
	jsonString
)

// primitiveRegex holds one type's format rule, compiled once at init and
// anchored to match the whole string.
var primitiveRegex = map[string]*regexp.Regexp{
	"integer":      regexp.MustCompile(`^[+-]?[0-9]+$`),
	"positiveInt":  regexp.MustCompile(`^\+?[1-9][0-9]*$`),
	"unsignedInt":  regexp.MustCompile(`^\+?[0-9]+$`),
	"decimal":      regexp.MustCompile(`^-?(0|[1-9][0-9]*)(\.[0-9]+)?([eE][+-]?[0-9]+)?$`),
	"code":         regexp.MustCompile(`^[^\s]+( [^\s]+)*$`),
	"id":           regexp.MustCompile(`^[A-Za-z0-9\-.]{1,64}$`),
	"oid":          regexp.MustCompile(`^urn:oid:[0-2](\.(0|[1-9][0-9]*))+$`),
	"uuid":         regexp.MustCompile(`^urn:uuid:[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`),
	"date":         regexp.MustCompile(`^[0-9]{4}(-[0-9]{2}(-[0-9]{2})?)?$`),
	"dateTime":     regexp.MustCompile(`^[0-9]{4}(-[0-9]{2}(-[0-9]{2}(T[0-9]{2}:[0-9]{2}:[0-9]{2}(\.[0-9]+)?(Z|[+-][0-9]{2}:[0-9]{2}))?)?)?$`),
	"time":         regexp.MustCompile(`^[0-9]{2}:[0-9]{2}:[0-9]{2}(\.[0-9]+)?$`),
	"instant":      regexp.MustCompile(`^[0-9]{4}-[0-9]{2}-[0-9]{2}T[0-9]{2}:[0-9]{2}:[0-9]{2}(\.[0-9]+)?(Z|[+-][0-9]{2}:[0-9]{2})$`),
	"base64Binary": regexp.MustCompile(`^([A-Za-z0-9+/]{4})*([A-Za-z0-9+/]{2}==|[A-Za-z0-9+/]{3}=)?$`),
}

func init() {
	// uri/url/canonical carry no character restriction beyond "non-empty,
	// no leading/trailing whitespace" in the standard's lexical grammar.
	noWhitespaceEdges := regexp.MustCompile(`^\S(.*\S)?$|^\S$`)
	primitiveRegex["uri"] = noWhitespaceEdges
	primitiveRegex["url"] = noWhitespaceEdges
	primitiveRegex["canonical"] = noWhitespaceEdges
	primitiveRegex["markdown"] = noWhitespaceEdges
	// string has no further restriction once its JSON type is confirmed.
}

// expectedJSONType returns the JSON shape typeName's values must take.
func expectedJSONType(typeName string) jsonType {
	switch typeName {
	case "boolean":
		return jsonBoolean
	case "integer", "positiveInt", "unsignedInt", "decimal":
		return jsonNumber
	default:
		return jsonString
	}
}

func actualJSONType(value any) jsonType {
	switch value.(type) {
	case bool:
		return jsonBoolean
	case float64, int, int64, float32:
		return jsonNumber
	case string:
		return jsonString
	default:
		return jsonUnknown
	}
}

func jsonTypeName(t jsonType) string {
	switch t {
	case jsonBoolean:
		return "boolean"
	case jsonNumber:
		return "number"
	case jsonString:
		return "string"
	default:
		return "unknown"
	}
}

// checkPrimitive validates value's JSON type and, for string-shaped types, its
// lexical format against typeName's regex. On failure it returns false and a
// context map describing the mismatch, for the caller to attach to a
// TypeMismatch issue.
func checkPrimitive(value any, typeName string) (ok bool, mismatchContext map[string]any) {
	expected := expectedJSONType(typeName)
	actual := actualJSONType(value)

	if actual != expected {
		return false, map[string]any{
			"expected": jsonTypeName(expected),
			"actual":   jsonTypeName(actual),
		}
	}

	if actual != jsonString {
		return true, nil
	}

	re, ok := primitiveRegex[typeName]
	if !ok {
		return true, nil
	}

	s, _ := value.(string)
	if !re.MatchString(s) {
		return false, map[string]any{
			"expected": fmt.Sprintf("%s format", typeName),
			"actual":   s,
		}
	}
	return true, nil
}
