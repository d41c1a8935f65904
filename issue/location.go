package issue

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Position is a 1-indexed line/column location in JSON source.
type Position struct {
	Line   int
	Column int
}

// Locate finds the source position of a dotted, indexed element path (e.g.
// "name[0].given[1]") within raw JSON bytes. Returns nil if the path cannot
// be found — this is an opt-in diagnostic aid, never required for a valid
// conversion or validation run.
func Locate(jsonData []byte, path string) *Position {
	if len(jsonData) == 0 || path == "" {
		return nil
	}

	segments := splitPath(path)
	if len(segments) == 0 {
		return nil
	}

	dec := json.NewDecoder(strings.NewReader(string(jsonData)))

	offset, err := navigateToPath(dec, segments)
	if err != nil {
		return nil
	}
	// The decoder's offset sits just past the previous token; step over the
	// separator and whitespace so the position lands on the target itself.
	for offset < len(jsonData) {
		switch jsonData[offset] {
		case ' ', '\t', '\r', '\n', ',':
			offset++
			continue
		}
		break
	}

	line, col := offsetToLineCol(jsonData, offset)
	return &Position{Line: line, Column: col}
}

// splitPath splits a dotted, indexed path into segments.
// "identifier[0].value" -> ["identifier", "0", "value"]
func splitPath(path string) []string {
	var segments []string
	current := ""

	for i := 0; i < len(path); i++ {
		ch := path[i]
		switch ch {
		case '.':
			if current != "" {
				segments = append(segments, current)
				current = ""
			}
		case '[':
			if current != "" {
				segments = append(segments, current)
				current = ""
			}
			j := i + 1
			for j < len(path) && path[j] != ']' {
				j++
			}
			if j > i+1 {
				segments = append(segments, path[i+1:j])
			}
			i = j
		default:
			current += string(ch)
		}
	}
	if current != "" {
		segments = append(segments, current)
	}

	return segments
}

// navigateToPath navigates through JSON to find the target path.
func navigateToPath(dec *json.Decoder, segments []string) (int, error) {
	segIdx := 0

	for segIdx < len(segments) {
		target := segments[segIdx]

		if idx, err := strconv.Atoi(target); err == nil {
			offset, err := navigateToArrayIndex(dec, idx)
			if err != nil {
				return 0, err
			}
			segIdx++
			if segIdx == len(segments) {
				return offset, nil
			}
		} else {
			offset, err := navigateToKey(dec, target)
			if err != nil {
				return 0, err
			}
			segIdx++
			if segIdx == len(segments) {
				return offset, nil
			}
		}
	}

	return 0, fmt.Errorf("path not found")
}

// navigateToKey finds a key in the current JSON object.
func navigateToKey(dec *json.Decoder, key string) (int, error) {
	for {
		offset := int(dec.InputOffset())
		tok, err := dec.Token()
		if err != nil {
			return 0, fmt.Errorf("key %q not found: %w", key, err)
		}

		if k, ok := tok.(string); ok && k == key {
			return offset, nil
		}

		if delim, ok := tok.(json.Delim); ok {
			switch delim {
			case '{':
				// enter object, continue searching
			case '[':
				if err := skipRest(dec); err != nil {
					return 0, err
				}
			case '}', ']':
				return 0, fmt.Errorf("key %q not found in object", key)
			}
		}
	}
}

// navigateToArrayIndex navigates to a specific index in a JSON array.
func navigateToArrayIndex(dec *json.Decoder, targetIdx int) (int, error) {
	tok, err := dec.Token()
	if err != nil {
		return 0, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return 0, fmt.Errorf("expected array, got %v", tok)
	}

	idx := 0
	for dec.More() {
		offset := int(dec.InputOffset())
		if idx == targetIdx {
			return offset, nil
		}
		if err := skipValue(dec); err != nil {
			return 0, err
		}
		idx++
	}

	if _, err := dec.Token(); err != nil {
		return 0, err
	}
	return 0, fmt.Errorf("array index %d out of bounds (size %d)", targetIdx, idx)
}

// skipValue skips a single JSON value (primitive, object, or array).
func skipValue(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}

	if _, ok := tok.(json.Delim); ok {
		return skipRest(dec)
	}
	return nil
}

// skipRest skips the rest of an object or array after its opening delimiter.
func skipRest(dec *json.Decoder) error {
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		if delim, ok := tok.(json.Delim); ok {
			switch delim {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}
	}
	return nil
}

// offsetToLineCol converts a byte offset to 1-indexed line and column numbers.
func offsetToLineCol(input []byte, offset int) (line, col int) {
	line = 1
	col = 1
	for i := 0; i < offset && i < len(input); i++ {
		if input[i] == '\n' {
			line++
			col = 1
		} else {
			col++
		}
	}
	return
}

// EnrichPositions fills in Line/Column on every issue in-place by locating
// its Path within jsonData. The validator does not call it, whatever
// Options.TrackPositions says; a caller holding the source bytes calls it.
func EnrichPositions(jsonData []byte, issues []Issue) {
	for i := range issues {
		if issues[i].Path == "" {
			continue
		}
		if pos := Locate(jsonData, issues[i].Path); pos != nil {
			issues[i].Line = pos.Line
			issues[i].Column = pos.Column
		}
	}
}
