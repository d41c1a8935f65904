package schema

import "testing"

func TestDecodeStrictJSON_RejectsUnknownTopLevelKey(t *testing.T) {
	data := []byte(`{
		"url": "https://example.org/Patient",
		"name": "Patient",
		"type": "Patient",
		"kind": "resource",
		"class": "resource",
		"derivation": "specialization",
		"bogusField": true
	}`)

	_, err := DecodeStrictJSON(data)
	if err == nil {
		t.Fatal("expected UnknownKeyword error")
	}
	var unk *ErrUnknownKeyword
	if !asUnknownKeyword(err, &unk) {
		t.Errorf("expected *ErrUnknownKeyword, got %T: %v", err, err)
	} else if unk.Key != "bogusField" {
		t.Errorf("Key = %q; want %q", unk.Key, "bogusField")
	}
}

func TestDecodeStrictJSON_RejectsUnknownElementKey(t *testing.T) {
	data := []byte(`{
		"url": "https://example.org/Patient",
		"name": "Patient",
		"type": "Patient",
		"kind": "resource",
		"class": "resource",
		"derivation": "specialization",
		"elements": {
			"active": {"type": "boolean", "max": 1, "notAField": 1}
		}
	}`)

	if _, err := DecodeStrictJSON(data); err == nil {
		t.Fatal("expected UnknownKeyword error for nested element field")
	}
}

func TestDecodeStrictJSON_RejectsUnknownKeyInSliceSchema(t *testing.T) {
	data := []byte(`{
		"url": "https://example.org/Patient",
		"name": "Patient",
		"type": "Patient",
		"kind": "resource",
		"class": "resource",
		"derivation": "specialization",
		"elements": {
			"identifier": {
				"type": "Identifier",
				"array": true,
				"slicing": {
					"rules": "open",
					"slices": {
						"MRN": {
							"min": 0,
							"schema": {
								"elements": {
									"system": {"type": "uri", "bogusSliceField": 1}
								}
							}
						}
					}
				}
			}
		}
	}`)

	if _, err := DecodeStrictJSON(data); err == nil {
		t.Fatal("expected UnknownKeyword error for a slice sub-schema's nested element field")
	}
}

func TestDecodeStrictJSON_RejectsUnknownKeyInExtensionSchema(t *testing.T) {
	data := []byte(`{
		"url": "https://example.org/Patient",
		"name": "Patient",
		"type": "Patient",
		"kind": "resource",
		"class": "resource",
		"derivation": "specialization",
		"extensions": {
			"https://example.org/ext/race": {
				"min": 0,
				"schema": {
					"type": "CodeableConcept",
					"bogusExtField": true
				}
			}
		}
	}`)

	if _, err := DecodeStrictJSON(data); err == nil {
		t.Fatal("expected UnknownKeyword error for an extension slot's schema field")
	}
}

func TestDecodeStrictJSON_AcceptsKnownFields(t *testing.T) {
	data := []byte(`{
		"url": "https://example.org/Patient",
		"name": "Patient",
		"type": "Patient",
		"kind": "resource",
		"class": "resource",
		"derivation": "specialization",
		"elements": {
			"active": {"type": "boolean", "max": 1}
		},
		"required": ["active"]
	}`)

	s, err := DecodeStrictJSON(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.URL != "https://example.org/Patient" {
		t.Errorf("URL = %q", s.URL)
	}
}

func asUnknownKeyword(err error, target **ErrUnknownKeyword) bool {
	if uk, ok := err.(*ErrUnknownKeyword); ok {
		*target = uk
		return true
	}
	return false
}
