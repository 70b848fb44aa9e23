package es

import (
	"testing"
)

func TestParseIndicesResponse(t *testing.T) {
	raw := `[
		{"index":"test-2","health":"yellow","docs.count":"200","store.size":"2mb","pri":"2","rep":"0"},
		{"index":"test-1","health":"green","docs.count":"100","store.size":"1mb","pri":"1","rep":"1"}
	]`

	indices, err := parseIndicesResponse([]byte(raw))
	if err != nil {
		t.Fatalf("parseIndicesResponse() error = %v", err)
	}

	if len(indices) != 2 {
		t.Fatalf("got %d indices, want 2", len(indices))
	}

	if indices[0].Name != "test-1" {
		t.Errorf("indices[0].Name = %q, want %q", indices[0].Name, "test-1")
	}
	if indices[0].Health != "green" {
		t.Errorf("indices[0].Health = %q, want %q", indices[0].Health, "green")
	}
}

func TestParseMappingResponse(t *testing.T) {
	raw := `{
		"products": {
			"mappings": {
				"properties": {
					"name": {"type": "text"},
					"price": {"type": "float"},
					"category": {
						"type": "text",
						"fields": {
							"keyword": {"type": "keyword"}
						}
					},
					"address": {
						"properties": {
							"city": {"type": "keyword"},
							"zip": {"type": "keyword", "index": false}
						}
					}
				}
			}
		}
	}`

	fields, err := parseMappingResponse([]byte(raw))
	if err != nil {
		t.Fatalf("parseMappingResponse() error = %v", err)
	}

	want := []string{"address.city", "address.zip", "category", "name", "price"}
	if len(fields) != len(want) {
		t.Fatalf("got %d fields (%v), want %d", len(fields), fields, len(want))
	}
	for i := range want {
		if fields[i] != want[i] {
			t.Errorf("fields[%d] = %q, want %q", i, fields[i], want[i])
		}
	}
}
