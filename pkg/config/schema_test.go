package config

import (
	"encoding/json"
	"testing"
)

func TestGenerateSchema(t *testing.T) {
	data, err := GenerateSchema()
	if err != nil {
		t.Fatalf("GenerateSchema failed: %v", err)
	}

	var doc struct {
		Title      string                     `json:"title"`
		Properties map[string]json.RawMessage `json:"properties"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Schema is not valid JSON: %v", err)
	}

	for _, key := range []string{"logging", "telemetry", "shutdown_timeout", "metrics", "controlplane", "documents", "adapters"} {
		if _, ok := doc.Properties[key]; !ok {
			t.Errorf("Schema missing property %q", key)
		}
	}

	var timeout struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(doc.Properties["shutdown_timeout"], &timeout); err != nil {
		t.Fatal(err)
	}
	if timeout.Type != "string" {
		t.Errorf("Expected durations described as strings, got %q", timeout.Type)
	}
}
