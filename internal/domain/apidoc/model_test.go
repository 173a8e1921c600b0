package apidoc

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{"", FormatJSON, false},
		{"YAML", FormatYAML, false},
		{"yml", FormatYAML, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error state: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestFileName(t *testing.T) {
	if got := FileName("Patient", FormatJSON); got != "patient-output.json" {
		t.Errorf("unexpected file name %s", got)
	}
	if got := FileName("usdf-FormularyDrug", FormatYAML); got != "usdf-formularydrug-output.yaml" {
		t.Errorf("unexpected file name %s", got)
	}
}

func TestDocumentID_Stable(t *testing.T) {
	if DocumentID("Patient") != DocumentID("patient") {
		t.Error("expected id to ignore case")
	}
	if DocumentID("Patient") == DocumentID("Observation") {
		t.Error("expected distinct ids for distinct names")
	}
}

const sampleSpec = `{"swagger":"2.0","info":{"title":"PatientFHIRAPI","version":"4.0"},"definitions":{"Patient":{"type":"object"},"string":{"type":"string"}}}`

func TestNewAPIDocument_JSON(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	doc, err := NewAPIDocument("Patient", []byte(sampleSpec), FormatJSON, at)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.FileName != "patient-output.json" || doc.Definitions != 2 || !doc.GeneratedAt.Equal(at) {
		t.Errorf("unexpected document %+v", doc)
	}
	if !strings.Contains(string(doc.Content), "\n  \"definitions\"") {
		t.Errorf("expected indented JSON, got %s", doc.Content)
	}
}

func TestNewAPIDocument_YAMLRoundTrip(t *testing.T) {
	doc, err := NewAPIDocument("Patient", []byte(sampleSpec), FormatYAML, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(doc.Content), "swagger: \"2.0\"") && !strings.Contains(string(doc.Content), "swagger: '2.0'") {
		t.Errorf("expected YAML content, got %s", doc.Content)
	}

	data, err := doc.JSON()
	if err != nil {
		t.Fatalf("convert to json: %v", err)
	}
	var spec map[string]interface{}
	if err := json.Unmarshal(data, &spec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if spec["swagger"] != "2.0" {
		t.Errorf("expected swagger 2.0 after round trip, got %v", spec["swagger"])
	}
}

func TestEncode_InvalidJSON(t *testing.T) {
	if _, err := Encode([]byte("{"), FormatJSON); err == nil {
		t.Error("expected error for invalid JSON")
	}
}
