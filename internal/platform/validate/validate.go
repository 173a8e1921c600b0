// Package validate checks generated Swagger 2.0 documents.
//
// Two checks run: a scan for $ref pointers whose definition was never
// emitted, which the bounded traversal produces by design and which is
// reported as warnings, and a structural check that converts the document to
// OpenAPI 3 with kin-openapi and validates it. Dangling targets are stubbed
// as opaque objects for the structural check so that the truncation does not
// mask real defects.
package validate

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
)

const definitionsPrefix = "#/definitions/"

type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Finding is one validation result.
type Finding struct {
	Severity Severity `json:"severity"`
	// Location is a JSON pointer into the document, when known.
	Location string `json:"location,omitempty"`
	Message  string `json:"message"`
}

func (f Finding) String() string {
	if f.Location == "" {
		return fmt.Sprintf("%s: %s", f.Severity, f.Message)
	}
	return fmt.Sprintf("%s: %s: %s", f.Severity, f.Location, f.Message)
}

// Report collects the findings for one document.
type Report struct {
	Findings []Finding `json:"findings"`
	// Dangling lists referenced definition names with no definitions entry.
	Dangling []string `json:"dangling,omitempty"`
}

// Valid reports whether the document has no error findings.
func (r *Report) Valid() bool {
	return r.Count(SeverityError) == 0
}

// Count returns the number of findings of severity s.
func (r *Report) Count(s Severity) int {
	n := 0
	for _, f := range r.Findings {
		if f.Severity == s {
			n++
		}
	}
	return n
}

// Document validates a Swagger 2.0 JSON document. The returned error is
// non-nil only when data is not a JSON object; everything else is a finding.
func Document(ctx context.Context, data []byte) (*Report, error) {
	var spec map[string]interface{}
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}

	report := &Report{}
	if v, _ := spec["swagger"].(string); v != "2.0" {
		report.Findings = append(report.Findings, Finding{
			Severity: SeverityError,
			Location: "/swagger",
			Message:  fmt.Sprintf("expected swagger version 2.0, got %q", v),
		})
		return report, nil
	}

	defs, _ := spec["definitions"].(map[string]interface{})
	refs := collectRefs(spec, "")
	for _, name := range sortedNames(refs) {
		if _, ok := defs[name]; ok {
			continue
		}
		report.Dangling = append(report.Dangling, name)
		report.Findings = append(report.Findings, Finding{
			Severity: SeverityWarning,
			Location: refs[name],
			Message:  "dangling reference to definition " + name,
		})
	}

	if err := structural(ctx, spec, report.Dangling); err != nil {
		report.Findings = append(report.Findings, Finding{
			Severity: SeverityError,
			Message:  err.Error(),
		})
	}
	return report, nil
}

// structural converts spec to OpenAPI 3 and validates it. spec is modified.
func structural(ctx context.Context, spec map[string]interface{}, dangling []string) error {
	if len(dangling) > 0 {
		defs, ok := spec["definitions"].(map[string]interface{})
		if !ok {
			defs = make(map[string]interface{})
			spec["definitions"] = defs
		}
		for _, name := range dangling {
			defs[name] = map[string]interface{}{"type": "object"}
		}
	}

	data, err := json.Marshal(spec)
	if err != nil {
		return err
	}
	var v2 openapi2.T
	if err := json.Unmarshal(data, &v2); err != nil {
		return fmt.Errorf("swagger 2.0: %w", err)
	}
	v3, err := openapi2conv.ToV3(&v2)
	if err != nil {
		return fmt.Errorf("convert to openapi 3: %w", err)
	}
	if err := openapi3.NewLoader().ResolveRefsIn(v3, nil); err != nil {
		return fmt.Errorf("resolve refs: %w", err)
	}
	return v3.Validate(ctx,
		openapi3.DisableSchemaPatternValidation(),
		openapi3.DisableExamplesValidation(),
	)
}

// collectRefs returns every local definition name referenced under v, mapped
// to the JSON pointer of its first occurrence in walk order.
func collectRefs(v interface{}, pointer string) map[string]string {
	refs := make(map[string]string)
	walkRefs(v, pointer, refs)
	return refs
}

func walkRefs(v interface{}, pointer string, refs map[string]string) {
	switch t := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			child := pointer + "/" + escapePointer(k)
			if k == "$ref" {
				if ref, ok := t[k].(string); ok && strings.HasPrefix(ref, definitionsPrefix) {
					name := strings.TrimPrefix(ref, definitionsPrefix)
					if _, seen := refs[name]; !seen {
						refs[name] = child
					}
				}
				continue
			}
			walkRefs(t[k], child, refs)
		}
	case []interface{}:
		for i, item := range t {
			walkRefs(item, fmt.Sprintf("%s/%d", pointer, i), refs)
		}
	}
}

func escapePointer(s string) string {
	return strings.NewReplacer("~", "~0", "/", "~1").Replace(s)
}

func sortedNames(m map[string]string) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
