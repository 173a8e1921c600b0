package apidoc

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/google/uuid"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts "json", "yaml" and "yml", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "json", "":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unsupported output format %q", s)
}

func (f Format) Ext() string { return string(f) }

func (f Format) ContentType() string {
	if f == FormatYAML {
		return "application/yaml"
	}
	return "application/json"
}

// CombinedName names the document merged from a whole batch.
const CombinedName = "combined"

var documentNamespace = uuid.MustParse("5b0d2c1e-6f3a-4d8e-9a61-2f7c3e4b8d90")

// DocumentID derives a stable id from the document name so re-generating a
// resource keeps its id in every repository.
func DocumentID(name string) uuid.UUID {
	return uuid.NewSHA1(documentNamespace, []byte(strings.ToLower(name)))
}

// FileName is the output file name of the named document.
func FileName(name string, f Format) string {
	return strings.ToLower(name) + "-output." + f.Ext()
}

// APIDocument is a generated Swagger 2.0 document as stored.
type APIDocument struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	FileName    string    `json:"file_name"`
	Format      Format    `json:"format"`
	Content     []byte    `json:"-"`
	Definitions int       `json:"definitions"`
	GeneratedAt time.Time `json:"generated_at"`
}

// NewAPIDocument encodes the JSON document spec into format f.
func NewAPIDocument(name string, spec []byte, f Format, generatedAt time.Time) (*APIDocument, error) {
	content, err := Encode(spec, f)
	if err != nil {
		return nil, err
	}
	return &APIDocument{
		ID:          DocumentID(name),
		Name:        name,
		FileName:    FileName(name, f),
		Format:      f,
		Content:     content,
		Definitions: countDefinitions(spec),
		GeneratedAt: generatedAt,
	}, nil
}

// JSON returns the document content as JSON whatever format it is stored in.
func (d *APIDocument) JSON() ([]byte, error) {
	if d.Format == FormatYAML {
		out, err := yaml.YAMLToJSON(d.Content)
		if err != nil {
			return nil, fmt.Errorf("convert %s to json: %w", d.FileName, err)
		}
		return out, nil
	}
	return d.Content, nil
}

// Encode renders a JSON document as indented JSON or as YAML.
func Encode(spec []byte, f Format) ([]byte, error) {
	var v interface{}
	if err := json.Unmarshal(spec, &v); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	switch f {
	case FormatYAML:
		out, err := yaml.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		return out, nil
	default:
		out, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
		return append(out, '\n'), nil
	}
}

func countDefinitions(spec []byte) int {
	var probe struct {
		Definitions map[string]json.RawMessage `json:"definitions"`
	}
	if err := json.Unmarshal(spec, &probe); err != nil {
		return 0
	}
	return len(probe.Definitions)
}
