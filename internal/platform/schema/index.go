package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
)

// ErrDefinitionNotFound is returned when a name has no definitions entry.
var ErrDefinitionNotFound = errors.New("definition not found")

// Index holds a parsed FHIR JSON Schema and serves name-keyed lookups of its
// definitions. It is read-only after construction and safe for concurrent use.
type Index struct {
	id          string
	definitions map[string]Node
}

type document struct {
	ID          string          `json:"id"`
	Definitions map[string]Node `json:"definitions"`
}

// Load reads and parses the schema document at path.
func Load(path string) (*Index, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema %s: %w", path, err)
	}
	idx, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse schema %s: %w", path, err)
	}
	return idx, nil
}

// Parse decodes a schema document.
func Parse(data []byte) (*Index, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if len(doc.Definitions) == 0 {
		return nil, fmt.Errorf("schema has no definitions")
	}
	return NewIndex(doc.ID, doc.Definitions), nil
}

// NewIndex builds an index over already decoded definitions.
func NewIndex(id string, definitions map[string]Node) *Index {
	return &Index{id: id, definitions: definitions}
}

// ID returns the schema document id, e.g. "http://hl7.org/fhir/json-schema/4.0".
func (x *Index) ID() string { return x.id }

// Version returns the last path segment of the schema id.
func (x *Index) Version() string {
	return x.id[strings.LastIndex(x.id, "/")+1:]
}

// Lookup returns a private copy of definitions.<name>. Names are
// case-sensitive and must match the schema key exactly.
func (x *Index) Lookup(name string) (Node, bool) {
	def, ok := x.definitions[name]
	if !ok {
		return nil, false
	}
	return Clone(def), true
}

// Names returns every definition name in lexical order.
func (x *Index) Names() []string {
	names := make([]string, 0, len(x.definitions))
	for name := range x.definitions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResourceNames returns the definitions that describe FHIR resources, i.e.
// those whose properties carry resourceType.
func (x *Index) ResourceNames() []string {
	var names []string
	for _, name := range x.Names() {
		if _, ok := Properties(x.definitions[name])["resourceType"]; ok {
			names = append(names, name)
		}
	}
	return names
}
