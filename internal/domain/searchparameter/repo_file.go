package searchparameter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofhir/fhir/r4"
)

// Catalog is an in-memory SearchParameterRepository loaded once at startup
// and read-only afterwards.
type Catalog struct {
	params []*SearchParameter
	byName map[string]*SearchParameter
}

// NewCatalog builds a Catalog. When names repeat, GetByName returns the
// first.
func NewCatalog(params ...*SearchParameter) *Catalog {
	c := &Catalog{byName: make(map[string]*SearchParameter, len(params))}
	for _, p := range params {
		c.params = append(c.params, p)
		if _, ok := c.byName[p.Name]; !ok {
			c.byName[p.Name] = p
		}
	}
	return c
}

func (c *Catalog) List() []*SearchParameter {
	return append([]*SearchParameter(nil), c.params...)
}

func (c *Catalog) GetByName(name string) (*SearchParameter, bool) {
	p, ok := c.byName[name]
	return p, ok
}

func (c *Catalog) Len() int { return len(c.params) }

// LoadBundle reads a FHIR Bundle of SearchParameter resources.
func LoadBundle(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read search parameters %s: %w", path, err)
	}
	c, err := ParseBundle(data)
	if err != nil {
		return nil, fmt.Errorf("parse search parameters %s: %w", path, err)
	}
	return c, nil
}

// ParseBundle decodes a Bundle. Entries that are not SearchParameter
// resources are skipped.
func ParseBundle(data []byte) (*Catalog, error) {
	var bundle struct {
		ResourceType string `json:"resourceType"`
		Entry        []struct {
			Resource json.RawMessage `json:"resource"`
		} `json:"entry"`
	}
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, err
	}
	if bundle.ResourceType != "" && bundle.ResourceType != "Bundle" {
		return nil, fmt.Errorf("expected a Bundle, got %s", bundle.ResourceType)
	}

	params := make([]*SearchParameter, 0, len(bundle.Entry))
	for i, entry := range bundle.Entry {
		if len(entry.Resource) == 0 {
			continue
		}
		sp, err := decode(entry.Resource)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		if sp != nil {
			params = append(params, sp)
		}
	}
	return NewCatalog(params...), nil
}

// LoadDir reads every SearchParameter-*.json file of an implementation guide
// directory, in file name order.
func LoadDir(dir string) ([]*SearchParameter, error) {
	files, err := filepath.Glob(filepath.Join(dir, "SearchParameter-*.json"))
	if err != nil {
		return nil, err
	}
	var params []*SearchParameter
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, err
		}
		sp, err := decode(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(f), err)
		}
		if sp != nil {
			params = append(params, sp)
		}
	}
	return params, nil
}

// decode reads one SearchParameter resource. Other resource types yield
// nil; a missing resourceType is read as a SearchParameter.
func decode(data []byte) (*SearchParameter, error) {
	if rt, err := r4.GetResourceType(data); err == nil && rt != "SearchParameter" {
		return nil, nil
	}

	var res r4.SearchParameter
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, err
	}
	sp := FromFHIR(&res)
	if err := sp.Validate(); err != nil {
		return nil, fmt.Errorf("search parameter %q: %w", sp.Name, err)
	}
	return sp, nil
}
