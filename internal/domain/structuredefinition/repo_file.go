package structuredefinition

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gofhir/fhir/r4"
)

// DirRepository reads StructureDefinition-<id>.json files from an
// implementation guide package directory.
type DirRepository struct {
	dir string
}

func NewDirRepository(dir string) *DirRepository {
	return &DirRepository{dir: dir}
}

func (r *DirRepository) GetByID(id string) (*Profile, error) {
	path := filepath.Join(r.dir, "StructureDefinition-"+id+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, id)
		}
		return nil, err
	}
	return Parse(id, data)
}

// Parse decodes a StructureDefinition document.
func Parse(id string, data []byte) (*Profile, error) {
	var sd r4.StructureDefinition
	if err := json.Unmarshal(data, &sd); err != nil {
		return nil, fmt.Errorf("parse profile %s: %w", id, err)
	}
	if sd.ResourceType != "StructureDefinition" {
		return nil, fmt.Errorf("profile %s: expected StructureDefinition, got %q", id, sd.ResourceType)
	}

	p := NewProfile(id, &sd)
	if p.Type == "" {
		return nil, fmt.Errorf("profile %s: type is required", id)
	}
	return p, nil
}
