package structuredefinition

import (
	"github.com/gofhir/fhir/r4"
)

// Profile is the part of an implementation guide StructureDefinition the
// generator needs: the base resource it constrains and the metadata that
// ends up in the Swagger info block.
type Profile struct {
	// ID is the profile id used on the command line, e.g. usdf-FormularyDrug.
	ID          string
	URL         string
	Name        string
	Type        string
	Version     string
	Description string
}

// NewProfile extracts a Profile from a decoded StructureDefinition.
func NewProfile(id string, sd *r4.StructureDefinition) *Profile {
	return &Profile{
		ID:          id,
		URL:         derefString(sd.Url),
		Name:        derefString(sd.Name),
		Type:        derefString(sd.Type),
		Version:     derefString(sd.Version),
		Description: derefString(sd.Description),
	}
}

// Tag is the Swagger operation tag: the profile name, or its id when the
// profile is unnamed.
func (p *Profile) Tag() string {
	if p.Name != "" {
		return p.Name
	}
	return p.ID
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
