package searchparameter

import (
	"fmt"
	"strings"

	"github.com/gofhir/fhir/r4"
)

// SearchParameter is the part of a FHIR SearchParameter resource the
// generator needs, as found in the definitions bundle or in an
// implementation guide directory.
type SearchParameter struct {
	ID          string
	URL         string
	Name        string
	Code        string
	Description string
	Base        []string
	Type        r4.SearchParamType
	Target      []string
}

// FromFHIR maps a decoded r4.SearchParameter into the domain model.
func FromFHIR(sp *r4.SearchParameter) *SearchParameter {
	out := &SearchParameter{
		ID:          derefString(sp.Id),
		URL:         derefString(sp.Url),
		Name:        derefString(sp.Name),
		Code:        derefString(sp.Code),
		Description: derefString(sp.Description),
		Base:        append([]string(nil), sp.Base...),
		Target:      append([]string(nil), sp.Target...),
	}
	if sp.Type != nil {
		out.Type = *sp.Type
	}
	return out
}

// Validate checks the fields the generator relies on.
func (s *SearchParameter) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(s.Base) == 0 {
		return fmt.Errorf("base is required")
	}
	switch s.Type {
	case r4.SearchParamTypeNumber, r4.SearchParamTypeDate, r4.SearchParamTypeString,
		r4.SearchParamTypeToken, r4.SearchParamTypeReference, r4.SearchParamTypeComposite,
		r4.SearchParamTypeQuantity, r4.SearchParamTypeUri, r4.SearchParamTypeSpecial:
		return nil
	default:
		return fmt.Errorf("invalid type: %s", s.Type)
	}
}

// HasBase reports whether the parameter applies to resource.
func (s *SearchParameter) HasBase(resource string) bool {
	for _, b := range s.Base {
		if b == resource {
			return true
		}
	}
	return false
}

func (s *SearchParameter) IsReference() bool { return s.Type == r4.SearchParamTypeReference }

// IsCommon reports whether the parameter applies to every resource (_id,
// _lastUpdated, _profile, ...).
func (s *SearchParameter) IsCommon() bool { return strings.HasPrefix(s.Name, "_") }

// QueryParameter is a Swagger 2.0 query parameter derived from a
// SearchParameter. All search values travel as strings.
type QueryParameter struct {
	Name        string
	Description string
	Required    bool
	Default     string
}

func (q QueryParameter) ToSwagger() map[string]interface{} {
	result := map[string]interface{}{
		"name": q.Name,
		"in":   "query",
		"type": "string",
	}
	if q.Description != "" {
		result["description"] = q.Description
	}
	if q.Required {
		result["required"] = true
	}
	if q.Default != "" {
		result["default"] = q.Default
	}
	return result
}

// SnakeToCamel turns "general-practitioner" into "generalPractitioner". Only
// a separator followed by a lower-case letter is folded.
func SnakeToCamel(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c == '-' || c == '_') && i+1 < len(s) && s[i+1] >= 'a' && s[i+1] <= 'z' {
			b.WriteByte(s[i+1] - 'a' + 'A')
			i++
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
