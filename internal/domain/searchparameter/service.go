package searchparameter

import (
	"strings"
)

const multipleResourcesPrefix = "Multiple Resources:"

// Service turns catalog entries into Swagger query parameters.
type Service struct {
	repo SearchParameterRepository
}

func NewService(repo SearchParameterRepository) *Service {
	return &Service{repo: repo}
}

// ForResource returns the query parameters of a resource search: every
// parameter whose base includes resource, every common _-prefixed parameter,
// and one chained parameter per (reference parameter, target, target
// parameter) triple. Names are unique; the first occurrence wins.
func (s *Service) ForResource(resource string) []QueryParameter {
	params := s.repo.List()
	out := newQuerySet()

	for _, sp := range params {
		if sp.HasBase(resource) || sp.IsCommon() {
			out.add(QueryParameter{Name: sp.Name, Description: sp.Description})
		}
		if !sp.HasBase(resource) || !sp.IsReference() {
			continue
		}
		for _, target := range sp.Target {
			prefix := SnakeToCamel(sp.Name) + ":" + target
			for _, tp := range params {
				if !tp.HasBase(target) || tp.IsReference() {
					continue
				}
				out.add(QueryParameter{
					Name:        prefix + "." + tp.Name,
					Description: narrowDescription(tp.Description, target),
				})
			}
		}
	}
	return out.list
}

// ForProfile returns the query parameters of an implementation guide
// profile search: the mandatory _profile parameter pinned to profileURL,
// followed by the guide's own parameters whose base includes resourceType.
func (s *Service) ForProfile(resourceType, profileURL string, guide []*SearchParameter) []QueryParameter {
	out := newQuerySet()
	if sp, ok := s.repo.GetByName("_profile"); ok {
		out.add(QueryParameter{
			Name:        sp.Name,
			Description: sp.Description,
			Required:    true,
			Default:     profileURL,
		})
	}
	for _, sp := range guide {
		if sp.HasBase(resourceType) {
			out.add(QueryParameter{Name: sp.Name, Description: sp.Description})
		}
	}
	return out.list
}

// narrowDescription picks the target's line out of a shared
// "Multiple Resources:" description:
//
//	Multiple Resources:
//	* [Patient](patient.html): A portion of the family name
//	* [Practitioner](practitioner.html): A portion of the family name
//
// Descriptions without a line for target are returned unchanged.
func narrowDescription(desc, target string) string {
	if !strings.HasPrefix(desc, multipleResourcesPrefix) {
		return desc
	}
	for _, line := range strings.Split(desc, "\n* ") {
		line = strings.TrimRight(line, "\r\n")
		if !strings.HasPrefix(line, "["+target+"]") {
			continue
		}
		if _, text, ok := strings.Cut(line, ":"); ok {
			return strings.TrimSpace(text)
		}
	}
	return desc
}

type querySet struct {
	list []QueryParameter
	seen map[string]bool
}

func newQuerySet() *querySet {
	return &querySet{seen: make(map[string]bool)}
}

func (q *querySet) add(p QueryParameter) {
	if q.seen[p.Name] {
		return
	}
	q.seen[p.Name] = true
	q.list = append(q.list, p)
}
