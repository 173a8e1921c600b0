package deref

// TagSet is the ordered set of definition names discovered by a traversal.
// A name enters at most once; membership gates re-processing, which is what
// keeps cyclic schema graphs (Reference -> Identifier -> Reference) finite.
type TagSet struct {
	names []string
	seen  map[string]struct{}
}

// NewTagSet creates an empty TagSet.
func NewTagSet() *TagSet {
	return &TagSet{seen: make(map[string]struct{})}
}

// Add appends name and reports whether it was new.
func (s *TagSet) Add(name string) bool {
	if _, ok := s.seen[name]; ok {
		return false
	}
	s.seen[name] = struct{}{}
	s.names = append(s.names, name)
	return true
}

// Has reports whether name has been discovered.
func (s *TagSet) Has(name string) bool {
	_, ok := s.seen[name]
	return ok
}

// Len returns the number of names in the set.
func (s *TagSet) Len() int { return len(s.names) }

// Names returns a snapshot of the names in discovery order.
func (s *TagSet) Names() []string {
	return append([]string(nil), s.names...)
}
