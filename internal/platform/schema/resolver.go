package schema

import (
	"errors"
	"fmt"
)

// ErrDanglingReference is returned when a $ref points at a definition the
// schema does not contain.
var ErrDanglingReference = errors.New("dangling reference")

// Resolver turns "#/definitions/<Name>" pointers into definition nodes.
type Resolver struct {
	index *Index
}

// NewResolver creates a Resolver over index.
func NewResolver(index *Index) *Resolver {
	return &Resolver{index: index}
}

// Index returns the schema the resolver reads from.
func (r *Resolver) Index() *Index { return r.index }

// Resolve returns the target name of ref and a copy of its definition,
// patched for Swagger 2.0:
//   - a definition that is itself an alias ($ref) loses its description,
//     since description may not sit beside $ref;
//   - xhtml becomes a plain string.
func (r *Resolver) Resolve(ref string) (string, Node, error) {
	name := TargetName(ref)
	node, ok := r.index.Lookup(name)
	if !ok {
		return name, nil, fmt.Errorf("%w: %s", ErrDanglingReference, ref)
	}
	if _, alias := node["$ref"]; alias {
		delete(node, "description")
	}
	if name == "xhtml" {
		node["type"] = "string"
	}
	return name, node, nil
}
