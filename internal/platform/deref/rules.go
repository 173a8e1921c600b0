package deref

import (
	"strings"

	"github.com/ehr/fhir2swagger/internal/platform/schema"
)

// Outcome tells the engine whether a property needs further processing.
type Outcome int

const (
	// Continue passes the property on to the next rule.
	Continue Outcome = iota
	// Stop ends processing of the property; no reference is discovered.
	Stop
)

// State is the per-traversal output: the discovered names and the
// definitions emitted for them. Every run owns a fresh State.
type State struct {
	Tags        *TagSet
	Definitions map[string]schema.Node
}

// NewState creates an empty State.
func NewState() *State {
	return &State{Tags: NewTagSet(), Definitions: make(map[string]schema.Node)}
}

// Patch addresses one property of one owner definition.
type Patch struct {
	Owner    string
	Property string
	// Props is the owner's property map being walked.
	Props schema.Node
	State *State
}

// Node returns the property node, or nil when it is not an object.
func (p *Patch) Node() schema.Node {
	return schema.Child(p.Props, p.Property)
}

// emitted returns the owner's property map in the output definitions.
func (p *Patch) emitted() schema.Node {
	return schema.Properties(p.State.Definitions[p.Owner])
}

// Rule is one FHIR to Swagger 2.0 adaptation, keyed by owner type and a
// predicate over the property name.
type Rule struct {
	Name string
	// Owner restricts the rule to one definition; empty matches all.
	Owner string
	Match func(property string) bool
	Apply func(p *Patch) Outcome
}

func (r Rule) applies(owner, property string) bool {
	if r.Owner != "" && r.Owner != owner {
		return false
	}
	return r.Match(property)
}

// primitiveTargets are Extension.value[x] targets kept as references.
var primitiveTargets = map[string]bool{
	"string":  true,
	"number":  true,
	"boolean": true,
}

// ConstElimination turns the const-pinned resourceType into a plain string;
// Swagger 2.0 has no const keyword.
var ConstElimination = Rule{
	Name:  "const-elimination",
	Match: func(property string) bool { return property == "resourceType" },
	Apply: func(p *Patch) Outcome {
		n := p.Node()
		if n == nil {
			return Continue
		}
		delete(n, "const")
		n["type"] = "string"
		return Continue
	},
}

// ContainedRemoval drops contained resources, which recurse without bound.
var ContainedRemoval = Rule{
	Name: "contained-removal",
	Match: func(property string) bool {
		return strings.HasSuffix(strings.ToLower(property), "contained")
	},
	Apply: func(p *Patch) Outcome {
		delete(p.Props, p.Property)
		return Stop
	},
}

// UnderscoreStripping removes _-prefixed siblings. They only carry extension
// metadata for a primitive and have no Swagger-relevant shape.
var UnderscoreStripping = Rule{
	Name:  "underscore-stripping",
	Match: func(property string) bool { return strings.HasPrefix(property, "_") },
	Apply: func(p *Patch) Outcome {
		if emitted := p.emitted(); emitted != nil {
			delete(emitted, p.Property)
		}
		delete(p.Props, p.Property)
		return Stop
	},
}

// ExtensionValueSimplification degrades Extension.value[x] choices that point
// at a complex type not yet resolved to an opaque string.
var ExtensionValueSimplification = Rule{
	Name:  "extension-value-simplification",
	Owner: "Extension",
	Match: func(property string) bool { return strings.HasPrefix(property, "value") },
	Apply: func(p *Patch) Outcome {
		n := p.Node()
		if n == nil {
			return Continue
		}
		ref, _ := n["$ref"].(string)
		if ref == "" {
			return Continue
		}
		target := schema.TargetName(ref)
		if primitiveTargets[target] || p.State.Tags.Has(target) {
			return Continue
		}
		if emitted := schema.Child(p.emitted(), p.Property); emitted != nil {
			n = emitted
		}
		n["type"] = "string"
		delete(n, "$ref")
		return Continue
	},
}

// DefaultRules returns the adaptation rules in the order they must run.
func DefaultRules() []Rule {
	return []Rule{
		ConstElimination,
		ContainedRemoval,
		UnderscoreStripping,
		ExtensionValueSimplification,
	}
}
