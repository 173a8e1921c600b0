package schema

import (
	"sort"
	"strings"
)

// Node is a JSON-object-shaped schema fragment as produced by encoding/json.
type Node = map[string]interface{}

// Clone returns a deep copy of n so the copy can be patched without touching
// the document it came from.
func Clone(n Node) Node {
	if n == nil {
		return nil
	}
	out := make(Node, len(n))
	for k, v := range n {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		return Clone(t)
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}

// Properties returns the "properties" object of n, or nil when n has none.
func Properties(n Node) Node {
	props, _ := n["properties"].(map[string]interface{})
	return props
}

// Child returns n[key] when it is an object.
func Child(n Node, key string) Node {
	c, _ := n[key].(map[string]interface{})
	return c
}

// RefOf returns the reference carried by a property node. Array properties
// carry it under items; when items is present its $ref is the only one read.
func RefOf(n Node) string {
	if items := Child(n, "items"); items != nil {
		ref, _ := items["$ref"].(string)
		return ref
	}
	ref, _ := n["$ref"].(string)
	return ref
}

// TargetName extracts the definition name from a pointer such as
// "#/definitions/Identifier".
func TargetName(ref string) string {
	return ref[strings.LastIndex(ref, "/")+1:]
}

// DefinitionRef builds the local pointer for a definition name.
func DefinitionRef(name string) string {
	return "#/definitions/" + name
}

// SortedKeys returns the keys of n in lexical order. JSON object order is not
// preserved by encoding/json, so every walk over a property map uses this
// order to keep output independent of map iteration.
func SortedKeys(n Node) []string {
	keys := make([]string, 0, len(n))
	for k := range n {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
