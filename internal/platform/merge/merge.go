// Package merge combines generated Swagger documents and applies JSON patch
// overlays to them.
package merge

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	jsonpatch "github.com/evanphx/json-patch"
)

// CombinedTitle is the info.title of a combined document.
const CombinedTitle = "FHIRAPI"

// Combine merges Swagger 2.0 documents in order. Each document's paths are
// prefixed with its basePath so that resources served under different base
// paths stay distinct; the result is served from "/". Definitions are taken
// whole and the first document to define a name wins. Every other key is
// merged with JSON merge patch (RFC 7386), later documents winning.
func Combine(docs ...[]byte) ([]byte, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("combine: no documents")
	}

	acc := []byte(`{}`)
	defs := make(map[string]interface{})
	var version string
	for i, doc := range docs {
		var spec map[string]interface{}
		if err := json.Unmarshal(doc, &spec); err != nil {
			return nil, fmt.Errorf("combine: document %d: %w", i, err)
		}
		if version == "" {
			if info, ok := spec["info"].(map[string]interface{}); ok {
				version, _ = info["version"].(string)
			}
		}
		rebase(spec)

		if d, ok := spec["definitions"].(map[string]interface{}); ok {
			for name, def := range d {
				if _, seen := defs[name]; !seen {
					defs[name] = def
				}
			}
		}
		delete(spec, "definitions")

		patch, err := json.Marshal(spec)
		if err != nil {
			return nil, err
		}
		acc, err = jsonpatch.MergePatch(acc, patch)
		if err != nil {
			return nil, fmt.Errorf("combine: document %d: %w", i, err)
		}
	}

	var combined map[string]interface{}
	if err := json.Unmarshal(acc, &combined); err != nil {
		return nil, err
	}
	combined["basePath"] = "/"
	combined["info"] = map[string]interface{}{
		"title":   CombinedTitle,
		"version": version,
	}
	combined["definitions"] = defs
	return json.Marshal(combined)
}

// rebase moves spec's basePath into its path keys and drops the per-document
// info block.
func rebase(spec map[string]interface{}) {
	prefix, _ := spec["basePath"].(string)
	prefix = strings.TrimSuffix(prefix, "/")
	delete(spec, "basePath")
	delete(spec, "info")

	paths, ok := spec["paths"].(map[string]interface{})
	if !ok || prefix == "" {
		return
	}
	rebased := make(map[string]interface{}, len(paths))
	for p, item := range paths {
		rebased[prefix+p] = item
	}
	spec["paths"] = rebased
}

// Overlay is a decoded RFC 6902 JSON patch applied to every generated
// document.
type Overlay struct {
	patch jsonpatch.Patch
}

// LoadOverlay reads a JSON patch file.
func LoadOverlay(path string) (*Overlay, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read overlay %s: %w", path, err)
	}
	return ParseOverlay(data)
}

func ParseOverlay(data []byte) (*Overlay, error) {
	patch, err := jsonpatch.DecodePatch(data)
	if err != nil {
		return nil, fmt.Errorf("decode overlay: %w", err)
	}
	return &Overlay{patch: patch}, nil
}

// Len returns the number of operations in the overlay.
func (o *Overlay) Len() int { return len(o.patch) }

// Apply returns doc with the overlay applied. doc is not modified.
func (o *Overlay) Apply(doc []byte) ([]byte, error) {
	out, err := o.patch.Apply(doc)
	if err != nil {
		return nil, fmt.Errorf("apply overlay: %w", err)
	}
	return out, nil
}
