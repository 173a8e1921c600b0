package openapi

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ehr/fhir2swagger/internal/platform/deref"
	"github.com/ehr/fhir2swagger/internal/platform/schema"
)

// DefaultHost is the Swagger host used when none is configured.
const DefaultHost = "hapi.fhir.org"

const (
	operationOutcome = "OperationOutcome"
	bundle           = "Bundle"
)

var resourceProduces = []string{
	"application/json",
	"application/xml",
	"application/fhir+xml",
	"application/fhir+json",
}

var profileProduces = []string{
	"text/plain",
	"application/json",
	"application/fhir+json",
	"application/json+fhir",
	"text/json",
	"application/xml",
	"application/fhir+xml",
	"application/xml+fhir",
	"text/xml",
	"text/xml+fhir",
	"application/octet-stream",
}

// Generator builds Swagger 2.0 documents for FHIR resources from the
// definitions produced by a deref.Engine.
type Generator struct {
	engine   *deref.Engine
	host     string
	security bool
	logger   zerolog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

func WithHost(host string) Option {
	return func(g *Generator) {
		if host != "" {
			g.host = host
		}
	}
}

// WithSecurity adds the Bearer security definition and requirement.
func WithSecurity(enabled bool) Option {
	return func(g *Generator) { g.security = enabled }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(g *Generator) { g.logger = logger }
}

// NewGenerator creates a new Swagger document generator.
func NewGenerator(engine *deref.Engine, opts ...Option) *Generator {
	g := &Generator{engine: engine, host: DefaultHost, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Document is one generated Swagger 2.0 document.
type Document struct {
	// Name is the resource name or profile id the document was requested for.
	Name string
	// Root is the definition the traversal started from.
	Root string
	Spec map[string]interface{}
	// Tags lists the definitions discovered by the traversal.
	Tags []string
}

// Definitions returns the document's definitions object.
func (d *Document) Definitions() map[string]interface{} {
	defs, _ := d.Spec["definitions"].(map[string]interface{})
	return defs
}

func (d *Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Spec)
}

// Resource generates the document for a base FHIR resource: CRUD, search
// and history operations under /<lower(name)>-api. search holds the query
// parameters of the search operation.
func (g *Generator) Resource(name string, search []map[string]interface{}) (*Document, error) {
	res, err := g.engine.Run(name)
	if err != nil {
		return nil, err
	}

	description, _ := res.Definitions[name]["description"].(string)

	spec := g.newSpec(res, resourceProduces)
	spec["basePath"] = "/" + strings.ToLower(name) + "-api"
	spec["info"] = map[string]interface{}{
		"title":       name + "FHIRAPI",
		"version":     g.engine.Index().Version(),
		"description": description,
	}
	spec["paths"] = resourcePaths(name, search)

	return g.finish(name, res, spec), nil
}

// Profile describes an implementation guide profile to generate for.
type Profile struct {
	ID          string
	Type        string
	Tag         string
	Version     string
	Description string
}

// Profile generates the document for an implementation guide profile: a
// single search operation on the constrained base resource.
func (g *Generator) Profile(p Profile, search []map[string]interface{}) (*Document, error) {
	if p.Type == "" {
		return nil, fmt.Errorf("profile %s has no base type", p.ID)
	}
	res, err := g.engine.Run(p.Type)
	if err != nil {
		return nil, err
	}

	spec := g.newSpec(res, profileProduces)
	spec["basePath"] = "/"
	spec["info"] = map[string]interface{}{
		"title":       p.ID + "FHIRAPI",
		"version":     p.Version,
		"description": p.Description,
	}
	spec["paths"] = map[string]interface{}{
		"/" + p.Type: map[string]interface{}{
			"get": map[string]interface{}{
				"tags":       []string{p.Tag},
				"summary":    "Get " + p.ID,
				"parameters": nonNil(search),
				"responses": map[string]interface{}{
					"200": successResponse(p.Type),
				},
			},
		},
	}

	return g.finish(p.ID, res, spec), nil
}

func (g *Generator) newSpec(res *deref.Result, produces []string) map[string]interface{} {
	defs := make(map[string]interface{}, len(res.Definitions)+len(fragmentBuilders))
	for name, def := range res.Definitions {
		defs[name] = def
	}
	// fixed fragments replace whatever the traversal produced for the same name
	for name, def := range StaticFragments() {
		defs[name] = def
	}

	spec := map[string]interface{}{
		"swagger":     "2.0",
		"host":        g.host,
		"produces":    append([]string(nil), produces...),
		"definitions": defs,
	}
	if g.security {
		spec["securityDefinitions"] = map[string]interface{}{
			"Bearer": map[string]interface{}{
				"name":        "Authorization",
				"in":          "header",
				"type":        "apiKey",
				"description": "Authorization header using the Bearer scheme. Example :: 'Authorization: Bearer {token}'",
			},
		}
		spec["security"] = []map[string][]string{{"Bearer": {}}}
	}
	return spec
}

func (g *Generator) finish(name string, res *deref.Result, spec map[string]interface{}) *Document {
	doc := &Document{Name: name, Root: res.Root, Spec: spec, Tags: res.Tags}
	g.logger.Debug().
		Str("resource", name).
		Str("root", res.Root).
		Int("definitions", len(doc.Definitions())).
		Int("tags", len(res.Tags)).
		Msg("swagger document assembled")
	return doc
}

// resourcePaths builds the CRUD, search and history operations of resource r.
func resourcePaths(r string, search []map[string]interface{}) map[string]interface{} {
	body := []map[string]interface{}{
		{"name": "body", "in": "body", "schema": refSchema(r)},
	}
	history := []map[string]interface{}{
		{"name": "_since", "in": "query", "type": "string"},
		{"name": "_count", "in": "query", "type": "string"},
	}

	return map[string]interface{}{
		"/" + r: map[string]interface{}{
			"post": operation(r, "create", body, responses(r, operationOutcome, operationOutcome)),
			"get":  operation(r, "search", nonNil(search), responses(bundle, operationOutcome, operationOutcome)),
		},
		"/" + r + "/{id}": map[string]interface{}{
			"parameters": []map[string]interface{}{pathParam("id")},
			"get":        operation(r, "read", []map[string]interface{}{}, responses(r, operationOutcome, operationOutcome)),
			"put":        operation(r, "update", body, responses(r, operationOutcome, operationOutcome)),
			"delete":     operation(r, "delete", []map[string]interface{}{}, responses(operationOutcome, operationOutcome, operationOutcome)),
		},
		"/" + r + "/_history": map[string]interface{}{
			"get": operation(r, "history", history, responses(bundle, operationOutcome, operationOutcome)),
		},
		"/" + r + "/{id}/_history": map[string]interface{}{
			"get": operation(r, "instanceHistory",
				append([]map[string]interface{}{pathParam("id")}, history...),
				responses(bundle, operationOutcome, operationOutcome)),
		},
		"/" + r + "/{id}/_history/{vid}": map[string]interface{}{
			"get": operation(r, "vread",
				[]map[string]interface{}{pathParam("id"), pathParam("vid")},
				responses(r, operationOutcome, operationOutcome)),
		},
	}
}

func operation(r, interaction string, params []map[string]interface{}, resp map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"tags":        []string{r},
		"operationId": interaction + r,
		"parameters":  params,
		"responses":   resp,
	}
}

func pathParam(name string) map[string]interface{} {
	return map[string]interface{}{"name": name, "in": "path", "type": "string", "required": true}
}

func refSchema(name string) map[string]interface{} {
	return map[string]interface{}{"$ref": schema.DefinitionRef(name)}
}

// responses builds the 200/400/500/default response set. An empty name
// leaves the schema out.
func responses(success, badRequest, serverError string) map[string]interface{} {
	return map[string]interface{}{
		"200":     successResponse(success),
		"400":     errorResponse(badRequest),
		"500":     errorResponse(serverError),
		"default": errorResponse(serverError),
	}
}

func successResponse(name string) map[string]interface{} {
	return withSchema(map[string]interface{}{"description": "Success"}, name)
}

func errorResponse(name string) map[string]interface{} {
	return withSchema(map[string]interface{}{"description": "Unexpected Error"}, name)
}

func withSchema(resp map[string]interface{}, name string) map[string]interface{} {
	if name != "" {
		resp["schema"] = refSchema(name)
	}
	return resp
}

func nonNil(params []map[string]interface{}) []map[string]interface{} {
	if params == nil {
		return []map[string]interface{}{}
	}
	return params
}
