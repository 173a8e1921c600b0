package deref

import (
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/ehr/fhir2swagger/internal/platform/schema"
)

func ref(name string) map[string]interface{} {
	return map[string]interface{}{"$ref": "#/definitions/" + name}
}

func arrayOf(name string) map[string]interface{} {
	return map[string]interface{}{"type": "array", "items": ref(name)}
}

func object(props map[string]interface{}) schema.Node {
	return schema.Node{"properties": props}
}

func newEngine(defs map[string]schema.Node, opts ...Option) *Engine {
	idx := schema.NewIndex("http://hl7.org/fhir/json-schema/4.0", defs)
	return NewEngine(schema.NewResolver(idx), opts...)
}

func fixtureEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	idx, err := schema.Load(filepath.Join("..", "schema", "testdata", "fhir.schema.json"))
	if err != nil {
		t.Fatalf("load schema: %v", err)
	}
	return NewEngine(schema.NewResolver(idx), opts...)
}

func TestRun_PatientIdentifierReference(t *testing.T) {
	e := newEngine(map[string]schema.Node{
		"Patient":    object(map[string]interface{}{"identifier": ref("Identifier")}),
		"Identifier": object(map[string]interface{}{"assigner": ref("Reference")}),
		"Reference":  object(map[string]interface{}{"display": map[string]interface{}{"type": "string"}}),
	})

	res, err := e.Run("Patient")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, name := range []string{"Patient", "Identifier", "Reference"} {
		if _, ok := res.Definitions[name]; !ok {
			t.Errorf("expected definition %s", name)
		}
	}
	if !reflect.DeepEqual(res.Tags, []string{"Identifier", "Reference"}) {
		t.Errorf("expected tags [Identifier Reference], got %v", res.Tags)
	}
	if res.Root != "Patient" {
		t.Errorf("expected root Patient, got %q", res.Root)
	}
}

func TestRun_RootNotFound(t *testing.T) {
	e := newEngine(map[string]schema.Node{"Patient": object(nil)})

	_, err := e.Run("Nope")
	if !errors.Is(err, schema.ErrDefinitionNotFound) {
		t.Fatalf("expected ErrDefinitionNotFound, got %v", err)
	}
}

func TestRun_DanglingReferenceFails(t *testing.T) {
	e := newEngine(map[string]schema.Node{
		"Patient": object(map[string]interface{}{"link": ref("Missing")}),
	})

	_, err := e.Run("Patient")
	if !errors.Is(err, schema.ErrDanglingReference) {
		t.Fatalf("expected ErrDanglingReference, got %v", err)
	}
	if !strings.Contains(err.Error(), "Patient.link") {
		t.Errorf("expected owner.property in error, got %v", err)
	}
}

// chain builds Root -> L1 -> L2 -> ... -> Ln.
func chain(n int) map[string]schema.Node {
	defs := map[string]schema.Node{}
	prev := "Root"
	for i := 1; i <= n; i++ {
		name := "L" + string(rune('0'+i))
		defs[prev] = object(map[string]interface{}{"next": ref(name)})
		prev = name
	}
	defs[prev] = object(map[string]interface{}{"leaf": map[string]interface{}{"type": "string"}})
	return defs
}

func TestRun_BoundedDepth(t *testing.T) {
	e := newEngine(chain(6))

	res, err := e.Run("Root")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// round 0 finds L1, rounds 1..3 find L2..L4
	for _, name := range []string{"Root", "L1", "L2", "L3", "L4"} {
		if _, ok := res.Definitions[name]; !ok {
			t.Errorf("expected %s within the round bound", name)
		}
	}
	for _, name := range []string{"L5", "L6"} {
		if _, ok := res.Definitions[name]; ok {
			t.Errorf("expected %s beyond the round bound to be absent", name)
		}
	}

	next := schema.Child(schema.Properties(res.Definitions["L4"]), "next")
	if next["$ref"] != "#/definitions/L5" {
		t.Errorf("expected L4.next to keep its dangling $ref, got %v", next)
	}
}

func TestRun_WithRounds(t *testing.T) {
	e := newEngine(chain(6), WithRounds(1))
	if e.Rounds() != 1 {
		t.Fatalf("expected 1 round, got %d", e.Rounds())
	}

	res, err := e.Run("Root")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Definitions) != 3 {
		t.Errorf("expected Root, L1, L2 with one round, got %d definitions", len(res.Definitions))
	}

	if newEngine(chain(1), WithRounds(0)).Rounds() != DefaultRounds {
		t.Error("expected WithRounds(0) to keep the default")
	}
}

func TestRun_CycleTerminates(t *testing.T) {
	e := newEngine(map[string]schema.Node{
		"A": object(map[string]interface{}{"b": ref("B")}),
		"B": object(map[string]interface{}{"a": ref("A"), "self": arrayOf("B")}),
	}, WithRounds(50))

	res, err := e.Run("A")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Definitions) != 2 {
		t.Errorf("expected A and B once each, got %v", res.Definitions)
	}
	if !reflect.DeepEqual(res.Tags, []string{"B", "A"}) {
		t.Errorf("expected tags [B A], got %v", res.Tags)
	}
}

func TestRun_RootKeepsFirstResolution(t *testing.T) {
	e := newEngine(map[string]schema.Node{
		"Patient": object(map[string]interface{}{
			"resourceType": map[string]interface{}{"const": "Patient"},
			"link":         ref("Link"),
		}),
		"Link": object(map[string]interface{}{"other": ref("Patient")}),
	})

	res, err := e.Run("Patient")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rt := schema.Child(schema.Properties(res.Definitions["Patient"]), "resourceType")
	if _, ok := rt["const"]; ok {
		t.Error("rediscovering the root must not replace the patched definition")
	}
}

func TestRun_Idempotent(t *testing.T) {
	e := fixtureEngine(t)

	first, err := e.Run("Patient")
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := e.Run("Patient")
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !reflect.DeepEqual(first.Tags, second.Tags) {
		t.Errorf("tag order differs between runs:\n%v\n%v", first.Tags, second.Tags)
	}
	if !reflect.DeepEqual(first.Definitions, second.Definitions) {
		t.Error("definitions differ between runs")
	}
}

func TestRun_NoDuplicateTags(t *testing.T) {
	res, err := fixtureEngine(t).Run("Patient")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	seen := map[string]bool{}
	for _, name := range res.Tags {
		if seen[name] {
			t.Errorf("tag %s listed twice", name)
		}
		seen[name] = true
		if _, ok := res.Definitions[name]; !ok {
			t.Errorf("tag %s has no definition", name)
		}
	}
}

func TestRun_FixturePatient(t *testing.T) {
	res, err := fixtureEngine(t).Run("Patient")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defs := res.Definitions
	patient := schema.Properties(defs["Patient"])

	rt := schema.Child(patient, "resourceType")
	if _, ok := rt["const"]; ok {
		t.Error("expected const removed from resourceType")
	}
	if rt["type"] != "string" {
		t.Errorf("expected resourceType type string, got %v", rt["type"])
	}

	for _, gone := range []string{"contained", "_birthDate"} {
		if _, ok := patient[gone]; ok {
			t.Errorf("expected Patient.%s removed", gone)
		}
	}
	if _, ok := defs["ResourceList"]; ok {
		t.Error("contained target must not be resolved")
	}
	if _, ok := defs["Element"]; ok {
		t.Error("underscore target must not be resolved")
	}

	if defs["xhtml"]["type"] != "string" {
		t.Errorf("expected xhtml type string, got %v", defs["xhtml"]["type"])
	}

	ext := schema.Properties(defs["Extension"])
	if _, ok := ext["_url"]; ok {
		t.Error("expected Extension._url removed")
	}
	addr := schema.Child(ext, "valueAddress")
	if addr["type"] != "string" {
		t.Errorf("expected valueAddress degraded to string, got %v", addr)
	}
	if _, ok := addr["$ref"]; ok {
		t.Error("expected valueAddress $ref dropped")
	}
	if _, ok := defs["Address"]; ok {
		t.Error("degraded choice target must not be resolved")
	}
	if schema.Child(ext, "valueReference")["$ref"] != "#/definitions/Reference" {
		t.Error("expected valueReference kept: Reference was already discovered")
	}
	if schema.Child(ext, "valueBoolean")["$ref"] != "#/definitions/boolean" {
		t.Error("expected valueBoolean kept: boolean is primitive")
	}
	if _, ok := defs["boolean"]; !ok {
		t.Error("expected boolean resolved through Extension.valueBoolean")
	}
}

func TestRun_NoContainedAnywhere(t *testing.T) {
	e := newEngine(map[string]schema.Node{
		"Root": object(map[string]interface{}{"a": ref("A")}),
		"A":    object(map[string]interface{}{"b": ref("B"), "Contained": arrayOf("X")}),
		"B":    object(map[string]interface{}{"c": ref("C"), "subContained": ref("X")}),
		"C":    object(map[string]interface{}{"d": ref("D")}),
		"D":    object(map[string]interface{}{"contained": arrayOf("X"), "_note": ref("X")}),
		"X":    object(nil),
	})

	res, err := e.Run("Root")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for name, def := range res.Definitions {
		for prop := range schema.Properties(def) {
			if strings.HasSuffix(strings.ToLower(prop), "contained") {
				t.Errorf("%s still has %s", name, prop)
			}
			if strings.HasPrefix(prop, "_") {
				t.Errorf("%s still has %s", name, prop)
			}
		}
	}
	if _, ok := res.Definitions["X"]; ok {
		t.Error("X is only reachable through removed properties")
	}
}

func TestRun_DoesNotMutateIndex(t *testing.T) {
	idx := schema.NewIndex("x", map[string]schema.Node{
		"Patient": object(map[string]interface{}{
			"resourceType": map[string]interface{}{"const": "Patient"},
			"contained":    arrayOf("Patient"),
		}),
	})
	e := NewEngine(schema.NewResolver(idx))

	if _, err := e.Run("Patient"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	raw, _ := idx.Lookup("Patient")
	if _, ok := schema.Properties(raw)["contained"]; !ok {
		t.Error("traversal must not patch the shared schema")
	}
}

func TestTransform_ExplicitState(t *testing.T) {
	e := newEngine(map[string]schema.Node{
		"Identifier": object(map[string]interface{}{"system": map[string]interface{}{"type": "string"}}),
	})
	st := NewState()
	st.Definitions["Patient"] = object(map[string]interface{}{"identifier": arrayOf("Identifier")})
	props := schema.Properties(st.Definitions["Patient"])

	if err := e.Transform(st, "Patient", "identifier", props); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !st.Tags.Has("Identifier") {
		t.Error("expected Identifier tagged")
	}
	if _, ok := st.Definitions["Identifier"]; !ok {
		t.Error("expected Identifier emitted")
	}
	if err := e.Transform(st, "Patient", "missing", props); err != nil {
		t.Errorf("expected missing property to be a no-op, got %v", err)
	}
}
