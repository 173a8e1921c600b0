// Package deref flattens a FHIR JSON Schema resource into a self-contained
// Swagger 2.0 definitions map.
//
// Starting from a root resource, the Engine walks every property, applies the
// adaptation rule table, and resolves each newly seen $ref target into the
// output. The walk repeats over the discovered names for a fixed number of
// rounds rather than to a fixed point: references nested deeper than the
// round count stay in the output as $ref pointers without a definitions
// entry.
package deref

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ehr/fhir2swagger/internal/platform/schema"
)

// DefaultRounds is the number of passes made over the discovered names after
// the root resource has been walked.
const DefaultRounds = 3

// Engine runs the bounded dereferencing walk. An Engine holds no per-run
// state and may be shared across goroutines.
type Engine struct {
	resolver *schema.Resolver
	rules    []Rule
	rounds   int
	logger   zerolog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithRounds overrides DefaultRounds. Values below 1 are ignored.
func WithRounds(n int) Option {
	return func(e *Engine) {
		if n >= 1 {
			e.rounds = n
		}
	}
}

// WithRules replaces the default rule table.
func WithRules(rules ...Rule) Option {
	return func(e *Engine) { e.rules = rules }
}

// WithLogger sets the logger used for per-round debug events.
func WithLogger(logger zerolog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// NewEngine creates an Engine resolving references through resolver.
func NewEngine(resolver *schema.Resolver, opts ...Option) *Engine {
	e := &Engine{
		resolver: resolver,
		rules:    DefaultRules(),
		rounds:   DefaultRounds,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Rounds returns the configured round count.
func (e *Engine) Rounds() int { return e.rounds }

// Index returns the schema the engine reads from.
func (e *Engine) Index() *schema.Index { return e.resolver.Index() }

// Result is the output of one traversal.
type Result struct {
	Root        string
	Definitions map[string]schema.Node
	// Tags lists the discovered names in discovery order. The root is only
	// present when something references it.
	Tags []string
}

// Run walks the definition named root. A missing root yields
// schema.ErrDefinitionNotFound; a $ref to a missing definition yields
// schema.ErrDanglingReference.
func (e *Engine) Run(root string) (*Result, error) {
	def, ok := e.resolver.Index().Lookup(root)
	if !ok {
		return nil, fmt.Errorf("%w: %s", schema.ErrDefinitionNotFound, root)
	}

	st := NewState()
	st.Definitions[root] = def

	if err := e.walk(st, root, true); err != nil {
		return nil, err
	}

	walked := make(map[string]bool)
	for round := 1; round <= e.rounds; round++ {
		for _, name := range st.Tags.Names() {
			if err := e.walk(st, name, true); err != nil {
				return nil, err
			}
			walked[name] = true
		}
		e.logger.Debug().
			Str("root", root).
			Int("round", round).
			Int("tags", st.Tags.Len()).
			Int("definitions", len(st.Definitions)).
			Msg("traversal round")
	}

	// Names found in the last round are emitted but never walked. Give them
	// the same property patches without discovering anything further.
	for _, name := range st.Tags.Names() {
		if walked[name] {
			continue
		}
		if err := e.walk(st, name, false); err != nil {
			return nil, err
		}
	}

	return &Result{
		Root:        root,
		Definitions: st.Definitions,
		Tags:        st.Tags.Names(),
	}, nil
}

func (e *Engine) walk(st *State, owner string, discover bool) error {
	props := schema.Properties(st.Definitions[owner])
	if props == nil {
		return nil
	}
	for _, key := range schema.SortedKeys(props) {
		if err := e.transform(st, owner, key, props, discover); err != nil {
			return err
		}
	}
	return nil
}

// Transform applies the rule table and reference discovery to one property
// of owner. props must be the owner's property map held in st.
func (e *Engine) Transform(st *State, owner, property string, props schema.Node) error {
	return e.transform(st, owner, property, props, true)
}

func (e *Engine) transform(st *State, owner, property string, props schema.Node, discover bool) error {
	if _, ok := props[property]; !ok {
		return nil
	}
	p := &Patch{Owner: owner, Property: property, Props: props, State: st}
	for _, r := range e.rules {
		if !r.applies(owner, property) {
			continue
		}
		if r.Apply(p) == Stop {
			return nil
		}
	}
	if !discover {
		return nil
	}
	return e.discover(p)
}

// discover records the property's $ref target and emits its definition the
// first time it is seen.
func (e *Engine) discover(p *Patch) error {
	n := p.Node()
	if n == nil {
		return nil
	}
	ref := schema.RefOf(n)
	if ref == "" {
		return nil
	}
	if !p.State.Tags.Add(schema.TargetName(ref)) {
		return nil
	}
	name, def, err := e.resolver.Resolve(ref)
	if err != nil {
		return fmt.Errorf("%s.%s: %w", p.Owner, p.Property, err)
	}
	if _, exists := p.State.Definitions[name]; !exists {
		p.State.Definitions[name] = def
	}
	return nil
}
