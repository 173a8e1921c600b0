package apidoc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/fhir2swagger/internal/domain/searchparameter"
	"github.com/ehr/fhir2swagger/internal/domain/structuredefinition"
	"github.com/ehr/fhir2swagger/internal/platform/merge"
	"github.com/ehr/fhir2swagger/internal/platform/openapi"
	"github.com/ehr/fhir2swagger/internal/platform/validate"
)

// Service generates Swagger documents for resources and profiles and
// publishes them to every configured repository. The first repository is
// the one documents are read back from.
type Service struct {
	gen      *openapi.Generator
	params   *searchparameter.Service
	profiles structuredefinition.ProfileRepository
	guide    []*searchparameter.SearchParameter
	overlay  *merge.Overlay
	validate bool
	format   Format
	repos    []DocumentRepository
	logger   zerolog.Logger
	now      func() time.Time
}

type Option func(*Service)

// WithProfiles enables profile mode: profiles are looked up in repo and
// guide holds the implementation guide's own search parameters.
func WithProfiles(repo structuredefinition.ProfileRepository, guide []*searchparameter.SearchParameter) Option {
	return func(s *Service) {
		s.profiles = repo
		s.guide = guide
	}
}

func WithOverlay(o *merge.Overlay) Option {
	return func(s *Service) { s.overlay = o }
}

func WithValidation(enabled bool) Option {
	return func(s *Service) { s.validate = enabled }
}

func WithFormat(f Format) Option {
	return func(s *Service) { s.format = f }
}

func WithRepositories(repos ...DocumentRepository) Option {
	return func(s *Service) { s.repos = append(s.repos, repos...) }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func withClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(gen *openapi.Generator, params *searchparameter.Service, opts ...Option) *Service {
	s := &Service{
		gen:    gen,
		params: params,
		format: FormatJSON,
		logger: zerolog.Nop(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Request selects what a Generate call produces.
type Request struct {
	Names []string
	// Profile treats Names as implementation guide profile ids.
	Profile bool
	// Combine also merges every generated document into one.
	Combine bool
}

// Result is the outcome for one requested name.
type Result struct {
	Name     string
	Document *APIDocument
	Report   *validate.Report
	Err      error
}

type Batch struct {
	Results  []Result
	Combined *APIDocument
}

func (b *Batch) Failed() int {
	n := 0
	for _, r := range b.Results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

// AllFailed reports whether the batch produced no document at all.
func (b *Batch) AllFailed() bool {
	return len(b.Results) > 0 && b.Failed() == len(b.Results)
}

// Generate builds one document per requested name. A failure for one name
// is recorded in its Result and does not stop the others. The returned
// error covers only the combined document and context cancellation.
func (s *Service) Generate(ctx context.Context, req Request) (*Batch, error) {
	batch := &Batch{Results: make([]Result, 0, len(req.Names))}
	var generated [][]byte

	for _, name := range req.Names {
		if err := ctx.Err(); err != nil {
			return batch, err
		}

		res, spec := s.generateOne(ctx, name, req.Profile)
		batch.Results = append(batch.Results, res)
		if res.Err != nil {
			s.logger.Error().Err(res.Err).Str("resource", name).Msg("generation failed")
			continue
		}
		generated = append(generated, spec)
	}

	if req.Combine && len(generated) > 0 {
		combined, err := s.combine(ctx, generated)
		if err != nil {
			return batch, err
		}
		batch.Combined = combined
	}
	return batch, nil
}

func (s *Service) generateOne(ctx context.Context, name string, profile bool) (Result, []byte) {
	res := Result{Name: name}

	var doc *openapi.Document
	var err error
	if profile {
		doc, err = s.profileDocument(name)
	} else {
		doc, err = s.gen.Resource(name, swaggerParams(s.params.ForResource(name)))
	}
	if err != nil {
		res.Err = err
		return res, nil
	}

	spec, err := json.Marshal(doc)
	if err != nil {
		res.Err = fmt.Errorf("encode %s: %w", name, err)
		return res, nil
	}
	if s.overlay != nil {
		if spec, err = s.overlay.Apply(spec); err != nil {
			res.Err = fmt.Errorf("%s: %w", name, err)
			return res, nil
		}
	}

	if s.validate {
		report, err := validate.Document(ctx, spec)
		if err != nil {
			res.Err = fmt.Errorf("validate %s: %w", name, err)
			return res, nil
		}
		res.Report = report
		s.logReport(name, report)
	}

	stored, err := s.publish(ctx, doc.Name, spec)
	if err != nil {
		res.Err = err
		return res, nil
	}
	res.Document = stored

	s.logger.Info().
		Str("resource", name).
		Int("definitions", stored.Definitions).
		Int("tags", len(doc.Tags)).
		Str("file", stored.FileName).
		Msg("document generated")
	return res, spec
}

func (s *Service) profileDocument(id string) (*openapi.Document, error) {
	if s.profiles == nil {
		return nil, fmt.Errorf("profile %s: %w", id, structuredefinition.ErrProfileNotFound)
	}
	p, err := s.profiles.GetByID(id)
	if err != nil {
		return nil, err
	}
	search := s.params.ForProfile(p.Type, p.URL, s.guide)
	return s.gen.Profile(openapi.Profile{
		ID:          p.ID,
		Type:        p.Type,
		Tag:         p.Tag(),
		Version:     p.Version,
		Description: p.Description,
	}, swaggerParams(search))
}

func (s *Service) combine(ctx context.Context, specs [][]byte) (*APIDocument, error) {
	spec, err := merge.Combine(specs...)
	if err != nil {
		return nil, err
	}
	if s.validate {
		report, err := validate.Document(ctx, spec)
		if err != nil {
			return nil, fmt.Errorf("validate combined document: %w", err)
		}
		s.logReport(CombinedName, report)
	}
	doc, err := s.publish(ctx, CombinedName, spec)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int("documents", len(specs)).Str("file", doc.FileName).Msg("combined document generated")
	return doc, nil
}

func (s *Service) publish(ctx context.Context, name string, spec []byte) (*APIDocument, error) {
	doc, err := NewAPIDocument(name, spec, s.format, s.now())
	if err != nil {
		return nil, err
	}
	for _, repo := range s.repos {
		if err := repo.Save(ctx, doc); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

func (s *Service) logReport(name string, r *validate.Report) {
	evt := s.logger.Info()
	if !r.Valid() {
		evt = s.logger.Warn()
	}
	evt.Str("resource", name).
		Int("errors", r.Count(validate.SeverityError)).
		Int("warnings", r.Count(validate.SeverityWarning)).
		Strs("dangling", r.Dangling).
		Msg("document validated")
	for _, f := range r.Findings {
		if f.Severity == validate.SeverityError {
			s.logger.Debug().Str("resource", name).Str("location", f.Location).Msg(f.Message)
		}
	}
}

// Get returns a stored document from the primary repository.
func (s *Service) Get(ctx context.Context, name string) (*APIDocument, error) {
	if len(s.repos) == 0 {
		return nil, ErrDocumentNotFound
	}
	return s.repos[0].GetByName(ctx, name)
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*APIDocument, int, error) {
	if len(s.repos) == 0 {
		return []*APIDocument{}, 0, nil
	}
	return s.repos[0].List(ctx, limit, offset)
}

// IsNotFound reports whether err means the requested name does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrDocumentNotFound)
}

func swaggerParams(params []searchparameter.QueryParameter) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(params))
	for _, p := range params {
		out = append(out, p.ToSwagger())
	}
	return out
}
