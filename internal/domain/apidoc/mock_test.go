package apidoc

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/ehr/fhir2swagger/pkg/pagination"
)

type mockRepo struct {
	docs    map[string]*APIDocument
	saves   int
	saveErr error
}

func newMockRepo(docs ...*APIDocument) *mockRepo {
	m := &mockRepo{docs: make(map[string]*APIDocument)}
	for _, d := range docs {
		m.docs[strings.ToLower(d.Name)] = d
	}
	return m
}

func (m *mockRepo) Save(_ context.Context, doc *APIDocument) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.docs[strings.ToLower(doc.Name)] = doc
	return nil
}

func (m *mockRepo) GetByName(_ context.Context, name string) (*APIDocument, error) {
	d, ok := m.docs[strings.ToLower(name)]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	return d, nil
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*APIDocument, int, error) {
	names := make([]string, 0, len(m.docs))
	for n := range m.docs {
		names = append(names, n)
	}
	sort.Strings(names)
	start, end := pagination.Params{Limit: limit, Offset: offset}.Window(len(names))
	out := make([]*APIDocument, 0, end-start)
	for _, n := range names[start:end] {
		out = append(out, m.docs[n])
	}
	return out, len(names), nil
}

var errDiskFull = errors.New("disk full")
