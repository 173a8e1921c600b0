package apidoc

import (
	"context"
	"errors"
)

var ErrDocumentNotFound = errors.New("document not found")

type DocumentRepository interface {
	Save(ctx context.Context, doc *APIDocument) error
	GetByName(ctx context.Context, name string) (*APIDocument, error)
	List(ctx context.Context, limit, offset int) ([]*APIDocument, int, error)
}
