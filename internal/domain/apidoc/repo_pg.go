package apidoc

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type documentRepoPG struct{ pool *pgxpool.Pool }

// NewDocumentRepoPG stores documents in the api_document table, one row per
// DocumentID, so names differing only in case share a row.
func NewDocumentRepoPG(pool *pgxpool.Pool) DocumentRepository {
	return &documentRepoPG{pool: pool}
}

const docCols = `id, name, file_name, format, content, definitions, generated_at`

func (r *documentRepoPG) scanRow(row pgx.Row) (*APIDocument, error) {
	var d APIDocument
	var format string
	err := row.Scan(&d.ID, &d.Name, &d.FileName, &format, &d.Content, &d.Definitions, &d.GeneratedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, err
	}
	d.Format = Format(format)
	return &d, nil
}

func (r *documentRepoPG) Save(ctx context.Context, d *APIDocument) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO api_document (`+docCols+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		ON CONFLICT (id) DO UPDATE SET
			name=EXCLUDED.name, file_name=EXCLUDED.file_name, format=EXCLUDED.format, content=EXCLUDED.content,
			definitions=EXCLUDED.definitions, generated_at=EXCLUDED.generated_at`,
		d.ID, d.Name, d.FileName, string(d.Format), d.Content, d.Definitions, d.GeneratedAt)
	if err != nil {
		return fmt.Errorf("save document %s: %w", d.Name, err)
	}
	return nil
}

func (r *documentRepoPG) GetByName(ctx context.Context, name string) (*APIDocument, error) {
	return r.scanRow(r.pool.QueryRow(ctx,
		`SELECT `+docCols+` FROM api_document WHERE lower(name) = lower($1)`, name))
}

func (r *documentRepoPG) List(ctx context.Context, limit, offset int) ([]*APIDocument, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM api_document`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+docCols+` FROM api_document ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*APIDocument
	for rows.Next() {
		d, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}
