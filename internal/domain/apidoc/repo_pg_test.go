package apidoc

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ehr/fhir2swagger/internal/platform/db"
)

func TestDocumentRepoPG(t *testing.T) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set")
	}
	ctx := context.Background()

	pool, err := db.NewPool(ctx, url, db.Options{MaxConns: 2})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer pool.Close()
	if _, err := db.NewMigrator(pool, db.Migrations()).Up(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	repo := NewDocumentRepoPG(pool)
	name := "TestPatient" + time.Now().Format("150405.000000")
	doc, err := NewAPIDocument(name, []byte(sampleSpec), FormatJSON, time.Now().UTC().Truncate(time.Microsecond))
	if err != nil {
		t.Fatalf("new document: %v", err)
	}
	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), `DELETE FROM api_document WHERE id = $1`, doc.ID)
	})

	if err := repo.Save(ctx, doc); err != nil {
		t.Fatalf("save: %v", err)
	}
	doc.Definitions = 7
	if err := repo.Save(ctx, doc); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := repo.GetByName(ctx, name)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != doc.ID || got.Definitions != 7 || got.Format != FormatJSON {
		t.Errorf("unexpected document %+v", got)
	}

	if _, err := repo.GetByName(ctx, "no-such-document"); !IsNotFound(err) {
		t.Errorf("expected ErrDocumentNotFound, got %v", err)
	}

	items, total, err := repo.List(ctx, 100, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total < 1 || len(items) < 1 {
		t.Errorf("expected at least one document, got %d", total)
	}

	lower, err := NewAPIDocument(strings.ToLower(name), []byte(sampleSpec), FormatYAML, time.Now().UTC().Truncate(time.Microsecond))
	if err != nil {
		t.Fatalf("new document: %v", err)
	}
	if lower.ID != doc.ID {
		t.Fatalf("expected case-insensitive id, got %s and %s", lower.ID, doc.ID)
	}
	if err := repo.Save(ctx, lower); err != nil {
		t.Fatalf("upsert with different case: %v", err)
	}

	var rows int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM api_document WHERE lower(name) = lower($1)`, name).Scan(&rows); err != nil {
		t.Fatalf("count: %v", err)
	}
	if rows != 1 {
		t.Errorf("expected one row per document id, got %d", rows)
	}
	got, err = repo.GetByName(ctx, name)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != lower.Name || got.Format != FormatYAML {
		t.Errorf("expected the later save to win, got %+v", got)
	}
}
