package apidoc

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ehr/fhir2swagger/pkg/pagination"
)

const outputSuffix = "-output"

type fileRepo struct {
	dir string
}

// NewFileRepo stores documents as <name>-output.<ext> files in dir.
// Names read back from disk are lower case.
func NewFileRepo(dir string) DocumentRepository {
	return &fileRepo{dir: dir}
}

func (r *fileRepo) Save(ctx context.Context, doc *APIDocument) error {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir %s: %w", r.dir, err)
	}
	path := filepath.Join(r.dir, doc.FileName)
	if err := os.WriteFile(path, doc.Content, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (r *fileRepo) GetByName(ctx context.Context, name string) (*APIDocument, error) {
	for _, f := range []Format{FormatJSON, FormatYAML} {
		doc, err := r.read(FileName(name, f), f)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return doc, err
	}
	return nil, ErrDocumentNotFound
}

func (r *fileRepo) List(ctx context.Context, limit, offset int) ([]*APIDocument, int, error) {
	entries, err := os.ReadDir(r.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []*APIDocument{}, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", r.dir, err)
	}

	type file struct {
		name   string
		format Format
	}
	var files []file
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.TrimPrefix(filepath.Ext(e.Name()), ".")
		f, err := ParseFormat(ext)
		if err != nil || ext == "" || !strings.HasSuffix(strings.TrimSuffix(e.Name(), "."+ext), outputSuffix) {
			continue
		}
		files = append(files, file{name: e.Name(), format: f})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].name < files[j].name })

	start, end := pagination.Params{Limit: limit, Offset: offset}.Window(len(files))
	out := make([]*APIDocument, 0, end-start)
	for _, f := range files[start:end] {
		doc, err := r.read(f.name, f.format)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, doc)
	}
	return out, len(files), nil
}

func (r *fileRepo) read(fileName string, f Format) (*APIDocument, error) {
	path := filepath.Join(r.dir, fileName)
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	name := strings.TrimSuffix(strings.TrimSuffix(fileName, filepath.Ext(fileName)), outputSuffix)
	doc := &APIDocument{
		ID:          DocumentID(name),
		Name:        name,
		FileName:    fileName,
		Format:      f,
		Content:     content,
		GeneratedAt: info.ModTime().UTC(),
	}
	if data, err := doc.JSON(); err == nil {
		doc.Definitions = countDefinitions(data)
	}
	return doc, nil
}
