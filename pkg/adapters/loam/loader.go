package loam

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/aretw0/evalrepl/pkg/adapters/memory"
	"github.com/aretw0/evalrepl/pkg/console"
	"github.com/aretw0/evalrepl/pkg/domain"
	"github.com/aretw0/loam"
)

// Library adapts a Loam repository to ports.SnippetLibrary.
//
// Each document is one snippet: the frontmatter carries SnippetMetadata and
// the body is the code, optionally wrapped in a fenced block.
type Library struct {
	Repo *loam.TypedRepository[SnippetMetadata]
	// Lang is the fence tag stripped from document bodies.
	Lang string
}

// New creates a new Loam adapter.
func New(repo *loam.TypedRepository[SnippetMetadata]) *Library {
	return &Library{
		Repo: repo,
		Lang: console.DefaultFenceLanguage,
	}
}

// Open initializes a read-only Loam repository at dir.
func Open(dir string) (*Library, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve snippet directory: %w", err)
	}
	repo, err := loam.Init(absPath,
		loam.WithStrict(true),
		loam.WithReadOnly(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to open snippet library: %w", err)
	}
	return New(loam.NewTypedRepository[SnippetMetadata](repo)), nil
}

// Snippet retrieves a snippet by document ID or by its declared name.
func (l *Library) Snippet(ctx context.Context, name string) (domain.Snippet, error) {
	if doc, err := l.Repo.Get(ctx, name); err == nil {
		return l.toSnippet(doc.ID, doc.Data, doc.Content), nil
	}

	// Declared names may differ from file names
	all, err := l.Snippets(ctx)
	if err != nil {
		return domain.Snippet{}, err
	}
	for _, s := range all {
		if s.Name == name {
			return s, nil
		}
	}
	return domain.Snippet{}, fmt.Errorf("%w: %s", domain.ErrSnippetNotFound, name)
}

// Snippets lists all snippets in the repository, ordered by Order and then Name.
func (l *Library) Snippets(ctx context.Context) ([]domain.Snippet, error) {
	docs, err := l.Repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("loam list failed: %w", err)
	}

	seen := make(map[string]string)
	snippets := make([]domain.Snippet, 0, len(docs))
	for _, doc := range docs {
		s := l.toSnippet(doc.ID, doc.Data, doc.Content)

		// Collision Detection
		if existing, ok := seen[s.Name]; ok {
			return nil, fmt.Errorf("collision detected: snippet '%s' is defined in both '%s' and '%s'", s.Name, existing, doc.ID)
		}
		seen[s.Name] = doc.ID
		snippets = append(snippets, s)
	}

	memory.SortSnippets(snippets)
	return snippets, nil
}

func (l *Library) toSnippet(docID string, meta SnippetMetadata, content string) domain.Snippet {
	name := meta.Name
	if name == "" {
		name = trimExtension(docID)
	}
	return domain.Snippet{
		Name:        name,
		Description: meta.Description,
		Autoload:    meta.Autoload,
		Order:       meta.Order,
		Code:        strings.TrimSpace(console.StripFences(content, l.Lang)),
	}
}

func trimExtension(id string) string {
	ext := filepath.Ext(id)
	if ext != "" {
		return filepath.ToSlash(strings.TrimSuffix(id, ext))
	}
	return filepath.ToSlash(id)
}
