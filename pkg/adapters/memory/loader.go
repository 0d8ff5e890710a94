package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/aretw0/evalrepl/pkg/domain"
)

// Library implements ports.SnippetLibrary using an in-memory map.
// Safe for concurrent use.
type Library struct {
	mu       sync.RWMutex
	snippets map[string]domain.Snippet
}

// NewLibrary creates a library holding the given snippets.
func NewLibrary(snippets ...domain.Snippet) *Library {
	l := &Library{snippets: make(map[string]domain.Snippet)}
	for _, s := range snippets {
		l.snippets[s.Name] = s
	}
	return l
}

// Put adds or replaces a snippet.
func (l *Library) Put(s domain.Snippet) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.snippets[s.Name] = s
}

// Snippet returns the named snippet.
func (l *Library) Snippet(ctx context.Context, name string) (domain.Snippet, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s, ok := l.snippets[name]
	if !ok {
		return domain.Snippet{}, domain.ErrSnippetNotFound
	}
	return s, nil
}

// Snippets lists every snippet ordered by Order and then Name.
func (l *Library) Snippets(ctx context.Context) ([]domain.Snippet, error) {
	l.mu.RLock()
	out := make([]domain.Snippet, 0, len(l.snippets))
	for _, s := range l.snippets {
		out = append(out, s)
	}
	l.mu.RUnlock()

	SortSnippets(out)
	return out, nil
}

// SortSnippets orders snippets by Order and then Name.
func SortSnippets(snippets []domain.Snippet) {
	sort.SliceStable(snippets, func(i, j int) bool {
		if snippets[i].Order != snippets[j].Order {
			return snippets[i].Order < snippets[j].Order
		}
		return snippets[i].Name < snippets[j].Name
	})
}
