package ports

import (
	"context"

	"github.com/aretw0/evalrepl/pkg/domain"
)

// SnippetLibrary provides named code snippets.
type SnippetLibrary interface {
	// Snippet returns the snippet with the given name.
	// Returns domain.ErrSnippetNotFound if it does not exist.
	Snippet(ctx context.Context, name string) (domain.Snippet, error)

	// Snippets lists every snippet, ordered by Order and then Name.
	Snippets(ctx context.Context) ([]domain.Snippet, error)
}

// Autoload filters the snippets that run when a session starts or resets,
// keeping their order.
func Autoload(snippets []domain.Snippet) []domain.Snippet {
	var out []domain.Snippet
	for _, s := range snippets {
		if s.Autoload {
			out = append(out, s)
		}
	}
	return out
}
