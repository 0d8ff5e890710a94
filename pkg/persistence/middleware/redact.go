package middleware

import (
	"context"
	"regexp"

	"github.com/aretw0/evalrepl/pkg/domain"
	"github.com/aretw0/evalrepl/pkg/ports"
)

// Mask replaces redacted text.
const Mask = "***"

type redactMiddleware struct {
	next     ports.HistoryStore
	patterns []*regexp.Regexp
}

// NewRedactMiddleware creates a middleware that masks every match of the
// patterns in the input, value, output and error of appended records.
// The records held by the caller are not modified.
func NewRedactMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		patterns[i] = re
	}
	return func(next ports.HistoryStore) ports.HistoryStore {
		return &redactMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *redactMiddleware) Append(ctx context.Context, rec *domain.Record) error {
	cloned := *rec
	for _, field := range []*string{&cloned.Input, &cloned.Value, &cloned.Output, &cloned.Error} {
		*field = m.mask(*field)
	}
	return m.next.Append(ctx, &cloned)
}

func (m *redactMiddleware) mask(s string) string {
	for _, p := range m.patterns {
		s = p.ReplaceAllString(s, Mask)
	}
	return s
}

func (m *redactMiddleware) List(ctx context.Context, sessionID string) ([]*domain.Record, error) {
	return m.next.List(ctx, sessionID)
}

func (m *redactMiddleware) Get(ctx context.Context, sessionID, recordID string) (*domain.Record, error) {
	return m.next.Get(ctx, sessionID, recordID)
}

func (m *redactMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *redactMiddleware) Sessions(ctx context.Context) ([]string, error) {
	return m.next.Sessions(ctx)
}
