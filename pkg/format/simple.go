package format

import (
	"strings"

	"github.com/aretw0/evalrepl/pkg/domain"
)

const (
	promptPrimary  = ">>> "
	promptContinue = "... "
)

// Simple renders a plain interpreter transcript.
type Simple struct{}

// NewSimple creates the plain text strategy.
func NewSimple() *Simple { return &Simple{} }

func (s *Simple) Name() string { return NameSimple }

// Format writes the prompted input, then the captured output, then the
// value when there is one.
func (s *Simple) Format(input string, value any, output string) (domain.Rendering, error) {
	var sb strings.Builder
	sb.WriteString(transcript(input, promptPrimary, promptContinue))
	if out := strings.TrimRight(output, "\n"); out != "" {
		sb.WriteString("\n")
		sb.WriteString(out)
	}
	if value != nil {
		sb.WriteString("\n")
		sb.WriteString(Repr(value))
	}
	return domain.Rendering{Text: sb.String()}, nil
}

func (s *Simple) Exit(token string) domain.Rendering {
	return domain.Rendering{Text: promptPrimary + token + "\nenvironment reset"}
}
