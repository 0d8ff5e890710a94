package format

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aretw0/evalrepl/pkg/domain"
)

// Formatter renders evaluation results for delivery.
type Formatter interface {
	// Name identifies the strategy ("simple", "embed", "ipython").
	Name() string
	// Format renders the input, the returned value and the captured output.
	Format(input string, value any, output string) (domain.Rendering, error)
	// Exit renders the farewell for the exit token the user typed.
	Exit(token string) domain.Rendering
}

// Strategy names accepted by New.
const (
	NameSimple  = "simple"
	NameEmbed   = "embed"
	NameIPython = "ipython"
)

var constructors = map[string]func() Formatter{
	NameSimple:  func() Formatter { return NewSimple() },
	NameEmbed:   func() Formatter { return NewEmbed() },
	NameIPython: func() Formatter { return NewIPython() },
}

// New returns a fresh formatter for the named strategy.
func New(name string) (Formatter, error) {
	ctor, ok := constructors[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownFormatter, name)
	}
	return ctor(), nil
}

// Names lists the available strategies.
func Names() []string {
	names := make([]string, 0, len(constructors))
	for n := range constructors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Fence wraps text in a fenced code block tagged with lang.
func Fence(text, lang string) string {
	return "```" + lang + "\n" + strings.TrimRight(text, "\n") + "\n```"
}

// transcript renders input lines with interpreter prompts.
func transcript(input, first, cont string) string {
	lines := strings.Split(input, "\n")
	var sb strings.Builder
	for i, line := range lines {
		if i == 0 {
			sb.WriteString(first)
		} else {
			sb.WriteString("\n")
			sb.WriteString(cont)
		}
		sb.WriteString(line)
	}
	return sb.String()
}
