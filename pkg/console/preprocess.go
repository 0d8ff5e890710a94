package console

import (
	"strings"

	"github.com/aretw0/evalrepl/pkg/domain"
)

// exitTokens reset the session instead of being evaluated.
var exitTokens = map[string]bool{
	"exit":   true,
	"exit()": true,
	"quit":   true,
	"quit()": true,
}

// Directive is the outcome of preprocessing one input.
type Directive struct {
	// Control is set for exit tokens: nothing runs, the session resets.
	Control bool
	// Token is the exit token as typed, when Control is set.
	Token string
	// Input is the trimmed code to run.
	Input string
	// Context holds the per-call names merged into the environment.
	Context map[string]any
}

// Preprocess classifies raw input. Exit tokens match case-sensitively
// after trimming; anything else is handed on for execution together with
// the invocation's context names. Malformed code is not detected here.
func Preprocess(raw string, inv domain.Invocation) Directive {
	trimmed := strings.TrimSpace(raw)
	if exitTokens[trimmed] {
		return Directive{Control: true, Token: trimmed}
	}
	return Directive{Input: trimmed, Context: inv.ContextMap()}
}

// IsExitToken reports whether input, once trimmed, resets the session.
func IsExitToken(input string) bool {
	return exitTokens[strings.TrimSpace(input)]
}

// StripFences removes chat code decoration around input: a fenced block
// tagged with lang (or untagged), or a pair of single backticks.
// Anything else is returned unchanged.
func StripFences(input, lang string) string {
	s := strings.TrimSpace(input)

	if body, ok := strings.CutPrefix(s, "```"); ok {
		switch {
		case lang != "" && strings.HasPrefix(body, lang) && startsWithSpace(body[len(lang):]):
			body = body[len(lang):]
		case startsWithSpace(body):
		default:
			return input
		}
		body = strings.TrimSuffix(strings.TrimRight(body, " \t\r\n"), "```")
		return strings.TrimSpace(body)
	}

	if len(s) >= 2 && s[0] == '`' && s[len(s)-1] == '`' {
		return s[1 : len(s)-1]
	}
	return input
}

func startsWithSpace(s string) bool {
	return s == "" || s[0] == '\n' || s[0] == '\r' || s[0] == ' ' || s[0] == '\t'
}
