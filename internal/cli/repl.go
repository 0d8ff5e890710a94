package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/evalrepl/internal/presentation/tui"
	"github.com/aretw0/evalrepl/pkg/domain"
	"github.com/aretw0/evalrepl/pkg/session"
)

const (
	promptPrimary  = "evalrepl> "
	promptContinue = "........> "
	fence          = "```"
)

// REPL reads messages from a terminal and sends them to one session.
//
// A message is a single line, several lines joined by a trailing backslash,
// or a fenced block spanning from an opening ``` line to a closing one.
type REPL struct {
	Sessions  *session.Manager
	SessionID string
	Author    string
	In        io.Reader
	Out       io.Writer

	// Prompt enables the interactive prompts.
	Prompt bool
	// Render turns a rendering into terminal output. Defaults to tui.Plain.
	Render func(domain.Rendering) string
	// Invocation builds the per-message context. Defaults to an author-only invocation.
	Invocation func(content, author string) domain.Invocation
}

// Run loops until the input ends or ctx is cancelled.
func (r *REPL) Run(ctx context.Context) error {
	render := r.Render
	if render == nil {
		render = tui.Plain
	}
	invocation := r.Invocation
	if invocation == nil {
		invocation = func(content, author string) domain.Invocation {
			return domain.Invocation{
				Message: domain.Message{Content: content},
				Author:  domain.User{ID: author, Name: author},
			}
		}
	}

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(r.In)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
		close(lines)
	}()

	var pending []string
	inFence := false
	r.prompt(promptPrimary)

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				if len(pending) > 0 {
					r.send(ctx, strings.Join(pending, "\n"), render, invocation)
				}
				return <-readErr
			}

			trimmed := strings.TrimSpace(line)
			switch {
			case inFence:
				pending = append(pending, line)
				if trimmed == fence {
					inFence = false
				}
			case strings.HasPrefix(trimmed, fence) && !(len(trimmed) > len(fence) && strings.HasSuffix(trimmed, fence)):
				pending = append(pending, line)
				inFence = true
			case strings.HasSuffix(line, `\`):
				pending = append(pending, strings.TrimSuffix(line, `\`))
				r.prompt(promptContinue)
				continue
			default:
				pending = append(pending, line)
			}

			if inFence {
				r.prompt(promptContinue)
				continue
			}

			msg := strings.Join(pending, "\n")
			pending = nil
			if strings.TrimSpace(msg) != "" {
				r.send(ctx, msg, render, invocation)
			}
			r.prompt(promptPrimary)
		}
	}
}

func (r *REPL) send(ctx context.Context, msg string, render func(domain.Rendering) string, invocation func(string, string) domain.Invocation) {
	rendering, err := r.Sessions.Evaluate(ctx, r.SessionID, msg, invocation(msg, r.Author))
	if err != nil {
		fmt.Fprintf(r.Out, "error: %v\n", err)
		return
	}
	if out := render(rendering); out != "" {
		fmt.Fprintln(r.Out, strings.TrimRight(out, "\n"))
	}
}

func (r *REPL) prompt(p string) {
	if r.Prompt {
		fmt.Fprint(r.Out, p)
	}
}
