package format

import (
	"fmt"
	"strings"
	"sync"

	"github.com/aretw0/evalrepl/pkg/domain"
)

// IPython renders a numbered In/Out transcript plus an embed describing
// the value.
type IPython struct {
	mu      sync.Mutex
	counter int
}

// NewIPython creates the extended strategy. Numbering starts at 1.
func NewIPython() *IPython { return &IPython{counter: 1} }

func (p *IPython) Name() string { return NameIPython }

func (p *IPython) next() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := p.counter
	p.counter++
	return n
}

func (p *IPython) Format(input string, value any, output string) (domain.Rendering, error) {
	n := p.next()
	in := fmt.Sprintf("In [%d]: ", n)
	cont := strings.Repeat(" ", len(in)-5) + "...: "

	var sb strings.Builder
	sb.WriteString(transcript(input, in, cont))
	if out := strings.TrimRight(output, "\n"); out != "" {
		sb.WriteString("\n")
		sb.WriteString(out)
	}
	if value != nil {
		fmt.Fprintf(&sb, "\nOut[%d]: %s", n, Repr(value))
	}

	r := domain.Rendering{Text: sb.String()}
	switch v := value.(type) {
	case nil:
	case *domain.Embed:
		r.Embed = v
	default:
		r.Embed = &domain.Embed{
			Title:       fmt.Sprintf("Out[%d]", n),
			Description: Fence(Repr(v), "lua"),
			Color:       ColorResult,
			Footer:      TypeName(v),
		}
	}
	return r, nil
}

// Exit answers like the interactive shell and restarts the numbering.
func (p *IPython) Exit(token string) domain.Rendering {
	p.mu.Lock()
	n := p.counter
	p.counter = 1
	p.mu.Unlock()
	return domain.Rendering{
		Text: fmt.Sprintf("In [%d]: %s\nDo you really want to exit ([y]/n)? y", n, token),
	}
}
