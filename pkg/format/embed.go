package format

import (
	"strings"

	"github.com/aretw0/evalrepl/pkg/domain"
)

// Embed colors.
const (
	ColorResult = 0x5865F2
	ColorExit   = 0x99AAB5
)

// maxFieldLength is the longest field value chat platforms accept.
const maxFieldLength = 1024

// Embed renders a structured display only.
type Embed struct {
	// Lang tags the code blocks inside the fields.
	Lang string
}

// NewEmbed creates the structured strategy.
func NewEmbed() *Embed { return &Embed{Lang: "lua"} }

func (e *Embed) Name() string { return NameEmbed }

// Format builds an embed with Input, Output and Result fields.
// A value that already is an embed is shown as is, with the captured
// output attached.
func (e *Embed) Format(input string, value any, output string) (domain.Rendering, error) {
	if v, ok := value.(*domain.Embed); ok && v != nil {
		out := *v
		out.Fields = append([]domain.EmbedField(nil), v.Fields...)
		if o := strings.TrimRight(output, "\n"); o != "" {
			out.AddField("Output", e.block(o), false)
		}
		return domain.Rendering{Embed: &out}, nil
	}

	embed := &domain.Embed{Title: "Evaluation", Color: ColorResult}
	embed.AddField("Input", e.block(input), false)
	if o := strings.TrimRight(output, "\n"); o != "" {
		embed.AddField("Output", e.block(o), false)
	}
	if value != nil {
		embed.AddField("Result", e.block(Repr(value)), false)
	}
	return domain.Rendering{Embed: embed}, nil
}

func (e *Embed) Exit(token string) domain.Rendering {
	return domain.Rendering{Embed: &domain.Embed{
		Title:       "Session reset",
		Description: "`" + token + "` cleared every binding.",
		Color:       ColorExit,
	}}
}

func (e *Embed) block(text string) string {
	// Leave room for the fence itself
	limit := maxFieldLength - len(e.Lang) - 8
	if len(text) > limit {
		text = text[:limit-3] + "..."
	}
	return Fence(text, e.Lang)
}
