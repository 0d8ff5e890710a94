package tui

import (
	"strings"

	"github.com/aretw0/evalrepl/pkg/domain"
	"github.com/aretw0/evalrepl/pkg/format"
)

// Markdown converts a rendering to markdown the way a chat client would
// display it: the text block fenced as code, the embed as a titled section.
func Markdown(r domain.Rendering, lang string) string {
	var parts []string
	if r.Text != "" {
		parts = append(parts, format.Fence(r.Text, lang))
	}
	if r.Embed != nil {
		parts = append(parts, embedMarkdown(r.Embed))
	}
	return strings.Join(parts, "\n\n")
}

func embedMarkdown(e *domain.Embed) string {
	var sb strings.Builder
	if e.Title != "" {
		sb.WriteString("### " + e.Title + "\n\n")
	}
	if e.Description != "" {
		sb.WriteString(e.Description + "\n\n")
	}
	for _, f := range e.Fields {
		sb.WriteString("**" + f.Name + "**\n\n")
		sb.WriteString(f.Value + "\n\n")
	}
	if e.Footer != "" {
		sb.WriteString("*" + e.Footer + "*\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// Plain converts a rendering to unstyled text, for pipes and dumb terminals.
func Plain(r domain.Rendering) string {
	var parts []string
	if r.Text != "" {
		parts = append(parts, r.Text)
	}
	if e := r.Embed; e != nil {
		var sb strings.Builder
		if e.Title != "" {
			sb.WriteString("== " + e.Title + " ==\n")
		}
		if e.Description != "" {
			sb.WriteString(e.Description + "\n")
		}
		for _, f := range e.Fields {
			sb.WriteString("[" + f.Name + "]\n" + f.Value + "\n")
		}
		if e.Footer != "" {
			sb.WriteString("-- " + e.Footer + "\n")
		}
		parts = append(parts, strings.TrimRight(sb.String(), "\n"))
	}
	return strings.Join(parts, "\n")
}
