package domain

// Rendering is what a formatter hands back to the host for delivery.
// Either field may be empty: a plain text block, a structured embed, or both.
type Rendering struct {
	Text  string `json:"text,omitempty"`
	Embed *Embed `json:"embed,omitempty"`
}

// IsZero reports whether there is nothing to deliver.
func (r Rendering) IsZero() bool {
	return r.Text == "" && r.Embed == nil
}

// Embed is a rich structured display, modeled after chat platform embeds.
type Embed struct {
	Title       string       `json:"title,omitempty" mapstructure:"title"`
	Description string       `json:"description,omitempty" mapstructure:"description"`
	Color       int          `json:"color,omitempty" mapstructure:"color"`
	Fields      []EmbedField `json:"fields,omitempty" mapstructure:"fields"`
	Footer      string       `json:"footer,omitempty" mapstructure:"footer"`
}

// EmbedField is a named section of an Embed.
type EmbedField struct {
	Name   string `json:"name" mapstructure:"name"`
	Value  string `json:"value" mapstructure:"value"`
	Inline bool   `json:"inline,omitempty" mapstructure:"inline"`
}

// AddField appends a field and returns the embed for chaining.
func (e *Embed) AddField(name, value string, inline bool) *Embed {
	e.Fields = append(e.Fields, EmbedField{Name: name, Value: value, Inline: inline})
	return e
}
