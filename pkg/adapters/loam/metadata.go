package loam

// SnippetMetadata is the frontmatter of a snippet document.
// It uses "mapstructure" tags to match standard Frontmatter/YAML keys.
type SnippetMetadata struct {
	Name        string `json:"name" mapstructure:"name"`
	Description string `json:"description" mapstructure:"description"`
	Autoload    bool   `json:"autoload" mapstructure:"autoload"`
	Order       int    `json:"order" mapstructure:"order"`
	// Tags are free-form labels shown by listing commands.
	Tags []string `json:"tags,omitempty" mapstructure:"tags"`
}
