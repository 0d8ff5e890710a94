// Package testutils holds helpers shared by tests that need a snippet library on disk.
package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/loam"
	"github.com/aretw0/loam/pkg/core"
	"github.com/stretchr/testify/require"
)

// SetupTestRepo initializes a Loam repository in a fresh temporary directory
// and returns its absolute path with the repository.
// It fails the test immediately on error.
func SetupTestRepo(t *testing.T, opts ...loam.Option) (string, core.Repository) {
	t.Helper()

	absPath, err := filepath.Abs(t.TempDir())
	require.NoError(t, err, "Failed to get absolute path for temp dir")

	repo, err := loam.Init(absPath, opts...)
	require.NoError(t, err, "Failed to init loam repo")

	return absPath, repo
}

// WriteSnippets writes each filename -> markdown document into dir.
func WriteSnippets(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for filename, content := range files {
		path := filepath.Join(dir, filename)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644), "Failed to write snippet %s", filename)
	}
}

// Snippet renders a snippet document with YAML front matter and a fenced body.
func Snippet(frontMatter, lang, code string) string {
	doc := ""
	if frontMatter != "" {
		doc = "---\n" + frontMatter + "\n---\n"
	}
	return doc + "```" + lang + "\n" + code + "\n```\n"
}
