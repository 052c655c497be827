package prompts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore("", arbor.NewLogger())
	require.NoError(t, err)
	return store
}

func TestEmbeddedTemplatesLoad(t *testing.T) {
	store := newTestStore(t)

	names := store.ListAvailable()
	assert.Equal(t, []string{
		"answer_generation",
		"classification",
		"doc_metadata_extraction",
		"query_understanding",
	}, names)

	for _, name := range names {
		tmpl, err := store.Load(name)
		require.NoError(t, err, "template %s", name)
		assert.NotEmpty(t, tmpl.Text)
		assert.NotEmpty(t, tmpl.Metadata["version"])
	}
}

func TestLoadUnknownTemplate(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Load("nonexistent")
	assert.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestPlaceholderExtraction(t *testing.T) {
	store := newTestStore(t)

	tmpl, err := store.Load("classification")
	require.NoError(t, err)
	assert.Equal(t, []string{"document_preview"}, tmpl.Placeholders)

	tmpl, err = store.Load("doc_metadata_extraction")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"classification", "full_text"}, tmpl.Placeholders)
}

func TestRender(t *testing.T) {
	store := newTestStore(t)

	t.Run("substitutes variables", func(t *testing.T) {
		text, err := store.Render("classification", map[string]string{
			"document_preview": "REMOTE WORK POLICY",
		})
		require.NoError(t, err)
		assert.Contains(t, text, "REMOTE WORK POLICY")
		assert.NotContains(t, text, "{document_preview}")
	})

	t.Run("missing variable fails", func(t *testing.T) {
		_, err := store.Render("classification", nil)
		assert.ErrorIs(t, err, ErrMissingVariable)
	})
}

func TestMetadataParsing(t *testing.T) {
	store := newTestStore(t)

	metadata, err := store.Metadata("classification")
	require.NoError(t, err)
	assert.Equal(t, "0.1", metadata["temperature"])
	assert.Equal(t, "250", metadata["max_tokens"])
}

func TestDirectoryStoreAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "greeting.md")

	write := func(body string) {
		content := "# Greeting\n\n## Metadata\n- **Version**: 1.0.0\n\n## Prompt:\n" + body + "\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	write("Hello {name}")

	store, err := NewStore(dir, arbor.NewLogger())
	require.NoError(t, err)

	text, err := store.Render("greeting", map[string]string{"name": "world"})
	require.NoError(t, err)
	assert.Equal(t, "Hello world", text)

	// Cached load ignores the file change; Reload picks it up.
	write("Goodbye {name}")

	text, err = store.Render("greeting", map[string]string{"name": "world"})
	require.NoError(t, err)
	assert.Equal(t, "Hello world", text)

	_, err = store.Reload("greeting")
	require.NoError(t, err)

	text, err = store.Render("greeting", map[string]string{"name": "world"})
	require.NoError(t, err)
	assert.Equal(t, "Goodbye world", text)
}

func TestMissingDirectoryRejected(t *testing.T) {
	_, err := NewStore("/nonexistent/prompts", arbor.NewLogger())
	assert.Error(t, err)
}

func TestDefaultDir(t *testing.T) {
	t.Run("no prompts directory uses embedded", func(t *testing.T) {
		t.Chdir(t.TempDir())
		assert.Empty(t, DefaultDir())
	})

	t.Run("prompts directory beside the binary wins", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.Mkdir(filepath.Join(dir, "prompts"), 0755))
		t.Chdir(dir)
		assert.Equal(t, "prompts", DefaultDir())
	})
}
