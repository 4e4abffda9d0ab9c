package loader_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MereWhiplash/aria/internal/loader"
)

func TestTitleFromName(t *testing.T) {
	assert.Equal(t, "medicaid prior auth", loader.TitleFromName("/docs/medicaid_prior-auth.pdf"))
	assert.Equal(t, "HIPAA", loader.TitleFromName("HIPAA.txt"))
}

func TestLoad_Text(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session_notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("\xef\xbb\xbfFirst line. Second line."), 0o600))

	doc, err := loader.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "session notes", doc.Title)
	assert.Equal(t, "First line. Second line.", doc.Content)
	assert.Equal(t, "session_notes.txt", doc.Source)
}

func TestLoadBytes_MarkdownHeading(t *testing.T) {
	doc, err := loader.LoadBytes("guide.md", []byte("\n# Billing Guide\n\nCPT 97153 covers direct treatment."))
	require.NoError(t, err)
	assert.Equal(t, "Billing Guide", doc.Title)

	doc, err = loader.LoadBytes("guide.md", []byte("Intro paragraph.\n# Later heading"))
	require.NoError(t, err)
	assert.Equal(t, "guide", doc.Title)
}

func TestLoadBytes_Errors(t *testing.T) {
	_, err := loader.LoadBytes("sheet.xlsx", []byte("data"))
	assert.ErrorIs(t, err, loader.ErrUnsupported)

	_, err = loader.LoadBytes("empty.txt", []byte("  \n\t"))
	assert.ErrorIs(t, err, loader.ErrNoText)

	_, err = loader.LoadBytes("broken.pdf", []byte("not a pdf"))
	assert.Error(t, err)

	_, err = loader.Load(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}
