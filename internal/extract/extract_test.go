package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutortron-rag/internal/models"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestText_PlainText(t *testing.T) {
	path := writeTemp(t, "notes.txt", "First   paragraph\nwith a wrapped line.\n\nSecond paragraph.")

	text, err := Text(path)

	require.NoError(t, err)
	assert.Equal(t, "First paragraph with a wrapped line.\n\nSecond paragraph.", text)
}

func TestText_EmptyDocument(t *testing.T) {
	path := writeTemp(t, "empty.txt", "  \n\n \t ")

	_, err := Text(path)

	assert.ErrorIs(t, err, models.ErrNoTextExtracted)
}

func TestText_Markdown(t *testing.T) {
	path := writeTemp(t, "syllabus.md", "# Course Outline\n\nWeek one covers **retrieval** basics.\n\n- embeddings\n- similarity")

	text, err := Text(path)

	require.NoError(t, err)
	assert.Contains(t, text, "Course Outline")
	assert.Contains(t, text, "Week one covers retrieval basics.")
	assert.NotContains(t, text, "#")
	assert.NotContains(t, text, "**")
}

func TestText_UnsupportedFormat(t *testing.T) {
	path := writeTemp(t, "image.png", "not really an image")

	_, err := Text(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file format")
}
