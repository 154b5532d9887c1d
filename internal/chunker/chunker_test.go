package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_EmptyInput(t *testing.T) {
	assert.Nil(t, Split("", DefaultOptions()))
	assert.Nil(t, Split("   \n\n  ", DefaultOptions()))
}

func TestSplit_TwoSentences(t *testing.T) {
	chunks := Split("Alpha beats Beta. Gamma exceeds Delta.", Options{MaxChars: 20})

	require.Len(t, chunks, 2)
	assert.Equal(t, "Alpha beats Beta.", chunks[0])
	assert.Equal(t, "Gamma exceeds Delta.", chunks[1])
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 20)
	}
}

func TestSplit_ParagraphAccumulation(t *testing.T) {
	text := "First paragraph with some words in it.\n\nSecond paragraph with more words.\n\nThird paragraph rounds it out."

	chunks := Split(text, Options{MaxChars: 90})

	require.Len(t, chunks, 2)
	// first two paragraphs fit together, third forces a flush
	assert.Contains(t, chunks[0], "First paragraph")
	assert.Contains(t, chunks[0], "Second paragraph")
	assert.Contains(t, chunks[1], "Third paragraph")
}

func TestSplit_OverlapSeedsNextChunk(t *testing.T) {
	text := "one two three four five six seven eight nine ten.\n\nnext paragraph follows here with content."

	chunks := Split(text, Options{MaxChars: 60, OverlapChars: 30})

	require.Len(t, chunks, 2)
	// 30 overlap chars ~ 3 trailing words carried into the next chunk
	assert.True(t, strings.HasPrefix(chunks[1], "eight nine ten."), "got %q", chunks[1])
}

func TestSplit_BoundsInvariant(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 40; i++ {
		sb.WriteString("This is a complete sentence that carries a reasonable amount of content. ")
		if i%5 == 4 {
			sb.WriteString("\n\n")
		}
	}

	opts := Options{MaxChars: 300, OverlapChars: 50, MinChars: 50}
	chunks := Split(sb.String(), opts)

	require.NotEmpty(t, chunks)
	for i, chunk := range chunks {
		assert.GreaterOrEqual(t, len(chunk), opts.MinChars, "chunk %d", i)
		// sentence-level re-splitting never glues partial sentences
		assert.NotEqual(t, " ", chunk[:1])
	}
}

func TestSplit_DiscardsShortNoise(t *testing.T) {
	text := "Page 3\n\nA real paragraph that easily clears the minimum chunk length threshold for indexing."

	chunks := Split(text, Options{MaxChars: 80, MinChars: 50})

	require.Len(t, chunks, 1)
	assert.NotContains(t, chunks[0], "Page 3")
}

func TestSplit_OversizedParagraphWithoutBoundaries(t *testing.T) {
	// no sentence boundaries anywhere: must be emitted whole, never dropped
	text := strings.Repeat("word ", 100)

	chunks := Split(text, Options{MaxChars: 80})

	require.Len(t, chunks, 1)
	assert.Greater(t, len(chunks[0]), 80)
}

func TestSplit_SentenceBoundariesPreserved(t *testing.T) {
	text := "Question marks work? Exclamations too! Periods as well. Trailing fragment"

	sentences := sentenceSplit(text)

	require.Len(t, sentences, 4)
	assert.Equal(t, "Question marks work?", sentences[0])
	assert.Equal(t, "Exclamations too!", sentences[1])
	assert.Equal(t, "Periods as well.", sentences[2])
	assert.Equal(t, "Trailing fragment", sentences[3])
}
