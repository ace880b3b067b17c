package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdownHierarchy(t *testing.T) {
	input := strings.Join([]string{
		"# Getting Started",
		"Welcome.",
		"## Installation",
		"### Linux",
		"apt-get install foo",
		"### macOS",
		"brew install foo",
		"## Configuration",
		"Edit config.",
	}, "\n")

	chunks := Chunk("README.md", []byte(input))
	require.Len(t, chunks, 4)

	want := [][]string{
		{"Getting Started"},
		{"Getting Started", "Installation", "Linux"},
		{"Getting Started", "Installation", "macOS"},
		{"Getting Started", "Configuration"},
	}
	for i, c := range chunks {
		assert.Equal(t, want[i], c.SectionPath, "chunk %d", i)
		assert.Equal(t, i, c.ChunkIndex)
	}
	assert.Equal(t, "Welcome.", chunks[0].Content)
	assert.Equal(t, "apt-get install foo", chunks[1].Content)
	assert.Equal(t, "brew install foo", chunks[2].Content)
	assert.Equal(t, "Edit config.", chunks[3].Content)
}

func TestChunkIndexIsDenseAndMonotonic(t *testing.T) {
	input := "# A\none\n# B\ntwo\n# C\nthree"
	chunks := Chunk("doc.md", []byte(input))
	for i, c := range chunks {
		assert.Equal(t, i, c.ChunkIndex)
	}
}

func TestOversizedSectionIsSubChunked(t *testing.T) {
	body := strings.Repeat("word ", 1000) // well over 2048 chars
	input := "# Big Section\n" + body
	chunks := Chunk("doc.md", []byte(input))
	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, c.CharLen, maxChunkChars)
		assert.Equal(t, []string{"Big Section"}, c.SectionPath)
	}
	// forward progress: every chunk after the first starts later than the last
	for i := 1; i < len(chunks); i++ {
		assert.Greater(t, chunks[i].ByteOffset, chunks[i-1].ByteOffset)
	}
}

func TestEmptySectionsAreSkipped(t *testing.T) {
	input := "# Top\n## Empty\n### Child\ncontent here"
	chunks := Chunk("doc.md", []byte(input))
	for _, c := range chunks {
		assert.NotEmpty(t, strings.TrimSpace(c.Content))
	}
}

func TestDetectFormatByExtension(t *testing.T) {
	assert.Equal(t, "markdown", DetectFormat("notes.md"))
	assert.Equal(t, "markdown", DetectFormat("notes.MDX"))
	assert.Equal(t, "rst", DetectFormat("readme.rst"))
	assert.Equal(t, "text", DetectFormat("notes.txt"))
}

func TestTextFallsBackToBlankLineSplit(t *testing.T) {
	input := "first paragraph, no headings here.\n\nsecond paragraph follows after a blank line."
	chunks := Chunk("notes.txt", []byte(input))
	require.Len(t, chunks, 2)
	assert.Nil(t, chunks[0].SectionPath)
	assert.Equal(t, "text", chunks[0].Format)
}

func TestRSTHeadingLevelsByFirstAppearance(t *testing.T) {
	input := strings.Join([]string{
		"Title",
		"=====",
		"intro text",
		"Sub",
		"---",
		"sub text",
	}, "\n")
	chunks := Chunk("doc.rst", []byte(input))
	require.Len(t, chunks, 2)
	assert.Equal(t, []string{"Title"}, chunks[0].SectionPath)
	assert.Equal(t, []string{"Title", "Sub"}, chunks[1].SectionPath)
}

func TestProbeDetectsMarkdownRoutedAsText(t *testing.T) {
	input := "# Disguised Markdown\nbody text"
	chunks := Chunk("README.txt", []byte(input))
	require.NotEmpty(t, chunks)
	assert.Equal(t, "markdown", chunks[0].Format)
}

func TestSubChunkOverlapsConsecutivePieces(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 5000; i++ {
		b.WriteByte(byte('a' + i%26))
	}
	pieces := subChunk(b.String())
	require.Greater(t, len(pieces), 1)

	for i := 1; i < len(pieces); i++ {
		prevEnd := pieces[i-1].offset + len(pieces[i-1].content)
		assert.Greater(t, pieces[i].offset, pieces[i-1].offset, "piece %d must start after piece %d", i, i-1)
		assert.Less(t, pieces[i].offset, prevEnd, "piece %d must overlap the tail of piece %d", i, i-1)
		assert.LessOrEqual(t, prevEnd-pieces[i].offset, overlapChars, "piece %d overlaps by more than overlapChars", i)
	}
}
