// Package chunker splits raw document text into an ordered list of chunks
// tracked against their heading hierarchy (spec.md §4.10). It never touches
// the network or disk: callers read the file, pass its bytes and relative
// path in, and get chunks back.
package chunker

import (
	"strings"
	"unicode/utf8"
)

// Chunk is one emitted piece of a document.
type Chunk struct {
	Title       *string
	SectionPath []string
	Content     string
	ChunkIndex  int
	SourceFile  string
	Format      string
	ByteOffset  int
	CharLen     int
}

const (
	maxChunkChars = 2048
	overlapChars  = 200
)

// section is the intermediate unit every format-specific parser produces:
// a block of body text tagged with the heading stack active when it was
// collected.
type section struct {
	path       []string
	body       string
	byteOffset int
}

// Chunk splits content (the raw bytes of sourceFile) into an ordered,
// monotonically-indexed list of chunks.
func Chunk(sourceFile string, content []byte) []Chunk {
	text := string(content)
	format := DetectFormat(sourceFile)
	if format == "text" {
		format = probe(text)
	}

	var sections []section
	switch format {
	case "markdown":
		sections = parseMarkdown(text)
	case "rst":
		sections = parseRST(text)
	default:
		sections = parseText(text)
		format = "text"
	}

	return assemble(sections, sourceFile, format)
}

// DetectFormat maps a file extension to a parser family. Anything
// unrecognized routes to "text", which Chunk then probes for markdown/RST
// in disguise.
func DetectFormat(path string) string {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".md"), strings.HasSuffix(lower, ".markdown"), strings.HasSuffix(lower, ".mdx"):
		return "markdown"
	case strings.HasSuffix(lower, ".rst"):
		return "rst"
	default:
		return "text"
	}
}

// probe looks for markdown or RST structure in content routed through the
// "text" branch by extension alone.
func probe(text string) string {
	lines := strings.Split(text, "\n")
	atx := 0
	for _, l := range lines {
		trimmed := strings.TrimSpace(l)
		if strings.HasPrefix(trimmed, "#") {
			rest := strings.TrimLeft(trimmed, "#")
			if rest == "" || strings.HasPrefix(rest, " ") {
				atx++
			}
		}
	}
	if atx >= 1 {
		return "markdown"
	}
	if looksLikeRST(lines) {
		return "rst"
	}
	return "text"
}

func looksLikeRST(lines []string) bool {
	for i := 1; i < len(lines); i++ {
		title := strings.TrimRight(lines[i-1], "\r")
		adorn := strings.TrimRight(lines[i], "\r")
		if title == "" || adorn == "" {
			continue
		}
		if isAdornmentLine(adorn) && utf8.RuneCountInString(adorn) >= utf8.RuneCountInString(title) {
			return true
		}
	}
	return false
}

func isAdornmentLine(s string) bool {
	if len(s) == 0 {
		return false
	}
	const adornChars = "=-~^\"'.*+#:_`"
	first := rune(s[0])
	if !strings.ContainsRune(adornChars, first) {
		return false
	}
	for _, r := range s {
		if r != first {
			return false
		}
	}
	return true
}

// assemble turns parser sections into final chunks: drop whitespace-only
// bodies, sub-chunk anything over the hard cap, and assign a dense
// 0-based chunk_index across the whole document.
func assemble(sections []section, sourceFile, format string) []Chunk {
	var out []Chunk
	idx := 0
	for _, s := range sections {
		if strings.TrimSpace(s.body) == "" {
			continue
		}
		var title *string
		if len(s.path) > 0 {
			t := s.path[len(s.path)-1]
			title = &t
		}
		for _, piece := range subChunk(s.body) {
			out = append(out, Chunk{
				Title:       title,
				SectionPath: s.path,
				Content:     piece.content,
				ChunkIndex:  idx,
				SourceFile:  sourceFile,
				Format:      format,
				ByteOffset:  s.byteOffset + piece.offset,
				CharLen:     utf8.RuneCountInString(piece.content),
			})
			idx++
		}
	}
	return out
}

// headingStack tracks the active section_path as headings of varying level
// arrive: a heading of level L pops every entry with level >= L, then
// pushes itself.
type headingStack struct {
	levels []int
	names  []string
}

func (h *headingStack) push(level int, name string) []string {
	for len(h.levels) > 0 && h.levels[len(h.levels)-1] >= level {
		h.levels = h.levels[:len(h.levels)-1]
		h.names = h.names[:len(h.names)-1]
	}
	h.levels = append(h.levels, level)
	h.names = append(h.names, name)
	return h.path()
}

func (h *headingStack) path() []string {
	out := make([]string, len(h.names))
	copy(out, h.names)
	return out
}
