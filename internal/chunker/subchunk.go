package chunker

import "strings"

type subPiece struct {
	content string
	offset  int
}

// subChunk splits body into pieces no larger than maxChunkChars bytes,
// preferring to cut at a blank line, then a single newline, within the
// trailing overlapChars-byte window before a hard cut. Each piece after the
// first starts overlapChars bytes behind the previous piece's end, so
// consecutive pieces share content; the start of each piece is always
// strictly greater than the start of the one before it.
func subChunk(body string) []subPiece {
	if len(body) <= maxChunkChars {
		return []subPiece{{content: body, offset: 0}}
	}

	var pieces []subPiece
	start := 0
	for start < len(body) {
		end := start + maxChunkChars
		if end >= len(body) {
			pieces = append(pieces, subPiece{content: body[start:], offset: start})
			break
		}

		windowStart := end - overlapChars
		if windowStart < start {
			windowStart = start
		}
		window := body[windowStart:end]

		splitAt := -1
		if i := strings.LastIndex(window, "\n\n"); i >= 0 {
			splitAt = windowStart + i + 2
		} else if i := strings.LastIndexByte(window, '\n'); i >= 0 {
			splitAt = windowStart + i + 1
		}
		if splitAt <= start {
			splitAt = end
		}
		splitAt = snapToRuneBoundary(body, splitAt)

		pieces = append(pieces, subPiece{content: body[start:splitAt], offset: start})

		nextStart := splitAt - overlapChars
		if nextStart <= start {
			nextStart = start + 1
		}
		start = snapToRuneBoundary(body, nextStart)
	}
	return pieces
}

func snapToRuneBoundary(s string, i int) int {
	for i > 0 && i < len(s) && !isRuneStart(s[i]) {
		i--
	}
	return i
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }
