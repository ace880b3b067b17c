package chunker

import "strings"

// parseRST splits reStructuredText content on section adornment lines.
// Heading level is assigned by order of first appearance of each distinct
// adornment character: whichever char is seen first becomes level 1, the
// next distinct char becomes level 2, and so on.
func parseRST(text string) []section {
	lines := strings.Split(text, "\n")
	stack := &headingStack{}
	levelOf := map[byte]int{}
	nextLevel := 1

	var out []section
	var buf []string
	bufOffset := 0
	offset := 0

	flush := func() {
		body := strings.Join(buf, "\n")
		if body != "" {
			out = append(out, section{path: stack.path(), body: body, byteOffset: bufOffset})
		}
		buf = nil
	}

	i := 0
	for i < len(lines) {
		line := lines[i]
		lineLen := len(line) + 1

		if i+1 < len(lines) {
			title := strings.TrimSpace(line)
			adorn := strings.TrimSpace(lines[i+1])
			if title != "" && isAdornmentLine(adorn) && len(adorn) >= len(title) {
				c := adorn[0]
				level, seen := levelOf[c]
				if !seen {
					level = nextLevel
					levelOf[c] = level
					nextLevel++
				}
				flush()
				stack.push(level, title)
				nextLineLen := len(lines[i+1]) + 1
				offset += lineLen + nextLineLen
				bufOffset = offset
				i += 2
				continue
			}
		}

		buf = append(buf, line)
		offset += lineLen
		i++
	}
	flush()
	return out
}
