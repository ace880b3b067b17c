package recursive

import "strings"

// fallbackExtract recognizes the handful of declaration prefixes common to
// Rust source (the ecosystem spec.md's end-to-end scenarios use) when no
// language-specific Extractor produced any spans: "fn", "pub fn", and
// "struct". It is deliberately conservative: a one-line heuristic that
// degrades gracefully rather than a parser.
func fallbackExtract(content string) []SymbolSpan {
	lines := strings.Split(content, "\n")
	var out []SymbolSpan
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		kind, name, ok := fallbackDecl(trimmed)
		if !ok {
			continue
		}
		end := i + 1
		for end < len(lines) && !strings.Contains(lines[end], "}") {
			end++
			if end-i > 200 {
				break
			}
		}
		if end < len(lines) {
			end++
		}
		out = append(out, SymbolSpan{
			Kind: kind, Name: name, LineStart: i + 1, LineEnd: end, Signature: trimmed,
		})
	}
	return out
}

func fallbackDecl(line string) (kind, name string, ok bool) {
	switch {
	case strings.HasPrefix(line, "pub fn "):
		return "fn", declName(line, "pub fn "), true
	case strings.HasPrefix(line, "fn "):
		return "fn", declName(line, "fn "), true
	case strings.HasPrefix(line, "pub struct "):
		return "struct", declName(line, "pub struct "), true
	case strings.HasPrefix(line, "struct "):
		return "struct", declName(line, "struct "), true
	default:
		return "", "", false
	}
}

func declName(line, prefix string) string {
	rest := strings.TrimPrefix(line, prefix)
	for i, r := range rest {
		if r == '(' || r == '<' || r == '{' || r == ' ' || r == ':' {
			return rest[:i]
		}
	}
	return strings.TrimSpace(rest)
}
