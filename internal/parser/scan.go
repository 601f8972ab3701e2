package parser

import "strings"

// maxSnippetLines caps the source excerpt attached to an entity so a single
// huge declaration cannot dominate the index payload.
const maxSnippetLines = 80

func splitLines(content []byte) []string {
	return strings.Split(strings.ReplaceAll(string(content), "\r\n", "\n"), "\n")
}

// snippet returns the source text for 1-based lines [start, end], capped.
func snippet(lines []string, start, end int) string {
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if end < start {
		end = start
	}
	if end-start+1 > maxSnippetLines {
		end = start + maxSnippetLines - 1
	}
	return strings.Join(lines[start-1:end], "\n")
}

// leadingComment collects the contiguous comment block immediately above a
// 0-based declaration index, stripped of its markers.
func leadingComment(lines []string, declIdx int, marker string) string {
	var block []string
	for i := declIdx - 1; i >= 0; i-- {
		trimmed := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(trimmed, marker) {
			break
		}
		block = append([]string{strings.TrimSpace(strings.TrimPrefix(trimmed, marker))}, block...)
	}
	return strings.Join(block, "\n")
}

// braceBlockEnd finds the 1-based line closing the brace block that opens at
// the 0-based declaration index. Falls back to the declaration line when no
// opening brace is found within the cap.
func braceBlockEnd(lines []string, declIdx int) int {
	depth := 0
	opened := false
	limit := declIdx + maxSnippetLines
	if limit > len(lines) {
		limit = len(lines)
	}
	for i := declIdx; i < limit; i++ {
		for _, r := range lines[i] {
			switch r {
			case '{':
				depth++
				opened = true
			case '}':
				depth--
				if opened && depth <= 0 {
					return i + 1
				}
			}
		}
	}
	if !opened {
		return declIdx + 1
	}
	return limit
}

func indentWidth(line string) int {
	width := 0
	for _, r := range line {
		switch r {
		case ' ':
			width++
		case '\t':
			width += 4
		default:
			return width
		}
	}
	return width
}

func dedupeStrings(in []string) []string {
	if len(in) == 0 {
		return in
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
