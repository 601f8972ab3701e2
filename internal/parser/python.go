package parser

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/vosbek/docxp/internal/core/domain"
)

var (
	pyDefRe    = regexp.MustCompile(`^(\s*)(?:async\s+)?def\s+([A-Za-z_][A-Za-z0-9_]*)\s*\(`)
	pyClassRe  = regexp.MustCompile(`^(\s*)class\s+([A-Za-z_][A-Za-z0-9_]*)\s*[:(]`)
	pyImportRe = regexp.MustCompile(`^\s*import\s+([\w.]+)`)
	pyFromRe   = regexp.MustCompile(`^\s*from\s+([\w.]+)\s+import\b`)
)

// Python extracts functions, classes, and imports from CPython-style source
// using line-level scanning. It does not build an AST: constructs it cannot
// recognize are omitted, per the parser contract.
type Python struct{}

func NewPython() *Python { return &Python{} }

func (p *Python) Language() string { return "python" }

func (p *Python) Parse(path string) ([]domain.Entity, error) {
	content, ok := readValidated(path)
	if !ok {
		return nil, nil
	}
	if !utf8.Valid(content) {
		return nil, &ParseError{Path: path, Err: errors.New("not valid utf-8 text")}
	}

	lines := splitLines(content)
	var entities []domain.Entity
	for i, line := range lines {
		var name string
		var kind domain.EntityKind
		switch {
		case pyClassRe.MatchString(line):
			name = pyClassRe.FindStringSubmatch(line)[2]
			kind = domain.KindClass
		case pyDefRe.MatchString(line):
			name = pyDefRe.FindStringSubmatch(line)[2]
			kind = domain.KindFunction
		default:
			continue
		}

		end := pyBlockEnd(lines, i)
		entities = append(entities, domain.Entity{
			Name:       name,
			Kind:       kind,
			FilePath:   path,
			LineNumber: i + 1,
			EndLine:    end,
			Language:   p.Language(),
			Docstring:  pyDocstring(lines, i),
			Snippet:    snippet(lines, i+1, end),
		})
	}
	return entities, nil
}

func (p *Python) ExtractDependencies(path string) ([]string, error) {
	content, ok := readValidated(path)
	if !ok {
		return nil, nil
	}

	var deps []string
	for _, line := range splitLines(content) {
		if m := pyImportRe.FindStringSubmatch(line); m != nil {
			deps = append(deps, m[1])
			continue
		}
		if m := pyFromRe.FindStringSubmatch(line); m != nil {
			deps = append(deps, m[1])
		}
	}
	return dedupeStrings(deps), nil
}

// pyBlockEnd walks forward to the last line belonging to the indented block
// that starts at the 0-based declaration index.
func pyBlockEnd(lines []string, declIdx int) int {
	base := indentWidth(lines[declIdx])
	end := declIdx + 1
	for i := declIdx + 1; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" {
			continue
		}
		if indentWidth(lines[i]) <= base {
			break
		}
		end = i + 1
	}
	return end
}

// pyDocstring returns the docstring opening on the first non-empty line
// after the declaration, if present.
func pyDocstring(lines []string, declIdx int) string {
	for i := declIdx + 1; i < len(lines); i++ {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" {
			continue
		}
		quote := ""
		switch {
		case strings.HasPrefix(trimmed, `"""`):
			quote = `"""`
		case strings.HasPrefix(trimmed, "'''"):
			quote = "'''"
		default:
			return ""
		}

		body := strings.TrimPrefix(trimmed, quote)
		if idx := strings.Index(body, quote); idx >= 0 {
			return strings.TrimSpace(body[:idx])
		}
		var doc []string
		if body != "" {
			doc = append(doc, body)
		}
		for j := i + 1; j < len(lines); j++ {
			line := lines[j]
			if idx := strings.Index(line, quote); idx >= 0 {
				doc = append(doc, strings.TrimSpace(line[:idx]))
				return strings.TrimSpace(strings.Join(doc, "\n"))
			}
			doc = append(doc, strings.TrimSpace(line))
		}
		return strings.TrimSpace(strings.Join(doc, "\n"))
	}
	return ""
}
