package parser

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/vosbek/docxp/internal/core/domain"
)

var (
	goFuncRe    = regexp.MustCompile(`^func\s+(?:\([^)]+\)\s+)?([A-Za-z_]\w*)\s*[(\[]`)
	goTypeRe    = regexp.MustCompile(`^type\s+([A-Za-z_]\w*)(?:\[[^\]]*\])?\s+(\w+)`)
	goPackageRe = regexp.MustCompile(`^package\s+(\w+)`)
	goImportRe  = regexp.MustCompile(`^\s*(?:\w+\s+|\.\s+|_\s+)?"([^"]+)"`)
)

// Go extracts package, func, and type declarations. Like the other parsers
// it scans lines instead of building an AST, which keeps all languages
// behind one uniform capability contract.
type Go struct{}

func NewGo() *Go { return &Go{} }

func (p *Go) Language() string { return "go" }

func (p *Go) Parse(path string) ([]domain.Entity, error) {
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
		if m := goPackageRe.FindStringSubmatch(line); m != nil && i < 20 {
			entities = append(entities, domain.Entity{
				Name:       m[1],
				Kind:       domain.KindModule,
				FilePath:   path,
				LineNumber: i + 1,
				EndLine:    i + 1,
				Language:   p.Language(),
				Docstring:  leadingComment(lines, i, "//"),
				Snippet:    snippet(lines, i+1, i+1),
			})
			continue
		}
		if m := goFuncRe.FindStringSubmatch(line); m != nil {
			end := braceBlockEnd(lines, i)
			entities = append(entities, domain.Entity{
				Name:       m[1],
				Kind:       domain.KindFunction,
				FilePath:   path,
				LineNumber: i + 1,
				EndLine:    end,
				Language:   p.Language(),
				Docstring:  leadingComment(lines, i, "//"),
				Snippet:    snippet(lines, i+1, end),
			})
			continue
		}
		if m := goTypeRe.FindStringSubmatch(line); m != nil {
			kind := domain.KindOther
			if m[2] == "struct" || m[2] == "interface" {
				kind = domain.KindClass
			}
			end := braceBlockEnd(lines, i)
			entities = append(entities, domain.Entity{
				Name:       m[1],
				Kind:       kind,
				FilePath:   path,
				LineNumber: i + 1,
				EndLine:    end,
				Language:   p.Language(),
				Docstring:  leadingComment(lines, i, "//"),
				Snippet:    snippet(lines, i+1, end),
			})
		}
	}
	return entities, nil
}

func (p *Go) ExtractDependencies(path string) ([]string, error) {
	content, ok := readValidated(path)
	if !ok {
		return nil, nil
	}

	var deps []string
	inBlock := false
	for _, line := range splitLines(content) {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "import ("):
			inBlock = true
		case inBlock && trimmed == ")":
			inBlock = false
		case inBlock:
			if m := goImportRe.FindStringSubmatch(trimmed); m != nil {
				deps = append(deps, m[1])
			}
		case strings.HasPrefix(trimmed, "import "):
			rest := strings.TrimPrefix(trimmed, "import ")
			if m := goImportRe.FindStringSubmatch(rest); m != nil {
				deps = append(deps, m[1])
			}
		}
	}
	return dedupeStrings(deps), nil
}
