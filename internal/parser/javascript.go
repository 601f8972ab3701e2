package parser

import (
	"errors"
	"regexp"
	"unicode/utf8"

	"github.com/vosbek/docxp/internal/core/domain"
)

var (
	jsFuncRe  = regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s*\*?\s*([A-Za-z_$][\w$]*)\s*\(`)
	jsArrowRe = regexp.MustCompile(`^\s*(?:export\s+)?(?:const|let|var)\s+([A-Za-z_$][\w$]*)\s*=\s*(?:async\s+)?(?:\([^)]*\)|[A-Za-z_$][\w$]*)\s*=>`)
	jsClassRe = regexp.MustCompile(`^\s*(?:export\s+)?(?:default\s+)?class\s+([A-Za-z_$][\w$]*)`)

	jsImportFromRe = regexp.MustCompile(`import\s+[^'"]*?from\s+['"]([^'"]+)['"]`)
	jsImportBareRe = regexp.MustCompile(`^\s*import\s+['"]([^'"]+)['"]`)
	jsRequireRe    = regexp.MustCompile(`require\(\s*['"]([^'"]+)['"]\s*\)`)
)

// JavaScript covers JS/TS family files (including JSX/TSX) with the same
// line-scanning approach as the other parsers. Arrow-function consts are
// treated as functions since that is the dominant declaration style.
type JavaScript struct{}

func NewJavaScript() *JavaScript { return &JavaScript{} }

func (p *JavaScript) Language() string { return "javascript" }

func (p *JavaScript) Parse(path string) ([]domain.Entity, error) {
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
		case jsClassRe.MatchString(line):
			name = jsClassRe.FindStringSubmatch(line)[1]
			kind = domain.KindClass
		case jsFuncRe.MatchString(line):
			name = jsFuncRe.FindStringSubmatch(line)[1]
			kind = domain.KindFunction
		case jsArrowRe.MatchString(line):
			name = jsArrowRe.FindStringSubmatch(line)[1]
			kind = domain.KindFunction
		default:
			continue
		}

		end := braceBlockEnd(lines, i)
		entities = append(entities, domain.Entity{
			Name:       name,
			Kind:       kind,
			FilePath:   path,
			LineNumber: i + 1,
			EndLine:    end,
			Language:   p.Language(),
			Docstring:  leadingComment(lines, i, "//"),
			Snippet:    snippet(lines, i+1, end),
		})
	}
	return entities, nil
}

func (p *JavaScript) ExtractDependencies(path string) ([]string, error) {
	content, ok := readValidated(path)
	if !ok {
		return nil, nil
	}

	var deps []string
	for _, line := range splitLines(content) {
		if m := jsImportFromRe.FindStringSubmatch(line); m != nil {
			deps = append(deps, m[1])
			continue
		}
		if m := jsImportBareRe.FindStringSubmatch(line); m != nil {
			deps = append(deps, m[1])
			continue
		}
		for _, m := range jsRequireRe.FindAllStringSubmatch(line, -1) {
			deps = append(deps, m[1])
		}
	}
	return dedupeStrings(deps), nil
}
