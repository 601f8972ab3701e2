package parser

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/vosbek/docxp/internal/core/domain"
)

var (
	javaTypeRe    = regexp.MustCompile(`^\s*(?:(?:public|protected|private|abstract|final|static|sealed)\s+)*(class|interface|enum|record)\s+([A-Za-z_]\w*)`)
	javaMethodRe  = regexp.MustCompile(`^\s*(?:(?:public|protected|private|static|final|abstract|synchronized|native)\s+)+[\w<>\[\],.?\s]+?\s+(\w+)\s*\(`)
	javaImportRe  = regexp.MustCompile(`^\s*import\s+(?:static\s+)?([\w.]+(?:\.\*)?)\s*;`)
	javaPackageRe = regexp.MustCompile(`^\s*package\s+([\w.]+)\s*;`)
)

// javaControlKeywords are names the method regex can false-match on.
var javaControlKeywords = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true,
	"catch": true, "return": true, "new": true, "super": true, "this": true,
}

// Java extracts types, methods, and imports. The package declaration is
// surfaced as a module entity so per-file provenance includes the owning
// package.
type Java struct{}

func NewJava() *Java { return &Java{} }

func (p *Java) Language() string { return "java" }

func (p *Java) Parse(path string) ([]domain.Entity, error) {
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
		if m := javaPackageRe.FindStringSubmatch(line); m != nil {
			entities = append(entities, domain.Entity{
				Name:       m[1],
				Kind:       domain.KindModule,
				FilePath:   path,
				LineNumber: i + 1,
				EndLine:    i + 1,
				Language:   p.Language(),
				Snippet:    snippet(lines, i+1, i+1),
			})
			continue
		}
		if m := javaTypeRe.FindStringSubmatch(line); m != nil {
			end := braceBlockEnd(lines, i)
			entities = append(entities, domain.Entity{
				Name:       m[2],
				Kind:       domain.KindClass,
				FilePath:   path,
				LineNumber: i + 1,
				EndLine:    end,
				Language:   p.Language(),
				Docstring:  javadocAbove(lines, i),
				Snippet:    snippet(lines, i+1, end),
			})
			continue
		}
		if m := javaMethodRe.FindStringSubmatch(line); m != nil {
			name := m[1]
			if javaControlKeywords[name] {
				continue
			}
			end := braceBlockEnd(lines, i)
			entities = append(entities, domain.Entity{
				Name:       name,
				Kind:       domain.KindFunction,
				FilePath:   path,
				LineNumber: i + 1,
				EndLine:    end,
				Language:   p.Language(),
				Docstring:  javadocAbove(lines, i),
				Snippet:    snippet(lines, i+1, end),
			})
		}
	}
	return entities, nil
}

func (p *Java) ExtractDependencies(path string) ([]string, error) {
	content, ok := readValidated(path)
	if !ok {
		return nil, nil
	}

	var deps []string
	for _, line := range splitLines(content) {
		if m := javaImportRe.FindStringSubmatch(line); m != nil {
			deps = append(deps, m[1])
		}
	}
	return dedupeStrings(deps), nil
}

// javadocAbove collects a /** ... */ block ending directly above the
// 0-based declaration index.
func javadocAbove(lines []string, declIdx int) string {
	i := declIdx - 1
	for i >= 0 && strings.TrimSpace(lines[i]) == "" {
		i--
	}
	if i < 0 || !strings.HasSuffix(strings.TrimSpace(lines[i]), "*/") {
		return ""
	}

	var block []string
	for ; i >= 0; i-- {
		trimmed := strings.TrimSpace(lines[i])
		trimmed = strings.TrimSuffix(trimmed, "*/")
		trimmed = strings.TrimPrefix(trimmed, "/**")
		trimmed = strings.TrimPrefix(trimmed, "/*")
		trimmed = strings.TrimPrefix(trimmed, "*")
		block = append([]string{strings.TrimSpace(trimmed)}, block...)
		if strings.HasPrefix(strings.TrimSpace(lines[i]), "/*") {
			break
		}
	}
	return strings.TrimSpace(strings.Join(block, "\n"))
}
