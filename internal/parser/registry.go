package parser

import (
	"path/filepath"
	"strings"
)

// Registry maps normalized file extensions to parsers. It is an explicit
// instance constructed once at startup and handed to whatever drives
// ingestion; there is no package-level registration state.
//
// Resolution is exact-match on the lower-cased extension. Unsupported files
// resolve to nothing; the registry never guesses.
type Registry struct {
	parsers map[string]Parser
}

func NewRegistry() *Registry {
	return &Registry{parsers: make(map[string]Parser)}
}

// DefaultRegistry returns a registry with all built-in language parsers
// registered. Adding a language is purely additive: implement Parser and
// register it under its extensions.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(NewPython(), ".py")
	r.Register(NewJavaScript(), ".js", ".jsx", ".ts", ".tsx", ".mjs")
	r.Register(NewJava(), ".java")
	r.Register(NewGo(), ".go")
	return r
}

// Register associates a parser with one or more file extensions. Extensions
// are normalized to a lower-cased ".ext" form.
func (r *Registry) Register(p Parser, extensions ...string) {
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		r.parsers[ext] = p
	}
}

// Resolve returns the parser responsible for the file, if any.
func (r *Registry) Resolve(path string) (Parser, bool) {
	p, ok := r.parsers[normalizeExt(path)]
	return p, ok
}

// IsSupported is a pure predicate over the same resolution table.
func (r *Registry) IsSupported(path string) bool {
	_, ok := r.parsers[normalizeExt(path)]
	return ok
}

// Extensions lists the registered extensions, unordered.
func (r *Registry) Extensions() []string {
	out := make([]string, 0, len(r.parsers))
	for ext := range r.parsers {
		out = append(out, ext)
	}
	return out
}

func normalizeExt(path string) string {
	return strings.ToLower(filepath.Ext(path))
}
