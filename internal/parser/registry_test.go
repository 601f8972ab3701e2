package parser

import "testing"

func TestDefaultRegistryResolvesKnownExtensions(t *testing.T) {
	r := DefaultRegistry()

	cases := []struct {
		path     string
		language string
	}{
		{"svc/app.py", "python"},
		{"web/index.js", "javascript"},
		{"web/App.tsx", "javascript"},
		{"web/mod.mjs", "javascript"},
		{"core/Service.java", "java"},
		{"cmd/main.go", "go"},
		{"UPPER/CASE.PY", "python"},
	}
	for _, tc := range cases {
		p, ok := r.Resolve(tc.path)
		if !ok {
			t.Fatalf("Resolve(%q): no parser", tc.path)
		}
		if p.Language() != tc.language {
			t.Errorf("Resolve(%q) = %s, want %s", tc.path, p.Language(), tc.language)
		}
	}
}

func TestRegistryNeverGuesses(t *testing.T) {
	r := DefaultRegistry()

	for _, path := range []string{"README.md", "Makefile", "data.bin", "noext", "archive.py.gz"} {
		if r.IsSupported(path) {
			t.Errorf("IsSupported(%q) = true, want false", path)
		}
	}
}

func TestRegisterNormalizesExtensions(t *testing.T) {
	r := NewRegistry()
	r.Register(NewPython(), "PY", " .Pyi ", "")

	if !r.IsSupported("x.py") {
		t.Error("expected bare extension normalized with leading dot")
	}
	if !r.IsSupported("x.pyi") {
		t.Error("expected padded extension normalized")
	}
	if got := len(r.Extensions()); got != 2 {
		t.Errorf("expected 2 registered extensions, got %d", got)
	}
}
