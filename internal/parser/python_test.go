package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/vosbek/docxp/internal/core/domain"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

const pythonSample = `import os
from typing import List

def top():
    """Top doc."""
    return 1

class Greeter:
    def greet(self, name):
        '''Say hello.'''
        return "hi " + name
`

func TestPythonParseExtractsFunctionsAndClasses(t *testing.T) {
	path := writeTemp(t, "sample.py", pythonSample)

	entities, err := NewPython().Parse(path)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(entities) != 3 {
		t.Fatalf("expected 3 entities, got %d: %+v", len(entities), entities)
	}

	byName := map[string]domain.Entity{}
	for _, e := range entities {
		byName[e.Name] = e
	}

	top := byName["top"]
	if top.Kind != domain.KindFunction {
		t.Errorf("top: expected function, got %s", top.Kind)
	}
	if top.LineNumber != 4 || top.EndLine != 6 {
		t.Errorf("top: expected lines 4-6, got %d-%d", top.LineNumber, top.EndLine)
	}
	if top.Docstring != "Top doc." {
		t.Errorf("top: unexpected docstring %q", top.Docstring)
	}

	greeter := byName["Greeter"]
	if greeter.Kind != domain.KindClass {
		t.Errorf("Greeter: expected class, got %s", greeter.Kind)
	}
	if greeter.EndLine <= greeter.LineNumber {
		t.Errorf("Greeter: block end not detected: %d-%d", greeter.LineNumber, greeter.EndLine)
	}

	greet := byName["greet"]
	if greet.Kind != domain.KindFunction {
		t.Errorf("greet: expected function, got %s", greet.Kind)
	}
	if greet.Docstring != "Say hello." {
		t.Errorf("greet: unexpected docstring %q", greet.Docstring)
	}
}

func TestPythonExtractDependenciesDedupes(t *testing.T) {
	path := writeTemp(t, "deps.py", "import os\nimport os\nfrom typing import List\nimport json.decoder\n")

	deps, err := NewPython().ExtractDependencies(path)
	if err != nil {
		t.Fatalf("ExtractDependencies() error = %v", err)
	}
	want := []string{"os", "typing", "json.decoder"}
	if len(deps) != len(want) {
		t.Fatalf("expected %v, got %v", want, deps)
	}
	for i, d := range want {
		if deps[i] != d {
			t.Errorf("deps[%d] = %q, want %q", i, deps[i], d)
		}
	}
}

func TestPythonParseRejectsBinaryContent(t *testing.T) {
	path := writeTemp(t, "bad.py", "def x():\n\xff\xfe\x00\n")

	_, err := NewPython().Parse(path)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !IsParseError(err) {
		t.Fatalf("expected recoverable ParseError, got %T", err)
	}
}

func TestPythonParsePreconditions(t *testing.T) {
	p := NewPython()

	entities, err := p.Parse(filepath.Join(t.TempDir(), "missing.py"))
	if err != nil || entities != nil {
		t.Fatalf("missing file: expected nil/nil, got %v/%v", entities, err)
	}

	empty := writeTemp(t, "empty.py", "")
	entities, err = p.Parse(empty)
	if err != nil || entities != nil {
		t.Fatalf("empty file: expected nil/nil, got %v/%v", entities, err)
	}

	dir := t.TempDir()
	entities, err = p.Parse(dir)
	if err != nil || entities != nil {
		t.Fatalf("directory: expected nil/nil, got %v/%v", entities, err)
	}
}
