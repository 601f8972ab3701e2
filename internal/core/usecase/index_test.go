package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vosbek/docxp/internal/core/domain"
	"github.com/vosbek/docxp/internal/parser"
)

type fakeTree struct {
	files []string
	err   error
}

func (f *fakeTree) ListSourceFiles(context.Context, string) ([]string, error) {
	return f.files, f.err
}

type recordingLexical struct {
	indexed       []domain.Entity
	scopesCleared []domain.SearchScope
}

func (r *recordingLexical) IndexEntities(_ context.Context, _ domain.SearchScope, entities []domain.Entity) error {
	r.indexed = append(r.indexed, entities...)
	return nil
}

func (r *recordingLexical) Search(context.Context, domain.SearchScope, string, int) ([]domain.IndexHit, error) {
	return nil, nil
}

func (r *recordingLexical) DeleteScope(_ context.Context, scope domain.SearchScope) error {
	r.scopesCleared = append(r.scopesCleared, scope)
	return nil
}

type recordingVector struct {
	indexed       []domain.Entity
	vectors       [][]float32
	scopesCleared int
}

func (r *recordingVector) IndexEntities(_ context.Context, _ domain.SearchScope, entities []domain.Entity, vectors [][]float32) error {
	r.indexed = append(r.indexed, entities...)
	r.vectors = append(r.vectors, vectors...)
	return nil
}

func (r *recordingVector) Search(context.Context, domain.SearchScope, []float32, int) ([]domain.IndexHit, error) {
	return nil, nil
}

func (r *recordingVector) DeleteScope(context.Context, domain.SearchScope) error {
	r.scopesCleared++
	return nil
}

type fakeGraph struct {
	replaced int
	recorded []domain.Entity
}

func (f *fakeGraph) ReplaceScope(context.Context, domain.SearchScope) error {
	f.replaced++
	return nil
}

func (f *fakeGraph) RecordDependencies(_ context.Context, _ domain.SearchScope, entities []domain.Entity) error {
	f.recorded = append(f.recorded, entities...)
	return nil
}

func writeSource(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

func seedRepository(t *testing.T, store *fakeStore, sourcePath string) *domain.Repository {
	t.Helper()
	now := time.Now().UTC()
	repo := &domain.Repository{
		ID:         "repo-1",
		Name:       "payments",
		SourcePath: sourcePath,
		Commit:     "abc123",
		Status:     domain.StatusRegistered,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := store.Create(context.Background(), repo); err != nil {
		t.Fatalf("seed repository: %v", err)
	}
	return repo
}

func TestIndexByIDParsesEmbedsAndIndexes(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "svc/api.py", "import os\n\ndef handle_request(req):\n    return req\n")
	writeSource(t, root, "README.txt", "docs only\n")
	writeSource(t, root, "empty.py", "")

	store := newFakeStore()
	seedRepository(t, store, root)

	lexical := &recordingLexical{}
	vector := &recordingVector{}
	graph := &fakeGraph{}
	queue := &fakeQueue{}
	uc := NewIndexRepositoryUseCase(
		store, &fakeTree{files: []string{filepath.Join("svc", "api.py"), "README.txt", "empty.py"}},
		parser.DefaultRegistry(),
		&fakeEmbedder{vector: []float32{0.1, 0.2}},
		lexical, vector, graph, queue, 2, 16,
	)

	if err := uc.IndexByID(context.Background(), "repo-1"); err != nil {
		t.Fatalf("IndexByID() error = %v", err)
	}

	repo, _ := store.GetByID(context.Background(), "repo-1")
	if repo.Status != domain.StatusReady {
		t.Fatalf("expected ready status, got %s", repo.Status)
	}
	if repo.Report.FilesSeen != 3 {
		t.Errorf("expected 3 files seen, got %d", repo.Report.FilesSeen)
	}
	if repo.Report.FilesParsed != 1 {
		t.Errorf("expected 1 file parsed, got %d", repo.Report.FilesParsed)
	}
	if repo.Report.FilesSkipped != 2 {
		t.Errorf("expected 2 files skipped, got %d", repo.Report.FilesSkipped)
	}
	if repo.Report.EntityCount == 0 {
		t.Error("expected entities in report")
	}

	if len(lexical.indexed) == 0 || len(vector.indexed) == 0 {
		t.Fatalf("expected entities in both indexes: lexical=%d vector=%d", len(lexical.indexed), len(vector.indexed))
	}
	if len(vector.vectors) != len(vector.indexed) {
		t.Errorf("vector count mismatch: %d vectors for %d entities", len(vector.vectors), len(vector.indexed))
	}
	if len(lexical.scopesCleared) != 1 || vector.scopesCleared != 1 || graph.replaced != 1 {
		t.Error("expected every scope cleared once before indexing")
	}
	for _, e := range lexical.indexed {
		if filepath.IsAbs(e.FilePath) {
			t.Errorf("entity path must be repo-relative, got %s", e.FilePath)
		}
	}
	if len(queue.indexed) != 1 || queue.indexed[0] != "repo-1" {
		t.Errorf("expected indexed event after successful pass, got %v", queue.indexed)
	}
}

func TestIndexByIDMarksFailedOnWalkError(t *testing.T) {
	store := newFakeStore()
	seedRepository(t, store, "/nonexistent")

	queue := &fakeQueue{}
	uc := NewIndexRepositoryUseCase(
		store, &fakeTree{err: errors.New("walk failed")},
		parser.DefaultRegistry(),
		&fakeEmbedder{vector: []float32{0.1}},
		&recordingLexical{}, &recordingVector{}, &fakeGraph{}, queue, 2, 16,
	)

	if err := uc.IndexByID(context.Background(), "repo-1"); err == nil {
		t.Fatal("expected error")
	}
	if len(queue.indexed) != 0 {
		t.Errorf("failed pass must not publish indexed event, got %v", queue.indexed)
	}

	repo, _ := store.GetByID(context.Background(), "repo-1")
	if repo.Status != domain.StatusFailed {
		t.Fatalf("expected failed status, got %s", repo.Status)
	}
	if repo.Error == "" {
		t.Error("expected failure reason recorded")
	}
}

func TestIndexByIDCountsFailedFiles(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "ok.py", "def fine():\n    pass\n")
	writeSource(t, root, "broken.py", "def broken():\n    pass\n\xff\xfe\n")

	store := newFakeStore()
	seedRepository(t, store, root)

	uc := NewIndexRepositoryUseCase(
		store, &fakeTree{files: []string{"ok.py", "broken.py"}},
		parser.DefaultRegistry(),
		&fakeEmbedder{vector: []float32{0.1}},
		&recordingLexical{}, &recordingVector{}, &fakeGraph{}, &fakeQueue{}, 2, 16,
	)

	if err := uc.IndexByID(context.Background(), "repo-1"); err != nil {
		t.Fatalf("IndexByID() error = %v", err)
	}

	repo, _ := store.GetByID(context.Background(), "repo-1")
	if repo.Report.FilesFailed != 1 {
		t.Errorf("expected 1 failed file, got %d", repo.Report.FilesFailed)
	}
	if repo.Report.FilesParsed != 1 {
		t.Errorf("expected 1 parsed file, got %d", repo.Report.FilesParsed)
	}
	if repo.Status != domain.StatusReady {
		t.Errorf("per-file failures must not fail the pass, got status %s", repo.Status)
	}
}

func TestIndexByIDUnknownRepository(t *testing.T) {
	uc := NewIndexRepositoryUseCase(
		newFakeStore(), &fakeTree{},
		parser.DefaultRegistry(),
		&fakeEmbedder{vector: []float32{0.1}},
		&recordingLexical{}, &recordingVector{}, &fakeGraph{}, &fakeQueue{}, 2, 16,
	)

	if err := uc.IndexByID(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for unknown repository")
	}
}
