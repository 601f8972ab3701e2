package qdrant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vosbek/docxp/internal/core/domain"
)

func testScope() domain.SearchScope {
	return domain.SearchScope{RepoID: "repo-1", Commit: "abc123"}
}

func TestSearchMapsHitsInRankOrder(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/code/points/search" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		resp := map[string]any{
			"result": []map[string]any{
				{
					"score": 0.91,
					"payload": map[string]any{
						"entity_id": "repo-1:svc/a.py:10:20",
						"repo_id":   "repo-1",
						"commit":    "abc123",
						"path":      "svc/a.py",
						"start":     10,
						"end":       20,
						"name":      "handle_request",
						"kind":      "function",
						"language":  "python",
						"text":      "def handle_request():",
					},
				},
				{
					"score": 0.64,
					"payload": map[string]any{
						"entity_id": "repo-1:svc/b.py:1:5",
						"repo_id":   "repo-1",
						"commit":    "abc123",
						"path":      "svc/b.py",
						"start":     1,
						"end":       5,
						"name":      "helper",
						"kind":      "function",
						"language":  "python",
					},
				},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client := New(srv.URL, "code")
	hits, err := client.Search(context.Background(), testScope(), []float32{0.1, 0.2}, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].ID != "repo-1:svc/a.py:10:20" || hits[0].Rank != 1 {
		t.Errorf("unexpected first hit: %+v", hits[0])
	}
	if hits[1].Rank != 2 {
		t.Errorf("expected rank 2, got %d", hits[1].Rank)
	}
	if hits[0].Payload.Path != "svc/a.py" || hits[0].Payload.Start != 10 || hits[0].Payload.End != 20 {
		t.Errorf("payload not mapped: %+v", hits[0].Payload)
	}

	filter, ok := gotBody["filter"].(map[string]any)
	if !ok {
		t.Fatalf("request missing scope filter: %v", gotBody)
	}
	must, ok := filter["must"].([]any)
	if !ok || len(must) != 2 {
		t.Fatalf("expected repo_id and commit must-clauses, got %v", filter)
	}
}

func TestSearchBreaksScoreTiesByEntityID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"result": []map[string]any{
				{
					"score":   0.8,
					"payload": map[string]any{"entity_id": "repo-1:svc/b.py:1:5"},
				},
				{
					"score":   0.8,
					"payload": map[string]any{"entity_id": "repo-1:svc/a.py:1:5"},
				},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client := New(srv.URL, "code")
	hits, err := client.Search(context.Background(), testScope(), []float32{0.1}, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].ID != "repo-1:svc/a.py:1:5" || hits[0].Rank != 1 {
		t.Errorf("equal scores must rank by id: %+v", hits[0])
	}
	if hits[1].ID != "repo-1:svc/b.py:1:5" || hits[1].Rank != 2 {
		t.Errorf("expected second hit by id order: %+v", hits[1])
	}
}

func TestIndexEntitiesUpsertsWithPayload(t *testing.T) {
	var upsert map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/collections/code":
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodPut && r.URL.Path == "/collections/code/points":
			if err := json.NewDecoder(r.Body).Decode(&upsert); err != nil {
				t.Fatalf("decode upsert: %v", err)
			}
			w.WriteHeader(http.StatusOK)
		default:
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	entities := []domain.Entity{
		{
			Name:       "parse_config",
			Kind:       domain.KindFunction,
			FilePath:   "cfg/parse.py",
			LineNumber: 3,
			EndLine:    12,
			Language:   "python",
			Snippet:    "def parse_config(path):",
		},
	}

	client := New(srv.URL, "code")
	err := client.IndexEntities(context.Background(), testScope(), entities, [][]float32{{0.5, 0.5}})
	if err != nil {
		t.Fatalf("index entities: %v", err)
	}

	points, ok := upsert["points"].([]any)
	if !ok || len(points) != 1 {
		t.Fatalf("expected 1 point, got %v", upsert)
	}
	point := points[0].(map[string]any)
	payload := point["payload"].(map[string]any)
	if payload["entity_id"] != "repo-1:cfg/parse.py:3:12" {
		t.Errorf("unexpected entity_id: %v", payload["entity_id"])
	}
	if payload["repo_id"] != "repo-1" || payload["commit"] != "abc123" {
		t.Errorf("scope not attached to payload: %v", payload)
	}
	if point["id"] == "" {
		t.Error("point id is empty")
	}
}

func TestIndexEntitiesVectorMismatch(t *testing.T) {
	client := New("http://unused", "code")
	entities := []domain.Entity{{Name: "a"}, {Name: "b"}}
	err := client.IndexEntities(context.Background(), testScope(), entities, [][]float32{{0.1}})
	if err == nil {
		t.Fatal("expected mismatch error")
	}
}

func TestEnsureCollectionToleratesConflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/collections/code":
			w.WriteHeader(http.StatusConflict)
		case r.Method == http.MethodPut && r.URL.Path == "/collections/code/points":
			w.WriteHeader(http.StatusOK)
		default:
			t.Fatalf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	client := New(srv.URL, "code")
	entities := []domain.Entity{{Name: "x", FilePath: "x.go", LineNumber: 1, EndLine: 2}}
	if err := client.IndexEntities(context.Background(), testScope(), entities, [][]float32{{0.1}}); err != nil {
		t.Fatalf("index with existing collection: %v", err)
	}
}

func TestDeleteScopeSendsFilter(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/code/points/delete" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode delete: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := New(srv.URL, "code")
	if err := client.DeleteScope(context.Background(), testScope()); err != nil {
		t.Fatalf("delete scope: %v", err)
	}
	if _, ok := body["filter"]; !ok {
		t.Fatalf("delete request missing filter: %v", body)
	}
}

func TestSearchSurfacesServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "collection not found", http.StatusNotFound)
	}))
	defer srv.Close()

	client := New(srv.URL, "code")
	_, err := client.Search(context.Background(), testScope(), []float32{0.1}, 5)
	if err == nil {
		t.Fatal("expected error from 404 response")
	}
}
