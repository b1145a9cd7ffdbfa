package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/catalog"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/embedding"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/indexer"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/query"
	"github.com/hyperjump/kotae/internal/splitter"
	"github.com/hyperjump/kotae/internal/vector"
)

type fixedGenerator struct {
	reply string
}

func (g *fixedGenerator) Complete(ctx context.Context, prompt string) (string, error) {
	return g.reply, nil
}

func (g *fixedGenerator) Close() error { return nil }

func testServer(t *testing.T, store vector.Store) (*Server, http.Handler) {
	t.Helper()
	embedder := embedding.NewMockEmbedder(256)
	cat, err := catalog.New(filepath.Join(t.TempDir(), "catalog.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = cat.Close() })

	split := splitter.NewFixedSplitter(512, 50)
	idx := indexer.NewIndexer(extract.NewExtractor(), split, embedder, store, 10, indexer.WithCatalog(cat))
	composer := query.NewComposer(&fixedGenerator{reply: "a grounded answer"}, "English")
	orch := query.NewOrchestrator(embedder, store, composer, 5)

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)

	srv := NewServer(orch, idx, cat, store, cfg, zap.NewNop())
	return srv, srv.router()
}

func seedServer(t *testing.T, handler http.Handler, texts []string) {
	t.Helper()
	body, _ := json.Marshal(map[string]interface{}{"texts": texts, "source": "seed"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("seed ingest status = %d: %s", w.Code, w.Body.String())
	}
}

func TestHandleQuery(t *testing.T) {
	store, _ := vector.NewMemoryStore(256)
	_, handler := testServer(t, store)
	seedServer(t, handler, []string{
		"Machine learning is a subfield of artificial intelligence.",
		"Cooking pasta requires boiling water.",
	})

	body, _ := json.Marshal(map[string]interface{}{"question": "What is machine learning?", "top_k": 1})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/query", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var result models.QueryResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if result.Failed {
		t.Fatalf("query failed: %s", result.Answer)
	}
	if result.Answer != "a grounded answer" {
		t.Errorf("answer = %q", result.Answer)
	}
	if len(result.Sources) != 1 {
		t.Errorf("got %d sources, want 1", len(result.Sources))
	}
}

func TestHandleQuery_emptyCollection(t *testing.T) {
	store, _ := vector.NewMemoryStore(256)
	_, handler := testServer(t, store)

	body, _ := json.Marshal(map[string]string{"question": "Anything?"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/query", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var result models.QueryResult
	if err := json.Unmarshal(w.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if result.Answer != query.FallbackAnswer {
		t.Errorf("answer = %q, want exactly %q", result.Answer, query.FallbackAnswer)
	}
}

func TestHandleQuery_badRequests(t *testing.T) {
	store, _ := vector.NewMemoryStore(256)
	_, handler := testServer(t, store)

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", "{not json"},
		{"missing question", `{"top_k": 3}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/query", bytes.NewReader([]byte(tt.body)))
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestHandleRelevantDocs(t *testing.T) {
	store, _ := vector.NewMemoryStore(256)
	_, handler := testServer(t, store)
	seedServer(t, handler, []string{
		"Machine learning is a subfield of artificial intelligence.",
		"Deep learning uses neural networks.",
		"Cooking pasta requires boiling water.",
	})

	body, _ := json.Marshal(map[string]interface{}{"question": "What is machine learning?", "top_k": 2})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/relevant-docs", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var resp models.RetrievalResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.TotalCount != 2 || len(resp.Documents) != 2 {
		t.Errorf("total=%d docs=%d, want 2/2", resp.TotalCount, len(resp.Documents))
	}
	if resp.Documents[0].Score < resp.Documents[1].Score {
		t.Error("documents should come back in descending score order")
	}
}

func TestHandleIngestAndStatus(t *testing.T) {
	store, _ := vector.NewMemoryStore(256)
	_, handler := testServer(t, store)

	body, _ := json.Marshal(map[string]interface{}{
		"texts":  []string{"alpha snippet", "beta snippet"},
		"source": "notes",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest", bytes.NewReader(body))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	var report models.IngestReport
	if err := json.Unmarshal(w.Body.Bytes(), &report); err != nil {
		t.Fatal(err)
	}
	if report.SourceID != "notes" || report.ChunksIndexed != 2 {
		t.Errorf("report = %+v", report)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status endpoint = %d", w.Code)
	}
	var status map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if status["vector_count"].(float64) != 2 {
		t.Errorf("vector_count = %v, want 2", status["vector_count"])
	}
	if status["sources"].(float64) != 1 {
		t.Errorf("sources = %v, want 1", status["sources"])
	}
	if _, ok := status["config"]; !ok {
		t.Error("status should include config info")
	}
}

func TestHandleIngest_emptyTexts(t *testing.T) {
	store, _ := vector.NewMemoryStore(256)
	_, handler := testServer(t, store)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/ingest", bytes.NewReader([]byte(`{"texts": []}`)))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleRebuild(t *testing.T) {
	store, _ := vector.NewMemoryStore(256)
	_, handler := testServer(t, store)
	seedServer(t, handler, []string{"will be wiped"})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/rebuild", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}

	count, err := store.Count(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("store count after rebuild = %d, want 0", count)
	}
}

type unreachableStore struct {
	*vector.MemoryStore
}

func (u *unreachableStore) Count(ctx context.Context) (uint64, error) {
	return 0, fmt.Errorf("connection refused")
}

func TestHandleHealth(t *testing.T) {
	store, _ := vector.NewMemoryStore(256)
	_, handler := testServer(t, store)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}

	mem, _ := vector.NewMemoryStore(256)
	_, handler = testServer(t, &unreachableStore{MemoryStore: mem})
	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503 when the vector backend is down", w.Code)
	}
}
