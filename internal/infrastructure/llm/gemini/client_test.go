package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mahirlabib/physics-rag/internal/core/domain"
)

func TestEmbedBatchesAllTextsInOneCall(t *testing.T) {
	var (
		calls        int
		capturedPath string
		capturedKey  string
		capturedBody map[string]any
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		capturedPath = r.URL.Path
		capturedKey = r.Header.Get("x-goog-api-key")
		if err := json.NewDecoder(r.Body).Decode(&capturedBody); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"embeddings":[{"values":[0.1,0.2]},{"values":[0.3,0.4]}]}`))
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "test-key", "gemini-embedding-001", "gemini-2.5-flash", 0.7))
	vectors, err := embedder.Embed(context.Background(), []string{"নিউটনের সূত্র", "তাপগতিবিদ্যা"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}

	if calls != 1 {
		t.Fatalf("expected one batch call, got %d", calls)
	}
	if capturedPath != "/v1beta/models/gemini-embedding-001:batchEmbedContents" {
		t.Fatalf("unexpected path %s", capturedPath)
	}
	if capturedKey != "test-key" {
		t.Fatalf("expected api key header, got %q", capturedKey)
	}
	requests, _ := capturedBody["requests"].([]any)
	if len(requests) != 2 {
		t.Fatalf("expected 2 embed requests, got %d", len(requests))
	}
	first, _ := requests[0].(map[string]any)
	if first["model"] != "models/gemini-embedding-001" {
		t.Fatalf("expected qualified model name, got %v", first["model"])
	}
	if len(vectors) != 2 || len(vectors[0]) != 2 {
		t.Fatalf("unexpected vectors %v", vectors)
	}
	if vectors[1][1] != 0.4 {
		t.Fatalf("expected ordered vectors, got %v", vectors)
	}
}

func TestEmbedQueryUsesSingleEmbedEndpoint(t *testing.T) {
	var capturedPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedPath = r.URL.Path
		_, _ = w.Write([]byte(`{"embedding":{"values":[0.5,0.6,0.7]}}`))
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "k", "gemini-embedding-001", "gemini-2.5-flash", 0.7))
	vector, err := embedder.EmbedQuery(context.Background(), "আলো কী?")
	if err != nil {
		t.Fatalf("EmbedQuery() error = %v", err)
	}
	if capturedPath != "/v1beta/models/gemini-embedding-001:embedContent" {
		t.Fatalf("unexpected path %s", capturedPath)
	}
	if len(vector) != 3 {
		t.Fatalf("expected 3 dims, got %d", len(vector))
	}
}

func TestEmbedSkipsRequestForEmptyInput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatalf("no request expected for empty input")
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "k", "e", "g", 0.7))
	vectors, err := embedder.Embed(context.Background(), nil)
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if vectors != nil {
		t.Fatalf("expected nil vectors, got %v", vectors)
	}
}

func TestGenerateSendsGenerationConfig(t *testing.T) {
	var capturedBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&capturedBody); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"  জড়তার সূত্র।  "}]}}]}`))
	}))
	defer server.Close()

	generator := NewGenerator(New(server.URL, "k", "gemini-embedding-001", "gemini-2.5-flash", 0.7))
	text, err := generator.Generate(context.Background(), "নিউটনের প্রথম সূত্র কী?", 1000)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if text != "জড়তার সূত্র।" {
		t.Fatalf("expected trimmed candidate text, got %q", text)
	}

	cfg, _ := capturedBody["generationConfig"].(map[string]any)
	if cfg["maxOutputTokens"] != float64(1000) {
		t.Fatalf("expected maxOutputTokens 1000, got %v", cfg["maxOutputTokens"])
	}
	if cfg["temperature"] != 0.7 {
		t.Fatalf("expected temperature 0.7, got %v", cfg["temperature"])
	}
	contents, _ := capturedBody["contents"].([]any)
	if len(contents) != 1 {
		t.Fatalf("expected one content block, got %d", len(contents))
	}
}

func TestGenerateOmitsTokenCapWhenUnset(t *testing.T) {
	var capturedBody map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&capturedBody); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	}))
	defer server.Close()

	generator := NewGenerator(New(server.URL, "k", "e", "g", 0.7))
	if _, err := generator.Generate(context.Background(), "test", 0); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	cfg, _ := capturedBody["generationConfig"].(map[string]any)
	if _, present := cfg["maxOutputTokens"]; present {
		t.Fatalf("maxOutputTokens must be omitted when unset, got %v", cfg["maxOutputTokens"])
	}
}

func TestGenerateFailsOnEmptyCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	generator := NewGenerator(New(server.URL, "k", "e", "g", 0.7))
	if _, err := generator.Generate(context.Background(), "test", 10); err == nil || !strings.Contains(err.Error(), "candidates") {
		t.Fatalf("expected empty-candidates error, got %v", err)
	}
}

func TestRateLimitErrorIsTemporaryWithBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"quota exceeded"}}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	embedder := NewEmbedder(New(server.URL, "k", "e", "g", 0.7))
	_, err := embedder.Embed(context.Background(), []string{"hello"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "quota exceeded") {
		t.Fatalf("expected response body in error, got %v", err)
	}
	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected typed status error, got %v", err)
	}
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("429 must be wrapped as temporary, got %v", err)
	}
}

func TestBadRequestIsNotTemporary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid argument", http.StatusBadRequest)
	}))
	defer server.Close()

	generator := NewGenerator(New(server.URL, "k", "e", "g", 0.7))
	_, err := generator.Generate(context.Background(), "test", 10)
	if err == nil {
		t.Fatalf("expected error")
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("400 must not be temporary, got %v", err)
	}
}
