package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mahirlabib/physics-rag/internal/core/domain"
)

// storeFake is a stateful Index: Reset empties it and Insert grows it, so
// readiness and idempotence behave like a real collection.
type storeFake struct {
	count     int
	ensureErr error
	resetErr  error
	countErr  error
	insertErr error

	ensureCalls int
	resetCalls  int
	insertCalls int
	gotChunks   []domain.Chunk
	gotVectors  [][]float32
}

func (f *storeFake) EnsureReady(context.Context) error {
	f.ensureCalls++
	return f.ensureErr
}

func (f *storeFake) Reset(context.Context) error {
	f.resetCalls++
	if f.resetErr != nil {
		return f.resetErr
	}
	f.count = 0
	return nil
}

func (f *storeFake) Insert(_ context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	f.insertCalls++
	f.gotChunks = chunks
	f.gotVectors = vectors
	if f.insertErr != nil {
		return f.insertErr
	}
	f.count += len(chunks)
	return nil
}

func (f *storeFake) Count(context.Context) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.count, nil
}

func (f *storeFake) QueryVector(context.Context, []float32, int) ([]domain.Hit, error) {
	return nil, nil
}

func (f *storeFake) QueryKeyword(context.Context, string, int) ([]domain.Hit, error) {
	return nil, nil
}

func (f *storeFake) QueryHybrid(context.Context, string, []float32, float64, int) ([]domain.Hit, error) {
	return nil, nil
}

func (f *storeFake) Collection() string { return "PhysicsChunk" }
func (f *storeFake) Close() error       { return nil }

type corpusFake struct {
	raw   string
	err   error
	calls int
}

func (f *corpusFake) Load(context.Context) (string, error) {
	f.calls++
	return f.raw, f.err
}

func newIngestOrchestrator(embedder *embedderFake, store *storeFake, corpus *corpusFake) *Orchestrator {
	return NewOrchestrator(embedder, &generatorFake{}, store, corpus, nil, AssistantConfig{})
}

func TestIngestSplitsCorpusAndAssignsSequentialIDs(t *testing.T) {
	embedder := &embedderFake{}
	store := &storeFake{}
	corpus := &corpusFake{raw: "  নিউটনের সূত্র  *****\n\nতাপগতিবিদ্যা\n*****   ***** আলো "}
	orch := newIngestOrchestrator(embedder, store, corpus)

	report := orch.Ingest(context.Background(), false)
	if !report.Success {
		t.Fatalf("Ingest() failed: %s", report.Message)
	}
	if report.Documents != 3 {
		t.Fatalf("expected 3 documents, got %d", report.Documents)
	}
	if report.Collection != "PhysicsChunk" {
		t.Fatalf("expected collection name in report, got %q", report.Collection)
	}

	want := []domain.Chunk{
		{ID: 0, Text: "নিউটনের সূত্র"},
		{ID: 1, Text: "তাপগতিবিদ্যা"},
		{ID: 2, Text: "আলো"},
	}
	if len(store.gotChunks) != len(want) {
		t.Fatalf("expected %d chunks inserted, got %d", len(want), len(store.gotChunks))
	}
	for i, chunk := range store.gotChunks {
		if chunk != want[i] {
			t.Fatalf("chunk %d = %+v, want %+v", i, chunk, want[i])
		}
	}
	if len(store.gotVectors) != 3 {
		t.Fatalf("expected one vector per chunk, got %d", len(store.gotVectors))
	}
	if embedder.batchCalls != 1 {
		t.Fatalf("expected a single batch embed call, got %d", embedder.batchCalls)
	}
}

func TestIngestIsNoOpWhenCollectionPopulated(t *testing.T) {
	embedder := &embedderFake{}
	store := &storeFake{count: 42}
	corpus := &corpusFake{raw: "অধ্যায় ***** আরেকটি"}
	orch := newIngestOrchestrator(embedder, store, corpus)

	report := orch.Ingest(context.Background(), false)
	if !report.Success {
		t.Fatalf("Ingest() failed: %s", report.Message)
	}
	if report.Documents != 42 {
		t.Fatalf("expected existing count 42, got %d", report.Documents)
	}
	if corpus.calls != 0 {
		t.Fatalf("no-op ingest must not load the corpus")
	}
	if embedder.batchCalls != 0 || store.insertCalls != 0 {
		t.Fatalf("no-op ingest must not embed or insert (embed=%d insert=%d)", embedder.batchCalls, store.insertCalls)
	}
}

func TestIngestForceResetRebuildsCollection(t *testing.T) {
	embedder := &embedderFake{}
	store := &storeFake{count: 42}
	corpus := &corpusFake{raw: "এক ***** দুই"}
	orch := newIngestOrchestrator(embedder, store, corpus)

	report := orch.Ingest(context.Background(), true)
	if !report.Success {
		t.Fatalf("Ingest() failed: %s", report.Message)
	}
	if store.resetCalls != 1 {
		t.Fatalf("expected one reset, got %d", store.resetCalls)
	}
	if report.Documents != 2 {
		t.Fatalf("expected rebuilt count 2, got %d", report.Documents)
	}
	if store.insertCalls != 1 {
		t.Fatalf("expected insert after reset, got %d", store.insertCalls)
	}
}

func TestIngestReportsCorpusLoadFailure(t *testing.T) {
	embedder := &embedderFake{}
	store := &storeFake{}
	corpus := &corpusFake{err: errors.New("file missing")}
	orch := newIngestOrchestrator(embedder, store, corpus)

	report := orch.Ingest(context.Background(), false)
	if report.Success {
		t.Fatalf("expected failure report")
	}
	if !strings.Contains(report.Message, "load corpus") {
		t.Fatalf("expected load failure detail, got %q", report.Message)
	}
	if embedder.batchCalls != 0 {
		t.Fatalf("must not embed after load failure")
	}
}

func TestIngestRejectsEmptyCorpus(t *testing.T) {
	store := &storeFake{}
	corpus := &corpusFake{raw: " ***** \n\t ***** "}
	orch := newIngestOrchestrator(&embedderFake{}, store, corpus)

	report := orch.Ingest(context.Background(), false)
	if report.Success {
		t.Fatalf("expected failure for chunkless corpus")
	}
	if store.insertCalls != 0 {
		t.Fatalf("must not insert when nothing was chunked")
	}
}

func TestIngestReportsEmbeddingCountMismatch(t *testing.T) {
	embedder := &embedderFake{batchOverride: [][]float32{{0.1}}}
	store := &storeFake{}
	corpus := &corpusFake{raw: "এক ***** দুই ***** তিন"}
	orch := newIngestOrchestrator(embedder, store, corpus)

	report := orch.Ingest(context.Background(), false)
	if report.Success {
		t.Fatalf("expected mismatch failure")
	}
	if !strings.Contains(report.Message, "mismatch") {
		t.Fatalf("expected mismatch detail, got %q", report.Message)
	}
	if store.insertCalls != 0 {
		t.Fatalf("must not insert mismatched vectors")
	}
}

func TestIngestReportsEmbedFailure(t *testing.T) {
	embedder := &embedderFake{err: errors.New("quota exhausted")}
	orch := newIngestOrchestrator(embedder, &storeFake{}, &corpusFake{raw: "এক"})

	report := orch.Ingest(context.Background(), false)
	if report.Success {
		t.Fatalf("expected failure report")
	}
	if !strings.Contains(report.Message, "embed") {
		t.Fatalf("expected embed failure detail, got %q", report.Message)
	}
}

func TestIngestReportsInsertFailure(t *testing.T) {
	store := &storeFake{insertErr: errors.New("batch rejected")}
	orch := newIngestOrchestrator(&embedderFake{}, store, &corpusFake{raw: "এক"})

	report := orch.Ingest(context.Background(), false)
	if report.Success {
		t.Fatalf("expected failure report")
	}
	if !strings.Contains(report.Message, "insert") {
		t.Fatalf("expected insert failure detail, got %q", report.Message)
	}
}

func TestIngestReportsPrepareFailure(t *testing.T) {
	store := &storeFake{ensureErr: errors.New("schema unavailable")}
	orch := newIngestOrchestrator(&embedderFake{}, store, &corpusFake{raw: "এক"})

	report := orch.Ingest(context.Background(), false)
	if report.Success {
		t.Fatalf("expected failure report")
	}
	if !strings.Contains(report.Message, "prepare collection") {
		t.Fatalf("expected prepare failure detail, got %q", report.Message)
	}
}

func TestIngestTwiceKeepsDocumentCount(t *testing.T) {
	embedder := &embedderFake{}
	store := &storeFake{}
	corpus := &corpusFake{raw: "এক ***** দুই"}
	orch := newIngestOrchestrator(embedder, store, corpus)

	first := orch.Ingest(context.Background(), false)
	second := orch.Ingest(context.Background(), false)

	if !first.Success || !second.Success {
		t.Fatalf("expected both ingests to succeed (%q / %q)", first.Message, second.Message)
	}
	if first.Documents != 2 || second.Documents != 2 {
		t.Fatalf("expected stable count 2/2, got %d/%d", first.Documents, second.Documents)
	}
	if store.insertCalls != 1 {
		t.Fatalf("second ingest must be a no-op, inserts=%d", store.insertCalls)
	}
	if embedder.batchCalls != 1 {
		t.Fatalf("second ingest must not re-embed, batches=%d", embedder.batchCalls)
	}
}
