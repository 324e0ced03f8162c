package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/mahirlabib/physics-rag/internal/core/domain"
)

// chunkSeparator is the marker the textbook corpus uses between sections.
const chunkSeparator = "*****"

// Ingest loads the corpus into the index. When the collection already holds
// documents and forceReset is false this is a counted no-op, which makes the
// operation safe to call on every startup. Failures come back as a report,
// never as an error value.
func (o *Orchestrator) Ingest(ctx context.Context, forceReset bool) domain.IngestReport {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.ingestLocked(ctx, forceReset)
}

func (o *Orchestrator) ingestLocked(ctx context.Context, forceReset bool) domain.IngestReport {
	collection := o.index.Collection()

	if err := o.index.EnsureReady(ctx); err != nil {
		return failedIngest(collection, fmt.Sprintf("prepare collection: %v", err))
	}

	if forceReset {
		if err := o.index.Reset(ctx); err != nil {
			return failedIngest(collection, fmt.Sprintf("reset collection: %v", err))
		}
	}

	count, err := o.index.Count(ctx)
	if err != nil {
		return failedIngest(collection, fmt.Sprintf("count documents: %v", err))
	}
	if count > 0 && !forceReset {
		o.ready = true
		return domain.IngestReport{
			Success:    true,
			Message:    fmt.Sprintf("collection already contains %d documents", count),
			Documents:  count,
			Collection: collection,
		}
	}

	raw, err := o.corpus.Load(ctx)
	if err != nil {
		return failedIngest(collection, fmt.Sprintf("load corpus: %v", err))
	}

	chunks := splitCorpus(raw)
	if len(chunks) == 0 {
		return failedIngest(collection, "corpus produced no chunks")
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Text
	}

	vectors, err := o.embedder.Embed(ctx, texts)
	if err != nil {
		return failedIngest(collection, fmt.Sprintf("embed chunks: %v", err))
	}
	if len(vectors) != len(chunks) {
		return failedIngest(collection, fmt.Sprintf("embedding count mismatch: %d chunks, %d vectors", len(chunks), len(vectors)))
	}

	if err := o.index.Insert(ctx, chunks, vectors); err != nil {
		return failedIngest(collection, fmt.Sprintf("insert documents: %v", err))
	}

	o.ready = true
	return domain.IngestReport{
		Success:    true,
		Message:    fmt.Sprintf("initialized collection with %d documents", len(chunks)),
		Documents:  len(chunks),
		Collection: collection,
	}
}

// splitCorpus cuts the raw text on the section marker, trims each piece and
// drops empties. IDs are the 0-based positions among the surviving chunks.
func splitCorpus(raw string) []domain.Chunk {
	parts := strings.Split(raw, chunkSeparator)
	chunks := make([]domain.Chunk, 0, len(parts))
	for _, part := range parts {
		text := strings.TrimSpace(part)
		if text == "" {
			continue
		}
		chunks = append(chunks, domain.Chunk{ID: len(chunks), Text: text})
	}
	return chunks
}

func failedIngest(collection, message string) domain.IngestReport {
	return domain.IngestReport{
		Success:    false,
		Message:    message,
		Collection: collection,
	}
}
