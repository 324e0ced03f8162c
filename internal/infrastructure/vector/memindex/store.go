package memindex

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/mahirlabib/physics-rag/internal/core/domain"
)

// Store is a process-local chunk index for development and tests, so the
// service can run without a Weaviate deployment. Vector search ranks by
// cosine distance, keyword search by query-token recall, and hybrid search
// by a normalized blend of the two using the same alpha convention as the
// remote store: 1.0 is all-vector, 0.0 all-keyword.
type Store struct {
	collection string

	mu        sync.RWMutex
	entries   []entry
	dimension int
}

type entry struct {
	chunk  domain.Chunk
	vector []float32
	tokens map[string]struct{}
}

func New(collection string) *Store {
	return &Store{collection: collection}
}

func (s *Store) EnsureReady(ctx context.Context) error {
	return nil
}

func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.dimension = 0
	return nil
}

func (s *Store) Insert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("memory index insert: %d chunks with %d vectors", len(chunks), len(vectors))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dimension := s.dimension
	for i, vector := range vectors {
		if len(vector) == 0 {
			return fmt.Errorf("memory index insert: empty vector for doc %d", chunks[i].ID)
		}
		if dimension == 0 {
			dimension = len(vector)
			continue
		}
		if len(vector) != dimension {
			return fmt.Errorf("memory index insert: vector dimension %d, index holds %d", len(vector), dimension)
		}
	}

	for i, chunk := range chunks {
		s.entries = append(s.entries, entry{
			chunk:  chunk,
			vector: vectors[i],
			tokens: toTokenSet(chunk.Text),
		})
	}
	s.dimension = dimension
	return nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func (s *Store) QueryVector(ctx context.Context, vector []float32, limit int) ([]domain.Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := make([]domain.Hit, 0, len(s.entries))
	for _, e := range s.entries {
		hits = append(hits, domain.Hit{
			Content:  e.chunk.Text,
			DocID:    e.chunk.ID,
			RawScore: 1.0 - cosineSimilarity(vector, e.vector),
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].RawScore != hits[j].RawScore {
			return hits[i].RawScore < hits[j].RawScore
		}
		return hits[i].DocID < hits[j].DocID
	})
	return truncateHits(hits, limit), nil
}

// QueryKeyword returns only chunks sharing at least one token with the
// query, scored by the fraction of query tokens the chunk covers.
func (s *Store) QueryKeyword(ctx context.Context, query string, limit int) ([]domain.Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	queryTokens := toTokenSet(query)
	hits := make([]domain.Hit, 0, len(s.entries))
	for _, e := range s.entries {
		recall := tokenRecall(queryTokens, e.tokens)
		if recall <= 0 {
			continue
		}
		hits = append(hits, domain.Hit{
			Content:  e.chunk.Text,
			DocID:    e.chunk.ID,
			RawScore: recall,
		})
	}

	sortDescending(hits)
	return truncateHits(hits, limit), nil
}

func (s *Store) QueryHybrid(ctx context.Context, query string, vector []float32, alpha float64, limit int) ([]domain.Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	queryTokens := toTokenSet(query)
	similarities := make([]float64, len(s.entries))
	recalls := make([]float64, len(s.entries))
	for i, e := range s.entries {
		similarities[i] = cosineSimilarity(vector, e.vector)
		recalls[i] = tokenRecall(queryTokens, e.tokens)
	}
	normalizeScores(similarities)
	normalizeScores(recalls)

	hits := make([]domain.Hit, 0, len(s.entries))
	for i, e := range s.entries {
		hits = append(hits, domain.Hit{
			Content:  e.chunk.Text,
			DocID:    e.chunk.ID,
			RawScore: alpha*similarities[i] + (1.0-alpha)*recalls[i],
		})
	}

	sortDescending(hits)
	return truncateHits(hits, limit), nil
}

func (s *Store) Collection() string {
	return s.collection
}

func (s *Store) Close() error {
	return nil
}

func sortDescending(hits []domain.Hit) {
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].RawScore != hits[j].RawScore {
			return hits[i].RawScore > hits[j].RawScore
		}
		return hits[i].DocID < hits[j].DocID
	})
}

func truncateHits(hits []domain.Hit, limit int) []domain.Hit {
	if limit > 0 && limit < len(hits) {
		return hits[:limit]
	}
	return hits
}

// normalizeScores rescales one signal to [0,1] in place so the hybrid blend
// compares like with like. A flat signal maps positives to 1 and the rest
// to 0.
func normalizeScores(scores []float64) {
	if len(scores) == 0 {
		return
	}
	minScore, maxScore := scores[0], scores[0]
	for _, v := range scores[1:] {
		if v < minScore {
			minScore = v
		}
		if v > maxScore {
			maxScore = v
		}
	}
	scoreRange := maxScore - minScore
	for i, v := range scores {
		if scoreRange <= 0 {
			if v > 0 {
				scores[i] = 1
			} else {
				scores[i] = 0
			}
			continue
		}
		scores[i] = (v - minScore) / scoreRange
	}
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func tokenRecall(query, chunk map[string]struct{}) float64 {
	if len(query) == 0 || len(chunk) == 0 {
		return 0
	}
	matches := 0
	for token := range query {
		if _, ok := chunk[token]; ok {
			matches++
		}
	}
	return float64(matches) / float64(len(query))
}

// toTokenSet folds text into maximal letter/digit runs, lowercased. Splitting
// on unicode classes rather than ASCII ranges keeps Bengali words intact.
func toTokenSet(s string) map[string]struct{} {
	out := make(map[string]struct{}, 16)
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			out[b.String()] = struct{}{}
			b.Reset()
		}
	}
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		flush()
	}
	flush()
	return out
}
