package weaviate

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mahirlabib/physics-rag/internal/core/domain"
	"github.com/mahirlabib/physics-rag/internal/infrastructure/resilience"
)

// Store is a Weaviate-backed chunk index. Schema and batch writes go through
// the REST API, queries through GraphQL. Vectors are always supplied by the
// caller, so the class is registered with vectorizer "none".
type Store struct {
	baseURL    string
	apiKey     string
	class      string
	httpClient *http.Client
	executor   *resilience.Executor

	ensureMu sync.Mutex
	ensured  bool
}

type Options struct {
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(baseURL, apiKey, class string) *Store {
	return NewWithOptions(baseURL, apiKey, class, Options{})
}

func NewWithOptions(baseURL, apiKey, class string, options Options) *Store {
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Store{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		class:      class,
		httpClient: &http.Client{Timeout: timeout},
		executor:   options.ResilienceExecutor,
	}
}

type schemaProperty struct {
	Name     string   `json:"name"`
	DataType []string `json:"dataType"`
}

type schemaClass struct {
	Class      string           `json:"class"`
	Vectorizer string           `json:"vectorizer"`
	Properties []schemaProperty `json:"properties"`
}

func (s *Store) EnsureReady(ctx context.Context) error {
	s.ensureMu.Lock()
	if s.ensured {
		s.ensureMu.Unlock()
		return nil
	}
	s.ensureMu.Unlock()

	err := s.call(ctx, "schema_check", http.MethodGet, "/v1/schema/"+s.class, nil, nil)
	if err == nil {
		s.markEnsured()
		return nil
	}

	var statusErr *HTTPStatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
		return err
	}
	if err := s.createClass(ctx); err != nil {
		return err
	}
	s.markEnsured()
	return nil
}

func (s *Store) createClass(ctx context.Context) error {
	class := schemaClass{
		Class:      s.class,
		Vectorizer: "none",
		Properties: []schemaProperty{
			{Name: "text", DataType: []string{"text"}},
			{Name: "doc_id", DataType: []string{"int"}},
		},
	}

	err := s.call(ctx, "schema_create", http.MethodPost, "/v1/schema", class, nil)
	if err == nil {
		return nil
	}
	// Weaviate answers 422 when a concurrent writer registered the class first.
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusUnprocessableEntity && strings.Contains(statusErr.Body, "already exists") {
		return nil
	}
	return err
}

// Reset drops the class and recreates it empty. Deleting a class that is
// already gone is not an error.
func (s *Store) Reset(ctx context.Context) error {
	s.ensureMu.Lock()
	s.ensured = false
	s.ensureMu.Unlock()

	if err := s.call(ctx, "schema_delete", http.MethodDelete, "/v1/schema/"+s.class, nil, nil); err != nil {
		var statusErr *HTTPStatusError
		if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusNotFound {
			return err
		}
	}
	if err := s.createClass(ctx); err != nil {
		return err
	}
	s.markEnsured()
	return nil
}

func (s *Store) Insert(ctx context.Context, chunks []domain.Chunk, vectors [][]float32) error {
	if len(chunks) == 0 {
		return nil
	}
	if len(chunks) != len(vectors) {
		return fmt.Errorf("weaviate insert: %d chunks with %d vectors", len(chunks), len(vectors))
	}

	type object struct {
		Class      string         `json:"class"`
		ID         string         `json:"id"`
		Properties map[string]any `json:"properties"`
		Vector     []float32      `json:"vector"`
	}

	objects := make([]object, 0, len(chunks))
	for i, chunk := range chunks {
		objects = append(objects, object{
			Class: s.class,
			ID:    uuid.NewString(),
			Properties: map[string]any{
				"text":   chunk.Text,
				"doc_id": chunk.ID,
			},
			Vector: vectors[i],
		})
	}

	// The batch endpoint reports per-object failures inside a 200 response.
	var results []struct {
		Result struct {
			Errors *struct {
				Error []struct {
					Message string `json:"message"`
				} `json:"error"`
			} `json:"errors"`
		} `json:"result"`
	}
	if err := s.call(ctx, "batch_insert", http.MethodPost, "/v1/batch/objects", map[string]any{"objects": objects}, &results); err != nil {
		return err
	}

	rejected := 0
	firstMessage := ""
	for _, r := range results {
		if r.Result.Errors == nil || len(r.Result.Errors.Error) == 0 {
			continue
		}
		rejected++
		if firstMessage == "" {
			firstMessage = r.Result.Errors.Error[0].Message
		}
	}
	if rejected > 0 {
		return fmt.Errorf("weaviate batch insert: %d of %d objects rejected: %s", rejected, len(chunks), firstMessage)
	}
	return nil
}

func (s *Store) Count(ctx context.Context) (int, error) {
	query := fmt.Sprintf("{ Aggregate { %s { meta { count } } } }", s.class)

	var data struct {
		Aggregate map[string][]struct {
			Meta struct {
				Count int `json:"count"`
			} `json:"meta"`
		} `json:"Aggregate"`
	}
	if err := s.graphQL(ctx, "count", query, &data); err != nil {
		return 0, err
	}

	groups := data.Aggregate[s.class]
	if len(groups) == 0 {
		return 0, nil
	}
	return groups[0].Meta.Count, nil
}

func (s *Store) Collection() string {
	return s.class
}

func (s *Store) Close() error {
	s.httpClient.CloseIdleConnections()
	return nil
}

func (s *Store) markEnsured() {
	s.ensureMu.Lock()
	defer s.ensureMu.Unlock()
	s.ensured = true
}

func (s *Store) call(ctx context.Context, operation, method, path string, payload, out any) error {
	do := func(callCtx context.Context) error {
		return s.send(callCtx, method, path, payload, out, operation)
	}

	var err error
	if s.executor != nil {
		err = s.executor.Execute(ctx, "weaviate."+operation, do, classifyWeaviateError)
	} else {
		err = do(ctx)
	}
	return wrapTemporaryIfNeeded(operation, err)
}
