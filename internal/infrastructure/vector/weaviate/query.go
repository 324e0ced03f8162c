package weaviate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/mahirlabib/physics-rag/internal/core/domain"
)

// gqlObject is one Get result. Weaviate returns the vector distance as a
// number and the bm25/hybrid score as a string, both under _additional.
type gqlObject struct {
	Text       string `json:"text"`
	DocID      int    `json:"doc_id"`
	Additional struct {
		Distance *float64 `json:"distance"`
		Score    string   `json:"score"`
	} `json:"_additional"`
}

func (o gqlObject) distance() float64 {
	if o.Additional.Distance == nil {
		return 1.0
	}
	return *o.Additional.Distance
}

func (o gqlObject) score() float64 {
	value, err := strconv.ParseFloat(strings.TrimSpace(o.Additional.Score), 64)
	if err != nil {
		return 0.0
	}
	return value
}

func (s *Store) QueryVector(ctx context.Context, vector []float32, limit int) ([]domain.Hit, error) {
	clause := fmt.Sprintf("nearVector: {vector: %s}", gqlJSON(vector))
	objects, err := s.getObjects(ctx, "query_vector", clause, "distance", limit)
	if err != nil {
		return nil, err
	}
	return hitsFromObjects(objects, gqlObject.distance), nil
}

func (s *Store) QueryKeyword(ctx context.Context, query string, limit int) ([]domain.Hit, error) {
	clause := fmt.Sprintf("bm25: {query: %s}", gqlJSON(query))
	objects, err := s.getObjects(ctx, "query_keyword", clause, "score", limit)
	if err != nil {
		return nil, err
	}
	return hitsFromObjects(objects, gqlObject.score), nil
}

func (s *Store) QueryHybrid(ctx context.Context, query string, vector []float32, alpha float64, limit int) ([]domain.Hit, error) {
	clause := fmt.Sprintf(
		"hybrid: {query: %s, vector: %s, alpha: %s}",
		gqlJSON(query), gqlJSON(vector), strconv.FormatFloat(alpha, 'f', -1, 64),
	)
	objects, err := s.getObjects(ctx, "query_hybrid", clause, "score", limit)
	if err != nil {
		return nil, err
	}
	return hitsFromObjects(objects, gqlObject.score), nil
}

func (s *Store) getObjects(ctx context.Context, operation, clause, metricField string, limit int) ([]gqlObject, error) {
	query := fmt.Sprintf(
		"{ Get { %s(limit: %d, %s) { text doc_id _additional { %s } } } }",
		s.class, limit, clause, metricField,
	)

	var data struct {
		Get map[string][]gqlObject `json:"Get"`
	}
	if err := s.graphQL(ctx, operation, query, &data); err != nil {
		return nil, err
	}
	return data.Get[s.class], nil
}

func (s *Store) graphQL(ctx context.Context, operation, query string, out any) error {
	var response struct {
		Data   json.RawMessage `json:"data"`
		Errors []struct {
			Message string `json:"message"`
		} `json:"errors"`
	}
	if err := s.call(ctx, operation, http.MethodPost, "/v1/graphql", map[string]string{"query": query}, &response); err != nil {
		return err
	}
	if len(response.Errors) > 0 {
		return fmt.Errorf("weaviate %s query: %s", operation, response.Errors[0].Message)
	}
	if out == nil || len(response.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(response.Data, out); err != nil {
		return fmt.Errorf("decode %s result: %w", operation, err)
	}
	return nil
}

func hitsFromObjects(objects []gqlObject, metric func(gqlObject) float64) []domain.Hit {
	hits := make([]domain.Hit, 0, len(objects))
	for _, obj := range objects {
		hits = append(hits, domain.Hit{
			Content:  obj.Text,
			DocID:    obj.DocID,
			RawScore: metric(obj),
		})
	}
	return hits
}

// gqlJSON inlines a value into a GraphQL query. JSON string and number array
// literals are valid GraphQL syntax, so marshaling covers the escaping.
func gqlJSON(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}
