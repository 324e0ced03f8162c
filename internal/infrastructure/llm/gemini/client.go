package gemini

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mahirlabib/physics-rag/internal/infrastructure/resilience"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// Client talks to the Generative Language REST API directly. One client is
// shared by the embedding and generation adapters so they reuse the same
// connection pool and breaker set.
type Client struct {
	baseURL     string
	apiKey      string
	embedModel  string
	genModel    string
	temperature float64
	httpClient  *http.Client
	executor    *resilience.Executor
}

type Options struct {
	Timeout            time.Duration
	ResilienceExecutor *resilience.Executor
}

func New(baseURL, apiKey, embedModel, genModel string, temperature float64) *Client {
	return NewWithOptions(baseURL, apiKey, embedModel, genModel, temperature, Options{})
}

func NewWithOptions(baseURL, apiKey, embedModel, genModel string, temperature float64, options Options) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		embedModel:  embedModel,
		genModel:    genModel,
		temperature: temperature,
		httpClient:  &http.Client{Timeout: timeout},
		executor:    options.ResilienceExecutor,
	}
}

type part struct {
	Text string `json:"text"`
}

type contentBlock struct {
	Parts []part `json:"parts"`
}

type embedPayload struct {
	Model   string       `json:"model"`
	Content contentBlock `json:"content"`
}

type embeddingValues struct {
	Values []float32 `json:"values"`
}

type generationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	Temperature     float64 `json:"temperature"`
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

// Embed vectorizes all texts in one batchEmbedContents call, preserving
// input order.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	requests := make([]embedPayload, len(texts))
	for i, text := range texts {
		requests[i] = embedPayload{
			Model:   qualifiedModel(e.client.embedModel),
			Content: contentBlock{Parts: []part{{Text: text}}},
		}
	}

	var response struct {
		Embeddings []embeddingValues `json:"embeddings"`
	}
	path := modelPath(e.client.embedModel, "batchEmbedContents")
	if err := e.client.call(ctx, "embed", path, map[string]any{"requests": requests}, &response); err != nil {
		return nil, err
	}

	vectors := make([][]float32, len(response.Embeddings))
	for i, embedding := range response.Embeddings {
		vectors[i] = embedding.Values
	}
	return vectors, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	payload := embedPayload{
		Model:   qualifiedModel(e.client.embedModel),
		Content: contentBlock{Parts: []part{{Text: text}}},
	}

	var response struct {
		Embedding embeddingValues `json:"embedding"`
	}
	path := modelPath(e.client.embedModel, "embedContent")
	if err := e.client.call(ctx, "embed_query", path, payload, &response); err != nil {
		return nil, err
	}
	if len(response.Embedding.Values) == 0 {
		return nil, fmt.Errorf("gemini embed_query: empty embedding result")
	}
	return response.Embedding.Values, nil
}

type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

// Generate returns the text of the first candidate. maxTokens <= 0 leaves
// the output length to the model.
func (g *Generator) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	cfg := generationConfig{Temperature: g.client.temperature}
	if maxTokens > 0 {
		cfg.MaxOutputTokens = maxTokens
	}
	payload := map[string]any{
		"contents":         []contentBlock{{Parts: []part{{Text: prompt}}}},
		"generationConfig": cfg,
	}

	var response struct {
		Candidates []struct {
			Content contentBlock `json:"content"`
		} `json:"candidates"`
	}
	path := modelPath(g.client.genModel, "generateContent")
	if err := g.client.call(ctx, "generate", path, payload, &response); err != nil {
		return "", err
	}
	if len(response.Candidates) == 0 {
		return "", fmt.Errorf("gemini generate: no candidates in response")
	}

	var b strings.Builder
	for _, p := range response.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", fmt.Errorf("gemini generate: empty candidate text")
	}
	return text, nil
}

func (c *Client) call(ctx context.Context, operation, path string, payload, out any) error {
	do := func(callCtx context.Context) error {
		return c.postJSON(callCtx, path, payload, out, operation)
	}

	var err error
	if c.executor != nil {
		err = c.executor.Execute(ctx, "gemini."+operation, do, classifyGeminiError)
	} else {
		err = do(ctx)
	}
	return wrapTemporaryIfNeeded(operation, err)
}

func modelPath(model, method string) string {
	return fmt.Sprintf("/v1beta/models/%s:%s", strings.TrimPrefix(model, "models/"), method)
}

func qualifiedModel(model string) string {
	if strings.HasPrefix(model, "models/") {
		return model
	}
	return "models/" + model
}
