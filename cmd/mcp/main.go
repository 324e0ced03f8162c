package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mahirlabib/physics-rag/internal/bootstrap"
	"github.com/mahirlabib/physics-rag/internal/config"
	"github.com/mahirlabib/physics-rag/internal/core/domain"
	"github.com/mahirlabib/physics-rag/internal/core/ports"
)

// Exposes the assistant over MCP stdio so editor and agent clients can call
// retrieval and generation as tools. Logs go to stderr; stdout carries the
// protocol stream.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	srv := server.NewMCPServer(cfg.ServiceName, "1.0.0",
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	srv.AddTool(mcp.NewTool("physics_search",
		mcp.WithDescription("Search the Bengali physics textbook and return ranked passages without generating an answer."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Question or phrase to look up, Bengali or English.")),
		mcp.WithString("mode", mcp.Description("Retrieval mode."), mcp.Enum("hybrid", "vector", "keyword")),
		mcp.WithNumber("top_k", mcp.Description("Number of passages to return, 1-20.")),
	), searchTool(app.Searcher, cfg))

	srv.AddTool(mcp.NewTool("physics_ask",
		mcp.WithDescription("Answer a physics question in Bengali, grounded in retrieved textbook passages."),
		mcp.WithString("question", mcp.Required(), mcp.Description("The question to answer.")),
		mcp.WithNumber("top_k", mcp.Description("Number of passages to ground the answer on, 1-10.")),
	), askTool(app.Asker, cfg))

	srv.AddTool(mcp.NewTool("physics_explain",
		mcp.WithDescription("Explain a physics concept in Bengali for a secondary-school student."),
		mcp.WithString("concept", mcp.Required(), mcp.Description("Concept to explain, e.g. \"নিউটনের সূত্র\".")),
	), explainTool(app.Asker, cfg))

	log.Printf("mcp server ready on stdio")
	if err := server.ServeStdio(srv); err != nil {
		log.Fatalf("mcp server error: %v", err)
	}
}

func searchTool(searcher ports.Searcher, cfg config.Config) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		mode, ok := domain.ParseSearchMode(request.GetString("mode", string(domain.ModeHybrid)))
		if !ok {
			return mcp.NewToolResultError("mode must be one of: hybrid, vector, keyword"), nil
		}
		topK := request.GetInt("top_k", cfg.DefaultTopK)
		if topK < 1 || topK > 20 {
			return mcp.NewToolResultError("top_k must be between 1 and 20"), nil
		}

		results, err := searcher.Search(ctx, ports.SearchQuery{
			Query: query,
			Mode:  mode,
			TopK:  topK,
			Alpha: cfg.HybridAlpha,
		})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
		}

		return jsonResult(struct {
			Query   string                `json:"query"`
			Mode    domain.SearchMode     `json:"mode"`
			Total   int                   `json:"total_results"`
			Results []domain.SearchResult `json:"results"`
		}{query, mode, len(results), results})
	}
}

func askTool(asker ports.Asker, cfg config.Config) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := request.RequireString("question")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		topK := request.GetInt("top_k", cfg.DefaultTopK)
		if topK < 1 || topK > 10 {
			return mcp.NewToolResultError("top_k must be between 1 and 10"), nil
		}

		answer := asker.Ask(ctx, ports.AskQuery{
			Message:        question,
			TopK:           topK,
			IncludeSources: true,
		})
		return jsonResult(answer)
	}
}

func explainTool(asker ports.Asker, cfg config.Config) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		concept, err := request.RequireString("concept")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		answer := asker.Explain(ctx, concept, cfg.ExplainTopK)
		return jsonResult(answer)
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	payload, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(payload)), nil
}
