package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/mahirlabib/physics-rag/internal/core/domain"
)

// Config is the full runtime configuration. Values are layered: built-in
// defaults, then an optional YAML file named by CONFIG_FILE, then
// environment variables. Validation runs once after layering; a config that
// fails validation aborts startup.
type Config struct {
	ServiceName string `yaml:"service_name" validate:"required"`
	HTTPAddr    string `yaml:"http_addr" validate:"required"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`

	Provider string `yaml:"provider" validate:"oneof=gemini openai"`

	GeminiAPIKey string `yaml:"gemini_api_key" validate:"required_if=Provider gemini"`

	OpenAIAPIKey  string `yaml:"openai_api_key"`
	OpenAIBaseURL string `yaml:"openai_base_url"`

	EmbeddingModel  string  `yaml:"embedding_model" validate:"required"`
	GenerationModel string  `yaml:"generation_model" validate:"required"`
	Temperature     float64 `yaml:"temperature" validate:"min=0,max=2"`

	IndexDriver    string `yaml:"index_driver" validate:"oneof=weaviate memory"`
	WeaviateURL    string `yaml:"weaviate_url" validate:"required_if=IndexDriver weaviate"`
	WeaviateAPIKey string `yaml:"weaviate_api_key"`
	CollectionName string `yaml:"collection_name" validate:"required"`

	CorpusPath string `yaml:"corpus_path" validate:"required"`

	PostgresDSN string `yaml:"postgres_dsn"`

	DefaultTopK       int     `yaml:"default_top_k" validate:"min=1,max=20"`
	HybridAlpha       float64 `yaml:"hybrid_alpha" validate:"min=0,max=1"`
	ExplainTopK       int     `yaml:"explain_top_k" validate:"min=1,max=5"`
	MaxResponseTokens int     `yaml:"max_response_tokens" validate:"min=1"`

	BreakerEnabled       bool    `yaml:"breaker_enabled"`
	BreakerMinRequests   int     `yaml:"breaker_min_requests" validate:"min=0"`
	BreakerFailureRatio  float64 `yaml:"breaker_failure_ratio" validate:"min=0,max=1"`
	BreakerOpenSeconds   int     `yaml:"breaker_open_seconds" validate:"min=0"`
	BreakerHalfOpenCalls int     `yaml:"breaker_half_open_calls" validate:"min=0"`

	AllowedOrigins        []string `yaml:"allowed_origins"`
	APIRateLimitRPS       float64  `yaml:"api_rate_limit_rps" validate:"min=0"`
	APIRateLimitBurst     int      `yaml:"api_rate_limit_burst" validate:"min=0"`
	MaxConcurrentRequests int      `yaml:"max_concurrent_requests" validate:"min=0"`
	MaxConns              int      `yaml:"max_conns" validate:"min=0"`
}

func defaults() Config {
	return Config{
		ServiceName: "physics-rag",
		HTTPAddr:    ":8000",
		LogLevel:    "info",
		LogFormat:   "json",

		Provider: "gemini",

		EmbeddingModel:  "gemini-embedding-001",
		GenerationModel: "gemini-2.5-flash",
		Temperature:     0.7,

		IndexDriver:    "weaviate",
		WeaviateURL:    "http://localhost:8080",
		CollectionName: "PhysicsChunk",

		CorpusPath: "data/physics_chunks.txt",

		DefaultTopK:       5,
		HybridAlpha:       0.5,
		ExplainTopK:       3,
		MaxResponseTokens: 1000,

		BreakerEnabled:       true,
		BreakerMinRequests:   10,
		BreakerFailureRatio:  0.5,
		BreakerOpenSeconds:   30,
		BreakerHalfOpenCalls: 2,

		AllowedOrigins: []string{"*"},
	}
}

// Load builds the effective configuration from defaults, the optional YAML
// file named by CONFIG_FILE, and environment overrides, in that order.
func Load() (Config, error) {
	cfg := defaults()

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return Config{}, err
		}
	}

	cfg.applyEnv()
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.WrapError(domain.ErrConfiguration, "read config file", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return domain.WrapError(domain.ErrConfiguration, "parse config file", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.ServiceName = envOr("SERVICE_NAME", c.ServiceName)
	c.HTTPAddr = envOr("HTTP_ADDR", c.HTTPAddr)
	c.LogLevel = envOr("LOG_LEVEL", c.LogLevel)
	c.LogFormat = envOr("LOG_FORMAT", c.LogFormat)

	c.Provider = envOr("PROVIDER", c.Provider)

	c.GeminiAPIKey = envOr("GEMINI_API_KEY", c.GeminiAPIKey)
	c.OpenAIAPIKey = envOr("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.OpenAIBaseURL = envOr("OPENAI_BASE_URL", c.OpenAIBaseURL)

	c.EmbeddingModel = envOr("EMBEDDING_MODEL", c.EmbeddingModel)
	c.GenerationModel = envOr("GENERATION_MODEL", c.GenerationModel)
	c.Temperature = envOrFloat("TEMPERATURE", c.Temperature)

	c.IndexDriver = envOr("INDEX_DRIVER", c.IndexDriver)
	c.WeaviateURL = envOr("WEAVIATE_URL", c.WeaviateURL)
	c.WeaviateAPIKey = envOr("WEAVIATE_API_KEY", c.WeaviateAPIKey)
	c.CollectionName = envOr("COLLECTION_NAME", c.CollectionName)

	c.CorpusPath = envOr("CORPUS_PATH", c.CorpusPath)

	c.PostgresDSN = envOr("POSTGRES_DSN", c.PostgresDSN)

	c.DefaultTopK = envOrInt("DEFAULT_TOP_K", c.DefaultTopK)
	c.HybridAlpha = envOrFloat("HYBRID_ALPHA", c.HybridAlpha)
	c.ExplainTopK = envOrInt("EXPLAIN_TOP_K", c.ExplainTopK)
	c.MaxResponseTokens = envOrInt("MAX_RESPONSE_TOKENS", c.MaxResponseTokens)

	c.BreakerEnabled = envOrBool("BREAKER_ENABLED", c.BreakerEnabled)
	c.BreakerMinRequests = envOrInt("BREAKER_MIN_REQUESTS", c.BreakerMinRequests)
	c.BreakerFailureRatio = envOrFloat("BREAKER_FAILURE_RATIO", c.BreakerFailureRatio)
	c.BreakerOpenSeconds = envOrInt("BREAKER_OPEN_SECONDS", c.BreakerOpenSeconds)
	c.BreakerHalfOpenCalls = envOrInt("BREAKER_HALF_OPEN_CALLS", c.BreakerHalfOpenCalls)

	if origins := strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS")); origins != "" {
		c.AllowedOrigins = splitOrigins(origins)
	}
	c.APIRateLimitRPS = envOrFloat("API_RATE_LIMIT_RPS", c.APIRateLimitRPS)
	c.APIRateLimitBurst = envOrInt("API_RATE_LIMIT_BURST", c.APIRateLimitBurst)
	c.MaxConcurrentRequests = envOrInt("MAX_CONCURRENT_REQUESTS", c.MaxConcurrentRequests)
	c.MaxConns = envOrInt("MAX_CONNS", c.MaxConns)
}

func (c *Config) normalize() {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	c.IndexDriver = strings.ToLower(strings.TrimSpace(c.IndexDriver))
	c.WeaviateURL = strings.TrimRight(strings.TrimSpace(c.WeaviateURL), "/")
	c.OpenAIBaseURL = strings.TrimRight(strings.TrimSpace(c.OpenAIBaseURL), "/")
	if c.APIRateLimitRPS > 0 && c.APIRateLimitBurst < 1 {
		c.APIRateLimitBurst = 1
	}
}

// Validate checks struct-level bounds plus the cross-field requirements the
// tags cannot express. Violations abort startup.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return domain.WrapError(domain.ErrConfiguration, "validate configuration", err)
	}
	if c.Provider == "openai" && c.OpenAIAPIKey == "" && c.OpenAIBaseURL == "" {
		return domain.WrapError(domain.ErrConfiguration, "validate configuration",
			fmt.Errorf("provider openai needs OPENAI_API_KEY or OPENAI_BASE_URL"))
	}
	return nil
}

// Redacted reports the effective configuration with every secret reduced to
// a set/unset flag. Served by the debug endpoint.
func (c Config) Redacted() map[string]any {
	return map[string]any{
		"service_name":            c.ServiceName,
		"http_addr":               c.HTTPAddr,
		"log_level":               c.LogLevel,
		"log_format":              c.LogFormat,
		"provider":                c.Provider,
		"gemini_api_key_set":      c.GeminiAPIKey != "",
		"openai_api_key_set":      c.OpenAIAPIKey != "",
		"openai_base_url":         c.OpenAIBaseURL,
		"embedding_model":         c.EmbeddingModel,
		"generation_model":        c.GenerationModel,
		"temperature":             c.Temperature,
		"index_driver":            c.IndexDriver,
		"weaviate_url":            c.WeaviateURL,
		"weaviate_api_key_set":    c.WeaviateAPIKey != "",
		"collection_name":         c.CollectionName,
		"corpus_path":             c.CorpusPath,
		"postgres_dsn_set":        c.PostgresDSN != "",
		"default_top_k":           c.DefaultTopK,
		"hybrid_alpha":            c.HybridAlpha,
		"explain_top_k":           c.ExplainTopK,
		"max_response_tokens":     c.MaxResponseTokens,
		"breaker_enabled":         c.BreakerEnabled,
		"allowed_origins":         c.AllowedOrigins,
		"api_rate_limit_rps":      c.APIRateLimitRPS,
		"api_rate_limit_burst":    c.APIRateLimitBurst,
		"max_concurrent_requests": c.MaxConcurrentRequests,
		"max_conns":               c.MaxConns,
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		if origin := strings.TrimSpace(part); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

func envOr(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envOrInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envOrFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envOrBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}
