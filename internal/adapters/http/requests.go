package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mahirlabib/physics-rag/internal/core/domain"
	"github.com/mahirlabib/physics-rag/internal/core/ports"
)

const (
	defaultSearchTopK  = 5
	defaultChatTopK    = 5
	defaultExplainTopK = 3
	defaultSimilarTopK = 5
	defaultAlpha       = 0.5
	defaultHistory     = 10
	maxHistory         = 100
)

// Request DTOs. Pointer fields distinguish an absent value, which takes the
// documented default, from an explicit out-of-range one, which is rejected.
// String length tags count runes, so Bengali text is measured in characters.

type searchRequest struct {
	Query string   `json:"query" validate:"required,max=500"`
	Mode  string   `json:"mode" validate:"omitempty,oneof=hybrid vector keyword"`
	TopK  *int     `json:"top_k" validate:"omitempty,min=1,max=20"`
	Alpha *float64 `json:"alpha" validate:"omitempty,min=0,max=1"`
}

func (req searchRequest) toQuery() ports.SearchQuery {
	q := ports.SearchQuery{
		Query: req.Query,
		Mode:  domain.SearchMode(req.Mode),
		TopK:  defaultSearchTopK,
		Alpha: defaultAlpha,
	}
	if req.Mode == "" {
		q.Mode = domain.ModeHybrid
	}
	if req.TopK != nil {
		q.TopK = *req.TopK
	}
	if req.Alpha != nil {
		q.Alpha = *req.Alpha
	}
	return q
}

type chatRequest struct {
	Message        string `json:"message" validate:"required,max=500"`
	IncludeSources *bool  `json:"include_sources"`
	Mode           string `json:"mode" validate:"omitempty,oneof=hybrid vector keyword"`
	TopK           *int   `json:"top_k" validate:"omitempty,min=1,max=10"`
}

func (req chatRequest) toQuery() ports.AskQuery {
	q := ports.AskQuery{
		Message:        req.Message,
		Mode:           domain.SearchMode(req.Mode),
		TopK:           defaultChatTopK,
		IncludeSources: true,
	}
	if req.Mode == "" {
		q.Mode = domain.ModeHybrid
	}
	if req.TopK != nil {
		q.TopK = *req.TopK
	}
	if req.IncludeSources != nil {
		q.IncludeSources = *req.IncludeSources
	}
	return q
}

type explainRequest struct {
	Concept string `json:"concept" validate:"required,max=100"`
	TopK    *int   `json:"top_k" validate:"omitempty,min=1,max=5"`
}

func (req explainRequest) topK() int {
	if req.TopK != nil {
		return *req.TopK
	}
	return defaultExplainTopK
}

type similarRequest struct {
	Text string `json:"text" validate:"required,max=1000"`
	TopK *int   `json:"top_k" validate:"omitempty,min=1,max=10"`
}

func (req similarRequest) topK() int {
	if req.TopK != nil {
		return *req.TopK
	}
	return defaultSimilarTopK
}

type initializeRequest struct {
	ForceReset bool `json:"force_reset"`
}

// decodeRequest unmarshals the body into dst and validates it. An empty body
// decodes to the zero value and falls through to validation, which names the
// missing required fields instead of reporting a bare decode failure.
func decodeRequest(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return domain.WrapError(domain.ErrInvalidInput, "decode request body", err)
	}
	if err := requestValidator.Struct(dst); err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "validate request", errors.New(validationDetail(err)))
	}
	return nil
}

var requestValidator = newRequestValidator()

func newRequestValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validationDetail(err error) string {
	var fieldErrors validator.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return err.Error()
	}
	parts := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		parts = append(parts, fieldErrorMessage(fe))
	}
	return strings.Join(parts, "; ")
}

func fieldErrorMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.Join(strings.Fields(fe.Param()), ", "))
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}
