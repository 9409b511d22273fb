package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"signalhub.app/correlator/internal/faults"
	"signalhub.app/correlator/internal/tokens"
)

// modelDimensions maps known embedding models to their vector length.
// Vector length is validated at the cache boundary, not inside business
// logic.
var modelDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// Provider produces embedding vectors for text. Errors are classified into
// the faults taxonomy so callers can distinguish quota, transient and
// invalid-input failures.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	Model() string
	Dimensions() int
}

// Config holds embedding provider configuration.
type Config struct {
	BaseURL string
	Model   string
}

type openaiProvider struct {
	client openai.Client
	tokens *tokens.Manager
	model  string
	dims   int
	logger *slog.Logger
}

// NewOpenAIProvider creates a Provider backed by the OpenAI embeddings API.
// Credentials come from the token manager so quota handling and rotation
// live in one place instead of at every call site.
func NewOpenAIProvider(cfg Config, mgr *tokens.Manager, logger *slog.Logger) (Provider, error) {
	if mgr == nil {
		return nil, &faults.ConfigError{Subsystem: "embedding", Reason: "token manager is required"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	model := cfg.Model
	if model == "" {
		model = "text-embedding-3-small"
	}
	dims, ok := modelDimensions[model]
	if !ok {
		return nil, &faults.ConfigError{Subsystem: "embedding", Reason: fmt.Sprintf("unknown embedding model %q", model)}
	}

	opts := []option.RequestOption{}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &openaiProvider{
		client: openai.NewClient(opts...),
		tokens: mgr,
		model:  model,
		dims:   dims,
		logger: logger,
	}, nil
}

func (p *openaiProvider) Model() string   { return p.model }
func (p *openaiProvider) Dimensions() int { return p.dims }

func (p *openaiProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &faults.ValidationError{Field: "text", Reason: "empty content cannot be embedded"}
	}

	token, err := p.tokens.Next(ctx)
	if err != nil {
		return nil, err
	}

	var raw *http.Response
	start := time.Now()
	resp, err := p.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
		Model: openai.EmbeddingModel(p.model),
	}, option.WithAPIKey(token.Secret), option.WithResponseInto(&raw))

	if raw != nil {
		p.tokens.UpdateFromHeaders(token, raw.Header)
	}
	if err != nil {
		cerr := classify("embed", err)
		var quota *faults.QuotaError
		if errors.As(cerr, &quota) {
			// A quota failure is never retried on the same credential.
			p.tokens.MarkExhausted(token, quota.ResetAt)
		}
		return nil, cerr
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, &faults.TransientError{Op: "embed", Err: errors.New("empty embedding in response")}
	}

	p.logger.DebugContext(ctx, "embedding computed",
		"model", p.model,
		"duration_ms", time.Since(start).Milliseconds(),
		"prompt_tokens", resp.Usage.PromptTokens)

	vec := resp.Data[0].Embedding
	if len(vec) != p.dims {
		return nil, &faults.TransientError{Op: "embed", Err: fmt.Errorf("expected %d dimensions, got %d", p.dims, len(vec))}
	}
	return vec, nil
}

// classify maps provider failures onto the shared error taxonomy.
func classify(op string, err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return &faults.QuotaError{Op: op, ResetAt: time.Now().Add(time.Hour), Err: err}
		case apiErr.StatusCode == http.StatusForbidden && strings.Contains(strings.ToLower(apiErr.Message), "quota"):
			return &faults.QuotaError{Op: op, ResetAt: time.Now().Add(time.Hour), Err: err}
		case apiErr.StatusCode >= 500:
			return &faults.TransientError{Op: op, Err: err}
		case apiErr.StatusCode == http.StatusBadRequest:
			return &faults.ValidationError{Field: "text", Reason: apiErr.Message}
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	// Network-level failures without an API status are retryable.
	return &faults.TransientError{Op: op, Err: err}
}
