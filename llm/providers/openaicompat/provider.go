package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/BaSui01/pandemonium/internal/tlsutil"
	"github.com/BaSui01/pandemonium/llm"
	"github.com/BaSui01/pandemonium/llm/providers"
	"github.com/BaSui01/pandemonium/types"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config holds the configuration for an OpenAI-compatible provider.
type Config struct {
	// ProviderName is the unique identifier for this provider (e.g., "openai").
	ProviderName string

	// APIKey is the authentication key for the provider's API.
	APIKey string

	// BaseURL is the base URL for the provider's API (e.g., "https://api.openai.com").
	BaseURL string

	// DefaultModel is the model to use when none is specified in the request.
	DefaultModel string

	// FallbackModel is used when both request and DefaultModel are empty.
	FallbackModel string

	// Timeout is the HTTP client timeout. Defaults to 30s if zero.
	Timeout time.Duration

	// EndpointPath is the chat completions endpoint path. Defaults to "/v1/chat/completions".
	EndpointPath string

	// ModelsEndpoint is the models list endpoint path, used by HealthCheck. Defaults to "/v1/models".
	ModelsEndpoint string

	// RateLimitRPS caps outgoing completions per second. Zero disables limiting.
	RateLimitRPS float64

	// RateLimitBurst is the limiter burst. Defaults to 1 when limiting is enabled.
	RateLimitBurst int
}

// Provider talks to any endpoint that speaks the OpenAI Chat Completions API.
type Provider struct {
	Cfg     Config
	Client  *http.Client
	Logger  *zap.Logger
	limiter *rate.Limiter
}

// New creates a new OpenAI-compatible provider with the given config.
func New(cfg Config, logger *zap.Logger) *Provider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	if cfg.EndpointPath == "" {
		cfg.EndpointPath = "/v1/chat/completions"
	}
	if cfg.ModelsEndpoint == "" {
		cfg.ModelsEndpoint = "/v1/models"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Provider{
		Cfg:    cfg,
		Client: tlsutil.SecureHTTPClient(timeout),
		Logger: logger.With(zap.String("component", "provider"), zap.String("provider", cfg.ProviderName)),
	}
	if cfg.RateLimitRPS > 0 {
		burst := cfg.RateLimitBurst
		if burst <= 0 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), burst)
	}
	return p
}

// Name returns the provider name.
func (p *Provider) Name() string { return p.Cfg.ProviderName }

func (p *Provider) buildHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+p.Cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
}

func (p *Provider) endpoint(path string) string {
	return fmt.Sprintf("%s%s", strings.TrimRight(p.Cfg.BaseURL, "/"), path)
}

// HealthCheck verifies the provider is reachable.
func (p *Provider) HealthCheck(ctx context.Context) (*llm.HealthStatus, error) {
	start := time.Now()
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint(p.Cfg.ModelsEndpoint), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	p.buildHeaders(httpReq)

	resp, err := p.Client.Do(httpReq)
	latency := time.Since(start)
	if err != nil {
		return &llm.HealthStatus{Healthy: false, Latency: latency}, err
	}
	defer providers.SafeCloseBody(resp.Body)

	if resp.StatusCode != http.StatusOK {
		msg := providers.ReadErrorMessage(resp.Body)
		return &llm.HealthStatus{Healthy: false, Latency: latency},
			fmt.Errorf("%s health check failed: status=%d msg=%s", p.Cfg.ProviderName, resp.StatusCode, msg)
	}
	return &llm.HealthStatus{Healthy: true, Latency: latency}, nil
}

// Completion performs a non-streaming chat completion.
func (p *Provider) Completion(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	if req == nil {
		return nil, &llm.Error{Code: llm.ErrInvalidRequest, Message: "nil request", HTTPStatus: http.StatusBadRequest, Provider: p.Name()}
	}
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, &llm.Error{
				Code:       llm.ErrRateLimited,
				Message:    fmt.Sprintf("local rate limiter: %v", err),
				HTTPStatus: http.StatusTooManyRequests,
				Provider:   p.Name(),
			}
		}
	}
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	model := providers.ChooseModel(req, p.Cfg.DefaultModel, p.Cfg.FallbackModel)
	body := providers.OpenAICompatRequest{
		Model:       model,
		Messages:    providers.ConvertMessagesToOpenAI(req.Messages),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stop:        req.Stop,
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint(p.Cfg.EndpointPath), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	p.buildHeaders(httpReq)

	start := time.Now()
	resp, err := p.Client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, providers.UpstreamError(err, p.Name())
	}
	defer providers.SafeCloseBody(resp.Body)

	if resp.StatusCode >= 400 {
		msg := providers.ReadErrorMessage(resp.Body)
		return nil, providers.MapHTTPError(resp.StatusCode, msg, p.Name())
	}

	var oaResp providers.OpenAICompatResponse
	if err := json.NewDecoder(resp.Body).Decode(&oaResp); err != nil {
		return nil, providers.UpstreamError(err, p.Name())
	}

	speaker, _ := types.Speaker(ctx)
	p.Logger.Debug("completion finished",
		zap.String("model", model),
		zap.String("speaker", speaker),
		zap.Int("total_tokens", usageTotal(oaResp.Usage)),
		zap.Duration("latency", time.Since(start)))

	return providers.ToLLMChatResponse(oaResp, p.Name()), nil
}

func usageTotal(u *providers.OpenAICompatUsage) int {
	if u == nil {
		return 0
	}
	return u.TotalTokens
}
