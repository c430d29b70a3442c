// Package pandemonium assembles a multi-party conversation from configuration.
//
// Usage:
//
//	import "github.com/BaSui01/pandemonium"
//
//	cfg, _ := config.NewLoader().Load()
//	s, err := pandemonium.New(ctx, cfg, "Should cities ban cars?")
//	intro, _ := s.Start(ctx)
//	for s.Status() != conversation.StatusConcluded {
//		step, err := s.Advance(ctx)
//		...
//	}
//
// New wires the OpenAI-compatible provider, the persona catalog, the
// participant roster, the broker and the evaluator. Every piece can be
// replaced through options, which is how tests run without network access.
package pandemonium

import (
	"context"
	"math/rand/v2"
	"strings"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/pandemonium/agent"
	"github.com/BaSui01/pandemonium/agent/conversation"
	"github.com/BaSui01/pandemonium/agent/evaluation"
	"github.com/BaSui01/pandemonium/agent/persistence"
	"github.com/BaSui01/pandemonium/config"
	"github.com/BaSui01/pandemonium/internal/secrets"
	"github.com/BaSui01/pandemonium/llm"
	"github.com/BaSui01/pandemonium/llm/observability"
	"github.com/BaSui01/pandemonium/llm/providers"
	"github.com/BaSui01/pandemonium/llm/providers/openaicompat"
)

// Option configures New.
type Option func(*options)

type options struct {
	provider      llm.Provider
	credentials   secrets.Source
	logger        *zap.Logger
	rng           conversation.RandomSource
	recorder      conversation.Recorder
	catalog       *agent.Catalog
	tracer        trace.Tracer
	meterProvider metric.MeterProvider
}

// WithProvider uses p instead of building an OpenAI-compatible provider.
func WithProvider(p llm.Provider) Option {
	return func(o *options) { o.provider = p }
}

// WithCredentials overrides the API key source.
func WithCredentials(s secrets.Source) Option {
	return func(o *options) { o.credentials = s }
}

// WithLogger sets a custom zap logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithRandom sets the random source for roster composition and scheduling.
func WithRandom(rng conversation.RandomSource) Option {
	return func(o *options) { o.rng = rng }
}

// WithRecorder receives conversation events. A recorder that also
// implements observability.Reporter receives LLM request events, and one
// with RecordArchive receives archive results.
func WithRecorder(r conversation.Recorder) Option {
	return func(o *options) { o.recorder = r }
}

// WithCatalog overrides the persona catalog.
func WithCatalog(c *agent.Catalog) Option {
	return func(o *options) { o.catalog = c }
}

// WithTracer sets the tracer for conversation and LLM spans.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// WithMeterProvider sets the OTel meter provider for LLM metrics.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meterProvider = mp }
}

// Session is a configured conversation together with its instrumented
// provider.
type Session struct {
	*conversation.Conversation

	provider    *observability.InstrumentedProvider
	recorder    conversation.Recorder
	archiveType string
	logger      *zap.Logger
}

// New builds a ready-to-start conversation about topic.
func New(ctx context.Context, cfg *config.Config, topic string, opts ...Option) (*Session, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.rng == nil {
		o.rng = NewRandom(cfg.Conversation.Seed)
	}

	base := o.provider
	if base == nil {
		p, err := newProvider(ctx, cfg, o)
		if err != nil {
			return nil, err
		}
		base = p
	}

	wrapOpts := []observability.Option{
		observability.WithLogger(o.logger),
		observability.WithMeterProvider(o.meterProvider),
	}
	if o.tracer != nil {
		wrapOpts = append(wrapOpts, observability.WithTracer(o.tracer))
	}
	if reporter, ok := o.recorder.(observability.Reporter); ok {
		wrapOpts = append(wrapOpts, observability.WithReporter(reporter))
	}
	provider, err := observability.Wrap(base, wrapOpts...)
	if err != nil {
		return nil, err
	}

	catalog := o.catalog
	if catalog == nil {
		if catalog, err = loadCatalog(cfg.Conversation.PersonasPath); err != nil {
			return nil, err
		}
	}

	specs, err := ParseSpecs(cfg.Conversation.Agents)
	if err != nil {
		return nil, err
	}

	responder := agent.NewLLMResponder(provider, agent.LLMResponderConfig{
		Model:            cfg.LLM.Model,
		Temperature:      float32(cfg.LLM.Temperature),
		MaxTokens:        cfg.LLM.MaxTokens,
		MaxContextTokens: cfg.LLM.MaxContextTokens,
	}, nil, o.logger)

	roster, err := agent.BuildRoster(catalog, specs, o.rng, responder, o.logger)
	if err != nil {
		return nil, err
	}
	broker := agent.NewBroker(responder, o.logger)

	evaluators := evaluation.NewFactory(provider, evaluation.LLMEvaluatorConfig{
		Name:        cfg.Evaluator.Name,
		Model:       cfg.Evaluator.Model,
		Temperature: float32(cfg.Evaluator.Temperature),
		MaxTokens:   cfg.Evaluator.MaxTokens,
		Timeout:     cfg.Evaluator.Timeout,
	}, o.logger)

	convOpts := []conversation.Option{
		conversation.WithRandom(o.rng),
		conversation.WithLogger(o.logger),
	}
	if o.recorder != nil {
		convOpts = append(convOpts, conversation.WithRecorder(o.recorder))
	}
	if o.tracer != nil {
		convOpts = append(convOpts, conversation.WithTracer(o.tracer))
	}

	conv, err := conversation.New(conversation.Config{
		Topic:      topic,
		Criteria:   cfg.Conversation.Criteria,
		MaxRounds:  cfg.Conversation.MaxRounds,
		WindowSize: cfg.Conversation.WindowSize,
		Scheduler: conversation.SchedulerConfig{
			BrokerProbability: cfg.Conversation.BrokerProbability,
			RandomProbability: cfg.Conversation.RandomProbability,
		},
	}, broker, roster, evaluators, convOpts...)
	if err != nil {
		return nil, err
	}

	o.logger.Info("conversation assembled",
		zap.String("conversation_id", conv.ID()),
		zap.String("provider", provider.Name()),
		zap.Int("participants", len(roster)))

	return &Session{
		Conversation: conv,
		provider:     provider,
		recorder:     o.recorder,
		archiveType:  cfg.Archive.Type,
		logger:       o.logger.With(zap.String("component", "session")),
	}, nil
}

// Costs returns the accumulated LLM usage of the session.
func (s *Session) Costs() observability.CostSummary { return s.provider.Costs() }

// Archive saves the session's transcript to store.
func (s *Session) Archive(ctx context.Context, store persistence.TranscriptStore) (*persistence.Transcript, error) {
	t := TranscriptOf(s.Conversation)
	err := store.Save(ctx, t)
	if r, ok := s.recorder.(interface{ RecordArchive(string, error) }); ok {
		r.RecordArchive(s.archiveType, err)
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info("transcript archived", zap.String("id", t.ID), zap.String("backend", s.archiveType))
	return t, nil
}

// TranscriptOf builds the archive record of conv.
func TranscriptOf(conv *conversation.Conversation) *persistence.Transcript {
	state := conv.State()
	t := &persistence.Transcript{
		ID:        state.ID,
		Topic:     state.Topic,
		Criteria:  state.Criteria,
		MaxRounds: state.MaxRounds,
		Rounds:    state.RoundCount,
		Turns:     state.TurnCount,
		Messages:  state.Log,
	}
	if v := conv.Verdict(); v != nil {
		t.Evaluator = v.Evaluator
		t.Verdict = v.Text
		t.Result = v.Result
	}
	return t
}

// ArchiveStoreConfig maps the archive section onto a store configuration.
func ArchiveStoreConfig(cfg config.ArchiveConfig) persistence.StoreConfig {
	sc := persistence.DefaultStoreConfig()
	if cfg.Type != "" {
		sc.Type = persistence.StoreType(cfg.Type)
	}
	if cfg.BaseDir != "" {
		sc.BaseDir = cfg.BaseDir
	}
	if cfg.RedisAddr != "" {
		sc.Redis.Addr = cfg.RedisAddr
	}
	sc.Redis.Password = cfg.RedisPassword
	sc.Redis.DB = cfg.RedisDB
	sc.Redis.TLS = cfg.RedisTLS
	sc.Redis.TTL = cfg.TTL
	if cfg.SQLDriver != "" {
		sc.SQL.Driver = cfg.SQLDriver
	}
	if cfg.SQLDSN != "" {
		sc.SQL.DSN = cfg.SQLDSN
	}
	return sc
}

// ParseSpecs parses "temperament:expertise" entries.
func ParseSpecs(raw []string) ([]agent.Spec, error) {
	specs := make([]agent.Spec, 0, len(raw))
	for _, s := range raw {
		spec, err := agent.ParseSpec(s)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

// NewRandom returns a PCG-backed source; seed 0 picks a random seed.
func NewRandom(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

func newProvider(ctx context.Context, cfg *config.Config, o options) (llm.Provider, error) {
	creds := o.credentials
	if creds == nil {
		var err error
		if creds, err = secrets.FromConfig(ctx, cfg, o.logger); err != nil {
			return nil, err
		}
	}
	apiKey, err := creds.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(cfg.LLM.Provider)
	if name == "" {
		name = "openai"
	}
	base := openaicompat.New(openaicompat.Config{
		ProviderName:   name,
		APIKey:         apiKey,
		BaseURL:        cfg.LLM.BaseURL,
		DefaultModel:   cfg.LLM.Model,
		Timeout:        cfg.LLM.Timeout,
		RateLimitRPS:   cfg.LLM.RateLimitRPS,
		RateLimitBurst: cfg.LLM.RateLimitBurst,
	}, o.logger)
	if cfg.LLM.MaxRetries == 0 {
		return base, nil
	}
	retry := providers.DefaultRetryConfig()
	retry.MaxRetries = cfg.LLM.MaxRetries
	return providers.NewRetryableProvider(base, retry, o.logger), nil
}

func loadCatalog(path string) (*agent.Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return agent.DefaultCatalog(), nil
	}
	return agent.LoadCatalog(path)
}
