package conversation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/BaSui01/pandemonium/agent"
	"github.com/BaSui01/pandemonium/agent/evaluation"
	"github.com/BaSui01/pandemonium/agent/memory"
	"github.com/BaSui01/pandemonium/types"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const instrumentationName = "github.com/BaSui01/pandemonium/agent/conversation"

// 默认值
const (
	DefaultMaxRounds  = 3
	DefaultWindowSize = 10
)

// Status 会话生命周期状态
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusRunning    Status = "running"
	StatusConcluded  Status = "concluded"
)

func (s Status) valid() bool {
	switch s {
	case StatusNotStarted, StatusRunning, StatusConcluded:
		return true
	}
	return false
}

// Config 是会话的不可变配置。
type Config struct {
	// ID 为空时自动生成 UUID。
	ID         string
	Topic      string
	Criteria   string
	MaxRounds  int
	WindowSize int
	Scheduler  SchedulerConfig
}

// Step 是一次 Advance 的结果。
type Step struct {
	Speaker string
	// Text 是 "speaker: text" 形式的发言行；收尾时是完整的结束语。
	Text    string
	Message memory.Message
	Reason  Reason
	Turn    int
	Round   int

	Concluded bool
	Verdict   *evaluation.Verdict
}

// Option 配置 Conversation 的可选依赖。
type Option func(*Conversation)

// WithRandom 注入随机源，便于确定性回放。
func WithRandom(rng RandomSource) Option {
	return func(c *Conversation) { c.rng = rng }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Conversation) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRecorder 注入指标记录器。
func WithRecorder(r Recorder) Option {
	return func(c *Conversation) {
		if r != nil {
			c.recorder = r
		}
	}
}

// WithClock 注入时钟，用于测试。
func WithClock(now func() time.Time) Option {
	return func(c *Conversation) {
		if now != nil {
			c.now = now
		}
	}
}

// WithTracer 覆盖默认的全局 tracer。
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Conversation) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// Conversation 是会话控制器：唯一写入规范日志与调度计数的组件。
// 所有公开方法持有同一把锁，因此生成调用永远不会并发。
type Conversation struct {
	mu sync.Mutex

	id         string
	topic      string
	criteria   string
	maxRounds  int
	windowSize int
	status     Status
	startedAt  time.Time

	broker       *agent.Participant
	participants []*agent.Participant
	evaluators   evaluation.Factory
	evaluator    string
	verdict      *evaluation.Verdict

	store     *memory.Store
	scheduler *Scheduler

	rng      RandomSource
	recorder Recorder
	tracer   trace.Tracer
	now      func() time.Time
	logger   *zap.Logger
}

// New assembles a conversation. Identities of broker, evaluator and
// participants must be unique.
func New(cfg Config, broker *agent.Participant, participants []*agent.Participant, evaluators evaluation.Factory, opts ...Option) (*Conversation, error) {
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, types.NewError(types.ErrConfiguration, "topic is required")
	}
	if cfg.MaxRounds == 0 {
		cfg.MaxRounds = DefaultMaxRounds
	}
	if cfg.MaxRounds < 0 {
		return nil, types.Errorf(types.ErrConfiguration, "max rounds must be positive, got %d", cfg.MaxRounds)
	}
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = DefaultWindowSize
	}
	if broker == nil {
		return nil, types.NewError(types.ErrConfiguration, "broker is required")
	}
	if len(participants) == 0 {
		return nil, types.NewError(types.ErrConfiguration, "at least one participant is required")
	}
	if evaluators == nil {
		return nil, types.NewError(types.ErrConfiguration, "evaluator factory is required")
	}
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}

	evaluatorName := evaluators().Name()
	names := make([]string, 0, len(participants)+2)
	names = append(names, broker.Name(), evaluatorName)
	for _, p := range participants {
		names = append(names, p.Name())
	}
	if err := agent.EnsureUniqueIdentities(names...); err != nil {
		return nil, err
	}

	c := &Conversation{
		id:           cfg.ID,
		topic:        cfg.Topic,
		criteria:     cfg.Criteria,
		maxRounds:    cfg.MaxRounds,
		windowSize:   cfg.WindowSize,
		status:       StatusNotStarted,
		broker:       broker,
		participants: append([]*agent.Participant(nil), participants...),
		evaluators:   evaluators,
		evaluator:    evaluatorName,
		recorder:     nopRecorder{},
		tracer:       otel.Tracer(instrumentationName),
		now:          time.Now,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("component", "conversation"), zap.String("conversation_id", c.id))
	c.store = memory.NewStore(memory.StoreConfig{Now: c.now}, c.logger)
	c.scheduler = NewScheduler(c.participants, broker, cfg.Scheduler, c.rng, c.logger)
	return c, nil
}

// Start 由主持人发表开场白：话题与参与者名单。只能调用一次。
func (c *Conversation) Start(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status != StatusNotStarted {
		return "", ErrAlreadyStarted
	}
	_, span := c.tracer.Start(ctx, "conversation.start", trace.WithAttributes(
		attribute.String("conversation.id", c.id),
		attribute.Int("conversation.participants", len(c.participants)),
	))
	defer span.End()

	intro := agent.Introduction(c.topic, c.participants)
	c.store.Append(c.broker.Name(), intro)
	c.status = StatusRunning
	c.startedAt = c.now()
	c.recorder.ConversationStarted(len(c.participants))

	c.logger.Info("conversation started",
		zap.String("topic", c.topic),
		zap.Int("participants", len(c.participants)),
		zap.Int("max_rounds", c.maxRounds))
	return intro, nil
}

// Advance 执行一个回合；达到最大轮数时执行收尾。
// 失败的回合不修改日志与调度计数，调用方可以重试。
func (c *Conversation) Advance(ctx context.Context) (*Step, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.status {
	case StatusNotStarted:
		return nil, ErrNotStarted
	case StatusConcluded:
		return nil, ErrConversationEnded
	}

	if err := ctx.Err(); err != nil {
		return nil, types.NewError(types.ErrGenerationFailed, "turn cancelled").WithCause(err)
	}

	ctx = types.WithConversationID(ctx, c.id)
	ctx, span := c.tracer.Start(ctx, "conversation.advance", trace.WithAttributes(
		attribute.String("conversation.id", c.id),
		attribute.Int("conversation.turn", c.scheduler.Turns()),
		attribute.Int("conversation.round", c.scheduler.Rounds()),
	))
	defer span.End()

	if c.scheduler.Rounds() >= c.maxRounds {
		step, err := c.conclude(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "conclusion failed")
		}
		return step, err
	}

	step, err := c.turn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "turn failed")
		return nil, err
	}
	span.SetAttributes(
		attribute.String("conversation.speaker", step.Speaker),
		attribute.String("conversation.reason", string(step.Reason)),
	)
	return step, nil
}

func (c *Conversation) turn(ctx context.Context) (*Step, error) {
	sel, err := c.scheduler.Select()
	if err != nil {
		return nil, err
	}
	speaker := sel.Speaker
	start := c.now()

	cp := speaker.Checkpoint()
	speaker.Reconcile(c.store.UnseenSince(speaker.LastSeen()), c.store.RecentWindow(c.windowSize))

	c.logger.Info("next speaker thinking",
		zap.Int("round", c.scheduler.Rounds()),
		zap.String("speaker", speaker.Name()),
		zap.String("reason", string(sel.Reason)))

	text, err := speaker.Respond(ctx, c.topic)
	if err != nil {
		speaker.Rollback(cp)
		c.recorder.TurnFailed(speaker.Name())
		c.logger.Warn("turn failed", zap.String("speaker", speaker.Name()), zap.Error(err))
		return nil, err
	}

	msg := c.store.Append(speaker.Name(), text)
	roundDone, err := c.scheduler.Commit(sel)
	if err != nil {
		return nil, err
	}

	c.recorder.TurnCompleted(speaker.Name(), string(sel.Reason), c.now().Sub(start))
	if roundDone {
		c.recorder.RoundCompleted(c.scheduler.Rounds())
		c.logger.Debug("round completed", zap.Int("round", c.scheduler.Rounds()))
	}

	return &Step{
		Speaker: speaker.Name(),
		Text:    msg.String(),
		Message: msg,
		Reason:  sel.Reason,
		Turn:    c.scheduler.Turns(),
		Round:   c.scheduler.Rounds(),
	}, nil
}

// conclude 用全新的评估者评估完整日志，成功后追加结束语并进入 Concluded。
// 失败时状态与日志保持不变。
func (c *Conversation) conclude(ctx context.Context) (*Step, error) {
	c.logger.Info("concluding conversation", zap.Int("rounds", c.scheduler.Rounds()))

	ev := c.evaluators()
	verdict, err := ev.Evaluate(ctx, evaluation.Request{
		Topic:      c.topic,
		Criteria:   c.criteria,
		Transcript: c.store.Transcript(),
	})
	if err != nil {
		c.recorder.ConclusionFailed()
		c.logger.Warn("conclusion failed", zap.Error(err))
		return nil, types.NewError(types.ErrConclusionFailed, "evaluator failed").WithCause(err)
	}

	text := Conclusion(c.scheduler.Rounds(), c.topic, ev.Name(), verdict.Text)
	msg := c.store.Append(ev.Name(), text)
	c.status = StatusConcluded
	c.verdict = verdict
	c.recorder.ConversationConcluded(c.scheduler.Rounds(), c.scheduler.Turns(), c.now().Sub(c.startedAt))

	c.logger.Info("conversation concluded",
		zap.Int("rounds", c.scheduler.Rounds()),
		zap.Int("turns", c.scheduler.Turns()))

	return &Step{
		Speaker:   ev.Name(),
		Text:      text,
		Message:   msg,
		Turn:      c.scheduler.Turns(),
		Round:     c.scheduler.Rounds(),
		Concluded: true,
		Verdict:   verdict,
	}, nil
}

// Conclusion 组合结束语。
func Conclusion(rounds int, topic, evaluator, verdict string) string {
	return fmt.Sprintf(`--- Conversation Complete ---

We've completed %d rounds of discussion on %q.
Thank you to all participants for sharing their unique perspectives!

Final evaluation by independent assessor:
%s: %s`, rounds, topic, evaluator, verdict)
}

// SetMaxRounds 修改最大轮数；收尾后不可修改。
func (c *Conversation) SetMaxRounds(n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.status == StatusConcluded {
		return ErrConversationEnded
	}
	if n <= 0 {
		return types.Errorf(types.ErrConfiguration, "max rounds must be positive, got %d", n)
	}
	c.maxRounds = n
	return nil
}

func (c *Conversation) ID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

// Topic 返回当前话题；Restore 会替换它。
func (c *Conversation) Topic() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.topic
}

func (c *Conversation) Criteria() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.criteria
}

func (c *Conversation) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

func (c *Conversation) MaxRounds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxRounds
}

func (c *Conversation) Rounds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scheduler.Rounds()
}

func (c *Conversation) Turns() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scheduler.Turns()
}

// Transcript 返回完整日志的文本形式。
func (c *Conversation) Transcript() string {
	return c.store.Transcript()
}

// Messages 返回完整日志的副本。
func (c *Conversation) Messages() []memory.Message {
	return c.store.Messages()
}

// Verdict 返回收尾时的评估结果，未收尾时为 nil。
func (c *Conversation) Verdict() *evaluation.Verdict {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.verdict
}

// Participants 返回轮询顺序中的参与者（不含主持人）。
func (c *Conversation) Participants() []*agent.Participant {
	return append([]*agent.Participant(nil), c.participants...)
}

func (c *Conversation) Broker() *agent.Participant { return c.broker }
