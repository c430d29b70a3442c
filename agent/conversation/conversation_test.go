package conversation

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/BaSui01/pandemonium/agent"
	"github.com/BaSui01/pandemonium/agent/evaluation"
	"github.com/BaSui01/pandemonium/llm"
	"github.com/BaSui01/pandemonium/testutil"
	"github.com/BaSui01/pandemonium/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubEvaluator 记录收到的请求并返回固定结论。
type stubEvaluator struct {
	mu    sync.Mutex
	name  string
	err   error
	calls int
	last  evaluation.Request
}

func (e *stubEvaluator) Name() string { return e.name }

func (e *stubEvaluator) Evaluate(ctx context.Context, req evaluation.Request) (*evaluation.Verdict, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	e.last = req
	if e.err != nil {
		return nil, e.err
	}
	return &evaluation.Verdict{Evaluator: e.name, Text: "Reasoning...\nResult: P1", Result: "P1"}, nil
}

func (e *stubEvaluator) factory() evaluation.Factory {
	return func() evaluation.Evaluator { return e }
}

func (e *stubEvaluator) setErr(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

// countingResponder 以 "<name> #<n>" 回复，并记录收到的上下文。
type countingResponder struct {
	mu       sync.Mutex
	calls    map[string]int
	contexts map[string][][]llm.Message
	fail     func(speaker string, call int) error
}

func newCountingResponder() *countingResponder {
	return &countingResponder{calls: map[string]int{}, contexts: map[string][][]llm.Message{}}
}

func (r *countingResponder) Generate(ctx context.Context, req agent.Request) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	r.calls[req.Speaker]++
	r.contexts[req.Speaker] = append(r.contexts[req.Speaker], req.Context)
	if r.fail != nil {
		if err := r.fail(req.Speaker, r.calls[req.Speaker]); err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("%s #%d", req.Speaker, r.calls[req.Speaker]), nil
}

type fixture struct {
	conv      *Conversation
	responder *countingResponder
	evaluator *stubEvaluator
}

func newFixture(t *testing.T, maxRounds int, opts ...Option) *fixture {
	t.Helper()
	responder := newCountingResponder()
	ev := &stubEvaluator{name: evaluation.DefaultName}
	participants := []*agent.Participant{
		agent.NewFixed("P1", "first", responder, nil),
		agent.NewFixed("P2", "second", responder, nil),
		agent.NewFixed("P3", "third", responder, nil),
	}
	// 概率为 0：确定性的轮询顺序。
	opts = append([]Option{WithRandom(rand.New(rand.NewPCG(1, 2)))}, opts...)
	conv, err := New(Config{
		Topic:     "remote work",
		Criteria:  "most persuasive",
		MaxRounds: maxRounds,
	}, agent.NewBroker(responder, nil), participants, ev.factory(), opts...)
	require.NoError(t, err)
	return &fixture{conv: conv, responder: responder, evaluator: ev}
}

func TestConversation_RoundRobinThenConclude(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 2)
	ctx := testutil.TestContext(t)

	intro, err := f.conv.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Topic of the chatroom: remote work\nParticipants: P1, P2, P3\nAnyone can start", intro)
	assert.Equal(t, StatusRunning, f.conv.Status())

	var got []string
	for i := 0; i < 6; i++ {
		step, err := f.conv.Advance(ctx)
		require.NoError(t, err)
		assert.False(t, step.Concluded)
		assert.Equal(t, ReasonRoundRobin, step.Reason)
		assert.Equal(t, step.Speaker+": "+step.Message.Text, step.Text)
		got = append(got, step.Speaker)
	}
	assert.Equal(t, []string{"P1", "P2", "P3", "P1", "P2", "P3"}, got)
	assert.Equal(t, 2, f.conv.Rounds())
	assert.Equal(t, 6, f.conv.Turns())

	step, err := f.conv.Advance(ctx)
	require.NoError(t, err)
	require.True(t, step.Concluded)
	assert.Equal(t, evaluation.DefaultName, step.Speaker)
	assert.Equal(t, StatusConcluded, f.conv.Status())
	assert.Contains(t, step.Text, "We've completed 2 rounds of discussion on \"remote work\".")
	assert.True(t, strings.HasSuffix(step.Text, "Evaluator: Reasoning...\nResult: P1"))
	require.NotNil(t, f.conv.Verdict())
	assert.Equal(t, "P1", f.conv.Verdict().Result)

	// 评估者看到的是结论之前的完整日志。
	assert.Equal(t, 1, f.evaluator.calls)
	assert.Equal(t, "remote work", f.evaluator.last.Topic)
	assert.Equal(t, "most persuasive", f.evaluator.last.Criteria)
	assert.True(t, strings.HasPrefix(f.evaluator.last.Transcript, "BrokerBobby: Topic of the chatroom: remote work"))
	assert.Contains(t, f.evaluator.last.Transcript, "P3: P3 #2")

	msgs := f.conv.Messages()
	require.Len(t, msgs, 8)
	for i, m := range msgs {
		assert.Equal(t, int64(i+1), m.Ordinal)
	}
	assert.Equal(t, evaluation.DefaultName, msgs[7].Speaker)
}

func TestConversation_AdvanceAfterConclusion(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1)
	ctx := testutil.TestContext(t)
	_, err := f.conv.Start(ctx)
	require.NoError(t, err)

	for {
		step, err := f.conv.Advance(ctx)
		require.NoError(t, err)
		if step.Concluded {
			break
		}
	}
	before := f.conv.Messages()

	_, err = f.conv.Advance(ctx)
	assert.True(t, errors.Is(err, ErrConversationEnded))
	assert.Equal(t, before, f.conv.Messages())
	assert.Equal(t, 1, f.evaluator.calls)
	assert.True(t, errors.Is(f.conv.SetMaxRounds(5), ErrConversationEnded))
}

func TestConversation_LifecycleMisuse(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1)
	ctx := testutil.TestContext(t)

	_, err := f.conv.Advance(ctx)
	assert.True(t, errors.Is(err, ErrNotStarted))

	_, err = f.conv.Start(ctx)
	require.NoError(t, err)
	_, err = f.conv.Start(ctx)
	assert.True(t, errors.Is(err, ErrAlreadyStarted))
	assert.Len(t, f.conv.Messages(), 1)
}

func TestConversation_FailedTurnLeavesStateUntouched(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 3)
	boom := errors.New("upstream exploded")
	failing := true
	f.responder.fail = func(speaker string, call int) error {
		if speaker == "P1" && call == 2 && failing {
			return boom
		}
		return nil
	}
	ctx := testutil.TestContext(t)
	_, err := f.conv.Start(ctx)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := f.conv.Advance(ctx)
		require.NoError(t, err)
	}
	before := f.conv.Messages()

	// 第 4 回合轮到 P1，生成失败。
	_, err = f.conv.Advance(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGenerationFailed))
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, before, f.conv.Messages())
	assert.Equal(t, 3, f.conv.Turns())
	assert.Equal(t, 1, f.conv.Rounds())
	assert.Equal(t, StatusRunning, f.conv.Status())

	// 重试时仍然是 P1。
	f.responder.mu.Lock()
	failing = false
	f.responder.mu.Unlock()
	step, err := f.conv.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, "P1", step.Speaker)
	assert.Equal(t, 4, step.Turn)
	assert.Len(t, f.conv.Messages(), len(before)+1)
}

func TestConversation_FailedTurnKeepsSpeakerMemory(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 2)
	f.responder.fail = func(speaker string, call int) error {
		if speaker == "P1" && call == 1 {
			return errors.New("rate limited upstream")
		}
		return nil
	}
	ctx := testutil.TestContext(t)
	_, err := f.conv.Start(ctx)
	require.NoError(t, err)

	p1 := f.conv.Participants()[0]
	require.Equal(t, "P1", p1.Name())

	_, err = f.conv.Advance(ctx)
	require.Error(t, err)
	assert.Equal(t, int64(0), p1.LastSeen())
	assert.Empty(t, p1.History())
	assert.Empty(t, p1.Window())
	assert.Len(t, f.conv.Messages(), 1)

	step, err := f.conv.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, "P1", step.Speaker)
	assert.Equal(t, int64(1), p1.LastSeen())
	assert.Len(t, p1.History(), 1)
}

func TestConversation_WhitespaceResponseIsFailure(t *testing.T) {
	t.Parallel()

	ev := &stubEvaluator{name: evaluation.DefaultName}
	blank := agent.ResponderFunc(func(ctx context.Context, req agent.Request) (string, error) {
		return "  \n\t", nil
	})
	conv, err := New(Config{Topic: "t", MaxRounds: 1}, agent.NewBroker(blank, nil),
		[]*agent.Participant{agent.NewFixed("P1", "", blank, nil)}, ev.factory())
	require.NoError(t, err)
	ctx := testutil.TestContext(t)
	_, err = conv.Start(ctx)
	require.NoError(t, err)

	_, err = conv.Advance(ctx)
	assert.True(t, errors.Is(err, ErrGenerationFailed))
	assert.Equal(t, 0, conv.Turns())
	assert.Len(t, conv.Messages(), 1)
}

func TestConversation_CancelledContext(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1)
	_, err := f.conv.Start(testutil.TestContext(t))
	require.NoError(t, err)

	_, err = f.conv.Advance(testutil.CancelledContext())
	assert.True(t, errors.Is(err, context.Canceled))
	assert.True(t, errors.Is(err, ErrGenerationFailed))
	assert.Equal(t, 0, f.conv.Turns())
	assert.Len(t, f.conv.Messages(), 1)
	assert.Empty(t, f.responder.calls)
}

func TestConversation_ConclusionFailureStaysRunning(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1)
	f.evaluator.setErr(errors.New("evaluator offline"))
	ctx := testutil.TestContext(t)
	_, err := f.conv.Start(ctx)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := f.conv.Advance(ctx)
		require.NoError(t, err)
	}
	before := f.conv.Messages()

	_, err = f.conv.Advance(ctx)
	assert.True(t, errors.Is(err, ErrConclusionFailed))
	assert.Equal(t, StatusRunning, f.conv.Status())
	assert.Equal(t, before, f.conv.Messages())
	assert.Nil(t, f.conv.Verdict())

	f.evaluator.setErr(nil)
	step, err := f.conv.Advance(ctx)
	require.NoError(t, err)
	assert.True(t, step.Concluded)
	assert.Equal(t, 2, f.evaluator.calls)
}

func TestConversation_ParticipantsSeeOthersInWindow(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 2)
	ctx := testutil.TestContext(t)
	_, err := f.conv.Start(ctx)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		_, err := f.conv.Advance(ctx)
		require.NoError(t, err)
	}

	p2 := f.responder.contexts["P2"][0]
	require.Len(t, p2, 2)
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "P1: P1 #1"}, p2[1])

	// P1 第二次发言时，自己的历史发言以 assistant 身份出现。
	p1 := f.responder.contexts["P1"][1]
	require.Len(t, p1, 4)
	assert.Equal(t, llm.Message{Role: llm.RoleAssistant, Content: "P1 #1"}, p1[1])
	assert.Equal(t, int64(4), f.conv.Participants()[0].LastSeen())
}

func TestConversation_WindowSizeLimitsContext(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 0)
	conv, err := New(Config{Topic: "x", MaxRounds: 3, WindowSize: 2},
		agent.NewBroker(f.responder, nil),
		[]*agent.Participant{agent.NewFixed("P1", "", f.responder, nil), agent.NewFixed("P2", "", f.responder, nil)},
		f.evaluator.factory())
	require.NoError(t, err)
	ctx := testutil.TestContext(t)
	_, err = conv.Start(ctx)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		_, err := conv.Advance(ctx)
		require.NoError(t, err)
	}
	for _, window := range f.responder.contexts["P1"] {
		assert.LessOrEqual(t, len(window), 2)
	}
	// P1 的私有历史仍然完整：开场白、P1 #1、P2 #1。
	assert.Len(t, conv.Participants()[0].History(), 3)
}

func TestConversation_SetMaxRoundsExtends(t *testing.T) {
	t.Parallel()

	f := newFixture(t, 1)
	ctx := testutil.TestContext(t)
	_, err := f.conv.Start(ctx)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err := f.conv.Advance(ctx)
		require.NoError(t, err)
	}

	require.NoError(t, f.conv.SetMaxRounds(2))
	assert.True(t, types.IsConfigurationError(f.conv.SetMaxRounds(0)))

	step, err := f.conv.Advance(ctx)
	require.NoError(t, err)
	assert.False(t, step.Concluded)
	assert.Equal(t, "P1", step.Speaker)
	assert.Equal(t, 2, f.conv.MaxRounds())
}

func TestConversation_BrokerCanBeScheduled(t *testing.T) {
	t.Parallel()

	responder := newCountingResponder()
	ev := &stubEvaluator{name: evaluation.DefaultName}
	conv, err := New(Config{
		Topic:     "t",
		MaxRounds: 1,
		Scheduler: SchedulerConfig{BrokerProbability: 1},
	}, agent.NewBroker(responder, nil), []*agent.Participant{agent.NewFixed("P1", "", responder, nil)},
		ev.factory(), WithRandom(rand.New(rand.NewPCG(7, 7))))
	require.NoError(t, err)
	ctx := testutil.TestContext(t)
	_, err = conv.Start(ctx)
	require.NoError(t, err)

	step, err := conv.Advance(ctx)
	require.NoError(t, err)
	assert.Equal(t, agent.BrokerName, step.Speaker)
	assert.Equal(t, ReasonBroker, step.Reason)
	assert.Equal(t, 1, conv.Rounds())
}

type countingRecorder struct {
	started, turns, failed, rounds, concluded, conclusionFailed int
	reasons                                                     []string
}

func (r *countingRecorder) ConversationStarted(int) { r.started++ }
func (r *countingRecorder) TurnCompleted(_, reason string, _ time.Duration) {
	r.turns++
	r.reasons = append(r.reasons, reason)
}
func (r *countingRecorder) TurnFailed(string)                             { r.failed++ }
func (r *countingRecorder) RoundCompleted(int)                            { r.rounds++ }
func (r *countingRecorder) ConversationConcluded(int, int, time.Duration) { r.concluded++ }
func (r *countingRecorder) ConclusionFailed()                             { r.conclusionFailed++ }

func TestConversation_RecorderEvents(t *testing.T) {
	t.Parallel()

	rec := &countingRecorder{}
	now, _ := testutil.FixedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	f := newFixture(t, 1, WithRecorder(rec), WithClock(now), WithLogger(zap.NewNop()))
	ctx := testutil.TestContext(t)
	_, err := f.conv.Start(ctx)
	require.NoError(t, err)
	for {
		step, err := f.conv.Advance(ctx)
		require.NoError(t, err)
		if step.Concluded {
			break
		}
	}

	assert.Equal(t, 1, rec.started)
	assert.Equal(t, 3, rec.turns)
	assert.Equal(t, 1, rec.rounds)
	assert.Equal(t, 1, rec.concluded)
	assert.Equal(t, []string{"round_robin", "round_robin", "round_robin"}, rec.reasons)
	for _, m := range f.conv.Messages() {
		assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), m.At)
	}
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	ev := &stubEvaluator{name: evaluation.DefaultName}
	broker := agent.NewBroker(nil, nil)
	one := []*agent.Participant{agent.NewFixed("P1", "", nil, nil)}

	tests := []struct {
		name         string
		cfg          Config
		broker       *agent.Participant
		participants []*agent.Participant
		code         types.ErrorCode
	}{
		{"empty topic", Config{Topic: "  "}, broker, one, types.ErrConfiguration},
		{"negative rounds", Config{Topic: "t", MaxRounds: -1}, broker, one, types.ErrConfiguration},
		{"no broker", Config{Topic: "t"}, nil, one, types.ErrConfiguration},
		{"no participants", Config{Topic: "t"}, broker, nil, types.ErrConfiguration},
		{"duplicate participant", Config{Topic: "t"}, broker,
			[]*agent.Participant{agent.NewFixed("P1", "", nil, nil), agent.NewFixed("P1", "", nil, nil)},
			types.ErrDuplicateIdentity},
		{"participant named like broker", Config{Topic: "t"}, broker,
			[]*agent.Participant{agent.NewFixed(agent.BrokerName, "", nil, nil)}, types.ErrDuplicateIdentity},
		{"participant named like evaluator", Config{Topic: "t"}, broker,
			[]*agent.Participant{agent.NewFixed(evaluation.DefaultName, "", nil, nil)}, types.ErrDuplicateIdentity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg, tt.broker, tt.participants, ev.factory())
			require.Error(t, err)
			assert.Equal(t, tt.code, types.GetErrorCode(err))
		})
	}

	_, err := New(Config{Topic: "t"}, broker, one, nil)
	assert.True(t, types.IsConfigurationError(err))
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()

	ev := &stubEvaluator{name: evaluation.DefaultName}
	conv, err := New(Config{Topic: "t"}, agent.NewBroker(nil, nil),
		[]*agent.Participant{agent.NewFixed("P1", "", nil, nil)}, ev.factory())
	require.NoError(t, err)

	assert.NotEmpty(t, conv.ID())
	assert.Equal(t, DefaultMaxRounds, conv.MaxRounds())
	assert.Equal(t, StatusNotStarted, conv.Status())
	assert.Equal(t, "t", conv.Topic())
	assert.Empty(t, conv.Messages())
}

func TestConclusion(t *testing.T) {
	t.Parallel()

	text := Conclusion(3, "cats", "Evaluator", "Result: Tom")
	assert.Equal(t, `--- Conversation Complete ---

We've completed 3 rounds of discussion on "cats".
Thank you to all participants for sharing their unique perspectives!

Final evaluation by independent assessor:
Evaluator: Result: Tom`, text)
}
