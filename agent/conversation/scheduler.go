package conversation

import (
	"fmt"

	"github.com/BaSui01/pandemonium/agent"
	"go.uber.org/zap"
)

// 默认覆盖概率。
const (
	DefaultBrokerProbability = 0.1
	DefaultRandomProbability = 0.1
)

// RandomSource 是调度器的随机源，*math/rand/v2.Rand 满足该接口。
type RandomSource interface {
	Float64() float64
	IntN(n int) int
}

// Reason 说明一次选择依据的规则。
type Reason string

const (
	ReasonRoundRobin Reason = "round_robin"
	ReasonBroker     Reason = "broker"
	ReasonRandom     Reason = "random"
)

// Selection 是一次尚未提交的发言者选择。
type Selection struct {
	Speaker *agent.Participant
	Reason  Reason
	// Turn 是选择时的 turnCount，Commit 用它拒绝过期的选择。
	Turn int
}

type SchedulerConfig struct {
	BrokerProbability float64
	RandomProbability float64
}

// DefaultSchedulerConfig returns the default override probabilities.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		BrokerProbability: DefaultBrokerProbability,
		RandomProbability: DefaultRandomProbability,
	}
}

// Scheduler 决定下一位发言者并维护轮次计数。
//
// 规则按顺序判定：以 BrokerProbability 概率由主持人发言；否则以
// RandomProbability 概率随机选一位参与者；否则轮到 order[turnCount % N]。
// 覆盖同样占用一个轮询位（被跳过的参与者不会补发言）。
// 每次提交 turnCount 加一，turnCount 为 N 的倍数时 roundCount 加一。
//
// Scheduler 不是并发安全的，由 Conversation 串行调用。
type Scheduler struct {
	order  []*agent.Participant
	broker *agent.Participant
	config SchedulerConfig
	rng    RandomSource

	turnCount  int
	roundCount int

	logger *zap.Logger
}

// NewScheduler creates a scheduler over order. broker may be nil, which
// disables the broker override.
func NewScheduler(order []*agent.Participant, broker *agent.Participant, config SchedulerConfig, rng RandomSource, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := make([]*agent.Participant, len(order))
	copy(o, order)
	return &Scheduler{
		order:  o,
		broker: broker,
		config: config,
		rng:    rng,
		logger: logger.With(zap.String("component", "scheduler")),
	}
}

// Select 按规则选出下一位发言者，不修改计数。
func (s *Scheduler) Select() (Selection, error) {
	n := len(s.order)
	if n == 0 {
		return Selection{}, ErrEmptyScheduler
	}

	sel := Selection{Speaker: s.order[s.turnCount%n], Reason: ReasonRoundRobin, Turn: s.turnCount}
	if s.rng != nil {
		switch {
		case s.broker != nil && s.rng.Float64() < s.config.BrokerProbability:
			sel.Speaker, sel.Reason = s.broker, ReasonBroker
		case s.rng.Float64() < s.config.RandomProbability:
			sel.Speaker, sel.Reason = s.order[s.rng.IntN(n)], ReasonRandom
		}
	}

	s.logger.Debug("speaker selected",
		zap.String("speaker", sel.Speaker.Name()),
		zap.String("reason", string(sel.Reason)),
		zap.Int("turn", sel.Turn))
	return sel, nil
}

// Commit 记录一次已完成的发言。返回本次提交是否完成了一轮。
func (s *Scheduler) Commit(sel Selection) (roundCompleted bool, err error) {
	n := len(s.order)
	if n == 0 {
		return false, ErrEmptyScheduler
	}
	if sel.Turn != s.turnCount {
		return false, fmt.Errorf("stale selection for turn %d, scheduler is at turn %d", sel.Turn, s.turnCount)
	}
	s.turnCount++
	if s.turnCount%n == 0 {
		s.roundCount++
		roundCompleted = true
	}
	return roundCompleted, nil
}

// NextSpeaker 选择并立即提交。
func (s *Scheduler) NextSpeaker() (Selection, error) {
	sel, err := s.Select()
	if err != nil {
		return Selection{}, err
	}
	if _, err := s.Commit(sel); err != nil {
		return Selection{}, err
	}
	return sel, nil
}

func (s *Scheduler) Turns() int  { return s.turnCount }
func (s *Scheduler) Rounds() int { return s.roundCount }

// Participants 返回轮询顺序的副本（不含主持人）。
func (s *Scheduler) Participants() []*agent.Participant {
	out := make([]*agent.Participant, len(s.order))
	copy(out, s.order)
	return out
}

func (s *Scheduler) restore(turns, rounds int) {
	s.turnCount = turns
	s.roundCount = rounds
}
