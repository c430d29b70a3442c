package conversation

import (
	"strings"

	"github.com/BaSui01/pandemonium/agent/evaluation"
	"github.com/BaSui01/pandemonium/agent/memory"
	"github.com/BaSui01/pandemonium/types"
	"go.uber.org/zap"
)

// Snapshot 是会话可持久化的状态。参与者的私有记忆不在其中，
// 恢复后由日志重新对账。
type Snapshot struct {
	ID         string           `json:"id"`
	Topic      string           `json:"topic"`
	Criteria   string           `json:"criteria,omitempty"`
	MaxRounds  int              `json:"max_rounds"`
	RoundCount int              `json:"round_count"`
	TurnCount  int              `json:"turn_count"`
	Status     Status           `json:"status"`
	Log        []memory.Message `json:"log"`
	// Verdict 只在 Status 为 concluded 时存在。
	Verdict *evaluation.Verdict `json:"verdict,omitempty"`
}

// State 返回当前状态的快照。
func (c *Conversation) State() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		ID:         c.id,
		Topic:      c.topic,
		Criteria:   c.criteria,
		MaxRounds:  c.maxRounds,
		RoundCount: c.scheduler.Rounds(),
		TurnCount:  c.scheduler.Turns(),
		Status:     c.status,
		Log:        c.store.Messages(),
		Verdict:    copyVerdict(c.verdict),
	}
}

// Restore 用快照替换会话状态（包括话题），所有参与者的私有记忆被清空。
func (c *Conversation) Restore(s Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.validateSnapshot(s); err != nil {
		return err
	}
	if err := c.store.Replace(s.Log); err != nil {
		return err
	}

	if s.ID != "" {
		c.id = s.ID
	}
	c.topic = s.Topic
	c.criteria = s.Criteria
	c.maxRounds = s.MaxRounds
	c.status = s.Status
	c.verdict = nil
	if s.Status == StatusConcluded {
		c.verdict = copyVerdict(s.Verdict)
	}
	c.scheduler.restore(s.TurnCount, s.RoundCount)
	if c.status == StatusRunning {
		c.startedAt = c.now()
	}

	c.broker.Reset()
	for _, p := range c.participants {
		p.Reset()
	}

	c.logger.Info("conversation restored",
		zap.String("topic", c.topic),
		zap.String("status", string(s.Status)),
		zap.Int("turns", s.TurnCount),
		zap.Int("messages", len(s.Log)))
	return nil
}

func (c *Conversation) validateSnapshot(s Snapshot) error {
	invalid := func(format string, args ...any) error {
		return types.Errorf(types.ErrInvalidSnapshot, format, args...)
	}
	switch {
	case !s.Status.valid():
		return invalid("unknown status %q", s.Status)
	case strings.TrimSpace(s.Topic) == "":
		return invalid("topic is required")
	case s.MaxRounds <= 0:
		return invalid("max rounds must be positive, got %d", s.MaxRounds)
	case s.TurnCount < 0 || s.RoundCount < 0:
		return invalid("negative counters")
	case s.RoundCount != s.TurnCount/len(c.participants):
		return invalid("round count %d inconsistent with %d turns over %d participants",
			s.RoundCount, s.TurnCount, len(c.participants))
	case s.Status == StatusNotStarted && (len(s.Log) > 0 || s.TurnCount > 0):
		return invalid("not started conversation must be empty")
	case s.Status != StatusNotStarted && len(s.Log) == 0:
		return invalid("started conversation must have an introduction")
	case s.Status == StatusConcluded && s.Verdict == nil:
		return invalid("concluded conversation must carry its verdict")
	}
	return nil
}

func copyVerdict(v *evaluation.Verdict) *evaluation.Verdict {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
