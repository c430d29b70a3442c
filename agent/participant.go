package agent

import (
	"context"
	"strings"

	"github.com/BaSui01/pandemonium/agent/memory"
	"github.com/BaSui01/pandemonium/llm"
	"github.com/BaSui01/pandemonium/types"
	"go.uber.org/zap"
)

// Kind 区分普通发言者与主持人。
type Kind string

const (
	KindParticipant Kind = "participant"
	KindBroker      Kind = "broker"
)

// Participant 是会话中的一个发言者：身份与私有记忆，加上注入的 Responder。
// 私有历史与记忆窗口只在该发言者自己的回合内被修改。
type Participant struct {
	name      string
	persona   string
	kind      Kind
	responder Responder

	history  []memory.Message
	lastSeen int64
	window   []llm.Message

	logger *zap.Logger
}

func newParticipant(name, persona string, kind Kind, responder Responder, logger *zap.Logger) *Participant {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Participant{
		name:      name,
		persona:   persona,
		kind:      kind,
		responder: responder,
		logger:    logger.With(zap.String("component", "participant"), zap.String("participant", name)),
	}
}

// NewFixed creates a participant with a fixed name and persona.
func NewFixed(name, persona string, responder Responder, logger *zap.Logger) *Participant {
	return newParticipant(name, persona, KindParticipant, responder, logger)
}

func (p *Participant) Name() string    { return p.name }
func (p *Participant) Persona() string { return p.persona }
func (p *Participant) Kind() Kind      { return p.kind }

// LastSeen 返回该发言者已观察到的最大序号。
func (p *Participant) LastSeen() int64 { return p.lastSeen }

// History 返回私有历史的副本。
func (p *Participant) History() []memory.Message {
	out := make([]memory.Message, len(p.history))
	copy(out, p.history)
	return out
}

// Window 返回当前记忆窗口的副本。
func (p *Participant) Window() []llm.Message {
	out := make([]llm.Message, len(p.window))
	copy(out, p.window)
	return out
}

// Reconcile 把规范日志中的新消息并入私有历史，推进 lastSeen，
// 并用 recent 重建记忆窗口：他人的消息作为 user，自己的消息作为 assistant。
// 已见过的序号会被忽略，因此重复调用是幂等的。
func (p *Participant) Reconcile(unseen, recent []memory.Message) {
	added := 0
	for _, m := range unseen {
		if m.Ordinal <= p.lastSeen {
			continue
		}
		p.history = append(p.history, m)
		p.lastSeen = m.Ordinal
		added++
	}

	p.window = p.window[:0]
	for _, m := range recent {
		if m.Speaker == p.name {
			p.window = append(p.window, llm.Message{Role: llm.RoleAssistant, Content: m.Text})
			continue
		}
		p.window = append(p.window, llm.Message{Role: llm.RoleUser, Content: m.String()})
	}

	p.logger.Debug("reconciled",
		zap.Int("new_messages", added),
		zap.Int64("last_seen", p.lastSeen),
		zap.Int("window", len(p.window)))
}

// Checkpoint 是私有记忆在某一时刻的位置。
type Checkpoint struct {
	history  int
	lastSeen int64
	window   []llm.Message
}

// Checkpoint 记录当前私有记忆，供失败的回合通过 Rollback 撤销对账。
func (p *Participant) Checkpoint() Checkpoint {
	return Checkpoint{history: len(p.history), lastSeen: p.lastSeen, window: p.Window()}
}

// Rollback 把私有记忆恢复到 cp 的位置。自 cp 之后历史只会追加，截断即可。
func (p *Participant) Rollback(cp Checkpoint) {
	if cp.history <= len(p.history) {
		p.history = p.history[:cp.history]
	}
	p.lastSeen = cp.lastSeen
	p.window = cp.window
}

// Respond 以当前窗口为上下文生成一条发言。空白回复视为生成失败。
// 本方法不修改任何状态。
func (p *Participant) Respond(ctx context.Context, topic string) (string, error) {
	if p.responder == nil {
		return "", types.Errorf(types.ErrConfiguration, "participant %s has no responder", p.name)
	}
	text, err := p.responder.Generate(types.WithSpeaker(ctx, p.name), Request{
		Speaker: p.name,
		Persona: p.persona,
		Topic:   topic,
		Context: p.Window(),
	})
	if err != nil {
		return "", types.Errorf(types.ErrGenerationFailed, "%s failed to respond", p.name).WithCause(err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", types.Errorf(types.ErrGenerationFailed, "%s returned an empty response", p.name)
	}
	return text, nil
}

// Reset 清空私有历史与窗口，下次发言时重新从日志对账。
func (p *Participant) Reset() {
	p.history = nil
	p.lastSeen = 0
	p.window = nil
}
