package memory

import (
	"strings"
	"sync"
	"time"

	"github.com/BaSui01/pandemonium/types"
	"go.uber.org/zap"
)

// Message 是会话日志中的一条不可变消息。
// Ordinal 由 Store.Append 分配，从 1 开始连续递增。
type Message struct {
	Speaker string    `json:"speaker"`
	Text    string    `json:"text"`
	Ordinal int64     `json:"ordinal"`
	At      time.Time `json:"at"`
}

// String 返回 "Speaker: text" 形式。
func (m Message) String() string {
	return m.Speaker + ": " + m.Text
}

type StoreConfig struct {
	// Now 用于测试，默认 time.Now。
	Now func() time.Time
}

// Store 是会话的规范日志：只追加，按序号读取。
// 所有方法并发安全。
type Store struct {
	mu       sync.RWMutex
	messages []Message
	next     int64

	now    func() time.Time
	logger *zap.Logger
}

func NewStore(config StoreConfig, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	now := config.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		next:   1,
		now:    now,
		logger: logger.With(zap.String("component", "memory_store")),
	}
}

// Append 分配下一个序号并追加消息，永不失败。
func (s *Store) Append(speaker, text string) Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := Message{
		Speaker: speaker,
		Text:    text,
		Ordinal: s.next,
		At:      s.now(),
	}
	s.next++
	s.messages = append(s.messages, msg)

	s.logger.Debug("message appended",
		zap.String("speaker", speaker),
		zap.Int64("ordinal", msg.Ordinal))
	return msg
}

// RecentWindow 返回最近 size 条消息；日志较短时返回全部，size <= 0 返回空。
func (s *Store) RecentWindow(size int) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if size <= 0 {
		return []Message{}
	}
	start := len(s.messages) - size
	if start < 0 {
		start = 0
	}
	return cloneMessages(s.messages[start:])
}

// UnseenSince 返回序号大于 lastSeen 的全部消息，按序号排列。
func (s *Store) UnseenSince(lastSeen int64) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// 序号连续且从 1 开始，序号 n 位于下标 n-1。
	start := lastSeen
	if start < 0 {
		start = 0
	}
	if start >= int64(len(s.messages)) {
		return []Message{}
	}
	return cloneMessages(s.messages[start:])
}

// Messages 返回完整日志的副本。
func (s *Store) Messages() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneMessages(s.messages)
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}

// LastOrdinal 返回最后一条消息的序号，空日志返回 0。
func (s *Store) LastOrdinal() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.next - 1
}

// Transcript 以 "Speaker: text" 行的形式返回完整日志。
func (s *Store) Transcript() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var b strings.Builder
	for i, m := range s.messages {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(m.String())
	}
	return b.String()
}

// Replace 整体替换日志，用于从快照恢复。序号必须从 1 开始连续。
func (s *Store) Replace(msgs []Message) error {
	for i, m := range msgs {
		if want := int64(i + 1); m.Ordinal != want {
			return types.Errorf(types.ErrInvalidSnapshot,
				"message %d has ordinal %d, want %d", i, m.Ordinal, want)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = cloneMessages(msgs)
	s.next = int64(len(msgs)) + 1

	s.logger.Info("log replaced", zap.Int("messages", len(msgs)))
	return nil
}

func cloneMessages(in []Message) []Message {
	out := make([]Message, len(in))
	copy(out, in)
	return out
}
