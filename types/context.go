package types

import "context"

// contextKey is used for storing values in context.Context.
type contextKey string

const (
	keyConversationID contextKey = "conversation_id"
	keySpeaker        contextKey = "speaker"
)

// WithConversationID adds the conversation ID to context.
func WithConversationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, keyConversationID, id)
}

// ConversationID extracts the conversation ID from context.
func ConversationID(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keyConversationID).(string)
	return v, ok && v != ""
}

// WithSpeaker 记录当前轮次的发言者，供 Provider 日志使用。
func WithSpeaker(ctx context.Context, speaker string) context.Context {
	return context.WithValue(ctx, keySpeaker, speaker)
}

// Speaker extracts the current speaker from context.
func Speaker(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(keySpeaker).(string)
	return v, ok && v != ""
}
