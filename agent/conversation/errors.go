package conversation

import "github.com/BaSui01/pandemonium/types"

// 哨兵错误，配合 errors.Is 使用（按错误码匹配）。
var (
	ErrEmptyScheduler    = types.NewError(types.ErrEmptyScheduler, "scheduler has no participants")
	ErrAlreadyStarted    = types.NewError(types.ErrAlreadyStarted, "conversation already started")
	ErrNotStarted        = types.NewError(types.ErrNotStarted, "conversation not started")
	ErrConversationEnded = types.NewError(types.ErrConversationEnded, "conversation has ended")
	ErrGenerationFailed  = types.NewError(types.ErrGenerationFailed, "generation failed")
	ErrConclusionFailed  = types.NewError(types.ErrConclusionFailed, "conclusion failed")
	ErrInvalidSnapshot   = types.NewError(types.ErrInvalidSnapshot, "invalid snapshot")
)
