package conversation

import "time"

// Recorder 接收会话生命周期事件，用于指标采集。
type Recorder interface {
	ConversationStarted(participants int)
	TurnCompleted(speaker, reason string, duration time.Duration)
	TurnFailed(speaker string)
	RoundCompleted(round int)
	ConversationConcluded(rounds, turns int, duration time.Duration)
	ConclusionFailed()
}

type nopRecorder struct{}

func (nopRecorder) ConversationStarted(int)                       {}
func (nopRecorder) TurnCompleted(string, string, time.Duration)   {}
func (nopRecorder) TurnFailed(string)                             {}
func (nopRecorder) RoundCompleted(int)                            {}
func (nopRecorder) ConversationConcluded(int, int, time.Duration) {}
func (nopRecorder) ConclusionFailed()                             {}
