package agent

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// BrokerName 是默认主持人的身份。
const BrokerName = "BrokerBobby"

// BrokerPersona 是默认主持人的人设。
const BrokerPersona = `You are a conversation broker who facilitates discussion between different
agents. You introduce topics, manage turn-taking, and ensure everyone gets a chance
to speak. You're neutral and objective, focusing on keeping the conversation flowing
smoothly while allowing each agent to express their unique perspective.

You try to keep things on topic, and ask people to focus on 1-2 issues rather than
sprawling a conversation out in a lot of different directions. You occasionally
make lists of what you are hearing, requesting one topic be finished before others
are taken up.`

// NewBroker creates the moderator. It speaks the introduction and may be
// picked by the scheduler like any other participant.
func NewBroker(responder Responder, logger *zap.Logger) *Participant {
	return newParticipant(BrokerName, BrokerPersona, KindBroker, responder, logger)
}

// Introduction 返回主持人的开场白：话题与参与者名单。
func Introduction(topic string, participants []*Participant) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic of the chatroom: %s\n", topic)
	if len(participants) > 0 {
		names := make([]string, 0, len(participants))
		for _, p := range participants {
			names = append(names, p.Name())
		}
		fmt.Fprintf(&b, "Participants: %s\n", strings.Join(names, ", "))
	}
	b.WriteString("Anyone can start")
	return b.String()
}
