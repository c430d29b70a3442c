package agent

import "fmt"

// AlwaysOnPrompt 附加在每个发言者人设之前的聊天风格约束。
const AlwaysOnPrompt = `Respond briefly, between 1 and 3 sentences. You may use abbreviations and slang,
like you're on an internet chat. Avoid emoji.

In your conversational style, try to balance making your own independent points with
responding to other users in the chat to keep them engaged.
You can respond by @Username who said whatever you're responding to.

You may choose a point of view and defend it. Try to make focused points, avoid generating
lists of points or ideas. You are allowed to disagree with other users, please do so
respectfully.`

// SystemPrompt 构造发言者的 system 提示。
func SystemPrompt(name, persona, topic string) string {
	return fmt.Sprintf(`You are %s, a chatroom participant with the following persona:

%s

%s

You are participating in a round-robin conversation about: %s

Respond naturally as your persona would, keeping your response concise but engaging. You can reference, build upon, or disagree with what others have said.`,
		name, AlwaysOnPrompt, persona, topic)
}

// TurnInstruction 是每次生成请求末尾的 user 指令。
func TurnInstruction(topic string) string {
	return fmt.Sprintf("Please respond to the conversation about %s.", topic)
}
