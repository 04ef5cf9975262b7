package types

import "strings"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is a single entry in an agent conversation.
type Message struct {
	ID        string `json:"id"`
	Content   string `json:"content"`
	Role      Role   `json:"role"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds
	AgentID   int    `json:"agentId"`
}

// Blank reports whether the content is empty after trimming.
func (m Message) Blank() bool {
	return strings.TrimSpace(m.Content) == ""
}

// CloneMessages returns a copy of msgs that never aliases the input.
func CloneMessages(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}
