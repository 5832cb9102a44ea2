package domain

// Role identifies who produced a turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// DirectMentionMarker prefixes user turns that directly invoked the bot
const DirectMentionMarker = "[Direct Mention] "

// TurnState is the emotional annotation attached to assistant turns
// when emotion recording is enabled
type TurnState struct {
	Interest string `json:"interest"`
	Feeling  string `json:"feeling"`
}

// Turn is one entry in a session's conversation log.
// Sender fields are set only on user turns; State only on assistant turns.
type Turn struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	SenderID   string     `json:"sender_id,omitempty"`
	SenderName string     `json:"sender_name,omitempty"`
	State      *TurnState `json:"state,omitempty"`
}

// NewUserTurn builds a user turn, prefixing the direct-mention marker
// when the message directly invoked the bot
func NewUserTurn(senderID, senderName, content string, directMention bool) Turn {
	if directMention {
		content = DirectMentionMarker + content
	}
	return Turn{
		Role:       RoleUser,
		Content:    content,
		SenderID:   senderID,
		SenderName: senderName,
	}
}

// NewAssistantTurn builds an assistant turn with an optional state annotation
func NewAssistantTurn(content string, state *TurnState) Turn {
	return Turn{
		Role:    RoleAssistant,
		Content: content,
		State:   state,
	}
}

// IsUser checks if the turn was produced by a human sender
func (t *Turn) IsUser() bool {
	return t.Role == RoleUser
}
