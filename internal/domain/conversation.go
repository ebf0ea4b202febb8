package domain

import "time"

// DefaultSessionID is used when the caller does not name a session.
const DefaultSessionID = "default"

// Turn is a single stored message within a session. Turns are immutable once
// appended.
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Category  string    `json:"category,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Message converts the turn to the shape replayed to the provider.
func (t Turn) Message() ChatMessage {
	return ChatMessage{Role: t.Role, Content: t.Content}
}

// NewUserTurn builds a user turn stamped with now.
func NewUserTurn(content, category string, now time.Time) Turn {
	return Turn{Role: RoleUser, Content: content, Category: category, CreatedAt: now.UTC()}
}

// NewAssistantTurn builds an assistant turn stamped with now.
func NewAssistantTurn(content, category string, now time.Time) Turn {
	return Turn{Role: RoleAssistant, Content: content, Category: category, CreatedAt: now.UTC()}
}
