package domain

import (
	"fmt"
	"time"
)

// Role identifies who authored a message. Only the two values below are
// representable in the store; anything else is rejected on append.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the two known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// TitleMaxRunes is the length at which conversation titles derived from the
// first message are truncated.
const TitleMaxRunes = 30

// DeriveTitle builds a conversation title from the first user message:
// the message itself when it fits, otherwise the first 30 runes plus an
// ellipsis marker.
func DeriveTitle(firstMessage string) string {
	runes := []rune(firstMessage)
	if len(runes) <= TitleMaxRunes {
		return firstMessage
	}
	return string(runes[:TitleMaxRunes]) + "..."
}

// Conversation is a persisted, owned chat transcript. All access is scoped
// by OwnerID; a conversation is never visible to any other user.
type Conversation struct {
	ConversationID string    `json:"id"`
	OwnerID        string    `json:"owner_id"`
	Title          string    `json:"title"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	LastMessageAt  time.Time `json:"last_message_at"`

	// Messages is populated only by detail lookups; list queries leave it nil.
	Messages []Message `json:"messages,omitempty"`
}

// Message is a single entry in a conversation transcript. Insertion order is
// the dialogue order.
type Message struct {
	MessageID      string    `json:"message_id"`
	ConversationID string    `json:"conversation_id"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"timestamp"`
}

// ErrInvalidRole is returned when a message append carries an unknown role.
type ErrInvalidRole struct {
	Role Role
}

func (e ErrInvalidRole) Error() string {
	return fmt.Sprintf("invalid message role %q", string(e.Role))
}
