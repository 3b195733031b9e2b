// Package store defines the storage interface and implementations.
package store

import (
	"context"

	"github.com/xiaot623/trainchat/internal/domain"
)

// MaxListLimit caps how many conversations a single listing returns.
const MaxListLimit = 50

// ConversationSummary is one row of a conversation listing: the conversation
// header plus a preview of its most recent message.
type ConversationSummary struct {
	ConversationID string `json:"id"`
	Title          string `json:"title"`
	CreatedAt      string `json:"created_at"`
	LastMessageAt  string `json:"last_message_at"`
	MessageCount   int    `json:"message_count"`
	LastMessage    string `json:"last_message"`
}

// Store defines the interface for data persistence.
//
// Lookups scoped by owner return (nil, nil) when no record matches both the
// id and the owner, so a foreign id is indistinguishable from a missing one.
type Store interface {
	// User operations
	FindOrCreateUser(ctx context.Context, email, name string) (*domain.User, bool, error)
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	TouchLastLogin(ctx context.Context, userID string) error

	// Conversation operations
	CreateForOwner(ctx context.Context, ownerID, firstMessage string) (*domain.Conversation, error)
	CreateEmpty(ctx context.Context, ownerID, title string) (*domain.Conversation, error)
	FindOwned(ctx context.Context, conversationID, ownerID string) (*domain.Conversation, error)
	GetOwnedWithMessages(ctx context.Context, conversationID, ownerID string) (*domain.Conversation, error)
	ListOwned(ctx context.Context, ownerID string, limit int) ([]ConversationSummary, error)
	UpdateTitle(ctx context.Context, conversationID, ownerID, title string) (bool, error)
	DeleteOwned(ctx context.Context, conversationID, ownerID string) (bool, error)

	// Message operations
	AppendMessage(ctx context.Context, conversationID string, role domain.Role, content string) (*domain.Message, error)

	// Lifecycle
	Close() error
}
