package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/xiaot623/trainchat/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens a SQLite database and runs migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite serializes writes anyway; a single connection avoids
	// SQLITE_BUSY and keeps the pragma below on every query. It also makes
	// ":memory:" databases behave, which otherwise exist per connection.
	db.SetMaxOpenConns(1)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			user_id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			avatar TEXT,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_login_at DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS conversations (
			conversation_id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			title TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			last_message_at DATETIME NOT NULL,
			FOREIGN KEY (owner_id) REFERENCES users(user_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_owner ON conversations(owner_id, last_message_at)`,
		`CREATE TABLE IF NOT EXISTS messages (
			message_id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (conversation_id) REFERENCES conversations(conversation_id) ON DELETE CASCADE
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// FindOrCreateUser looks a user up by email, creating the record on first
// login. The boolean result is true when a new user was created.
func (s *SQLiteStore) FindOrCreateUser(ctx context.Context, email, name string) (*domain.User, bool, error) {
	user, err := s.getUserByEmail(ctx, email)
	if err != nil {
		return nil, false, err
	}
	if user != nil {
		if err := s.TouchLastLogin(ctx, user.UserID); err != nil {
			return nil, false, err
		}
		fresh, err := s.GetUser(ctx, user.UserID)
		if err != nil {
			return nil, false, err
		}
		return fresh, false, nil
	}

	now := time.Now().UTC()
	user = &domain.User{
		UserID:      uuid.New().String(),
		Email:       email,
		Name:        name,
		CreatedAt:   now,
		UpdatedAt:   now,
		LastLoginAt: &now,
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO users (user_id, email, name, created_at, updated_at, last_login_at) VALUES (?, ?, ?, ?, ?, ?)`,
		user.UserID, user.Email, user.Name, user.CreatedAt, user.UpdatedAt, now)
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

// GetUser retrieves a user by ID.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT user_id, email, name, avatar, created_at, updated_at, last_login_at FROM users WHERE user_id = ?`,
		userID))
}

func (s *SQLiteStore) getUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT user_id, email, name, avatar, created_at, updated_at, last_login_at FROM users WHERE email = ?`,
		email))
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*domain.User, error) {
	var user domain.User
	var avatar sql.NullString
	var lastLogin sql.NullTime
	err := row.Scan(&user.UserID, &user.Email, &user.Name, &avatar, &user.CreatedAt, &user.UpdatedAt, &lastLogin)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if avatar.Valid {
		user.Avatar = avatar.String
	}
	if lastLogin.Valid {
		user.LastLoginAt = &lastLogin.Time
	}
	return &user, nil
}

// TouchLastLogin bumps a user's last-login timestamp.
func (s *SQLiteStore) TouchLastLogin(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET last_login_at = ? WHERE user_id = ?`,
		time.Now().UTC(), userID)
	return err
}

// CreateForOwner creates a conversation seeded with one user message. The
// title is derived from the message content.
func (s *SQLiteStore) CreateForOwner(ctx context.Context, ownerID, firstMessage string) (*domain.Conversation, error) {
	conv, err := s.CreateEmpty(ctx, ownerID, domain.DeriveTitle(firstMessage))
	if err != nil {
		return nil, err
	}
	if _, err := s.AppendMessage(ctx, conv.ConversationID, domain.RoleUser, firstMessage); err != nil {
		return nil, err
	}
	return conv, nil
}

// CreateEmpty creates a conversation with no messages.
func (s *SQLiteStore) CreateEmpty(ctx context.Context, ownerID, title string) (*domain.Conversation, error) {
	now := time.Now().UTC()
	conv := &domain.Conversation{
		ConversationID: uuid.New().String(),
		OwnerID:        ownerID,
		Title:          title,
		CreatedAt:      now,
		UpdatedAt:      now,
		LastMessageAt:  now,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (conversation_id, owner_id, title, created_at, updated_at, last_message_at) VALUES (?, ?, ?, ?, ?, ?)`,
		conv.ConversationID, conv.OwnerID, conv.Title, conv.CreatedAt, conv.UpdatedAt, conv.LastMessageAt)
	if err != nil {
		return nil, err
	}
	return conv, nil
}

// FindOwned retrieves a conversation by id, scoped to its owner. Returns
// (nil, nil) when the id does not exist or belongs to someone else.
func (s *SQLiteStore) FindOwned(ctx context.Context, conversationID, ownerID string) (*domain.Conversation, error) {
	var conv domain.Conversation
	err := s.db.QueryRowContext(ctx,
		`SELECT conversation_id, owner_id, title, created_at, updated_at, last_message_at
		 FROM conversations WHERE conversation_id = ? AND owner_id = ?`,
		conversationID, ownerID).
		Scan(&conv.ConversationID, &conv.OwnerID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt, &conv.LastMessageAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// GetOwnedWithMessages retrieves an owned conversation including its full
// transcript in dialogue order.
func (s *SQLiteStore) GetOwnedWithMessages(ctx context.Context, conversationID, ownerID string) (*domain.Conversation, error) {
	conv, err := s.FindOwned(ctx, conversationID, ownerID)
	if err != nil || conv == nil {
		return conv, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT message_id, conversation_id, role, content, created_at
		 FROM messages WHERE conversation_id = ? ORDER BY created_at ASC, rowid ASC`,
		conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(&msg.MessageID, &msg.ConversationID, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, err
		}
		conv.Messages = append(conv.Messages, msg)
	}
	return conv, rows.Err()
}

// ListOwned lists a user's conversations sorted by most recent activity,
// capped at MaxListLimit.
func (s *SQLiteStore) ListOwned(ctx context.Context, ownerID string, limit int) ([]ConversationSummary, error) {
	if limit <= 0 || limit > MaxListLimit {
		limit = MaxListLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT c.conversation_id, c.title, c.created_at, c.last_message_at,
			(SELECT COUNT(*) FROM messages m WHERE m.conversation_id = c.conversation_id),
			COALESCE((SELECT m.content FROM messages m WHERE m.conversation_id = c.conversation_id
				ORDER BY m.created_at DESC, m.rowid DESC LIMIT 1), '')
		 FROM conversations c WHERE c.owner_id = ?
		 ORDER BY c.last_message_at DESC LIMIT ?`,
		ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []ConversationSummary
	for rows.Next() {
		var sum ConversationSummary
		var createdAt, lastMessageAt time.Time
		if err := rows.Scan(&sum.ConversationID, &sum.Title, &createdAt, &lastMessageAt, &sum.MessageCount, &sum.LastMessage); err != nil {
			return nil, err
		}
		sum.CreatedAt = createdAt.UTC().Format(time.RFC3339)
		sum.LastMessageAt = lastMessageAt.UTC().Format(time.RFC3339)
		sum.LastMessage = previewOf(sum.LastMessage)
		summaries = append(summaries, sum)
	}
	return summaries, rows.Err()
}

// previewOf truncates message content for list previews.
func previewOf(content string) string {
	const max = 100
	runes := []rune(content)
	if len(runes) <= max {
		return content
	}
	return string(runes[:max]) + "..."
}

// UpdateTitle renames an owned conversation. Returns false when no owned
// record matched.
func (s *SQLiteStore) UpdateTitle(ctx context.Context, conversationID, ownerID, title string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE conversations SET title = ?, updated_at = ? WHERE conversation_id = ? AND owner_id = ?`,
		title, time.Now().UTC(), conversationID, ownerID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteOwned deletes an owned conversation and its messages. Returns true
// if a record was deleted.
func (s *SQLiteStore) DeleteOwned(ctx context.Context, conversationID, ownerID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM conversations WHERE conversation_id = ? AND owner_id = ?`,
		conversationID, ownerID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// AppendMessage pushes one message onto a conversation and bumps the
// conversation's activity timestamps. The insert and the bump commit
// together.
func (s *SQLiteStore) AppendMessage(ctx context.Context, conversationID string, role domain.Role, content string) (*domain.Message, error) {
	if !role.Valid() {
		return nil, domain.ErrInvalidRole{Role: role}
	}

	now := time.Now().UTC()
	msg := &domain.Message{
		MessageID:      uuid.New().String(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO messages (message_id, conversation_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		msg.MessageID, msg.ConversationID, string(msg.Role), msg.Content, msg.CreatedAt); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE conversations SET last_message_at = ?, updated_at = ? WHERE conversation_id = ?`,
		now, now, conversationID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return msg, nil
}
