// Package domain defines the core domain models for trainchat.
package domain

import "time"

// User represents a registered user. Users are created on first login and
// are immutable afterwards except for LastLoginAt.
type User struct {
	UserID      string     `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Avatar      string     `json:"avatar,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}
