package domain

import "time"

// User is the directory record of an account. PasswordHash never leaves
// the repository/auth layers; the HTTP layer serializes PublicUser instead.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	IsOnline     bool
	LastSeen     *time.Time
	CreatedAt    time.Time
}

// PublicUser is the externally visible projection of a User.
type PublicUser struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	IsOnline  bool       `json:"isOnline"`
	LastSeen  *time.Time `json:"lastSeen,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Public strips credentials from a directory record.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Email:     u.Email,
		IsOnline:  u.IsOnline,
		LastSeen:  u.LastSeen,
		CreatedAt: u.CreatedAt,
	}
}

// ChatSummary describes one conversation in a user's chat list.
type ChatSummary struct {
	Peer        PublicUser `json:"peer"`
	LastMessage Message    `json:"lastMessage"`
	UnreadCount int        `json:"unreadCount"`
}
