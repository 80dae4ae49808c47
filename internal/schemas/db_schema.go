// Package schemas defines the data structures
package schemas

import (
	"time"

	"github.com/google/uuid"
)

// TokenKind discriminates the two roles a ledger token can play.
// The two kinds are never interchangeable for validation purposes.
type TokenKind string

const (
	TokenKindAccess  TokenKind = "access"
	TokenKindRefresh TokenKind = "refresh"
)

// User represents the data model for a user in the system.
type User struct {
	ID        uuid.UUID `json:"id"`         // Unique identifier for the user.
	Email     string    `json:"email"`      // Email address of the user, unique.
	Username  string    `json:"username"`   // Username of the user, unique.
	Password  string    `json:"password"`   // Password hash of the user.
	IsActive  bool      `json:"is_active"`  // Whether the account is active.
	CreatedAt time.Time `json:"created_at"` // Timestamp when the user was created.
}

// Token represents a row in the token ledger. Rows are never mutated except
// for the revoked flag and are never deleted by the normal flow.
type Token struct {
	ID        uuid.UUID `json:"id"`         // Unique identifier for the ledger row.
	Token     string    `json:"token"`      // Raw signed token string, unique.
	Kind      TokenKind `json:"kind"`       // Either access or refresh.
	UserID    uuid.UUID `json:"user_id"`    // Owning user.
	ExpiresAt time.Time `json:"expires_at"` // Expiry mirrored from the signed claims.
	CreatedAt time.Time `json:"created_at"` // Timestamp when the token was issued.
	Revoked   bool      `json:"revoked"`    // Terminal state once set.
}

// Video represents the metadata record of an imported or uploaded video.
type Video struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	VideoURL     string    `json:"video_url"`
	ThumbnailURL string    `json:"thumbnail_url"`
	Duration     int       `json:"duration"` // Duration in seconds.
	AuthorID     uuid.UUID `json:"author_id"`
	ViewsCount   int       `json:"views_count"`
	LikesCount   int       `json:"likes_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Comment represents a comment below a video.
type Comment struct {
	ID        uuid.UUID `json:"id"`
	Content   string    `json:"content"`
	VideoID   uuid.UUID `json:"video_id"`
	AuthorID  uuid.UUID `json:"author_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WatchHistory tracks how far a user got into a video. One row per
// (user, video) pair, updated in place on re-watch.
type WatchHistory struct {
	ID            uuid.UUID `json:"id"`
	UserID        uuid.UUID `json:"user_id"`
	VideoID       uuid.UUID `json:"video_id"`
	WatchedAt     time.Time `json:"watched_at"`
	WatchDuration int       `json:"watch_duration"` // Seconds watched.
	Completed     bool      `json:"completed"`
}

// Chat is an unordered pair of two distinct users, unique per pair.
type Chat struct {
	ID        uuid.UUID `json:"id"`
	User1ID   uuid.UUID `json:"user1_id"`
	User2ID   uuid.UUID `json:"user2_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"` // Bumped whenever a letter arrives.
}

// Letter is a direct message inside a chat. Immutable except for the read
// flag and the content (on edit by its author).
type Letter struct {
	ID        uuid.UUID `json:"id"`
	ChatID    uuid.UUID `json:"chat_id"`
	AuthorID  uuid.UUID `json:"author_id"`
	Content   string    `json:"content"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}
