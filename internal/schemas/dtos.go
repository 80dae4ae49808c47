package schemas

import (
	"time"

	"github.com/google/uuid"
)

// UserDTO is the public representation of a user. The password never leaves
// the server.
type UserDTO struct {
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// TokenPairDTO is returned on login and refresh.
type TokenPairDTO struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// VideoDTO is the full representation of a video.
type VideoDTO struct {
	VideoID      uuid.UUID `json:"video_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	VideoURL     string    `json:"video_url"`
	ThumbnailURL string    `json:"thumbnail_url"`
	Duration     int       `json:"duration"`
	AuthorID     uuid.UUID `json:"author_id"`
	ViewsCount   int       `json:"views_count"`
	LikesCount   int       `json:"likes_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CommentDTO is the representation of a single comment.
type CommentDTO struct {
	CommentID uuid.UUID `json:"comment_id"`
	VideoID   uuid.UUID `json:"video_id"`
	AuthorID  uuid.UUID `json:"author_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WatchHistoryDTO is one entry of a user's watch history.
type WatchHistoryDTO struct {
	VideoID       uuid.UUID `json:"video_id"`
	Title         string    `json:"title"`
	ThumbnailURL  string    `json:"thumbnail_url"`
	WatchDuration int       `json:"watch_duration"`
	Completed     bool      `json:"completed"`
	WatchedAt     time.Time `json:"watched_at"`
}

// ChatDTO is one chat as seen from the perspective of the requesting user.
type ChatDTO struct {
	ChatID      uuid.UUID  `json:"chat_id"`
	Partner     UserDTO    `json:"partner"`
	LastLetter  *LetterDTO `json:"last_letter"`
	UnreadCount int        `json:"unread_count"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ChatDetailDTO is a chat with its letters included.
type ChatDetailDTO struct {
	ChatID    uuid.UUID   `json:"chat_id"`
	Partner   UserDTO     `json:"partner"`
	Letters   []LetterDTO `json:"letters"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// LetterDTO is one message inside a chat.
type LetterDTO struct {
	LetterID  uuid.UUID `json:"letter_id"`
	ChatID    uuid.UUID `json:"chat_id"`
	AuthorID  uuid.UUID `json:"author_id"`
	Content   string    `json:"content"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// UnreadCountDTO is the total number of unread letters across all chats.
type UnreadCountDTO struct {
	UnreadCount int `json:"unread_count"`
}

// PaginatedResponse wraps a list of records with pagination metadata.
type PaginatedResponse struct {
	Records    interface{} `json:"records"`
	Pagination *Pagination `json:"pagination"`
}

// Pagination holds the offset, limit and total record count of a list
// response.
type Pagination struct {
	Offset  int `json:"offset"`
	Limit   int `json:"limit"`
	Records int `json:"records"`
}

// MessageDTO carries a short confirmation message.
type MessageDTO struct {
	Message string `json:"message"`
}

// MetadataDTO describes the running server, served on the root route.
type MetadataDTO struct {
	ApiVersion string `json:"apiVersion"`
	ApiName    string `json:"apiName"`
}

// HealthDTO is the body of the health endpoint.
type HealthDTO struct {
	Status string `json:"status"`
}
