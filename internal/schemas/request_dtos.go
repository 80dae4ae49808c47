package schemas

// RegistrationRequest is the body for POST /api/users/register.
type RegistrationRequest struct {
	Email    string `json:"email" validate:"required,email,max=128"`
	Username string `json:"username" validate:"required,min=3,max=50,username_validation"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// LoginRequest is the body for POST /api/users/auth/login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshTokenRequest carries the refresh token for rotation and logout.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// CreateVideoRequest is the body for POST /api/videos.
type CreateVideoRequest struct {
	Title        string `json:"title" validate:"required,min=1,max=200"`
	Description  string `json:"description" validate:"max=5000"`
	VideoURL     string `json:"video_url" validate:"required,url,max=2048"`
	ThumbnailURL string `json:"thumbnail_url" validate:"omitempty,url,max=2048"`
	Duration     int    `json:"duration" validate:"gte=0"`
}

// UpdateVideoRequest is the body for PUT /api/videos/:videoId. All fields are
// optional, absent fields leave the stored value untouched.
type UpdateVideoRequest struct {
	Title        *string `json:"title" validate:"omitempty,min=1,max=200"`
	Description  *string `json:"description" validate:"omitempty,max=5000"`
	ThumbnailURL *string `json:"thumbnail_url" validate:"omitempty,url,max=2048"`
}

// CreateCommentRequest is the body for POST /api/videos/:videoId/comments.
type CreateCommentRequest struct {
	Content string `json:"content" validate:"required,min=1,max=2000"`
}

// UpdateCommentRequest is the body for PUT /api/comments/:commentId.
type UpdateCommentRequest struct {
	Content string `json:"content" validate:"required,min=1,max=2000"`
}

// TrackWatchRequest is the body for POST /api/videos/:videoId/watch.
type TrackWatchRequest struct {
	WatchDuration int  `json:"watch_duration" validate:"gte=0"`
	Completed     bool `json:"completed"`
}

// CreateLetterRequest is the body for POST /api/chats/:chatId/letters.
type CreateLetterRequest struct {
	Content string `json:"content" validate:"required,min=1,max=4000"`
}

// UpdateLetterRequest is the body for PUT /api/letters/:letterId.
type UpdateLetterRequest struct {
	Content string `json:"content" validate:"required,min=1,max=4000"`
}
