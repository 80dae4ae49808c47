package schemas

// CustomError is the uniform error shape returned to clients.
// Code is a stable identifier, Message a human readable explanation.
type CustomError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorDTO wraps a CustomError for the response body.
type ErrorDTO struct {
	Error CustomError `json:"error"`
}

// The error catalog. Handlers pick the matching entry and pair it with the
// appropriate HTTP status code.
var (
	BadRequest = &CustomError{
		Code:    "ERR-001",
		Message: "The request body is invalid. Please check the request body and try again.",
	}
	UsernameTaken = &CustomError{
		Code:    "ERR-002",
		Message: "The username is already taken. Please try another username.",
	}
	EmailTaken = &CustomError{
		Code:    "ERR-003",
		Message: "The email is already registered. Please try another email.",
	}
	UserNotFound = &CustomError{
		Code:    "ERR-004",
		Message: "The user was not found. Please check the user id and try again.",
	}
	VideoNotFound = &CustomError{
		Code:    "ERR-005",
		Message: "The video was not found. Please check the video id and try again.",
	}
	CommentNotFound = &CustomError{
		Code:    "ERR-006",
		Message: "The comment was not found. Please check the comment id and try again.",
	}
	ChatNotFound = &CustomError{
		Code:    "ERR-007",
		Message: "The chat was not found. Please check the chat id and try again.",
	}
	LetterNotFound = &CustomError{
		Code:    "ERR-008",
		Message: "The letter was not found. Please check the letter id and try again.",
	}
	ChatWithSelf = &CustomError{
		Code:    "ERR-009",
		Message: "A chat needs two distinct participants. You cannot open a chat with yourself.",
	}
	NotParticipant = &CustomError{
		Code:    "ERR-010",
		Message: "You are not a participant of this chat.",
	}
	NotOwner = &CustomError{
		Code:    "ERR-011",
		Message: "You do not have permission to modify this resource.",
	}
	OwnLetterRead = &CustomError{
		Code:    "ERR-012",
		Message: "You cannot mark your own letter as read.",
	}
	AccountDeactivated = &CustomError{
		Code:    "ERR-013",
		Message: "The account is deactivated.",
	}
	Unauthorized = &CustomError{
		Code:    "ERR-014",
		Message: "The request is unauthorized. Please login to your account.",
	}
	InvalidCredentials = &CustomError{
		Code:    "ERR-015",
		Message: "The email or password is incorrect. Please check your credentials and try again.",
	}
	InvalidToken = &CustomError{
		Code:    "ERR-016",
		Message: "The token is invalid, expired or revoked. Please login again.",
	}
	DatabaseError = &CustomError{
		Code:    "ERR-017",
		Message: "The database encountered an error. Please try again later.",
	}
	InternalServerError = &CustomError{
		Code:    "ERR-018",
		Message: "The server encountered an error. Please try again later.",
	}
	EmailUnreachable = &CustomError{
		Code:    "ERR-019",
		Message: "The email address appears to be unreachable. Please check the email and try again.",
	}
)
