package utils

const (
	// UserIdKey is the key for user ID used in routing parameters.
	UserIdKey = "userId"

	// VideoIdKey is the key for video ID used in routing parameters.
	VideoIdKey = "videoId"

	// CommentIdKey is the key for comment ID used in routing parameters.
	CommentIdKey = "commentId"

	// ChatIdKey is the key for chat ID used in routing parameters.
	ChatIdKey = "chatId"

	// LetterIdKey is the key for letter ID used in routing parameters.
	LetterIdKey = "letterId"

	// OffsetParamKey is the key for offset used in pagination query parameters.
	OffsetParamKey = "offset"

	// LimitParamKey is the key for limit used in pagination query parameters.
	LimitParamKey = "limit"

	// QueryParamKey is the key for a generic query used in query parameters.
	QueryParamKey = "q"

	// SortByParamKey is the key for the sort column used in query parameters.
	SortByParamKey = "sortBy"

	// OrderParamKey is the key for the sort order used in query parameters.
	OrderParamKey = "order"
)
