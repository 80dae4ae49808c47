package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"clipnest/internal/managers"
	"clipnest/internal/schemas"
	"clipnest/internal/utils"
)

type ChatHdl interface {
	ListChats(c *gin.Context)
	GetOrCreateChat(c *gin.Context)
	DeleteChat(c *gin.Context)
	GetUnreadCount(c *gin.Context)
	ListLetters(c *gin.Context)
	CreateLetter(c *gin.Context)
	GetLetter(c *gin.Context)
	UpdateLetter(c *gin.Context)
	DeleteLetter(c *gin.Context)
	MarkLetterRead(c *gin.Context)
}

type ChatHandler struct {
	DatabaseManager managers.DatabaseMgr
}

func NewChatHandler(databaseManager *managers.DatabaseMgr) ChatHdl {
	return &ChatHandler{
		DatabaseManager: *databaseManager,
	}
}

// ListChats lists the chats of the authenticated user, each with the other
// participant, the latest letter and the number of unread letters.
func (handler *ChatHandler) ListChats(c *gin.Context) {
	tx, transactionCtx, cancel := utils.BeginTransaction(c, handler.DatabaseManager.GetPool())
	if tx == nil || transactionCtx == nil {
		return
	}
	var err error
	defer func() {
		utils.RollbackTransaction(c, tx, transactionCtx, cancel, err)
	}()

	offset, limit := utils.ParsePaginationParams(c)
	currentUser := utils.GetCurrentUser(c)

	queryString := "SELECT ch.chat_id, ch.created_at, ch.updated_at, u.user_id, u.email, u.username, u.created_at " +
		"FROM clipnest.chats ch JOIN clipnest.users u ON u.user_id = " +
		"CASE WHEN ch.user1_id = $1 THEN ch.user2_id ELSE ch.user1_id END " +
		"WHERE ch.user1_id = $1 OR ch.user2_id = $1 ORDER BY ch.updated_at DESC"
	rows, err := tx.Query(transactionCtx, queryString, currentUser.ID)
	if err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	chats := make([]schemas.ChatDTO, 0)
	for rows.Next() {
		chat := schemas.ChatDTO{}
		if err = rows.Scan(&chat.ChatID, &chat.CreatedAt, &chat.UpdatedAt, &chat.Partner.UserID,
			&chat.Partner.Email, &chat.Partner.Username, &chat.Partner.CreatedAt); err != nil {
			utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
			return
		}
		chats = append(chats, chat)
	}
	rows.Close()

	for i := range chats {
		lastLetter := &schemas.LetterDTO{}
		queryString = "SELECT letter_id, chat_id, author_id, content, is_read, created_at FROM clipnest.letters " +
			"WHERE chat_id = $1 ORDER BY created_at DESC LIMIT 1"
		row := tx.QueryRow(transactionCtx, queryString, chats[i].ChatID)
		err = row.Scan(&lastLetter.LetterID, &lastLetter.ChatID, &lastLetter.AuthorID, &lastLetter.Content,
			&lastLetter.IsRead, &lastLetter.CreatedAt)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			err = nil
		case err != nil:
			utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
			return
		default:
			chats[i].LastLetter = lastLetter
		}

		queryString = "SELECT COUNT(*) FROM clipnest.letters WHERE chat_id = $1 AND author_id <> $2 AND is_read = FALSE"
		if err = tx.QueryRow(transactionCtx, queryString, chats[i].ChatID, currentUser.ID).Scan(&chats[i].UnreadCount); err != nil {
			utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
			return
		}
	}

	if err = utils.CommitTransaction(c, tx, transactionCtx); err != nil {
		return
	}

	utils.SendPaginatedResponse(c, chats, offset, limit, len(chats))
}

// GetOrCreateChat resolves the chat between the authenticated user and the
// given user, creating it if it does not exist yet. The participant order
// does not matter, both resolve to the same chat. Fetching the chat marks
// the partner's letters as read.
func (handler *ChatHandler) GetOrCreateChat(c *gin.Context) {
	partnerId, err := parseUUIDParam(c, utils.UserIdKey)
	if err != nil {
		return
	}

	currentUser := utils.GetCurrentUser(c)
	if partnerId == currentUser.ID {
		utils.WriteAndLogError(c, schemas.ChatWithSelf, http.StatusConflict, errors.New("chat with self"))
		return
	}

	tx, transactionCtx, cancel := utils.BeginTransaction(c, handler.DatabaseManager.GetPool())
	if tx == nil || transactionCtx == nil {
		return
	}
	defer func() {
		utils.RollbackTransaction(c, tx, transactionCtx, cancel, err)
	}()

	partner := schemas.UserDTO{}
	queryString := "SELECT user_id, email, username, created_at FROM clipnest.users WHERE user_id = $1"
	row := tx.QueryRow(transactionCtx, queryString, partnerId)
	if err = row.Scan(&partner.UserID, &partner.Email, &partner.Username, &partner.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			utils.WriteAndLogError(c, schemas.UserNotFound, http.StatusNotFound, err)
			return
		}
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	chat := &schemas.ChatDetailDTO{Partner: partner}
	queryString = "SELECT chat_id, created_at, updated_at FROM clipnest.chats WHERE " +
		"(user1_id = $1 AND user2_id = $2) OR (user1_id = $2 AND user2_id = $1)"
	row = tx.QueryRow(transactionCtx, queryString, currentUser.ID, partnerId)
	err = row.Scan(&chat.ChatID, &chat.CreatedAt, &chat.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		chat.ChatID = uuid.New()
		chat.CreatedAt = time.Now()
		chat.UpdatedAt = chat.CreatedAt

		queryString = "INSERT INTO clipnest.chats (chat_id, user1_id, user2_id, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)"
		if _, err = tx.Exec(transactionCtx, queryString, chat.ChatID, currentUser.ID, partnerId,
			chat.CreatedAt, chat.UpdatedAt); err != nil {
			utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
			return
		}
	} else if err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	letters, err := fetchAndMarkLetters(c, tx, transactionCtx, chat.ChatID, currentUser.ID)
	if err != nil {
		return
	}
	chat.Letters = letters

	if err = utils.CommitTransaction(c, tx, transactionCtx); err != nil {
		return
	}

	utils.WriteAndLogResponse(c, chat, http.StatusOK)
}

// DeleteChat deletes a chat together with its letters. Only participants may
// do this.
func (handler *ChatHandler) DeleteChat(c *gin.Context) {
	chatId, err := parseUUIDParam(c, utils.ChatIdKey)
	if err != nil {
		return
	}

	tx, transactionCtx, cancel := utils.BeginTransaction(c, handler.DatabaseManager.GetPool())
	if tx == nil || transactionCtx == nil {
		return
	}
	defer func() {
		utils.RollbackTransaction(c, tx, transactionCtx, cancel, err)
	}()

	currentUser := utils.GetCurrentUser(c)

	if _, err = loadChat(c, tx, transactionCtx, chatId, currentUser.ID); err != nil {
		return
	}

	queryString := "DELETE FROM clipnest.letters WHERE chat_id = $1"
	if _, err = tx.Exec(transactionCtx, queryString, chatId); err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	queryString = "DELETE FROM clipnest.chats WHERE chat_id = $1"
	if _, err = tx.Exec(transactionCtx, queryString, chatId); err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if err = utils.CommitTransaction(c, tx, transactionCtx); err != nil {
		return
	}

	c.Status(http.StatusNoContent)
}

// GetUnreadCount responds with the total number of unread letters across all
// chats of the authenticated user. The count is computed on the fly.
func (handler *ChatHandler) GetUnreadCount(c *gin.Context) {
	tx, transactionCtx, cancel := utils.BeginTransaction(c, handler.DatabaseManager.GetPool())
	if tx == nil || transactionCtx == nil {
		return
	}
	var err error
	defer func() {
		utils.RollbackTransaction(c, tx, transactionCtx, cancel, err)
	}()

	currentUser := utils.GetCurrentUser(c)

	unreadCount := &schemas.UnreadCountDTO{}
	queryString := "SELECT COUNT(*) FROM clipnest.letters l JOIN clipnest.chats ch ON l.chat_id = ch.chat_id " +
		"WHERE (ch.user1_id = $1 OR ch.user2_id = $1) AND l.author_id <> $1 AND l.is_read = FALSE"
	if err = tx.QueryRow(transactionCtx, queryString, currentUser.ID).Scan(&unreadCount.UnreadCount); err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if err = utils.CommitTransaction(c, tx, transactionCtx); err != nil {
		return
	}

	utils.WriteAndLogResponse(c, unreadCount, http.StatusOK)
}

// ListLetters lists the letters of a chat in chronological order. Fetching
// them marks the partner's letters as read.
func (handler *ChatHandler) ListLetters(c *gin.Context) {
	chatId, err := parseUUIDParam(c, utils.ChatIdKey)
	if err != nil {
		return
	}

	tx, transactionCtx, cancel := utils.BeginTransaction(c, handler.DatabaseManager.GetPool())
	if tx == nil || transactionCtx == nil {
		return
	}
	defer func() {
		utils.RollbackTransaction(c, tx, transactionCtx, cancel, err)
	}()

	offset, limit := utils.ParsePaginationParams(c)
	currentUser := utils.GetCurrentUser(c)

	if _, err = loadChat(c, tx, transactionCtx, chatId, currentUser.ID); err != nil {
		return
	}

	letters, err := fetchAndMarkLetters(c, tx, transactionCtx, chatId, currentUser.ID)
	if err != nil {
		return
	}

	if err = utils.CommitTransaction(c, tx, transactionCtx); err != nil {
		return
	}

	utils.SendPaginatedResponse(c, letters, offset, limit, len(letters))
}

// CreateLetter adds a letter to a chat. Only participants may do this.
func (handler *ChatHandler) CreateLetter(c *gin.Context) {
	chatId, err := parseUUIDParam(c, utils.ChatIdKey)
	if err != nil {
		return
	}

	tx, transactionCtx, cancel := utils.BeginTransaction(c, handler.DatabaseManager.GetPool())
	if tx == nil || transactionCtx == nil {
		return
	}
	defer func() {
		utils.RollbackTransaction(c, tx, transactionCtx, cancel, err)
	}()

	createRequest := c.MustGet(utils.SanitizedPayloadKey.String()).(*schemas.CreateLetterRequest)
	currentUser := utils.GetCurrentUser(c)

	if _, err = loadChat(c, tx, transactionCtx, chatId, currentUser.ID); err != nil {
		return
	}

	letter := &schemas.LetterDTO{
		LetterID:  uuid.New(),
		ChatID:    chatId,
		AuthorID:  currentUser.ID,
		Content:   createRequest.Content,
		IsRead:    false,
		CreatedAt: time.Now(),
	}

	queryString := "INSERT INTO clipnest.letters (letter_id, chat_id, author_id, content, is_read, created_at) " +
		"VALUES ($1, $2, $3, $4, $5, $6)"
	if _, err = tx.Exec(transactionCtx, queryString, letter.LetterID, letter.ChatID, letter.AuthorID,
		letter.Content, letter.IsRead, letter.CreatedAt); err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	queryString = "UPDATE clipnest.chats SET updated_at = $1 WHERE chat_id = $2"
	if _, err = tx.Exec(transactionCtx, queryString, letter.CreatedAt, chatId); err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if err = utils.CommitTransaction(c, tx, transactionCtx); err != nil {
		return
	}

	utils.WriteAndLogResponse(c, letter, http.StatusCreated)
}

// GetLetter fetches a single letter. Fetching a partner's letter marks it as
// read.
func (handler *ChatHandler) GetLetter(c *gin.Context) {
	chatId, err := parseUUIDParam(c, utils.ChatIdKey)
	if err != nil {
		return
	}
	letterId, err := parseUUIDParam(c, utils.LetterIdKey)
	if err != nil {
		return
	}

	tx, transactionCtx, cancel := utils.BeginTransaction(c, handler.DatabaseManager.GetPool())
	if tx == nil || transactionCtx == nil {
		return
	}
	defer func() {
		utils.RollbackTransaction(c, tx, transactionCtx, cancel, err)
	}()

	currentUser := utils.GetCurrentUser(c)

	if _, err = loadChat(c, tx, transactionCtx, chatId, currentUser.ID); err != nil {
		return
	}

	letter, err := loadLetter(c, tx, transactionCtx, chatId, letterId)
	if err != nil {
		return
	}

	if letter.AuthorID != currentUser.ID && !letter.IsRead {
		queryString := "UPDATE clipnest.letters SET is_read = TRUE WHERE letter_id = $1"
		if _, err = tx.Exec(transactionCtx, queryString, letterId); err != nil {
			utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
			return
		}
		letter.IsRead = true
	}

	if err = utils.CommitTransaction(c, tx, transactionCtx); err != nil {
		return
	}

	utils.WriteAndLogResponse(c, letter, http.StatusOK)
}

// UpdateLetter updates the content of a letter. Only the author may do this.
func (handler *ChatHandler) UpdateLetter(c *gin.Context) {
	chatId, err := parseUUIDParam(c, utils.ChatIdKey)
	if err != nil {
		return
	}
	letterId, err := parseUUIDParam(c, utils.LetterIdKey)
	if err != nil {
		return
	}

	tx, transactionCtx, cancel := utils.BeginTransaction(c, handler.DatabaseManager.GetPool())
	if tx == nil || transactionCtx == nil {
		return
	}
	defer func() {
		utils.RollbackTransaction(c, tx, transactionCtx, cancel, err)
	}()

	updateRequest := c.MustGet(utils.SanitizedPayloadKey.String()).(*schemas.UpdateLetterRequest)
	currentUser := utils.GetCurrentUser(c)

	if _, err = loadChat(c, tx, transactionCtx, chatId, currentUser.ID); err != nil {
		return
	}

	letter, err := loadLetter(c, tx, transactionCtx, chatId, letterId)
	if err != nil {
		return
	}

	if letter.AuthorID != currentUser.ID {
		err = errors.New("letter belongs to another user")
		utils.WriteAndLogError(c, schemas.NotOwner, http.StatusForbidden, err)
		return
	}

	letter.Content = updateRequest.Content

	queryString := "UPDATE clipnest.letters SET content = $1 WHERE letter_id = $2"
	if _, err = tx.Exec(transactionCtx, queryString, letter.Content, letterId); err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if err = utils.CommitTransaction(c, tx, transactionCtx); err != nil {
		return
	}

	utils.WriteAndLogResponse(c, letter, http.StatusOK)
}

// DeleteLetter deletes a letter. Only the author may do this.
func (handler *ChatHandler) DeleteLetter(c *gin.Context) {
	chatId, err := parseUUIDParam(c, utils.ChatIdKey)
	if err != nil {
		return
	}
	letterId, err := parseUUIDParam(c, utils.LetterIdKey)
	if err != nil {
		return
	}

	tx, transactionCtx, cancel := utils.BeginTransaction(c, handler.DatabaseManager.GetPool())
	if tx == nil || transactionCtx == nil {
		return
	}
	defer func() {
		utils.RollbackTransaction(c, tx, transactionCtx, cancel, err)
	}()

	currentUser := utils.GetCurrentUser(c)

	if _, err = loadChat(c, tx, transactionCtx, chatId, currentUser.ID); err != nil {
		return
	}

	letter, err := loadLetter(c, tx, transactionCtx, chatId, letterId)
	if err != nil {
		return
	}

	if letter.AuthorID != currentUser.ID {
		err = errors.New("letter belongs to another user")
		utils.WriteAndLogError(c, schemas.NotOwner, http.StatusForbidden, err)
		return
	}

	queryString := "DELETE FROM clipnest.letters WHERE letter_id = $1"
	if _, err = tx.Exec(transactionCtx, queryString, letterId); err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if err = utils.CommitTransaction(c, tx, transactionCtx); err != nil {
		return
	}

	c.Status(http.StatusNoContent)
}

// MarkLetterRead marks a partner's letter as read. Marking an own letter is
// rejected.
func (handler *ChatHandler) MarkLetterRead(c *gin.Context) {
	chatId, err := parseUUIDParam(c, utils.ChatIdKey)
	if err != nil {
		return
	}
	letterId, err := parseUUIDParam(c, utils.LetterIdKey)
	if err != nil {
		return
	}

	tx, transactionCtx, cancel := utils.BeginTransaction(c, handler.DatabaseManager.GetPool())
	if tx == nil || transactionCtx == nil {
		return
	}
	defer func() {
		utils.RollbackTransaction(c, tx, transactionCtx, cancel, err)
	}()

	currentUser := utils.GetCurrentUser(c)

	if _, err = loadChat(c, tx, transactionCtx, chatId, currentUser.ID); err != nil {
		return
	}

	letter, err := loadLetter(c, tx, transactionCtx, chatId, letterId)
	if err != nil {
		return
	}

	if letter.AuthorID == currentUser.ID {
		err = errors.New("cannot mark own letter as read")
		utils.WriteAndLogError(c, schemas.OwnLetterRead, http.StatusConflict, err)
		return
	}

	if !letter.IsRead {
		queryString := "UPDATE clipnest.letters SET is_read = TRUE WHERE letter_id = $1"
		if _, err = tx.Exec(transactionCtx, queryString, letterId); err != nil {
			utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
			return
		}
		letter.IsRead = true
	}

	if err = utils.CommitTransaction(c, tx, transactionCtx); err != nil {
		return
	}

	utils.WriteAndLogResponse(c, letter, http.StatusOK)
}

// loadChat fetches a chat and checks that the given user participates in it.
func loadChat(c *gin.Context, tx pgx.Tx, ctx context.Context, chatId, userId uuid.UUID) (*schemas.Chat, error) {
	chat := &schemas.Chat{}
	queryString := "SELECT chat_id, user1_id, user2_id, created_at, updated_at FROM clipnest.chats WHERE chat_id = $1"
	row := tx.QueryRow(ctx, queryString, chatId)

	err := row.Scan(&chat.ID, &chat.User1ID, &chat.User2ID, &chat.CreatedAt, &chat.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			utils.WriteAndLogError(c, schemas.ChatNotFound, http.StatusNotFound, err)
			return nil, err
		}
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return nil, err
	}

	if chat.User1ID != userId && chat.User2ID != userId {
		err = errors.New("user is not a participant of the chat")
		utils.WriteAndLogError(c, schemas.NotParticipant, http.StatusForbidden, err)
		return nil, err
	}

	return chat, nil
}

// loadLetter fetches a letter scoped to its chat and writes a not found
// response if it is absent.
func loadLetter(c *gin.Context, tx pgx.Tx, ctx context.Context, chatId, letterId uuid.UUID) (*schemas.LetterDTO, error) {
	letter := &schemas.LetterDTO{}
	queryString := "SELECT letter_id, chat_id, author_id, content, is_read, created_at FROM clipnest.letters " +
		"WHERE letter_id = $1 AND chat_id = $2"
	row := tx.QueryRow(ctx, queryString, letterId, chatId)

	err := row.Scan(&letter.LetterID, &letter.ChatID, &letter.AuthorID, &letter.Content, &letter.IsRead, &letter.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			utils.WriteAndLogError(c, schemas.LetterNotFound, http.StatusNotFound, err)
			return nil, err
		}
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return nil, err
	}

	return letter, nil
}

// fetchAndMarkLetters marks the partner's unread letters as read and returns
// the chat's letters in chronological order.
func fetchAndMarkLetters(c *gin.Context, tx pgx.Tx, ctx context.Context, chatId, userId uuid.UUID) ([]schemas.LetterDTO, error) {
	queryString := "UPDATE clipnest.letters SET is_read = TRUE WHERE chat_id = $1 AND author_id <> $2 AND is_read = FALSE"
	if _, err := tx.Exec(ctx, queryString, chatId, userId); err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return nil, err
	}

	queryString = "SELECT letter_id, chat_id, author_id, content, is_read, created_at FROM clipnest.letters " +
		"WHERE chat_id = $1 ORDER BY created_at ASC"
	rows, err := tx.Query(ctx, queryString, chatId)
	if err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return nil, err
	}
	defer rows.Close()

	letters := make([]schemas.LetterDTO, 0)
	for rows.Next() {
		letter := schemas.LetterDTO{}
		if err = rows.Scan(&letter.LetterID, &letter.ChatID, &letter.AuthorID, &letter.Content,
			&letter.IsRead, &letter.CreatedAt); err != nil {
			utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
			return nil, err
		}
		letters = append(letters, letter)
	}

	return letters, nil
}
