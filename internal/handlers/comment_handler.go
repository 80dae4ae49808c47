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

type CommentHdl interface {
	CreateComment(c *gin.Context)
	ListComments(c *gin.Context)
	UpdateComment(c *gin.Context)
	DeleteComment(c *gin.Context)
}

type CommentHandler struct {
	DatabaseManager managers.DatabaseMgr
}

func NewCommentHandler(databaseManager *managers.DatabaseMgr) CommentHdl {
	return &CommentHandler{
		DatabaseManager: *databaseManager,
	}
}

// CreateComment adds a comment to a video.
func (handler *CommentHandler) CreateComment(c *gin.Context) {
	videoId, err := parseUUIDParam(c, utils.VideoIdKey)
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

	createRequest := c.MustGet(utils.SanitizedPayloadKey.String()).(*schemas.CreateCommentRequest)
	currentUser := utils.GetCurrentUser(c)

	var exists bool
	queryString := "SELECT EXISTS(SELECT 1 FROM clipnest.videos WHERE video_id = $1)"
	if err = tx.QueryRow(transactionCtx, queryString, videoId).Scan(&exists); err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}
	if !exists {
		err = errors.New("video not found")
		utils.WriteAndLogError(c, schemas.VideoNotFound, http.StatusNotFound, err)
		return
	}

	commentId := uuid.New()
	now := time.Now()

	queryString = "INSERT INTO clipnest.comments (comment_id, video_id, author_id, content, created_at, updated_at) " +
		"VALUES ($1, $2, $3, $4, $5, $6)"
	if _, err = tx.Exec(transactionCtx, queryString, commentId, videoId, currentUser.ID,
		createRequest.Content, now, now); err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if err = utils.CommitTransaction(c, tx, transactionCtx); err != nil {
		return
	}

	commentDto := &schemas.CommentDTO{
		CommentID: commentId,
		VideoID:   videoId,
		AuthorID:  currentUser.ID,
		Content:   createRequest.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	utils.WriteAndLogResponse(c, commentDto, http.StatusCreated)
}

// ListComments lists the comments of a video, newest first.
func (handler *CommentHandler) ListComments(c *gin.Context) {
	videoId, err := parseUUIDParam(c, utils.VideoIdKey)
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

	var exists bool
	queryString := "SELECT EXISTS(SELECT 1 FROM clipnest.videos WHERE video_id = $1)"
	if err = tx.QueryRow(transactionCtx, queryString, videoId).Scan(&exists); err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}
	if !exists {
		err = errors.New("video not found")
		utils.WriteAndLogError(c, schemas.VideoNotFound, http.StatusNotFound, err)
		return
	}

	queryString = "SELECT comment_id, video_id, author_id, content, created_at, updated_at FROM clipnest.comments " +
		"WHERE video_id = $1 ORDER BY created_at DESC"
	rows, err := tx.Query(transactionCtx, queryString, videoId)
	if err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	comments := make([]schemas.CommentDTO, 0)
	for rows.Next() {
		comment := schemas.CommentDTO{}
		if err = rows.Scan(&comment.CommentID, &comment.VideoID, &comment.AuthorID, &comment.Content,
			&comment.CreatedAt, &comment.UpdatedAt); err != nil {
			utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
			return
		}
		comments = append(comments, comment)
	}
	rows.Close()

	if err = utils.CommitTransaction(c, tx, transactionCtx); err != nil {
		return
	}

	utils.SendPaginatedResponse(c, comments, offset, limit, len(comments))
}

// UpdateComment updates the content of a comment. Only the author may do
// this.
func (handler *CommentHandler) UpdateComment(c *gin.Context) {
	videoId, err := parseUUIDParam(c, utils.VideoIdKey)
	if err != nil {
		return
	}
	commentId, err := parseUUIDParam(c, utils.CommentIdKey)
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

	updateRequest := c.MustGet(utils.SanitizedPayloadKey.String()).(*schemas.UpdateCommentRequest)
	currentUser := utils.GetCurrentUser(c)

	comment, err := loadComment(c, tx, transactionCtx, videoId, commentId)
	if err != nil {
		return
	}

	if comment.AuthorID != currentUser.ID {
		err = errors.New("comment belongs to another user")
		utils.WriteAndLogError(c, schemas.NotOwner, http.StatusForbidden, err)
		return
	}

	comment.Content = updateRequest.Content
	comment.UpdatedAt = time.Now()

	queryString := "UPDATE clipnest.comments SET content = $1, updated_at = $2 WHERE comment_id = $3"
	if _, err = tx.Exec(transactionCtx, queryString, comment.Content, comment.UpdatedAt, commentId); err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if err = utils.CommitTransaction(c, tx, transactionCtx); err != nil {
		return
	}

	utils.WriteAndLogResponse(c, comment, http.StatusOK)
}

// DeleteComment deletes a comment. Only the author may do this.
func (handler *CommentHandler) DeleteComment(c *gin.Context) {
	videoId, err := parseUUIDParam(c, utils.VideoIdKey)
	if err != nil {
		return
	}
	commentId, err := parseUUIDParam(c, utils.CommentIdKey)
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

	comment, err := loadComment(c, tx, transactionCtx, videoId, commentId)
	if err != nil {
		return
	}

	if comment.AuthorID != currentUser.ID {
		err = errors.New("comment belongs to another user")
		utils.WriteAndLogError(c, schemas.NotOwner, http.StatusForbidden, err)
		return
	}

	queryString := "DELETE FROM clipnest.comments WHERE comment_id = $1"
	if _, err = tx.Exec(transactionCtx, queryString, commentId); err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if err = utils.CommitTransaction(c, tx, transactionCtx); err != nil {
		return
	}

	c.Status(http.StatusNoContent)
}

// loadComment fetches a comment scoped to its video and writes a not found
// response if it is absent.
func loadComment(c *gin.Context, tx pgx.Tx, ctx context.Context, videoId, commentId uuid.UUID) (*schemas.CommentDTO, error) {
	comment := &schemas.CommentDTO{}
	queryString := "SELECT comment_id, video_id, author_id, content, created_at, updated_at FROM clipnest.comments " +
		"WHERE comment_id = $1 AND video_id = $2"
	row := tx.QueryRow(ctx, queryString, commentId, videoId)

	err := row.Scan(&comment.CommentID, &comment.VideoID, &comment.AuthorID, &comment.Content,
		&comment.CreatedAt, &comment.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			utils.WriteAndLogError(c, schemas.CommentNotFound, http.StatusNotFound, err)
			return nil, err
		}
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return nil, err
	}

	return comment, nil
}
