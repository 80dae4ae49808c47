package handlers

import (
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

type VideoHdl interface {
	ImportVideo(c *gin.Context)
	UploadVideo(c *gin.Context)
	ListVideos(c *gin.Context)
	GetVideo(c *gin.Context)
	UpdateVideo(c *gin.Context)
	DeleteVideo(c *gin.Context)
	TrackWatch(c *gin.Context)
}

type VideoHandler struct {
	DatabaseManager managers.DatabaseMgr
}

func NewVideoHandler(databaseManager *managers.DatabaseMgr) VideoHdl {
	return &VideoHandler{
		DatabaseManager: *databaseManager,
	}
}

// sortColumns maps the accepted sortBy query values to table columns.
// Anything else falls back to created_at.
var sortColumns = map[string]string{
	"created_at":  "created_at",
	"views_count": "views_count",
	"title":       "title",
}

// ImportVideo registers a video by its external URL.
func (handler *VideoHandler) ImportVideo(c *gin.Context) {
	handler.createVideo(c)
}

// UploadVideo registers an uploaded video. Only the metadata is handled here,
// the actual file transfer happens out of band.
func (handler *VideoHandler) UploadVideo(c *gin.Context) {
	handler.createVideo(c)
}

func (handler *VideoHandler) createVideo(c *gin.Context) {
	tx, transactionCtx, cancel := utils.BeginTransaction(c, handler.DatabaseManager.GetPool())
	if tx == nil || transactionCtx == nil {
		return
	}
	var err error
	defer func() {
		utils.RollbackTransaction(c, tx, transactionCtx, cancel, err)
	}()

	createRequest := c.MustGet(utils.SanitizedPayloadKey.String()).(*schemas.CreateVideoRequest)
	currentUser := utils.GetCurrentUser(c)

	videoId := uuid.New()
	now := time.Now()

	queryString := "INSERT INTO clipnest.videos (video_id, title, description, video_url, thumbnail_url, duration, " +
		"author_id, views_count, likes_count, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)"
	if _, err = tx.Exec(transactionCtx, queryString, videoId, createRequest.Title, createRequest.Description,
		createRequest.VideoURL, createRequest.ThumbnailURL, createRequest.Duration, currentUser.ID, 0, 0, now, now); err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if err = utils.CommitTransaction(c, tx, transactionCtx); err != nil {
		return
	}

	videoDto := &schemas.VideoDTO{
		VideoID:      videoId,
		Title:        createRequest.Title,
		Description:  createRequest.Description,
		VideoURL:     createRequest.VideoURL,
		ThumbnailURL: createRequest.ThumbnailURL,
		Duration:     createRequest.Duration,
		AuthorID:     currentUser.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	utils.WriteAndLogResponse(c, videoDto, http.StatusCreated)
}

// ListVideos lists videos with optional search, sorting and pagination.
func (handler *VideoHandler) ListVideos(c *gin.Context) {
	tx, transactionCtx, cancel := utils.BeginTransaction(c, handler.DatabaseManager.GetPool())
	if tx == nil || transactionCtx == nil {
		return
	}
	var err error
	defer func() {
		utils.RollbackTransaction(c, tx, transactionCtx, cancel, err)
	}()

	offset, limit := utils.ParsePaginationParams(c)
	query := c.Query(utils.QueryParamKey)

	sortColumn, ok := sortColumns[c.DefaultQuery(utils.SortByParamKey, "created_at")]
	if !ok {
		sortColumn = "created_at"
	}
	direction := "DESC"
	if c.DefaultQuery(utils.OrderParamKey, "desc") == "asc" {
		direction = "ASC"
	}

	queryString := "SELECT video_id, title, description, video_url, thumbnail_url, duration, author_id, views_count, " +
		"likes_count, created_at, updated_at FROM clipnest.videos WHERE $1 = '' OR title ILIKE '%' || $1 || '%' " +
		"ORDER BY " + sortColumn + " " + direction
	rows, err := tx.Query(transactionCtx, queryString, query)
	if err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	videos := make([]schemas.VideoDTO, 0)
	for rows.Next() {
		video := schemas.VideoDTO{}
		if err = rows.Scan(&video.VideoID, &video.Title, &video.Description, &video.VideoURL, &video.ThumbnailURL,
			&video.Duration, &video.AuthorID, &video.ViewsCount, &video.LikesCount, &video.CreatedAt, &video.UpdatedAt); err != nil {
			utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
			return
		}
		videos = append(videos, video)
	}
	rows.Close()

	if err = utils.CommitTransaction(c, tx, transactionCtx); err != nil {
		return
	}

	utils.SendPaginatedResponse(c, videos, offset, limit, len(videos))
}

// GetVideo fetches a single video and counts the view.
func (handler *VideoHandler) GetVideo(c *gin.Context) {
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

	video := &schemas.VideoDTO{}
	queryString := "UPDATE clipnest.videos SET views_count = views_count + 1 WHERE video_id = $1 " +
		"RETURNING video_id, title, description, video_url, thumbnail_url, duration, author_id, views_count, " +
		"likes_count, created_at, updated_at"
	row := tx.QueryRow(transactionCtx, queryString, videoId)
	if err = row.Scan(&video.VideoID, &video.Title, &video.Description, &video.VideoURL, &video.ThumbnailURL,
		&video.Duration, &video.AuthorID, &video.ViewsCount, &video.LikesCount, &video.CreatedAt, &video.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			utils.WriteAndLogError(c, schemas.VideoNotFound, http.StatusNotFound, err)
			return
		}
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if err = utils.CommitTransaction(c, tx, transactionCtx); err != nil {
		return
	}

	utils.WriteAndLogResponse(c, video, http.StatusOK)
}

// UpdateVideo updates the mutable fields of a video. Only the author may do
// this.
func (handler *VideoHandler) UpdateVideo(c *gin.Context) {
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

	updateRequest := c.MustGet(utils.SanitizedPayloadKey.String()).(*schemas.UpdateVideoRequest)
	currentUser := utils.GetCurrentUser(c)

	video := &schemas.VideoDTO{}
	queryString := "SELECT video_id, title, description, video_url, thumbnail_url, duration, author_id, views_count, " +
		"likes_count, created_at, updated_at FROM clipnest.videos WHERE video_id = $1"
	row := tx.QueryRow(transactionCtx, queryString, videoId)
	if err = row.Scan(&video.VideoID, &video.Title, &video.Description, &video.VideoURL, &video.ThumbnailURL,
		&video.Duration, &video.AuthorID, &video.ViewsCount, &video.LikesCount, &video.CreatedAt, &video.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			utils.WriteAndLogError(c, schemas.VideoNotFound, http.StatusNotFound, err)
			return
		}
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if video.AuthorID != currentUser.ID {
		err = errors.New("video belongs to another user")
		utils.WriteAndLogError(c, schemas.NotOwner, http.StatusForbidden, err)
		return
	}

	if updateRequest.Title != nil {
		video.Title = *updateRequest.Title
	}
	if updateRequest.Description != nil {
		video.Description = *updateRequest.Description
	}
	if updateRequest.ThumbnailURL != nil {
		video.ThumbnailURL = *updateRequest.ThumbnailURL
	}
	video.UpdatedAt = time.Now()

	queryString = "UPDATE clipnest.videos SET title = $1, description = $2, thumbnail_url = $3, updated_at = $4 WHERE video_id = $5"
	if _, err = tx.Exec(transactionCtx, queryString, video.Title, video.Description, video.ThumbnailURL,
		video.UpdatedAt, videoId); err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if err = utils.CommitTransaction(c, tx, transactionCtx); err != nil {
		return
	}

	utils.WriteAndLogResponse(c, video, http.StatusOK)
}

// DeleteVideo deletes a video together with its comments and watch history.
// Only the author may do this.
func (handler *VideoHandler) DeleteVideo(c *gin.Context) {
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

	currentUser := utils.GetCurrentUser(c)

	var authorId uuid.UUID
	queryString := "SELECT author_id FROM clipnest.videos WHERE video_id = $1"
	if err = tx.QueryRow(transactionCtx, queryString, videoId).Scan(&authorId); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			utils.WriteAndLogError(c, schemas.VideoNotFound, http.StatusNotFound, err)
			return
		}
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if authorId != currentUser.ID {
		err = errors.New("video belongs to another user")
		utils.WriteAndLogError(c, schemas.NotOwner, http.StatusForbidden, err)
		return
	}

	queryString = "DELETE FROM clipnest.comments WHERE video_id = $1"
	if _, err = tx.Exec(transactionCtx, queryString, videoId); err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	queryString = "DELETE FROM clipnest.watch_history WHERE video_id = $1"
	if _, err = tx.Exec(transactionCtx, queryString, videoId); err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	queryString = "DELETE FROM clipnest.videos WHERE video_id = $1"
	if _, err = tx.Exec(transactionCtx, queryString, videoId); err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if err = utils.CommitTransaction(c, tx, transactionCtx); err != nil {
		return
	}

	c.Status(http.StatusNoContent)
}

// TrackWatch records or updates the watch history entry of the authenticated
// user for the given video.
func (handler *VideoHandler) TrackWatch(c *gin.Context) {
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

	trackRequest := c.MustGet(utils.SanitizedPayloadKey.String()).(*schemas.TrackWatchRequest)
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

	queryString = "INSERT INTO clipnest.watch_history (history_id, user_id, video_id, watch_duration, completed, watched_at) " +
		"VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (user_id, video_id) DO UPDATE SET " +
		"watch_duration = EXCLUDED.watch_duration, completed = EXCLUDED.completed, watched_at = EXCLUDED.watched_at"
	if _, err = tx.Exec(transactionCtx, queryString, uuid.New(), currentUser.ID, videoId,
		trackRequest.WatchDuration, trackRequest.Completed, time.Now()); err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if err = utils.CommitTransaction(c, tx, transactionCtx); err != nil {
		return
	}

	utils.WriteAndLogResponse(c, &schemas.MessageDTO{Message: "watch recorded"}, http.StatusOK)
}
