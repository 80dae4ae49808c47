package handlers

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"clipnest/internal/managers"
	"clipnest/internal/schemas"
	"clipnest/internal/utils"
)

type UserHdl interface {
	RegisterUser(c *gin.Context)
	LoginUser(c *gin.Context)
	RefreshToken(c *gin.Context)
	Logout(c *gin.Context)
	LogoutAll(c *gin.Context)
	GetMe(c *gin.Context)
	SearchUsers(c *gin.Context)
	GetUser(c *gin.Context)
	GetWatchHistory(c *gin.Context)
}

type UserHandler struct {
	DatabaseManager managers.DatabaseMgr
	SessionManager  managers.SessionMgr
	MailManager     managers.MailMgr
	Validator       *utils.Validator
}

func NewUserHandler(databaseManager *managers.DatabaseMgr, sessionManager *managers.SessionMgr, mailManager *managers.MailMgr) UserHdl {
	return &UserHandler{
		DatabaseManager: *databaseManager,
		SessionManager:  *sessionManager,
		MailManager:     *mailManager,
		Validator:       utils.GetValidator(),
	}
}

// RegisterUser registers a new user and responds with the created user.
func (handler *UserHandler) RegisterUser(c *gin.Context) {
	tx, transactionCtx, cancel := utils.BeginTransaction(c, handler.DatabaseManager.GetPool())
	if tx == nil || transactionCtx == nil {
		return
	}
	var err error
	defer func() {
		utils.RollbackTransaction(c, tx, transactionCtx, cancel, err)
	}()

	registrationRequest := c.MustGet(utils.SanitizedPayloadKey.String()).(*schemas.RegistrationRequest)

	// Check if the username or email is taken
	if err = checkUsernameEmailTaken(c, tx, transactionCtx, registrationRequest.Username, registrationRequest.Email); err != nil {
		return
	}

	// Check if the email is reachable, only meaningful with real DNS around
	if os.Getenv("ENVIRONMENT") == "production" && !handler.Validator.VerifyEmail(registrationRequest.Email) {
		err = errors.New("email unreachable")
		utils.WriteAndLogError(c, schemas.EmailUnreachable, http.StatusBadRequest, err)
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(registrationRequest.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.WriteAndLogError(c, schemas.InternalServerError, http.StatusInternalServerError, err)
		return
	}

	userId := uuid.New()
	createdAt := time.Now()

	queryString := "INSERT INTO clipnest.users (user_id, email, username, password, is_active, created_at) VALUES ($1, $2, $3, $4, $5, $6)"
	if _, err = tx.Exec(transactionCtx, queryString, userId, registrationRequest.Email, registrationRequest.Username,
		hashedPassword, true, createdAt); err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if err = utils.CommitTransaction(c, tx, transactionCtx); err != nil {
		return
	}

	// Mail failures must not fail the registration
	if mailErr := handler.MailManager.SendWelcomeMail(registrationRequest.Email, registrationRequest.Username); mailErr != nil {
		utils.LogMessageWithFieldsAndError(c, "warn", "Error sending welcome mail", mailErr)
	}

	userDto := &schemas.UserDTO{
		UserID:    userId,
		Email:     registrationRequest.Email,
		Username:  registrationRequest.Username,
		CreatedAt: createdAt,
	}

	utils.WriteAndLogResponse(c, userDto, http.StatusCreated)
}

// LoginUser checks the given credentials and responds with a fresh token pair.
func (handler *UserHandler) LoginUser(c *gin.Context) {
	tx, transactionCtx, cancel := utils.BeginTransaction(c, handler.DatabaseManager.GetPool())
	if tx == nil || transactionCtx == nil {
		return
	}
	var err error
	defer func() {
		utils.RollbackTransaction(c, tx, transactionCtx, cancel, err)
	}()

	loginRequest := c.MustGet(utils.SanitizedPayloadKey.String()).(*schemas.LoginRequest)

	user, err := handler.SessionManager.Authenticate(transactionCtx, tx, loginRequest.Email, loginRequest.Password)
	if err != nil {
		switch {
		case errors.Is(err, managers.ErrInvalidCredentials):
			utils.WriteAndLogError(c, schemas.InvalidCredentials, http.StatusUnauthorized, err)
		case errors.Is(err, managers.ErrAccountDeactivated):
			utils.WriteAndLogError(c, schemas.AccountDeactivated, http.StatusForbidden, err)
		default:
			utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		}
		return
	}

	tokenPair, err := handler.SessionManager.IssueTokenPair(transactionCtx, tx, user.ID)
	if err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if err = utils.CommitTransaction(c, tx, transactionCtx); err != nil {
		return
	}

	utils.WriteAndLogResponse(c, tokenPair, http.StatusOK)
}

// RefreshToken exchanges a refresh token for a fresh token pair.
func (handler *UserHandler) RefreshToken(c *gin.Context) {
	tx, transactionCtx, cancel := utils.BeginTransaction(c, handler.DatabaseManager.GetPool())
	if tx == nil || transactionCtx == nil {
		return
	}
	var err error
	defer func() {
		utils.RollbackTransaction(c, tx, transactionCtx, cancel, err)
	}()

	refreshRequest := c.MustGet(utils.SanitizedPayloadKey.String()).(*schemas.RefreshTokenRequest)

	tokenPair, err := handler.SessionManager.RotateOnRefresh(transactionCtx, tx, refreshRequest.RefreshToken)
	if err != nil {
		if errors.Is(err, managers.ErrInvalidToken) {
			c.Header("WWW-Authenticate", `Bearer error="invalid_token"`)
			utils.WriteAndLogError(c, schemas.InvalidToken, http.StatusUnauthorized, err)
			return
		}
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if err = utils.CommitTransaction(c, tx, transactionCtx); err != nil {
		return
	}

	utils.WriteAndLogResponse(c, tokenPair, http.StatusOK)
}

// Logout revokes the presented refresh token. Unknown tokens are not an
// error, logout always succeeds.
func (handler *UserHandler) Logout(c *gin.Context) {
	tx, transactionCtx, cancel := utils.BeginTransaction(c, handler.DatabaseManager.GetPool())
	if tx == nil || transactionCtx == nil {
		return
	}
	var err error
	defer func() {
		utils.RollbackTransaction(c, tx, transactionCtx, cancel, err)
	}()

	refreshRequest := c.MustGet(utils.SanitizedPayloadKey.String()).(*schemas.RefreshTokenRequest)

	if err = handler.SessionManager.Revoke(transactionCtx, tx, refreshRequest.RefreshToken); err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if err = utils.CommitTransaction(c, tx, transactionCtx); err != nil {
		return
	}

	utils.WriteAndLogResponse(c, &schemas.MessageDTO{Message: "logged out"}, http.StatusOK)
}

// LogoutAll revokes every outstanding token of the authenticated user.
func (handler *UserHandler) LogoutAll(c *gin.Context) {
	tx, transactionCtx, cancel := utils.BeginTransaction(c, handler.DatabaseManager.GetPool())
	if tx == nil || transactionCtx == nil {
		return
	}
	var err error
	defer func() {
		utils.RollbackTransaction(c, tx, transactionCtx, cancel, err)
	}()

	user := utils.GetCurrentUser(c)

	if err = handler.SessionManager.RevokeAll(transactionCtx, tx, user.ID); err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if err = utils.CommitTransaction(c, tx, transactionCtx); err != nil {
		return
	}

	utils.WriteAndLogResponse(c, &schemas.MessageDTO{Message: "logged out everywhere"}, http.StatusOK)
}

// GetMe responds with the authenticated user.
func (handler *UserHandler) GetMe(c *gin.Context) {
	user := utils.GetCurrentUser(c)

	userDto := &schemas.UserDTO{
		UserID:    user.ID,
		Email:     user.Email,
		Username:  user.Username,
		CreatedAt: user.CreatedAt,
	}

	utils.WriteAndLogResponse(c, userDto, http.StatusOK)
}

// SearchUsers lists users, optionally filtered by a username substring.
func (handler *UserHandler) SearchUsers(c *gin.Context) {
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

	queryString := "SELECT user_id, email, username, created_at FROM clipnest.users WHERE $1 = '' OR username ILIKE '%' || $1 || '%' ORDER BY username"
	rows, err := tx.Query(transactionCtx, queryString, query)
	if err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	users := make([]schemas.UserDTO, 0)
	for rows.Next() {
		user := schemas.UserDTO{}
		if err = rows.Scan(&user.UserID, &user.Email, &user.Username, &user.CreatedAt); err != nil {
			utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
			return
		}
		users = append(users, user)
	}
	rows.Close()

	if err = utils.CommitTransaction(c, tx, transactionCtx); err != nil {
		return
	}

	utils.SendPaginatedResponse(c, users, offset, limit, len(users))
}

// GetUser fetches a single user by id.
func (handler *UserHandler) GetUser(c *gin.Context) {
	userId, err := parseUUIDParam(c, utils.UserIdKey)
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

	user := &schemas.UserDTO{}
	queryString := "SELECT user_id, email, username, created_at FROM clipnest.users WHERE user_id = $1"
	row := tx.QueryRow(transactionCtx, queryString, userId)
	if err = row.Scan(&user.UserID, &user.Email, &user.Username, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			utils.WriteAndLogError(c, schemas.UserNotFound, http.StatusNotFound, err)
			return
		}
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	if err = utils.CommitTransaction(c, tx, transactionCtx); err != nil {
		return
	}

	utils.WriteAndLogResponse(c, user, http.StatusOK)
}

// GetWatchHistory lists the watch history of the given user. Users can only
// see their own history.
func (handler *UserHandler) GetWatchHistory(c *gin.Context) {
	userId, err := parseUUIDParam(c, utils.UserIdKey)
	if err != nil {
		return
	}

	currentUser := utils.GetCurrentUser(c)
	if currentUser.ID != userId {
		utils.WriteAndLogError(c, schemas.NotOwner, http.StatusForbidden, errors.New("watch history belongs to another user"))
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

	queryString := "SELECT w.video_id, v.title, v.thumbnail_url, w.watch_duration, w.completed, w.watched_at " +
		"FROM clipnest.watch_history w JOIN clipnest.videos v ON w.video_id = v.video_id " +
		"WHERE w.user_id = $1 ORDER BY w.watched_at DESC"
	rows, err := tx.Query(transactionCtx, queryString, userId)
	if err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return
	}

	history := make([]schemas.WatchHistoryDTO, 0)
	for rows.Next() {
		entry := schemas.WatchHistoryDTO{}
		if err = rows.Scan(&entry.VideoID, &entry.Title, &entry.ThumbnailURL, &entry.WatchDuration,
			&entry.Completed, &entry.WatchedAt); err != nil {
			utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
			return
		}
		history = append(history, entry)
	}
	rows.Close()

	if err = utils.CommitTransaction(c, tx, transactionCtx); err != nil {
		return
	}

	utils.SendPaginatedResponse(c, history, offset, limit, len(history))
}

// checkUsernameEmailTaken checks if the given username or email is already
// registered and writes a conflict response if so.
func checkUsernameEmailTaken(c *gin.Context, tx pgx.Tx, ctx context.Context, username, email string) error {
	queryString := "SELECT username, email FROM clipnest.users WHERE username = $1 OR email = $2"
	rows, err := tx.Query(ctx, queryString, username, email)
	if err != nil {
		utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var foundUsername, foundEmail string
		if err := rows.Scan(&foundUsername, &foundEmail); err != nil {
			utils.WriteAndLogError(c, schemas.DatabaseError, http.StatusInternalServerError, err)
			return err
		}

		if foundUsername == username {
			err = errors.New("username taken")
			utils.WriteAndLogError(c, schemas.UsernameTaken, http.StatusConflict, err)
			return err
		}

		err = errors.New("email taken")
		utils.WriteAndLogError(c, schemas.EmailTaken, http.StatusConflict, err)
		return err
	}

	return nil
}
