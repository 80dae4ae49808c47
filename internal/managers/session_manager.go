package managers

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"clipnest/internal/interfaces"
	"clipnest/internal/metrics"
	"clipnest/internal/schemas"
	"clipnest/internal/utils"
)

// ErrInvalidCredentials is returned on login when the email is unknown or the
// password does not match. Both cases map to the same error so the response
// does not reveal which part was wrong.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrInvalidToken is returned when a presented token is unknown, revoked,
// expired or fails signature verification.
var ErrInvalidToken = errors.New("token is invalid, expired or revoked")

// ErrAccountDeactivated is returned on login for deactivated accounts.
var ErrAccountDeactivated = errors.New("account is deactivated")

// SessionMgr manages credential checks and the server-side token ledger.
// Every token the server hands out is persisted, so possession of a validly
// signed token is not enough, it also has to be present and unrevoked in the
// ledger.
type SessionMgr interface {
	Authenticate(ctx context.Context, q interfaces.Querier, email, password string) (*schemas.User, error)
	IssueTokenPair(ctx context.Context, q interfaces.Querier, userID uuid.UUID) (*schemas.TokenPairDTO, error)
	ValidateAccess(ctx context.Context, rawToken string) (*schemas.User, error)
	RotateOnRefresh(ctx context.Context, q interfaces.Querier, rawToken string) (*schemas.TokenPairDTO, error)
	Revoke(ctx context.Context, q interfaces.Querier, rawToken string) error
	RevokeAll(ctx context.Context, q interfaces.Querier, userID uuid.UUID) error
	AuthMiddleware() gin.HandlerFunc
}

// SessionManager implements SessionMgr with EdDSA-signed JWTs.
type SessionManager struct {
	databaseMgr DatabaseMgr
	privateKey  ed25519.PrivateKey
	publicKey   ed25519.PublicKey
	accessTTL   time.Duration
	refreshTTL  time.Duration
}

// NewSessionManager creates a SessionManager with the given key pair and
// token lifetimes.
func NewSessionManager(databaseMgr DatabaseMgr, privateKey ed25519.PrivateKey, publicKey ed25519.PublicKey,
	accessTTL, refreshTTL time.Duration) SessionMgr {
	return &SessionManager{
		databaseMgr: databaseMgr,
		privateKey:  privateKey,
		publicKey:   publicKey,
		accessTTL:   accessTTL,
		refreshTTL:  refreshTTL,
	}
}

// NewSessionManagerFromEnv creates a SessionManager configured from the
// environment. The key pair is loaded from KEY_PAIR_PATH, or generated and
// saved there on first start.
func NewSessionManagerFromEnv(databaseMgr DatabaseMgr) (SessionMgr, error) {
	path := os.Getenv("KEY_PAIR_PATH")

	privateKey, publicKey, err := loadKeyPair(path)
	if err != nil {
		// No key yet for initial setup, generate a new key pair
		privateKey, publicKey, err = generateKeyPair(path)
		if err != nil {
			return nil, err
		}
	}

	accessTTL := parseDurationEnv("ACCESS_TOKEN_TTL", 30*time.Minute)
	refreshTTL := parseDurationEnv("REFRESH_TOKEN_TTL", 7*24*time.Hour)

	return NewSessionManager(databaseMgr, privateKey, publicKey, accessTTL, refreshTTL), nil
}

func parseDurationEnv(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		utils.LogMessage("warn", "Invalid duration in "+key+", using default")
		return fallback
	}

	return duration
}

// Authenticate checks the given credentials against the users table. Unknown
// emails and wrong passwords both return ErrInvalidCredentials.
func (sm *SessionManager) Authenticate(ctx context.Context, q interfaces.Querier, email, password string) (*schemas.User, error) {
	user := &schemas.User{}
	queryString := "SELECT user_id, email, username, password, is_active, created_at FROM clipnest.users WHERE email = $1"
	row := q.QueryRow(ctx, queryString, email)

	err := row.Scan(&user.ID, &user.Email, &user.Username, &user.Password, &user.IsActive, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrAccountDeactivated
	}

	return user, nil
}

// IssueTokenPair mints an access and a refresh token for the given user and
// persists both in the token ledger.
func (sm *SessionManager) IssueTokenPair(ctx context.Context, q interfaces.Querier, userID uuid.UUID) (*schemas.TokenPairDTO, error) {
	now := time.Now()

	accessToken, err := sm.mintToken(ctx, q, userID, schemas.TokenKindAccess, now, now.Add(sm.accessTTL))
	if err != nil {
		return nil, err
	}

	refreshToken, err := sm.mintToken(ctx, q, userID, schemas.TokenKindRefresh, now, now.Add(sm.refreshTTL))
	if err != nil {
		return nil, err
	}

	metrics.SessionsIssuedTotal.Inc()

	return &schemas.TokenPairDTO{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "bearer",
	}, nil
}

func (sm *SessionManager) mintToken(ctx context.Context, q interfaces.Querier, userID uuid.UUID,
	kind schemas.TokenKind, issuedAt, expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"iss":  "clipnest",
		"sub":  userID.String(),
		"iat":  issuedAt.Unix(),
		"exp":  expiresAt.Unix(),
		"kind": string(kind),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(sm.privateKey)
	if err != nil {
		return "", err
	}

	queryString := "INSERT INTO clipnest.tokens (token_id, token, kind, user_id, expires_at, created_at) VALUES ($1, $2, $3, $4, $5, $6)"
	if _, err := q.Exec(ctx, queryString, uuid.New(), signed, string(kind), userID, expiresAt, issuedAt); err != nil {
		return "", err
	}

	return signed, nil
}

// ValidateAccess resolves a raw access token to its user. The ledger is
// consulted first, so tokens that were never issued by this server or were
// revoked fail before any signature work happens.
func (sm *SessionManager) ValidateAccess(ctx context.Context, rawToken string) (*schemas.User, error) {
	pool := sm.databaseMgr.GetPool()

	var kind schemas.TokenKind
	var revoked bool
	queryString := "SELECT kind, revoked FROM clipnest.tokens WHERE token = $1"
	if err := pool.QueryRow(ctx, queryString, rawToken).Scan(&kind, &revoked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	if revoked {
		return nil, ErrInvalidToken
	}

	claims, err := sm.validateJWT(rawToken)
	if err != nil {
		return nil, ErrInvalidToken
	}

	if kind != schemas.TokenKindAccess || claims["kind"] != string(schemas.TokenKindAccess) {
		return nil, ErrInvalidToken
	}

	subject, _ := claims["sub"].(string)
	userID, err := uuid.Parse(subject)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user := &schemas.User{}
	queryString = "SELECT user_id, email, username, password, is_active, created_at FROM clipnest.users WHERE user_id = $1"
	row := pool.QueryRow(ctx, queryString, userID)
	if err := row.Scan(&user.ID, &user.Email, &user.Username, &user.Password, &user.IsActive, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	return user, nil
}

// RotateOnRefresh exchanges a valid refresh token for a fresh token pair.
// All outstanding access tokens of the user are revoked first, then the new
// pair is minted and the presented refresh token is revoked. Tokens whose
// stored expiry has passed are marked revoked on sight.
func (sm *SessionManager) RotateOnRefresh(ctx context.Context, q interfaces.Querier, rawToken string) (*schemas.TokenPairDTO, error) {
	var tokenID, userID uuid.UUID
	var expiresAt time.Time
	var revoked bool

	queryString := "SELECT token_id, user_id, expires_at, revoked FROM clipnest.tokens WHERE token = $1 AND kind = 'refresh'"
	err := q.QueryRow(ctx, queryString, rawToken).Scan(&tokenID, &userID, &expiresAt, &revoked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	if revoked {
		return nil, ErrInvalidToken
	}

	if expiresAt.Before(time.Now()) {
		queryString = "UPDATE clipnest.tokens SET revoked = TRUE WHERE token_id = $1"
		if _, err := q.Exec(ctx, queryString, tokenID); err != nil {
			return nil, err
		}
		metrics.TokensRevokedTotal.Inc()
		return nil, ErrInvalidToken
	}

	if _, err := sm.validateJWT(rawToken); err != nil {
		return nil, ErrInvalidToken
	}

	queryString = "UPDATE clipnest.tokens SET revoked = TRUE WHERE user_id = $1 AND kind = 'access' AND revoked = FALSE"
	commandTag, err := q.Exec(ctx, queryString, userID)
	if err != nil {
		return nil, err
	}
	metrics.TokensRevokedTotal.Add(float64(commandTag.RowsAffected()))

	tokenPair, err := sm.IssueTokenPair(ctx, q, userID)
	if err != nil {
		return nil, err
	}

	queryString = "UPDATE clipnest.tokens SET revoked = TRUE WHERE token_id = $1"
	if _, err := q.Exec(ctx, queryString, tokenID); err != nil {
		return nil, err
	}
	metrics.TokensRevokedTotal.Inc()

	return tokenPair, nil
}

// Revoke marks the given token as revoked. Unknown or already revoked tokens
// are a no-op.
func (sm *SessionManager) Revoke(ctx context.Context, q interfaces.Querier, rawToken string) error {
	queryString := "UPDATE clipnest.tokens SET revoked = TRUE WHERE token = $1 AND revoked = FALSE"
	commandTag, err := q.Exec(ctx, queryString, rawToken)
	if err != nil {
		return err
	}

	metrics.TokensRevokedTotal.Add(float64(commandTag.RowsAffected()))
	return nil
}

// RevokeAll revokes every outstanding token of the given user, access and
// refresh alike.
func (sm *SessionManager) RevokeAll(ctx context.Context, q interfaces.Querier, userID uuid.UUID) error {
	queryString := "UPDATE clipnest.tokens SET revoked = TRUE WHERE user_id = $1 AND revoked = FALSE"
	commandTag, err := q.Exec(ctx, queryString, userID)
	if err != nil {
		return err
	}

	metrics.TokensRevokedTotal.Add(float64(commandTag.RowsAffected()))
	return nil
}

// AuthMiddleware guards routes that require an authenticated user. On success
// the resolved user is stored in the request context.
func (sm *SessionManager) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			c.Header("WWW-Authenticate", "Bearer")
			c.AbortWithStatusJSON(http.StatusUnauthorized, &schemas.ErrorDTO{Error: *schemas.Unauthorized})
			return
		}

		rawToken := strings.TrimPrefix(header, "Bearer ")
		user, err := sm.ValidateAccess(c.Request.Context(), rawToken)
		if err != nil {
			utils.LogMessageWithFieldsAndError(c, "info", "Rejecting access token", err)
			c.Header("WWW-Authenticate", `Bearer error="invalid_token"`)
			c.AbortWithStatusJSON(http.StatusUnauthorized, &schemas.ErrorDTO{Error: *schemas.Unauthorized})
			return
		}

		c.Set(utils.CurrentUserKey.String(), user)
		c.Next()
	}
}

func (sm *SessionManager) validateJWT(rawToken string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(rawToken, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodEdDSA.Alg() {
			return nil, fmt.Errorf("invalid signing method")
		}

		return sm.publicKey, nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, jwt.ErrSignatureInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, jwt.ErrTokenInvalidClaims
	}

	return claims, nil
}

// generateKeyPair generates a new key pair and saves it to a file.
func generateKeyPair(path string) (ed25519.PrivateKey, ed25519.PublicKey, error) {
	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, err
	}

	if err := saveKeyPair(privateKey, publicKey, path); err != nil {
		return nil, nil, err
	}

	return privateKey, publicKey, nil
}

// saveKeyPair saves the key pair to the specified file.
func saveKeyPair(privateKey ed25519.PrivateKey, publicKey ed25519.PublicKey, path string) error {
	keyPairBytes := append(privateKey, publicKey...)
	return os.WriteFile(path, keyPairBytes, 0644)
}

// loadKeyPair loads the key pair from the specified file.
func loadKeyPair(path string) (ed25519.PrivateKey, ed25519.PublicKey, error) {
	keyPairBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	// The key pair is the concatenation of private and public keys
	if len(keyPairBytes) != ed25519.PrivateKeySize+ed25519.PublicKeySize {
		return nil, nil, fmt.Errorf("invalid key pair format")
	}

	return keyPairBytes[:ed25519.PrivateKeySize], keyPairBytes[ed25519.PrivateKeySize:], nil
}
