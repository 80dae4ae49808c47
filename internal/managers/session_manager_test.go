package managers

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"clipnest/internal/managers/mocks"
	"clipnest/internal/schemas"
)

func setupSessionManager(t *testing.T) (*SessionManager, pgxmock.PgxPoolIface) {
	t.Helper()

	poolMock, err := pgxmock.NewPool()
	require.NoError(t, err)

	databaseMgrMock := &mocks.MockDatabaseManager{}
	databaseMgrMock.On("GetPool").Return(poolMock)

	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	sessionMgr := NewSessionManager(databaseMgrMock, privateKey, publicKey, 30*time.Minute, 168*time.Hour)
	return sessionMgr.(*SessionManager), poolMock
}

func expectTokenInsert(poolMock pgxmock.PgxPoolIface, userId uuid.UUID, kind schemas.TokenKind) {
	poolMock.ExpectExec("INSERT INTO clipnest.tokens").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), string(kind), userId, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
}

func TestAuthenticate(t *testing.T) {
	email := gofakeit.Email()
	password := "secret1"
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	require.NoError(t, err)

	userId := uuid.New()
	userRow := func(active bool) *pgxmock.Rows {
		return pgxmock.NewRows([]string{"user_id", "email", "username", "password", "is_active", "created_at"}).
			AddRow(userId, email, "tester", string(hash), active, time.Now())
	}

	t.Run("Success", func(t *testing.T) {
		sessionMgr, poolMock := setupSessionManager(t)
		poolMock.ExpectQuery("SELECT user_id, email").WithArgs(email).WillReturnRows(userRow(true))

		user, err := sessionMgr.Authenticate(context.Background(), poolMock, email, password)
		require.NoError(t, err)
		assert.Equal(t, userId, user.ID)
		assert.NoError(t, poolMock.ExpectationsWereMet())
	})

	t.Run("WrongPassword", func(t *testing.T) {
		sessionMgr, poolMock := setupSessionManager(t)
		poolMock.ExpectQuery("SELECT user_id, email").WithArgs(email).WillReturnRows(userRow(true))

		user, err := sessionMgr.Authenticate(context.Background(), poolMock, email, "not-the-password")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		assert.Nil(t, user)
	})

	t.Run("UnknownEmail", func(t *testing.T) {
		sessionMgr, poolMock := setupSessionManager(t)
		poolMock.ExpectQuery("SELECT user_id, email").WithArgs(email).
			WillReturnRows(pgxmock.NewRows([]string{"user_id", "email", "username", "password", "is_active", "created_at"}))

		user, err := sessionMgr.Authenticate(context.Background(), poolMock, email, password)
		// Unknown email and wrong password are indistinguishable to the caller
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		assert.Nil(t, user)
	})

	t.Run("DeactivatedAccount", func(t *testing.T) {
		sessionMgr, poolMock := setupSessionManager(t)
		poolMock.ExpectQuery("SELECT user_id, email").WithArgs(email).WillReturnRows(userRow(false))

		user, err := sessionMgr.Authenticate(context.Background(), poolMock, email, password)
		assert.ErrorIs(t, err, ErrAccountDeactivated)
		assert.Nil(t, user)
	})
}

func TestIssueTokenPair(t *testing.T) {
	sessionMgr, poolMock := setupSessionManager(t)
	userId := uuid.New()

	expectTokenInsert(poolMock, userId, schemas.TokenKindAccess)
	expectTokenInsert(poolMock, userId, schemas.TokenKindRefresh)

	tokenPair, err := sessionMgr.IssueTokenPair(context.Background(), poolMock, userId)
	require.NoError(t, err)
	assert.Equal(t, "bearer", tokenPair.TokenType)
	assert.NoError(t, poolMock.ExpectationsWereMet())

	parse := func(raw string) jwt.MapClaims {
		token, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
			return sessionMgr.publicKey, nil
		})
		require.NoError(t, err)
		return token.Claims.(jwt.MapClaims)
	}

	accessClaims := parse(tokenPair.AccessToken)
	assert.Equal(t, "clipnest", accessClaims["iss"])
	assert.Equal(t, userId.String(), accessClaims["sub"])
	assert.Equal(t, "access", accessClaims["kind"])

	refreshClaims := parse(tokenPair.RefreshToken)
	assert.Equal(t, "refresh", refreshClaims["kind"])
	assert.Equal(t, userId.String(), refreshClaims["sub"])
}

func TestValidateAccess(t *testing.T) {
	issuePair := func(t *testing.T, sessionMgr *SessionManager, poolMock pgxmock.PgxPoolIface, userId uuid.UUID) *schemas.TokenPairDTO {
		expectTokenInsert(poolMock, userId, schemas.TokenKindAccess)
		expectTokenInsert(poolMock, userId, schemas.TokenKindRefresh)
		tokenPair, err := sessionMgr.IssueTokenPair(context.Background(), poolMock, userId)
		require.NoError(t, err)
		return tokenPair
	}

	t.Run("Success", func(t *testing.T) {
		sessionMgr, poolMock := setupSessionManager(t)
		userId := uuid.New()
		tokenPair := issuePair(t, sessionMgr, poolMock, userId)

		poolMock.ExpectQuery("SELECT kind, revoked").WithArgs(tokenPair.AccessToken).
			WillReturnRows(pgxmock.NewRows([]string{"kind", "revoked"}).AddRow(schemas.TokenKindAccess, false))
		poolMock.ExpectQuery("SELECT user_id, email").WithArgs(userId).
			WillReturnRows(pgxmock.NewRows([]string{"user_id", "email", "username", "password", "is_active", "created_at"}).
				AddRow(userId, gofakeit.Email(), "tester", "hash", true, time.Now()))

		user, err := sessionMgr.ValidateAccess(context.Background(), tokenPair.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, userId, user.ID)
		assert.NoError(t, poolMock.ExpectationsWereMet())
	})

	t.Run("UnknownToken", func(t *testing.T) {
		sessionMgr, poolMock := setupSessionManager(t)
		userId := uuid.New()
		tokenPair := issuePair(t, sessionMgr, poolMock, userId)

		// Not in the ledger, signature never checked
		poolMock.ExpectQuery("SELECT kind, revoked").WithArgs(tokenPair.AccessToken).
			WillReturnRows(pgxmock.NewRows([]string{"kind", "revoked"}))

		user, err := sessionMgr.ValidateAccess(context.Background(), tokenPair.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
		assert.Nil(t, user)
	})

	t.Run("RevokedToken", func(t *testing.T) {
		sessionMgr, poolMock := setupSessionManager(t)
		userId := uuid.New()
		tokenPair := issuePair(t, sessionMgr, poolMock, userId)

		poolMock.ExpectQuery("SELECT kind, revoked").WithArgs(tokenPair.AccessToken).
			WillReturnRows(pgxmock.NewRows([]string{"kind", "revoked"}).AddRow(schemas.TokenKindAccess, true))

		user, err := sessionMgr.ValidateAccess(context.Background(), tokenPair.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
		assert.Nil(t, user)
	})

	t.Run("RefreshTokenRejected", func(t *testing.T) {
		sessionMgr, poolMock := setupSessionManager(t)
		userId := uuid.New()
		tokenPair := issuePair(t, sessionMgr, poolMock, userId)

		// A refresh token cannot be used as an access token
		poolMock.ExpectQuery("SELECT kind, revoked").WithArgs(tokenPair.RefreshToken).
			WillReturnRows(pgxmock.NewRows([]string{"kind", "revoked"}).AddRow(schemas.TokenKindRefresh, false))

		user, err := sessionMgr.ValidateAccess(context.Background(), tokenPair.RefreshToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
		assert.Nil(t, user)
	})
}

func TestRotateOnRefresh(t *testing.T) {
	issueRefresh := func(t *testing.T, sessionMgr *SessionManager, poolMock pgxmock.PgxPoolIface, userId uuid.UUID) string {
		expectTokenInsert(poolMock, userId, schemas.TokenKindAccess)
		expectTokenInsert(poolMock, userId, schemas.TokenKindRefresh)
		tokenPair, err := sessionMgr.IssueTokenPair(context.Background(), poolMock, userId)
		require.NoError(t, err)
		return tokenPair.RefreshToken
	}

	refreshRow := func(tokenId, userId uuid.UUID, expiresAt time.Time, revoked bool) *pgxmock.Rows {
		return pgxmock.NewRows([]string{"token_id", "user_id", "expires_at", "revoked"}).
			AddRow(tokenId, userId, expiresAt, revoked)
	}

	t.Run("Success", func(t *testing.T) {
		sessionMgr, poolMock := setupSessionManager(t)
		userId := uuid.New()
		tokenId := uuid.New()
		refreshToken := issueRefresh(t, sessionMgr, poolMock, userId)

		poolMock.ExpectQuery("SELECT token_id, user_id").WithArgs(refreshToken).
			WillReturnRows(refreshRow(tokenId, userId, time.Now().Add(time.Hour), false))
		poolMock.ExpectExec("UPDATE clipnest.tokens SET revoked").WithArgs(userId).
			WillReturnResult(pgxmock.NewResult("UPDATE", 2))
		expectTokenInsert(poolMock, userId, schemas.TokenKindAccess)
		expectTokenInsert(poolMock, userId, schemas.TokenKindRefresh)
		poolMock.ExpectExec("UPDATE clipnest.tokens SET revoked").WithArgs(tokenId).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		tokenPair, err := sessionMgr.RotateOnRefresh(context.Background(), poolMock, refreshToken)
		require.NoError(t, err)
		assert.NotEqual(t, refreshToken, tokenPair.RefreshToken)
		assert.NoError(t, poolMock.ExpectationsWereMet())
	})

	t.Run("RevokedRefresh", func(t *testing.T) {
		sessionMgr, poolMock := setupSessionManager(t)
		userId := uuid.New()
		refreshToken := issueRefresh(t, sessionMgr, poolMock, userId)

		poolMock.ExpectQuery("SELECT token_id, user_id").WithArgs(refreshToken).
			WillReturnRows(refreshRow(uuid.New(), userId, time.Now().Add(time.Hour), true))

		tokenPair, err := sessionMgr.RotateOnRefresh(context.Background(), poolMock, refreshToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
		assert.Nil(t, tokenPair)
	})

	t.Run("ExpiredRefreshIsRevokedLazily", func(t *testing.T) {
		sessionMgr, poolMock := setupSessionManager(t)
		userId := uuid.New()
		tokenId := uuid.New()
		refreshToken := issueRefresh(t, sessionMgr, poolMock, userId)

		// Stored expiry in the past gets the token marked revoked on sight
		poolMock.ExpectQuery("SELECT token_id, user_id").WithArgs(refreshToken).
			WillReturnRows(refreshRow(tokenId, userId, time.Now().Add(-time.Hour), false))
		poolMock.ExpectExec("UPDATE clipnest.tokens SET revoked").WithArgs(tokenId).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		tokenPair, err := sessionMgr.RotateOnRefresh(context.Background(), poolMock, refreshToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
		assert.Nil(t, tokenPair)
		assert.NoError(t, poolMock.ExpectationsWereMet())
	})

	t.Run("UnknownRefresh", func(t *testing.T) {
		sessionMgr, poolMock := setupSessionManager(t)

		poolMock.ExpectQuery("SELECT token_id, user_id").WithArgs("no-such-token").
			WillReturnRows(pgxmock.NewRows([]string{"token_id", "user_id", "expires_at", "revoked"}))

		tokenPair, err := sessionMgr.RotateOnRefresh(context.Background(), poolMock, "no-such-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
		assert.Nil(t, tokenPair)
	})
}

func TestRevoke(t *testing.T) {
	t.Run("RevokesOutstandingToken", func(t *testing.T) {
		sessionMgr, poolMock := setupSessionManager(t)

		poolMock.ExpectExec("UPDATE clipnest.tokens SET revoked").WithArgs("some-token").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		assert.NoError(t, sessionMgr.Revoke(context.Background(), poolMock, "some-token"))
		assert.NoError(t, poolMock.ExpectationsWereMet())
	})

	t.Run("UnknownTokenIsNoOp", func(t *testing.T) {
		sessionMgr, poolMock := setupSessionManager(t)

		poolMock.ExpectExec("UPDATE clipnest.tokens SET revoked").WithArgs("unknown-token").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		assert.NoError(t, sessionMgr.Revoke(context.Background(), poolMock, "unknown-token"))
	})
}

func TestRevokeAll(t *testing.T) {
	sessionMgr, poolMock := setupSessionManager(t)
	userId := uuid.New()

	poolMock.ExpectExec("UPDATE clipnest.tokens SET revoked").WithArgs(userId).
		WillReturnResult(pgxmock.NewResult("UPDATE", 4))

	assert.NoError(t, sessionMgr.RevokeAll(context.Background(), poolMock, userId))
	assert.NoError(t, poolMock.ExpectationsWereMet())
}
