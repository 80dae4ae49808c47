package routing

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/gavv/httpexpect/v2"
	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v3"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"clipnest/internal/managers"
	"clipnest/internal/managers/mocks"
	"clipnest/internal/schemas"
)

func setupMocks(t *testing.T) (*mocks.MockDatabaseManager, managers.SessionMgr, *mocks.MockMailManager) {
	t.Helper()

	poolMock, err := pgxmock.NewPool()
	if err != nil {
		log.Errorf("Error creating mock database pool: %v", err)
	}

	databaseMgrMock := &mocks.MockDatabaseManager{}
	databaseMgrMock.On("GetPool").Return(poolMock)

	t.Setenv("ENVIRONMENT", "test")
	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		log.Errorf("Error generating key pair: %v", err)
	}
	sessionMgr := managers.NewSessionManager(databaseMgrMock, privateKey, publicKey, 30*time.Minute, 168*time.Hour)

	mailMgrMock := &mocks.MockMailManager{}
	mailMgrMock.On("SendWelcomeMail", mock.AnythingOfType("string"), mock.AnythingOfType("string")).Return(nil)

	return databaseMgrMock, sessionMgr, mailMgrMock
}

// issueTokenPair mints a token pair against the mock pool so protected routes
// can be exercised.
func issueTokenPair(t *testing.T, sessionMgr managers.SessionMgr, poolMock pgxmock.PgxPoolIface, userId uuid.UUID) *schemas.TokenPairDTO {
	t.Helper()

	poolMock.ExpectExec("INSERT INTO clipnest.tokens").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "access", userId, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	poolMock.ExpectExec("INSERT INTO clipnest.tokens").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "refresh", userId, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	tokenPair, err := sessionMgr.IssueTokenPair(context.Background(), poolMock, userId)
	require.NoError(t, err)
	return tokenPair
}

// expectAccessTokenLookup sets up the ledger and user queries the auth
// middleware performs for a valid access token.
func expectAccessTokenLookup(poolMock pgxmock.PgxPoolIface, accessToken string, userId uuid.UUID, email, username string) {
	poolMock.ExpectQuery("SELECT kind, revoked").WithArgs(accessToken).
		WillReturnRows(pgxmock.NewRows([]string{"kind", "revoked"}).AddRow(schemas.TokenKindAccess, false))
	poolMock.ExpectQuery("SELECT user_id, email").WithArgs(userId).
		WillReturnRows(pgxmock.NewRows([]string{"user_id", "email", "username", "password", "is_active", "created_at"}).
			AddRow(userId, email, username, "hash", true, time.Now()))
}

func TestUserRegistration(t *testing.T) {
	email := gofakeit.Email()
	username := gofakeit.Username()

	testCases := []struct {
		name   string
		body   map[string]interface{}
		status int
	}{
		{
			"ValidRegistration",
			map[string]interface{}{"email": email, "username": username, "password": "secret1"},
			http.StatusCreated,
		},
		{
			"DuplicateUsername",
			map[string]interface{}{"email": email, "username": username, "password": "secret1"},
			http.StatusConflict,
		},
		{
			"PasswordTooShort",
			map[string]interface{}{"email": email, "username": username, "password": "short"},
			http.StatusBadRequest,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			databaseMgrMock, sessionMgr, mailMgrMock := setupMocks(t)
			router := InitRouter(databaseMgrMock, mailMgrMock, sessionMgr)

			server := httptest.NewServer(router)
			defer server.Close()

			poolMock := databaseMgrMock.GetPool().(pgxmock.PgxPoolIface)

			switch tc.name {
			case "ValidRegistration":
				poolMock.ExpectBegin()
				poolMock.ExpectQuery("SELECT username, email").WithArgs(username, email).
					WillReturnRows(pgxmock.NewRows([]string{"username", "email"}))
				poolMock.ExpectExec("INSERT INTO clipnest.users").
					WithArgs(pgxmock.AnyArg(), email, username, pgxmock.AnyArg(), true, pgxmock.AnyArg()).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
				poolMock.ExpectCommit()
			case "DuplicateUsername":
				poolMock.ExpectBegin()
				poolMock.ExpectQuery("SELECT username, email").WithArgs(username, email).
					WillReturnRows(pgxmock.NewRows([]string{"username", "email"}).AddRow(username, email))
				poolMock.ExpectRollback()
			}

			expect := httpexpect.Default(t, server.URL)
			response := expect.POST("/api/users/register").WithJSON(tc.body).Expect().Status(tc.status)

			switch tc.name {
			case "ValidRegistration":
				response.JSON().Object().HasValue("email", email)
				response.JSON().Object().HasValue("username", username)
			case "DuplicateUsername":
				response.JSON().Object().Value("error").Object().HasValue("code", "ERR-002")
			case "PasswordTooShort":
				response.JSON().Object().Value("error").Object().HasValue("code", "ERR-001")
			}

			if err := poolMock.ExpectationsWereMet(); err != nil {
				t.Errorf("there were unfulfilled expectations: %s", err)
			}
		})
	}
}

func TestUserLogin(t *testing.T) {
	email := gofakeit.Email()
	password := "secret1"
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	userId := uuid.New()

	userRow := func() *pgxmock.Rows {
		return pgxmock.NewRows([]string{"user_id", "email", "username", "password", "is_active", "created_at"}).
			AddRow(userId, email, "tester", string(hash), true, time.Now())
	}

	t.Run("ValidLogin", func(t *testing.T) {
		databaseMgrMock, sessionMgr, mailMgrMock := setupMocks(t)
		router := InitRouter(databaseMgrMock, mailMgrMock, sessionMgr)
		server := httptest.NewServer(router)
		defer server.Close()

		poolMock := databaseMgrMock.GetPool().(pgxmock.PgxPoolIface)
		poolMock.ExpectBegin()
		poolMock.ExpectQuery("SELECT user_id, email").WithArgs(email).WillReturnRows(userRow())
		poolMock.ExpectExec("INSERT INTO clipnest.tokens").
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "access", userId, pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		poolMock.ExpectExec("INSERT INTO clipnest.tokens").
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "refresh", userId, pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		poolMock.ExpectCommit()

		expect := httpexpect.Default(t, server.URL)
		response := expect.POST("/api/users/auth/login").
			WithJSON(map[string]string{"email": email, "password": password}).
			Expect().Status(http.StatusOK)

		body := response.JSON().Object()
		body.HasValue("token_type", "bearer")
		body.Value("access_token").String().NotEmpty()
		body.Value("refresh_token").String().NotEmpty()

		if err := poolMock.ExpectationsWereMet(); err != nil {
			t.Errorf("there were unfulfilled expectations: %s", err)
		}
	})

	t.Run("WrongPassword", func(t *testing.T) {
		databaseMgrMock, sessionMgr, mailMgrMock := setupMocks(t)
		router := InitRouter(databaseMgrMock, mailMgrMock, sessionMgr)
		server := httptest.NewServer(router)
		defer server.Close()

		poolMock := databaseMgrMock.GetPool().(pgxmock.PgxPoolIface)
		poolMock.ExpectBegin()
		poolMock.ExpectQuery("SELECT user_id, email").WithArgs(email).WillReturnRows(userRow())
		poolMock.ExpectRollback()

		expect := httpexpect.Default(t, server.URL)
		response := expect.POST("/api/users/auth/login").
			WithJSON(map[string]string{"email": email, "password": "wrong-password"}).
			Expect().Status(http.StatusUnauthorized)

		response.JSON().Object().Value("error").Object().HasValue("code", "ERR-015")
	})

	t.Run("UnknownEmail", func(t *testing.T) {
		databaseMgrMock, sessionMgr, mailMgrMock := setupMocks(t)
		router := InitRouter(databaseMgrMock, mailMgrMock, sessionMgr)
		server := httptest.NewServer(router)
		defer server.Close()

		poolMock := databaseMgrMock.GetPool().(pgxmock.PgxPoolIface)
		poolMock.ExpectBegin()
		poolMock.ExpectQuery("SELECT user_id, email").WithArgs(email).
			WillReturnRows(pgxmock.NewRows([]string{"user_id", "email", "username", "password", "is_active", "created_at"}))
		poolMock.ExpectRollback()

		expect := httpexpect.Default(t, server.URL)
		response := expect.POST("/api/users/auth/login").
			WithJSON(map[string]string{"email": email, "password": password}).
			Expect().Status(http.StatusUnauthorized)

		// Same error as a wrong password, the response must not leak which
		// part of the credentials failed
		response.JSON().Object().Value("error").Object().HasValue("code", "ERR-015")
	})
}

func TestGetMe(t *testing.T) {
	databaseMgrMock, sessionMgr, mailMgrMock := setupMocks(t)
	router := InitRouter(databaseMgrMock, mailMgrMock, sessionMgr)
	server := httptest.NewServer(router)
	defer server.Close()

	poolMock := databaseMgrMock.GetPool().(pgxmock.PgxPoolIface)
	userId := uuid.New()
	email := gofakeit.Email()

	tokenPair := issueTokenPair(t, sessionMgr, poolMock, userId)
	expectAccessTokenLookup(poolMock, tokenPair.AccessToken, userId, email, "tester")

	expect := httpexpect.Default(t, server.URL)
	response := expect.GET("/api/users/auth/me").
		WithHeader("Authorization", "Bearer "+tokenPair.AccessToken).
		Expect().Status(http.StatusOK)

	response.JSON().Object().HasValue("user_id", userId.String())
	response.JSON().Object().HasValue("email", email)

	if err := poolMock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestAuthMiddlewareRejections(t *testing.T) {
	t.Run("MissingHeader", func(t *testing.T) {
		databaseMgrMock, sessionMgr, mailMgrMock := setupMocks(t)
		router := InitRouter(databaseMgrMock, mailMgrMock, sessionMgr)
		server := httptest.NewServer(router)
		defer server.Close()

		expect := httpexpect.Default(t, server.URL)
		response := expect.GET("/api/users/auth/me").Expect().Status(http.StatusUnauthorized)
		response.Header("WWW-Authenticate").IsEqual("Bearer")
		response.JSON().Object().Value("error").Object().HasValue("code", "ERR-014")
	})

	t.Run("RevokedToken", func(t *testing.T) {
		databaseMgrMock, sessionMgr, mailMgrMock := setupMocks(t)
		router := InitRouter(databaseMgrMock, mailMgrMock, sessionMgr)
		server := httptest.NewServer(router)
		defer server.Close()

		poolMock := databaseMgrMock.GetPool().(pgxmock.PgxPoolIface)
		userId := uuid.New()
		tokenPair := issueTokenPair(t, sessionMgr, poolMock, userId)

		poolMock.ExpectQuery("SELECT kind, revoked").WithArgs(tokenPair.AccessToken).
			WillReturnRows(pgxmock.NewRows([]string{"kind", "revoked"}).AddRow(schemas.TokenKindAccess, true))

		expect := httpexpect.Default(t, server.URL)
		response := expect.GET("/api/users/auth/me").
			WithHeader("Authorization", "Bearer "+tokenPair.AccessToken).
			Expect().Status(http.StatusUnauthorized)
		response.Header("WWW-Authenticate").Contains("invalid_token")
	})
}

func TestRefreshRotation(t *testing.T) {
	t.Run("ValidRotation", func(t *testing.T) {
		databaseMgrMock, sessionMgr, mailMgrMock := setupMocks(t)
		router := InitRouter(databaseMgrMock, mailMgrMock, sessionMgr)
		server := httptest.NewServer(router)
		defer server.Close()

		poolMock := databaseMgrMock.GetPool().(pgxmock.PgxPoolIface)
		userId := uuid.New()
		tokenId := uuid.New()
		tokenPair := issueTokenPair(t, sessionMgr, poolMock, userId)

		poolMock.ExpectBegin()
		poolMock.ExpectQuery("SELECT token_id, user_id").WithArgs(tokenPair.RefreshToken).
			WillReturnRows(pgxmock.NewRows([]string{"token_id", "user_id", "expires_at", "revoked"}).
				AddRow(tokenId, userId, time.Now().Add(time.Hour), false))
		poolMock.ExpectExec("UPDATE clipnest.tokens SET revoked").WithArgs(userId).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		poolMock.ExpectExec("INSERT INTO clipnest.tokens").
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "access", userId, pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		poolMock.ExpectExec("INSERT INTO clipnest.tokens").
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "refresh", userId, pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		poolMock.ExpectExec("UPDATE clipnest.tokens SET revoked").WithArgs(tokenId).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		poolMock.ExpectCommit()

		expect := httpexpect.Default(t, server.URL)
		response := expect.POST("/api/users/auth/refresh").
			WithJSON(map[string]string{"refresh_token": tokenPair.RefreshToken}).
			Expect().Status(http.StatusOK)

		body := response.JSON().Object()
		body.HasValue("token_type", "bearer")
		body.Value("refresh_token").String().NotEmpty()
		body.Value("refresh_token").String().NotEqual(tokenPair.RefreshToken)

		if err := poolMock.ExpectationsWereMet(); err != nil {
			t.Errorf("there were unfulfilled expectations: %s", err)
		}
	})

	t.Run("RevokedRefreshToken", func(t *testing.T) {
		databaseMgrMock, sessionMgr, mailMgrMock := setupMocks(t)
		router := InitRouter(databaseMgrMock, mailMgrMock, sessionMgr)
		server := httptest.NewServer(router)
		defer server.Close()

		poolMock := databaseMgrMock.GetPool().(pgxmock.PgxPoolIface)
		userId := uuid.New()
		tokenPair := issueTokenPair(t, sessionMgr, poolMock, userId)

		poolMock.ExpectBegin()
		poolMock.ExpectQuery("SELECT token_id, user_id").WithArgs(tokenPair.RefreshToken).
			WillReturnRows(pgxmock.NewRows([]string{"token_id", "user_id", "expires_at", "revoked"}).
				AddRow(uuid.New(), userId, time.Now().Add(time.Hour), true))
		poolMock.ExpectRollback()

		expect := httpexpect.Default(t, server.URL)
		response := expect.POST("/api/users/auth/refresh").
			WithJSON(map[string]string{"refresh_token": tokenPair.RefreshToken}).
			Expect().Status(http.StatusUnauthorized)

		response.Header("WWW-Authenticate").Contains("invalid_token")
		response.JSON().Object().Value("error").Object().HasValue("code", "ERR-016")
	})
}

func TestGetOrCreateChat(t *testing.T) {
	t.Run("ExistingChatEitherOrder", func(t *testing.T) {
		databaseMgrMock, sessionMgr, mailMgrMock := setupMocks(t)
		router := InitRouter(databaseMgrMock, mailMgrMock, sessionMgr)
		server := httptest.NewServer(router)
		defer server.Close()

		poolMock := databaseMgrMock.GetPool().(pgxmock.PgxPoolIface)
		userId := uuid.New()
		partnerId := uuid.New()
		chatId := uuid.New()
		now := time.Now()

		tokenPair := issueTokenPair(t, sessionMgr, poolMock, userId)
		expectAccessTokenLookup(poolMock, tokenPair.AccessToken, userId, gofakeit.Email(), "tester")

		poolMock.ExpectBegin()
		poolMock.ExpectQuery("SELECT user_id, email").WithArgs(partnerId).
			WillReturnRows(pgxmock.NewRows([]string{"user_id", "email", "username", "created_at"}).
				AddRow(partnerId, gofakeit.Email(), "partner", now))
		poolMock.ExpectQuery("SELECT chat_id, created_at").WithArgs(userId, partnerId).
			WillReturnRows(pgxmock.NewRows([]string{"chat_id", "created_at", "updated_at"}).AddRow(chatId, now, now))
		poolMock.ExpectExec("UPDATE clipnest.letters SET is_read").WithArgs(chatId, userId).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		poolMock.ExpectQuery("SELECT letter_id, chat_id").WithArgs(chatId).
			WillReturnRows(pgxmock.NewRows([]string{"letter_id", "chat_id", "author_id", "content", "is_read", "created_at"}))
		poolMock.ExpectCommit()

		expect := httpexpect.Default(t, server.URL)
		response := expect.GET("/api/chats/with/"+partnerId.String()).
			WithHeader("Authorization", "Bearer "+tokenPair.AccessToken).
			Expect().Status(http.StatusOK)

		response.JSON().Object().HasValue("chat_id", chatId.String())

		if err := poolMock.ExpectationsWereMet(); err != nil {
			t.Errorf("there were unfulfilled expectations: %s", err)
		}
	})

	t.Run("CreatesChatWhenAbsent", func(t *testing.T) {
		databaseMgrMock, sessionMgr, mailMgrMock := setupMocks(t)
		router := InitRouter(databaseMgrMock, mailMgrMock, sessionMgr)
		server := httptest.NewServer(router)
		defer server.Close()

		poolMock := databaseMgrMock.GetPool().(pgxmock.PgxPoolIface)
		userId := uuid.New()
		partnerId := uuid.New()
		now := time.Now()

		tokenPair := issueTokenPair(t, sessionMgr, poolMock, userId)
		expectAccessTokenLookup(poolMock, tokenPair.AccessToken, userId, gofakeit.Email(), "tester")

		poolMock.ExpectBegin()
		poolMock.ExpectQuery("SELECT user_id, email").WithArgs(partnerId).
			WillReturnRows(pgxmock.NewRows([]string{"user_id", "email", "username", "created_at"}).
				AddRow(partnerId, gofakeit.Email(), "partner", now))
		poolMock.ExpectQuery("SELECT chat_id, created_at").WithArgs(userId, partnerId).
			WillReturnRows(pgxmock.NewRows([]string{"chat_id", "created_at", "updated_at"}))
		poolMock.ExpectExec("INSERT INTO clipnest.chats").
			WithArgs(pgxmock.AnyArg(), userId, partnerId, pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		poolMock.ExpectExec("UPDATE clipnest.letters SET is_read").WithArgs(pgxmock.AnyArg(), userId).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		poolMock.ExpectQuery("SELECT letter_id, chat_id").WithArgs(pgxmock.AnyArg()).
			WillReturnRows(pgxmock.NewRows([]string{"letter_id", "chat_id", "author_id", "content", "is_read", "created_at"}))
		poolMock.ExpectCommit()

		expect := httpexpect.Default(t, server.URL)
		response := expect.GET("/api/chats/with/"+partnerId.String()).
			WithHeader("Authorization", "Bearer "+tokenPair.AccessToken).
			Expect().Status(http.StatusOK)

		response.JSON().Object().Value("chat_id").String().NotEmpty()

		if err := poolMock.ExpectationsWereMet(); err != nil {
			t.Errorf("there were unfulfilled expectations: %s", err)
		}
	})

	t.Run("SelfChatRejected", func(t *testing.T) {
		databaseMgrMock, sessionMgr, mailMgrMock := setupMocks(t)
		router := InitRouter(databaseMgrMock, mailMgrMock, sessionMgr)
		server := httptest.NewServer(router)
		defer server.Close()

		poolMock := databaseMgrMock.GetPool().(pgxmock.PgxPoolIface)
		userId := uuid.New()

		tokenPair := issueTokenPair(t, sessionMgr, poolMock, userId)
		expectAccessTokenLookup(poolMock, tokenPair.AccessToken, userId, gofakeit.Email(), "tester")

		expect := httpexpect.Default(t, server.URL)
		response := expect.GET("/api/chats/with/"+userId.String()).
			WithHeader("Authorization", "Bearer "+tokenPair.AccessToken).
			Expect().Status(http.StatusConflict)

		response.JSON().Object().Value("error").Object().HasValue("code", "ERR-009")
	})
}

func TestUnreadCount(t *testing.T) {
	databaseMgrMock, sessionMgr, mailMgrMock := setupMocks(t)
	router := InitRouter(databaseMgrMock, mailMgrMock, sessionMgr)
	server := httptest.NewServer(router)
	defer server.Close()

	poolMock := databaseMgrMock.GetPool().(pgxmock.PgxPoolIface)
	userId := uuid.New()

	tokenPair := issueTokenPair(t, sessionMgr, poolMock, userId)
	expectAccessTokenLookup(poolMock, tokenPair.AccessToken, userId, gofakeit.Email(), "tester")

	poolMock.ExpectBegin()
	poolMock.ExpectQuery("SELECT COUNT").WithArgs(userId).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(3))
	poolMock.ExpectCommit()

	expect := httpexpect.Default(t, server.URL)
	response := expect.GET("/api/chats/unread/count").
		WithHeader("Authorization", "Bearer "+tokenPair.AccessToken).
		Expect().Status(http.StatusOK)

	response.JSON().Object().HasValue("unread_count", 3)

	if err := poolMock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestDeleteVideo(t *testing.T) {
	t.Run("ForbiddenForNonAuthor", func(t *testing.T) {
		databaseMgrMock, sessionMgr, mailMgrMock := setupMocks(t)
		router := InitRouter(databaseMgrMock, mailMgrMock, sessionMgr)
		server := httptest.NewServer(router)
		defer server.Close()

		poolMock := databaseMgrMock.GetPool().(pgxmock.PgxPoolIface)
		userId := uuid.New()
		videoId := uuid.New()

		tokenPair := issueTokenPair(t, sessionMgr, poolMock, userId)
		expectAccessTokenLookup(poolMock, tokenPair.AccessToken, userId, gofakeit.Email(), "tester")

		poolMock.ExpectBegin()
		poolMock.ExpectQuery("SELECT author_id").WithArgs(videoId).
			WillReturnRows(pgxmock.NewRows([]string{"author_id"}).AddRow(uuid.New()))
		poolMock.ExpectRollback()

		expect := httpexpect.Default(t, server.URL)
		response := expect.DELETE("/api/videos/"+videoId.String()).
			WithHeader("Authorization", "Bearer "+tokenPair.AccessToken).
			Expect().Status(http.StatusForbidden)

		response.JSON().Object().Value("error").Object().HasValue("code", "ERR-011")

		if err := poolMock.ExpectationsWereMet(); err != nil {
			t.Errorf("there were unfulfilled expectations: %s", err)
		}
	})

	t.Run("AuthorDeletesWithCascade", func(t *testing.T) {
		databaseMgrMock, sessionMgr, mailMgrMock := setupMocks(t)
		router := InitRouter(databaseMgrMock, mailMgrMock, sessionMgr)
		server := httptest.NewServer(router)
		defer server.Close()

		poolMock := databaseMgrMock.GetPool().(pgxmock.PgxPoolIface)
		userId := uuid.New()
		videoId := uuid.New()

		tokenPair := issueTokenPair(t, sessionMgr, poolMock, userId)
		expectAccessTokenLookup(poolMock, tokenPair.AccessToken, userId, gofakeit.Email(), "tester")

		poolMock.ExpectBegin()
		poolMock.ExpectQuery("SELECT author_id").WithArgs(videoId).
			WillReturnRows(pgxmock.NewRows([]string{"author_id"}).AddRow(userId))
		poolMock.ExpectExec("DELETE FROM clipnest.comments").WithArgs(videoId).
			WillReturnResult(pgxmock.NewResult("DELETE", 2))
		poolMock.ExpectExec("DELETE FROM clipnest.watch_history").WithArgs(videoId).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))
		poolMock.ExpectExec("DELETE FROM clipnest.videos").WithArgs(videoId).
			WillReturnResult(pgxmock.NewResult("DELETE", 1))
		poolMock.ExpectCommit()

		expect := httpexpect.Default(t, server.URL)
		expect.DELETE("/api/videos/"+videoId.String()).
			WithHeader("Authorization", "Bearer "+tokenPair.AccessToken).
			Expect().Status(http.StatusNoContent)

		if err := poolMock.ExpectationsWereMet(); err != nil {
			t.Errorf("there were unfulfilled expectations: %s", err)
		}
	})
}

func TestGetVideoCountsView(t *testing.T) {
	databaseMgrMock, sessionMgr, mailMgrMock := setupMocks(t)
	router := InitRouter(databaseMgrMock, mailMgrMock, sessionMgr)
	server := httptest.NewServer(router)
	defer server.Close()

	poolMock := databaseMgrMock.GetPool().(pgxmock.PgxPoolIface)
	videoId := uuid.New()
	authorId := uuid.New()
	now := time.Now()

	poolMock.ExpectBegin()
	poolMock.ExpectQuery("UPDATE clipnest.videos SET views_count").WithArgs(videoId).
		WillReturnRows(pgxmock.NewRows([]string{"video_id", "title", "description", "video_url", "thumbnail_url",
			"duration", "author_id", "views_count", "likes_count", "created_at", "updated_at"}).
			AddRow(videoId, "First clip", "", "https://cdn.clipnest.app/v/1.mp4", "", 120, authorId, 43, 0, now, now))
	poolMock.ExpectCommit()

	expect := httpexpect.Default(t, server.URL)
	response := expect.GET("/api/videos/" + videoId.String()).Expect().Status(http.StatusOK)

	body := response.JSON().Object()
	body.HasValue("video_id", videoId.String())
	body.HasValue("views_count", 43)

	if err := poolMock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestListLettersMarksRead(t *testing.T) {
	databaseMgrMock, sessionMgr, mailMgrMock := setupMocks(t)
	router := InitRouter(databaseMgrMock, mailMgrMock, sessionMgr)
	server := httptest.NewServer(router)
	defer server.Close()

	poolMock := databaseMgrMock.GetPool().(pgxmock.PgxPoolIface)
	userId := uuid.New()
	partnerId := uuid.New()
	chatId := uuid.New()
	now := time.Now()

	tokenPair := issueTokenPair(t, sessionMgr, poolMock, userId)
	expectAccessTokenLookup(poolMock, tokenPair.AccessToken, userId, gofakeit.Email(), "tester")

	poolMock.ExpectBegin()
	poolMock.ExpectQuery("SELECT chat_id, user1_id").WithArgs(chatId).
		WillReturnRows(pgxmock.NewRows([]string{"chat_id", "user1_id", "user2_id", "created_at", "updated_at"}).
			AddRow(chatId, userId, partnerId, now, now))
	poolMock.ExpectExec("UPDATE clipnest.letters SET is_read").WithArgs(chatId, userId).
		WillReturnResult(pgxmock.NewResult("UPDATE", 2))
	poolMock.ExpectQuery("SELECT letter_id, chat_id").WithArgs(chatId).
		WillReturnRows(pgxmock.NewRows([]string{"letter_id", "chat_id", "author_id", "content", "is_read", "created_at"}).
			AddRow(uuid.New(), chatId, partnerId, "hi there", true, now).
			AddRow(uuid.New(), chatId, partnerId, "are you around", true, now.Add(time.Minute)))
	poolMock.ExpectCommit()

	expect := httpexpect.Default(t, server.URL)
	response := expect.GET("/api/chats/"+chatId.String()+"/letters").
		WithHeader("Authorization", "Bearer "+tokenPair.AccessToken).
		Expect().Status(http.StatusOK)

	records := response.JSON().Object().Value("records").Array()
	records.Length().IsEqual(2)
	records.Value(0).Object().HasValue("is_read", true)

	if err := poolMock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}
