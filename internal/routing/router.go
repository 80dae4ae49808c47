// Package routing wires the HTTP routes of the application to their handlers.
package routing

import (
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"clipnest/internal/handlers"
	"clipnest/internal/managers"
	"clipnest/internal/metrics"
	"clipnest/internal/middleware"
	"clipnest/internal/schemas"
	"clipnest/internal/utils"
)

func InitRouter(databaseMgr managers.DatabaseMgr, mailMgr managers.MailMgr, sessionMgr managers.SessionMgr) *gin.Engine {
	// Initialize router with logging and recovery middleware
	router := gin.New()
	// Initialize middleware
	setupCommonMiddleware(router)
	// Setup routes
	setupRoutes(router, databaseMgr, mailMgr, sessionMgr)

	return router
}

func setupCommonMiddleware(router *gin.Engine) {
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.InjectTrace())
	router.Use(metrics.GinMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"http://localhost:5173", "http://localhost:19000"},
		AllowMethods:  []string{"GET", "PATCH", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Accept, Authorization", "Content-Type"},
		ExposeHeaders: []string{"Content-Length", "Content-Type", "X-Trace-Id"},
		MaxAge:        12 * time.Hour,
	}))
	router.Use(middleware.SanitizePath())
	router.Use(middleware.LogRequest())
}

func setupRoutes(router *gin.Engine, databaseMgr managers.DatabaseMgr, mailMgr managers.MailMgr, sessionMgr managers.SessionMgr) {
	// Set up version route
	router.GET("/", func(c *gin.Context) {
		apiVersion := os.Getenv("API_VERSION")
		if apiVersion == "" {
			apiVersion = "main:latest"
		}
		metadata := &schemas.MetadataDTO{
			ApiVersion: apiVersion,
			ApiName:    "Clipnest",
		}
		utils.WriteAndLogResponse(c, metadata, http.StatusOK)
	})

	// Set up health route
	router.GET("/health", func(c *gin.Context) {
		if err := databaseMgr.GetPool().Ping(c.Request.Context()); err != nil {
			c.String(http.StatusInternalServerError, "Database not responding")
			return
		}
		utils.WriteAndLogResponse(c, &schemas.HealthDTO{Status: "ok"}, http.StatusOK)
	})

	// Set up metrics route
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Set up API routes
	apiRouter := router.Group("/api")
	{
		// Set up user routes
		userRouter := apiRouter.Group("/users")
		userHdl := handlers.NewUserHandler(&databaseMgr, &sessionMgr, &mailMgr)
		userRoutes(userRouter, userHdl, sessionMgr)

		// Set up video routes
		videoRouter := apiRouter.Group("/videos")
		videoHdl := handlers.NewVideoHandler(&databaseMgr)
		commentHdl := handlers.NewCommentHandler(&databaseMgr)
		videoRoutes(videoRouter, videoHdl, commentHdl, sessionMgr)

		// Set up chat routes
		chatRouter := apiRouter.Group("/chats")
		chatRouter.Use(sessionMgr.AuthMiddleware())
		chatHdl := handlers.NewChatHandler(&databaseMgr)
		chatRoutes(chatRouter, chatHdl)
	}
}

func userRoutes(userRouter *gin.RouterGroup, userHdl handlers.UserHdl, sessionMgr managers.SessionMgr) {
	userRouter.POST("/register", middleware.ValidateAndSanitizeStruct(&schemas.RegistrationRequest{}), userHdl.RegisterUser)
	userRouter.POST("/auth/login", middleware.ValidateAndSanitizeStruct(&schemas.LoginRequest{}), userHdl.LoginUser)
	userRouter.POST("/auth/refresh", middleware.ValidateAndSanitizeStruct(&schemas.RefreshTokenRequest{}), userHdl.RefreshToken)
	userRouter.POST("/auth/logout", middleware.ValidateAndSanitizeStruct(&schemas.RefreshTokenRequest{}), userHdl.Logout)
	// The following routes require the user to be authenticated
	userRouter.Use(sessionMgr.AuthMiddleware())
	userRouter.GET("/auth/me", userHdl.GetMe)
	userRouter.POST("/auth/logout-all", userHdl.LogoutAll)
	userRouter.GET("/", userHdl.SearchUsers)
	userRouter.GET("/:userId", userHdl.GetUser)
	userRouter.GET("/:userId/history", userHdl.GetWatchHistory)
}

func videoRoutes(videoRouter *gin.RouterGroup, videoHdl handlers.VideoHdl, commentHdl handlers.CommentHdl, sessionMgr managers.SessionMgr) {
	// Listing, single fetch and comment listing are public
	videoRouter.GET("/", videoHdl.ListVideos)
	videoRouter.GET("/:videoId", videoHdl.GetVideo)
	videoRouter.GET("/:videoId/comments", commentHdl.ListComments)
	// The following routes require the user to be authenticated
	videoRouter.Use(sessionMgr.AuthMiddleware())
	videoRouter.POST("/import", middleware.ValidateAndSanitizeStruct(&schemas.CreateVideoRequest{}), videoHdl.ImportVideo)
	videoRouter.POST("/upload", middleware.ValidateAndSanitizeStruct(&schemas.CreateVideoRequest{}), videoHdl.UploadVideo)
	videoRouter.PUT("/:videoId", middleware.ValidateAndSanitizeStruct(&schemas.UpdateVideoRequest{}), videoHdl.UpdateVideo)
	videoRouter.DELETE("/:videoId", videoHdl.DeleteVideo)
	videoRouter.POST("/:videoId/watch", middleware.ValidateAndSanitizeStruct(&schemas.TrackWatchRequest{}), videoHdl.TrackWatch)
	videoRouter.POST("/:videoId/comments", middleware.ValidateAndSanitizeStruct(&schemas.CreateCommentRequest{}), commentHdl.CreateComment)
	videoRouter.PUT("/:videoId/comments/:commentId", middleware.ValidateAndSanitizeStruct(&schemas.UpdateCommentRequest{}), commentHdl.UpdateComment)
	videoRouter.DELETE("/:videoId/comments/:commentId", commentHdl.DeleteComment)
}

func chatRoutes(chatRouter *gin.RouterGroup, chatHdl handlers.ChatHdl) {
	chatRouter.GET("/", chatHdl.ListChats)
	chatRouter.GET("/unread/count", chatHdl.GetUnreadCount)
	chatRouter.GET("/with/:userId", chatHdl.GetOrCreateChat)
	chatRouter.DELETE("/:chatId", chatHdl.DeleteChat)
	chatRouter.GET("/:chatId/letters", chatHdl.ListLetters)
	chatRouter.POST("/:chatId/letters", middleware.ValidateAndSanitizeStruct(&schemas.CreateLetterRequest{}), chatHdl.CreateLetter)
	chatRouter.GET("/:chatId/letters/:letterId", chatHdl.GetLetter)
	chatRouter.PUT("/:chatId/letters/:letterId", middleware.ValidateAndSanitizeStruct(&schemas.UpdateLetterRequest{}), chatHdl.UpdateLetter)
	chatRouter.DELETE("/:chatId/letters/:letterId", chatHdl.DeleteLetter)
	chatRouter.POST("/:chatId/letters/:letterId/read", chatHdl.MarkLetterRead)
}
