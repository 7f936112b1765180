package api

import (
	"github.com/labstack/echo/v4"

	"schoolhub-backend/internal/auth"
)

// RegisterRoutes sets up all API routes
func RegisterRoutes(api *echo.Group, authSvc *auth.Service, uploadDir string) {
	// Initialize services
	InitUserRepo()
	InitBadgeRepo()
	InitAuditRepo()
	InitMessageHandlers(uploadDir)

	// Store authSvc for use in handlers
	authService = authSvc

	// Health check (public)
	api.GET("/health", healthCheck)

	// Auth routes (public - no auth required for login)
	authGroup := api.Group("/auth")
	authGroup.POST("/login", loginHandler, auth.LoginRateLimiter.Middleware())
	authGroup.POST("/logout", logoutHandler)
	authGroup.GET("/me", checkSessionHandler)

	// Cross-device QR login. Generate and status are public: they run
	// on the device that is not logged in yet. Verify runs on the
	// scanning device, which must hold a session.
	authGroup.POST("/qr", generateQRHandler)
	authGroup.GET("/qr/:token", qrStatusHandler)
	authGroup.GET("/qr/:token/watch", watchQRHandler)
	authGroup.POST("/qr/verify", verifyQRHandler,
		auth.RequireAuth(authSvc), auth.LoginRateLimiter.Middleware())

	// Protected auth routes
	authProtected := authGroup.Group("")
	authProtected.Use(auth.RequireAuth(authSvc))
	authProtected.GET("/sessions", getUserSessions)
	authProtected.DELETE("/sessions/:id", revokeSession)

	// Self-service profile
	profile := api.Group("/profile")
	profile.Use(auth.RequireAuth(authSvc))
	profile.PUT("", updateProfileHandler)

	// User management routes (admin only)
	users := api.Group("/users")
	users.Use(auth.RequireAuth(authSvc))
	users.Use(auth.RequireAdmin())
	users.GET("", listUsersHandler)
	users.POST("", createUserHandler)
	users.GET("/:id", getUserHandler)
	users.PUT("/:id", updateUserHandler)
	users.DELETE("/:id", deleteUserHandler)

	// Badge catalog and awards
	badges := api.Group("/badges")
	badges.Use(auth.RequireAuth(authSvc))
	badges.GET("", listBadgesHandler)
	badges.POST("", createBadgeHandler, auth.RequireAdmin())
	badges.PUT("/:id", updateBadgeHandler, auth.RequireAdmin())
	badges.DELETE("/:id", deleteBadgeHandler, auth.RequireAdmin())
	badges.POST("/:id/award", awardBadgeHandler, auth.RequireStaff())
	badges.GET("/awards/me", listMyAwardsHandler)
	badges.GET("/awards/:userId", listUserAwardsHandler, auth.RequireStaff())

	// Messaging
	messages := api.Group("/messages")
	messages.Use(auth.RequireAuth(authSvc))
	messages.GET("", listMessagesHandler)
	messages.POST("", sendMessageHandler)
	messages.POST("/voice", sendVoiceMessageHandler)
	messages.GET("/voice/:id", getVoiceMessageHandler)
	messages.POST("/:id/read", markMessageReadHandler)

	// Audit log routes (requires admin)
	audit := api.Group("/audit")
	audit.Use(auth.RequireAuth(authSvc))
	audit.Use(auth.RequireAdmin())
	audit.GET("", listAuditLogsHandler)
}
