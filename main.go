package main

import (
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"schoolhub-backend/internal/api"
	"schoolhub-backend/internal/auth"
	"schoolhub-backend/internal/database"
	"schoolhub-backend/internal/models"
)

func main() {
	// Get database path from environment or default
	dbPath := os.Getenv("SCHOOLHUB_DB_PATH")
	if dbPath == "" {
		// Default to current directory for development
		dbPath = "./schoolhub.db"
	}

	// Ensure absolute path
	if !filepath.IsAbs(dbPath) {
		cwd, _ := os.Getwd()
		dbPath = filepath.Join(cwd, dbPath)
	}

	uploadDir := os.Getenv("SCHOOLHUB_UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = filepath.Join(filepath.Dir(dbPath), "uploads")
	}

	// Initialize database
	log.Printf("Initializing database at %s", dbPath)
	if err := database.Open(database.Config{Path: dbPath}); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	// Create default admin user if no users exist
	if err := createDefaultAdminIfNeeded(); err != nil {
		log.Printf("Warning: failed to create default admin: %v", err)
	}

	// Initialize auth service
	authSvc := auth.NewService()

	// Reap expired QR tokens and idle-dead sessions in the background.
	// Purely space reclamation: expired rows are already unredeemable
	// and idle sessions already read as expired.
	go reapLoop(authSvc)

	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowCredentials: true,
	}))

	// API routes
	apiGroup := e.Group("/api")
	api.RegisterRoutes(apiGroup, authSvc, uploadDir)

	// Get port from environment or default
	port := os.Getenv("SCHOOLHUB_PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting SchoolHub backend on port %s", port)
	e.Logger.Fatal(e.Start(":" + port))
}

// reapLoop periodically deletes expired QR tokens and idle sessions
func reapLoop(authSvc *auth.Service) {
	qrRepo := database.NewQRTokenRepo()
	sessionRepo := database.NewSessionRepo()

	ticker := time.NewTicker(10 * time.Minute)
	for range ticker.C {
		if n, err := qrRepo.DeleteExpired(); err != nil {
			log.Printf("reap: delete expired qr tokens: %v", err)
		} else if n > 0 {
			log.Printf("reap: deleted %d expired qr tokens", n)
		}

		if n, err := sessionRepo.DeleteIdle(authSvc.IdleTimeout()); err != nil {
			log.Printf("reap: delete idle sessions: %v", err)
		} else if n > 0 {
			log.Printf("reap: deleted %d idle sessions", n)
		}
	}
}

// createDefaultAdminIfNeeded creates a default admin user if no users exist
func createDefaultAdminIfNeeded() error {
	userRepo := database.NewUserRepo()

	count, err := userRepo.Count()
	if err != nil {
		return err
	}

	if count > 0 {
		return nil // Users already exist
	}

	// Create default admin
	log.Println("Creating default admin user (admin/admin123) - CHANGE THIS PASSWORD!")

	passwordHash, err := auth.HashPassword("admin123")
	if err != nil {
		return err
	}

	admin := &models.User{
		Username:     "admin",
		DisplayName:  "Administrator",
		PasswordHash: passwordHash,
		Role:         models.RoleAdmin,
	}

	return userRepo.Create(admin)
}
