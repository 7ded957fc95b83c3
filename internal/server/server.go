// Package server is a development stand-in for the agency API.
//
// It implements the auth, profile, catalog and user endpoints the client
// consumes, backed by SQLite through gorm, issuing HS256 bearer tokens.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/brightline-agency/agency/internal/auth"
	"github.com/brightline-agency/agency/internal/config"
	"github.com/brightline-agency/agency/internal/models"
)

// Server represents the HTTP server
type Server struct {
	router    *gin.Engine
	db        *gorm.DB
	config    *config.Config
	logger    zerolog.Logger
	validator *validator.Validate
	issuer    *auth.Issuer
	version   string
}

// New creates a new server instance
func New(cfg *config.Config, zlog zerolog.Logger, version string) (*Server, error) {
	if cfg.MockAPI.JWTSecret == "" {
		return nil, fmt.Errorf("jwt secret is empty (set MOCKAPI_JWT_SECRET)")
	}

	db, err := initDatabase(cfg, zlog)
	if err != nil {
		return nil, err
	}

	// Run database migrations
	if err := models.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	server := &Server{
		db:        db,
		config:    cfg,
		logger:    zlog,
		validator: validator.New(),
		issuer:    auth.NewIssuer(cfg.MockAPI.JWTSecret, cfg.MockAPI.TokenTTL),
		version:   version,
	}

	if err := server.seed(); err != nil {
		return nil, err
	}

	server.setupRouter()

	return server, nil
}

// initDatabase opens the SQLite database
func initDatabase(cfg *config.Config, zlog zerolog.Logger) (*gorm.DB, error) {
	const (
		maxOpenConns = 1 // a shared in-memory database lives as long as one connection
		busyTimeout  = 5000
	)

	db, err := gorm.Open(sqlite.Open(cfg.MockAPI.DatabaseURL), &gorm.Config{
		Logger: logger.New(
			log.New(os.Stderr, "\r\n", log.LstdFlags),
			logger.Config{
				LogLevel:                  logger.Error,
				IgnoreRecordNotFoundError: true,
				SlowThreshold:             200 * time.Millisecond,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Get underlying sql.DB to configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout),
		"PRAGMA foreign_keys=1",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			zlog.Warn().Str("pragma", pragma).Err(err).Msg("Failed to apply pragma")
		}
	}

	return db, nil
}

// seed creates the admin account and a starter catalog on an empty database
func (s *Server) seed() error {
	var count int64
	if err := s.db.Model(&models.Account{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count accounts: %w", err)
	}
	if count == 0 {
		hash, err := auth.HashPassword(s.config.MockAPI.AdminPassword)
		if err != nil {
			return err
		}
		admin := &models.Account{
			Email:        s.config.MockAPI.AdminEmail,
			PasswordHash: hash,
			Name:         "Administrator",
			Role:         models.RoleAdmin,
		}
		if err := s.db.Create(admin).Error; err != nil {
			return fmt.Errorf("failed to create admin account: %w", err)
		}
		s.logger.Info().Str("email", admin.Email).Msg("Seeded admin account")
	}

	if err := s.db.Model(&models.CatalogEntry{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count catalog entries: %w", err)
	}
	if count == 0 {
		entries := []models.CatalogEntry{
			{Title: "Brand Strategy", Slug: "brand-strategy", Description: "Positioning, naming and visual identity."},
			{Title: "Web Development", Slug: "web-development", Description: "Marketing sites and web applications."},
			{Title: "Performance Marketing", Slug: "performance-marketing", Description: "Paid acquisition and analytics."},
		}
		if err := s.db.Create(&entries).Error; err != nil {
			return fmt.Errorf("failed to seed catalog: %w", err)
		}
	}

	return nil
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()

	// Add middleware
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	// CORS middleware
	s.router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Public endpoints
	s.router.GET("/health", s.healthCheck)
	s.router.POST("/auth/login", s.login)
	s.router.POST("/auth/register", s.register)
	s.router.GET("/services", s.listServices)

	// Authenticated endpoints (JWT required)
	authed := s.router.Group("")
	authed.Use(JWTAuthMiddleware(s.db, s.issuer, s.logger))
	{
		authed.GET("/auth/profile", s.getProfile)
		authed.PATCH("/user/profile", s.updateProfile)

		// User management (admin only)
		authed.GET("/users", AdminOnlyMiddleware(s.logger), s.listUsers)
	}
}

// loggingMiddleware creates a custom logging middleware using zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", c.GetHeader("X-Request-ID")).
			Msg("HTTP request")
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "online",
		"timestamp": time.Now().UTC(),
		"service":   "agency-api",
		"version":   s.version,
	})
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close closes the database connection
func (s *Server) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Start serves on the configured address until SIGINT or SIGTERM
func (s *Server) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return s.Run(ctx)
}

// Run serves on the configured address until ctx is done
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.MockAPI.Addr,
		Handler:           s.router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", srv.Addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
	case <-ctx.Done():
		s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	if err := s.Close(); err != nil {
		s.logger.Error().Err(err).Msg("Error closing database")
	}

	s.logger.Info().Msg("Server shutdown complete")
	return nil
}
