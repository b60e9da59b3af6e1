// Package api wires together all HTTP routes for the gem registry backend.
//
// Route grouping philosophy:
//   - The read surface (/gems, /gems/:id and its projections) is
//     unauthenticated, matching how gem clients and browsers consume a public
//     registry. Viewer-dependent fields are filled in when a session token is
//     present but never required.
//   - Push routes (/api/v1/gems) always require an API key; linkset editing
//     and subscriptions require a session token.
package api

import (
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/gem-registry/gem-registry/internal/api/gems"
	"github.com/gem-registry/gem-registry/internal/auth"
	"github.com/gem-registry/gem-registry/internal/config"
	"github.com/gem-registry/gem-registry/internal/db/models"
	"github.com/gem-registry/gem-registry/internal/db/repositories"
	"github.com/gem-registry/gem-registry/internal/middleware"
	"github.com/gem-registry/gem-registry/internal/registry"
	"github.com/gem-registry/gem-registry/internal/safego"
	"github.com/gem-registry/gem-registry/internal/storage"
	"github.com/gem-registry/gem-registry/internal/telemetry"

	// Import storage backends to register them
	_ "github.com/gem-registry/gem-registry/internal/storage/local"
	_ "github.com/gem-registry/gem-registry/internal/storage/s3"
)

// dependencyCacheTTL bounds how stale a projected dependency list can be.
// Pushes invalidate eagerly, so the TTL only covers cross-process staleness.
const dependencyCacheTTL = 30 * time.Second

// BackgroundServices holds goroutines and resources that must be stopped
// during graceful shutdown. The caller (cmd/server) calls Shutdown() after the
// HTTP server has drained.
type BackgroundServices struct {
	rateLimiters []*middleware.RateLimiter
	dbStatsStop  chan struct{}
}

// Shutdown stops all background goroutines.
func (bg *BackgroundServices) Shutdown() {
	slog.Info("stopping background services")
	for _, rl := range bg.rateLimiters {
		rl.Stop()
	}
	if bg.dbStatsStop != nil {
		close(bg.dbStatsStop)
	}
	slog.Info("all background services stopped")
}

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, database *sql.DB) (*gin.Engine, *BackgroundServices) {
	router := gin.New()

	// Initialize storage backend
	store, err := storage.NewStorage(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage backend: %v", err)
	}
	slog.Info("initialized storage backend", "backend", cfg.Storage.DefaultBackend)

	// Wrap *sql.DB with sqlx for the linkset and subscription repositories
	sqlxDB := sqlx.NewDb(database, "postgres")

	userRepo := repositories.NewUserRepository(database)
	apiKeyRepo := repositories.NewAPIKeyRepository(database)

	cache := registry.NewDependencyCache(dependencyCacheTTL)

	readLimiter := middleware.NewRateLimiter(middleware.DefaultRateLimitConfig())
	pushLimiter := middleware.NewRateLimiter(middleware.PushRateLimitConfig())

	bg := &BackgroundServices{
		rateLimiters: []*middleware.RateLimiter{readLimiter, pushLimiter},
		dbStatsStop:  make(chan struct{}),
	}
	safego.Go(func() {
		telemetry.PollDBStats(database, 15*time.Second, bg.dbStatsStop)
	})

	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Metrics())
	router.Use(LoggerMiddleware(cfg))
	router.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig()))

	// Health check endpoint
	router.GET("/healthz", healthzHandler(database))

	baseURL := cfg.Server.BaseURL

	// Push and session issuance
	apiV1 := router.Group("/api/v1")
	apiV1.POST("/gems",
		middleware.RateLimit(pushLimiter),
		middleware.APIKeyAuth(userRepo, apiKeyRepo),
		gems.PushHandler(database, store, cache),
	)
	apiV1.POST("/sessions", middleware.RateLimit(readLimiter), sessionsHandler(userRepo))

	// Gem read surface and owner operations
	g := router.Group("/gems", middleware.RateLimit(readLimiter))
	g.GET("", gems.IndexHandler(database, sqlxDB, cache, baseURL))
	g.GET("/:id", middleware.OptionalSessionAuth(userRepo), gems.ShowHandler(database, sqlxDB, cache, baseURL))
	g.GET("/:id/edit", middleware.SessionAuth(userRepo), gems.EditHandler(database, sqlxDB))
	g.PUT("/:id", middleware.SessionAuth(userRepo), gems.UpdateHandler(database, sqlxDB))
	g.POST("/:id/subscription", middleware.SessionAuth(userRepo), gems.SubscribeHandler(database, sqlxDB))
	g.DELETE("/:id/subscription", middleware.SessionAuth(userRepo), gems.UnsubscribeHandler(database, sqlxDB))

	return router, bg
}

// healthzHandler reports liveness including database connectivity
func healthzHandler(database *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := database.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// sessionsHandler exchanges an email for a signed session token. This is the
// development identity flow; a production deployment fronts it with a real
// identity provider.
// Implements: POST /api/v1/sessions
func sessionsHandler(userRepo *repositories.UserRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var payload struct {
			Email string `json:"email" binding:"required,email"`
			Name  string `json:"name"`
		}
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "A valid email is required"})
			return
		}

		user, err := userRepo.GetUserByEmail(c.Request.Context(), payload.Email)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to look up user"})
			return
		}
		if user == nil {
			user = &models.User{Email: payload.Email, Name: payload.Name}
			if err := userRepo.CreateUser(c.Request.Context(), user); err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
				return
			}
		}

		token, err := auth.CreateSessionToken(user.ID, user.Email)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to issue session"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"token":      token,
			"expires_in": int(auth.SessionTTL.Seconds()),
		})
	}
}

// LoggerMiddleware provides structured request logging
func LoggerMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		requestID, _ := c.Get(middleware.RequestIDKey)

		slog.LogAttrs(
			c.Request.Context(),
			slog.LevelInfo,
			"http request",
			slog.String("method", c.Request.Method),
			slog.String("path", path),
			slog.String("query", query),
			slog.Int("status", c.Writer.Status()),
			slog.Int("size", c.Writer.Size()),
			slog.Duration("latency", latency),
			slog.String("ip", c.ClientIP()),
			slog.String("request_id", fmt.Sprintf("%v", requestID)),
			slog.String("user_agent", c.Request.UserAgent()),
		)
	}
}
