package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prepgrid/testprep-backend/internal/config"
	"github.com/prepgrid/testprep-backend/internal/handler"
	"github.com/prepgrid/testprep-backend/internal/middleware"
	"github.com/prepgrid/testprep-backend/internal/response"
	"github.com/prepgrid/testprep-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth      *handler.AuthHandler
	Paper     *handler.PaperHandler
	Attempt   *handler.AttemptHandler
	Session   *handler.SessionHandler
	SessionWS *handler.SessionWSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Serve question images and other paper assets with aggressive caching.
	assetsGroup := router.Group("/assets")
	assetsGroup.Use(middleware.CacheControl(31536000))
	{
		assetsGroup.Static("/", cfg.PaperDir+"/assets")
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/login", handlers.Auth.Login)

		// Authenticated profile routes
		auth.POST("/logout", middleware.RequireJWT(authService), handlers.Auth.Logout)
		auth.GET("/me", middleware.RequireJWT(authService), handlers.Auth.Me)
	}

	// ─── 2. Candidate Group (JWT + Single Device) ──────────────────────
	api := router.Group("/api/v1")
	api.Use(
		middleware.RequireJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		api.GET("/papers", handlers.Paper.ListPapers)
		api.GET("/papers/:paper_id", handlers.Paper.GetPaper)

		api.POST("/attempts", handlers.Attempt.CreateAttempt)
		api.GET("/attempts", handlers.Attempt.ListAttempts)
		api.GET("/attempts/trend", handlers.Attempt.ScoreTrend)
		api.GET("/attempts/:attempt_id", handlers.Attempt.GetAttempt)
		api.GET("/attempts/:attempt_id/review", handlers.Attempt.Review)
		api.PATCH("/attempts/:attempt_id/progress", handlers.Attempt.SaveProgress)
		api.POST("/attempts/:attempt_id/submit", handlers.Attempt.Submit)

		api.GET("/attempts/:attempt_id/session", handlers.Session.State)
		api.POST("/attempts/:attempt_id/session/start", handlers.Session.Start)
		api.POST("/attempts/:attempt_id/session/navigate", handlers.Session.Navigate)
		api.POST("/attempts/:attempt_id/session/answer", handlers.Session.SetAnswer)
		api.POST("/attempts/:attempt_id/session/clear", handlers.Session.ClearAnswer)
		api.POST("/attempts/:attempt_id/session/mark", handlers.Session.ToggleMark)
		api.POST("/attempts/:attempt_id/session/proctor", handlers.Session.ProctorEvent)
	}

	// ─── 3. WebSocket Group (WS Auth via query token) ──────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireWSAuth(authService))
	{
		ws.GET("/attempts/:attempt_id/stream", handlers.SessionWS.AttemptStream)
	}

	return router
}
