package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/skilldesk/skilldesk-backend/internal/config"
	"github.com/skilldesk/skilldesk-backend/internal/handler"
	"github.com/skilldesk/skilldesk-backend/internal/middleware"
	"github.com/skilldesk/skilldesk-backend/internal/response"
	"github.com/skilldesk/skilldesk-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Quiz    *handler.QuizHandler
	Proctor *handler.ProctorHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	tokenService *service.TokenService,
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
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID", "X-Proctor-Key"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Apply brotli middleware globally.
	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for attempt creation (10 requests per minute per IP).
	createLimiter := middleware.NewRateLimiter(10, time.Minute)

	// ─── 1. Attempt Creation (Public, Rate Limited) ────────────────────
	attempts := router.Group("/api/v1/attempts")
	attempts.Use(middleware.NoStore())
	{
		attempts.POST("", createLimiter.Middleware(), handlers.Quiz.CreateAttempt)

		// Token-gated attempt routes.
		authed := attempts.Group("")
		authed.Use(middleware.RequireAttemptToken(tokenService))
		{
			authed.GET("/current", handlers.Quiz.CurrentQuestion)
			authed.POST("/answer", handlers.Quiz.SubmitAnswer)
			authed.POST("/attention-loss", handlers.Quiz.ReportAttentionLoss)
			authed.POST("/restart", handlers.Quiz.RestartAttempt)
		}
	}

	// ─── 2. Proctor Stream (Access Key) ────────────────────────────────
	// No key hash configured means no proctor endpoint at all.
	if cfg.ProctorKeyHash != "" {
		ws := router.Group("/ws/v1")
		ws.Use(middleware.RequireProctorKey(cfg.ProctorKeyHash))
		{
			ws.GET("/proctor/integrity", handlers.Proctor.IntegrityStream)
		}
	}

	return router
}
