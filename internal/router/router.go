package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/prepnest/assess-backend/internal/config"
	"github.com/prepnest/assess-backend/internal/handler"
	"github.com/prepnest/assess-backend/internal/middleware"
	"github.com/prepnest/assess-backend/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Session *handler.SessionHandler
	WS      *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(handlers *Handlers, cfg *config.Config) *gin.Engine {
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
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Beacon traffic arrives in bursts on page unload; cap it per IP.
	beaconLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Session Group (JWT) ────────────────────────────────────────
	api := router.Group("/api/v1")
	api.Use(middleware.RequireJWT(cfg.JWTSecret))
	{
		api.GET("/exams", handlers.Session.ListExams)
		api.GET("/exams/:exam_id/paper", handlers.Session.GetExamPaper)
		api.GET("/exams/:exam_id/state", handlers.Session.GetSessionState)
		api.POST("/exams/:exam_id/violations", beaconLimiter.Middleware(), handlers.Session.ReportViolation)
	}

	// ─── 2. WebSocket Group (WS Auth via ?token=) ──────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireWSAuth(cfg.JWTSecret))
	{
		ws.GET("/exams/:exam_id/session", handlers.WS.SessionStream)
	}

	return router
}
