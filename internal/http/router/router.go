package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/arbiter-backend/internal/config"
	"github.com/ignatzorin/arbiter-backend/internal/http/handlers"
	"github.com/ignatzorin/arbiter-backend/internal/http/middleware"
	"github.com/ignatzorin/arbiter-backend/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	disputeHandler *handlers.DisputeHandler,
	judgmentHandler *handlers.JudgmentHandler,
	entitlementHandler *handlers.EntitlementHandler,
	healthHandler *handlers.HealthHandler,
	wsHandler *handlers.WSHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod))
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
	}

	// WebSocket авторизуется токеном в query, не заголовком.
	api.GET("/ws", wsHandler.Handle)

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.GET("/entitlements", entitlementHandler.Get)

		protected.POST("/disputes", disputeHandler.Create)
		protected.GET("/disputes", disputeHandler.List)

		byID := protected.Group("/disputes/:id")
		byID.Use(middleware.UUIDValidator("id"))
		{
			byID.GET("", disputeHandler.Get)
			byID.DELETE("", disputeHandler.Delete)
			byID.POST("/turns", disputeHandler.AppendTurn)
			byID.POST("/upload-url", disputeHandler.UploadURL)
			byID.POST("/judge", judgmentHandler.Judge)
			byID.GET("/verdict", judgmentHandler.Verdict)
		}
	}

	return r
}
