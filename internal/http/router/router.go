package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/marketplace-backend/internal/config"
	"github.com/ignatzorin/marketplace-backend/internal/http/handlers"
	"github.com/ignatzorin/marketplace-backend/internal/http/middleware"
	"github.com/ignatzorin/marketplace-backend/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	listingHandler *handlers.ListingHandler,
	threadHandler *handlers.ThreadHandler,
	reportHandler *handlers.ReportHandler,
	uploadHandler *handlers.UploadHandler,
	wsHandler *handlers.WSHandler,
	healthHandler *handlers.HealthHandler,
	tokenManager *service.TokenManager,
	users middleware.UserLoader,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)
	r.StaticFS("/attachments", http.Dir(cfg.AttachmentStoragePath))

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(5, cfg.RateLimitPeriod))
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
	}

	// Публичные маршруты
	api.GET("/ws", wsHandler.Handle)
	api.GET("/listings/:id", middleware.UUIDValidator("id"), listingHandler.Get)

	// Защищённые маршруты
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.POST("/listings", listingHandler.Create)
		protected.GET("/listings/my", listingHandler.ListMine)

		protected.POST("/uploads", uploadHandler.Upload)

		protected.POST("/users/:id/block", middleware.UUIDValidator("id"), threadHandler.BlockUser)

		marketplace := protected.Group("/marketplace")
		{
			marketplace.POST("/listings/:id/thread", middleware.UUIDValidator("id"), threadHandler.Create)
			marketplace.GET("/threads", threadHandler.List)
			marketplace.GET("/threads/:id", middleware.UUIDValidator("id"), threadHandler.Get)
			marketplace.GET("/threads/:id/messages", middleware.UUIDValidator("id"), threadHandler.History)

			// Отправка сообщений под rate limit
			sendRateLimit := middleware.RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitPeriod)
			marketplace.POST("/threads/:id/messages", middleware.UUIDValidator("id"), sendRateLimit, threadHandler.Send)

			marketplace.POST("/threads/:id/read", middleware.UUIDValidator("id"), threadHandler.MarkRead)
			marketplace.POST("/threads/:id/block", middleware.UUIDValidator("id"), threadHandler.Block)
			marketplace.POST("/messages/:id/report", middleware.UUIDValidator("id"), reportHandler.Report)
		}

		admin := protected.Group("/admin")
		admin.Use(middleware.RequireModerator(users))
		{
			admin.GET("/reports", reportHandler.ListPending)
			admin.PUT("/reports/:id", middleware.UUIDValidator("id"), reportHandler.Review)
		}
	}

	return r
}
