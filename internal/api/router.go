package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/taskdeck/backend-go/internal/config"
	"github.com/taskdeck/backend-go/internal/handler"
	"github.com/taskdeck/backend-go/internal/middleware"
)

func SetupRouter(
	cfg *config.Config,
	authHandler *handler.AuthHandler,
	todoHandler *handler.TodoHandler,
	authMiddleware *middleware.AuthMiddleware,
	rateLimiter middleware.RateLimiter,
	logger *slog.Logger,
) *gin.Engine {
	r := gin.Default()
	r.SetTrustedProxies(nil)

	// Public routes
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"version":   cfg.AppVersion,
		})
	})

	// Auth routes
	authGroup := r.Group("/api/auth")
	{
		authGroup.POST("/verify", authHandler.Verify)
		authGroup.GET("/me", authMiddleware.RequireAuth(), authHandler.Me)
	}

	// Protected todo routes; /api/tasks is a legacy alias serving the
	// same handlers.
	for _, prefix := range []string{"/api/todos", "/api/tasks"} {
		group := r.Group(prefix)
		group.Use(authMiddleware.RequireAuth(), middleware.Limit(rateLimiter, logger))
		{
			group.GET("", todoHandler.List)
			group.POST("", todoHandler.Create)
			group.GET("/deleted", todoHandler.ListDeleted)
			group.GET("/:slugOrId", todoHandler.Get)
			group.PATCH("/:slugOrId", todoHandler.Update)
			group.DELETE("/:slugOrId", todoHandler.Delete)
			group.POST("/:slugOrId/restore", todoHandler.Restore)
		}
	}

	return r
}
