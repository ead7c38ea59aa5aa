package main

import (
	"fmt"
	"os"
	"time"

	"github.com/taskdeck/backend-go/internal/api"
	"github.com/taskdeck/backend-go/internal/config"
	"github.com/taskdeck/backend-go/internal/database"
	"github.com/taskdeck/backend-go/internal/database/repository"
	"github.com/taskdeck/backend-go/internal/database/service"
	"github.com/taskdeck/backend-go/internal/handler"
	"github.com/taskdeck/backend-go/internal/idp"
	"github.com/taskdeck/backend-go/internal/logger"
	"github.com/taskdeck/backend-go/internal/middleware"
)

func main() {
	// 1. Config
	cfg := config.LoadConfig()

	// 2. Logger
	appLogger := logger.New(cfg)

	appLogger.Info("🚀 [Go] Starting taskdeck API...",
		"environment", cfg.AppEnv,
		"version", cfg.AppVersion,
	)

	// 3. Connect to Database
	db, err := database.Connect(cfg, appLogger)
	if err != nil {
		appLogger.Error("❌ Failed to connect to database", "error", err)
		os.Exit(1)
	}

	// 4. Initialize Repositories
	userRepo := repository.NewUserRepository(db)
	todoRepo := repository.NewTodoRepository(db)

	// 5. Initialize Services
	userService := service.NewUserService(userRepo, appLogger)
	todoService := service.NewTodoService(todoRepo, appLogger)

	// 6. Initialize Token Verifier
	var verifier idp.Verifier
	if cfg.IDPDevSecret != "" {
		appLogger.Warn("⚠️ Using HS256 dev secret for token verification - not for production")
		verifier = idp.NewHSVerifier(cfg.IDPDevSecret, cfg.IDPIssuer, cfg.IDPAudience)
	} else {
		verifier = idp.NewJWKSVerifier(
			cfg.IDPJWKSURL,
			cfg.IDPIssuer,
			cfg.IDPAudience,
			time.Duration(cfg.IDPJWKSRefreshSecs)*time.Second,
			appLogger,
		)
	}

	// 7. Initialize Rate Limiter
	rateLimiter, err := middleware.NewRateLimiter(cfg, appLogger)
	if err != nil {
		appLogger.Warn("⚠️ Failed to connect to Redis, using no-op rate limiter", "error", err)
		rateLimiter = middleware.NewNoOpRateLimiter(appLogger)
	}
	defer rateLimiter.Close()

	// 8. Initialize Handlers & Middleware
	authMiddleware := middleware.NewAuthMiddleware(verifier, userService, appLogger)
	authHandler := handler.NewAuthHandler(verifier, userService, appLogger)
	todoHandler := handler.NewTodoHandler(todoService, appLogger)

	// 9. Setup Router
	r := api.SetupRouter(cfg, authHandler, todoHandler, authMiddleware, rateLimiter, appLogger)

	// 10. Start HTTP Server
	addr := fmt.Sprintf(":%s", cfg.ApiServicePort)
	appLogger.Info("🌍 [Go] HTTP Server running on port...", "port", addr)
	if err := r.Run(addr); err != nil {
		appLogger.Error("❌ HTTP Server failed to start", "error", err)
		os.Exit(1)
	}
}
