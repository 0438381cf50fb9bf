package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tolgaturan/authgate/internal/api"
	"github.com/tolgaturan/authgate/internal/config"
	"github.com/tolgaturan/authgate/internal/database"
	"github.com/tolgaturan/authgate/internal/database/repository"
	"github.com/tolgaturan/authgate/internal/database/service"
	"github.com/tolgaturan/authgate/internal/handler"
	"github.com/tolgaturan/authgate/internal/logger"
	"github.com/tolgaturan/authgate/internal/middleware"
	"github.com/tolgaturan/authgate/internal/token"
	"github.com/tolgaturan/authgate/internal/worker"
)

func main() {
	// 1. Config
	cfg := config.LoadConfig()

	// 2. Logger
	appLogger := logger.New(cfg)

	appLogger.Info("🚀 [AuthGate] Starting...",
		"environment", cfg.AppEnv,
	)

	if err := cfg.Validate(); err != nil {
		appLogger.Error("❌ Invalid configuration", "error", err)
		os.Exit(1)
	}

	// 3. Connect to Database
	db, err := database.Connect(cfg, appLogger)
	if err != nil {
		appLogger.Error("❌ Failed to connect to database", "error", err)
		os.Exit(1)
	}

	// 4. Initialize Repositories
	userRepo := repository.NewUserRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db,
		time.Duration(cfg.RefreshTokenExpiration)*time.Second)

	// 5. Initialize Token Manager & Service
	tokenManager := token.NewManager(
		cfg.JWTAccessSecret,
		cfg.JWTRefreshSecret,
		time.Duration(cfg.AccessTokenExpiration)*time.Second,
		time.Duration(cfg.RefreshTokenExpiration)*time.Second,
	)
	authService := service.NewAuthService(userRepo, refreshTokenRepo, tokenManager, cfg, appLogger)

	// 6. Initialize Handlers & Middleware
	authHandler := handler.NewAuthHandler(authService, appLogger)
	authMiddleware := middleware.NewAuthMiddleware(authService, appLogger)

	// 7. Initialize Rate Limiter
	rateLimiter, err := middleware.NewRateLimiter(cfg, appLogger)
	if err != nil {
		appLogger.Warn("⚠️ Failed to connect to Redis, using no-op rate limiter", "error", err)
		rateLimiter = middleware.NewNoOpRateLimiter(appLogger)
	}
	defer rateLimiter.Close()

	// 8. Start Token Cleanup Sweeper
	sweeper := worker.NewCleanupSweeper(refreshTokenRepo,
		time.Duration(cfg.TokenCleanupInterval)*time.Second, appLogger)
	sweeper.Start()

	// 9. Setup Router & HTTP Server
	r := api.SetupRouter(authHandler, authMiddleware, rateLimiter)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ApiServicePort),
		Handler: r,
	}

	go func() {
		appLogger.Info("🌍 [AuthGate] HTTP Server running...", "port", cfg.ApiServicePort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Error("❌ HTTP Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// 10. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("🛑 [AuthGate] Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("❌ HTTP Server shutdown failed", "error", err)
	}

	sweeper.Shutdown(5 * time.Second)

	appLogger.Info("✅ [AuthGate] Shutdown complete")
}
