package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"deskline.app/chatsync/common/id"
	"deskline.app/chatsync/common/logger"
	"deskline.app/chatsync/core/config"
	"deskline.app/chatsync/internal/devserver"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeDevServer)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Setup(cfg)

	if err := id.Init(1); err != nil {
		slog.ErrorContext(ctx, "failed to initialize id generator", "error", err)
		os.Exit(1)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := devserver.NewRouter(cfg.DevServer)
	server := &http.Server{
		Addr:    ":" + cfg.DevServer.Port,
		Handler: router,
	}

	go func() {
		slog.InfoContext(ctx, "devserver listening",
			"port", cfg.DevServer.Port,
			"rate_limit", cfg.DevServer.RateLimit)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.ErrorContext(ctx, "server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down devserver...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.WarnContext(ctx, "server shutdown error", "error", err)
	}

	slog.InfoContext(ctx, "devserver shutdown complete")
}
