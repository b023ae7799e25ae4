package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"deskline.app/chatsync/common/logger"
	"deskline.app/chatsync/common/otel"
	"deskline.app/chatsync/core/config"
	"deskline.app/chatsync/internal/api"
	"deskline.app/chatsync/internal/notify"
	"deskline.app/chatsync/internal/session"
	"deskline.app/chatsync/internal/state"
	"deskline.app/chatsync/internal/sync"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeAgent)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Setup(cfg)

	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		slog.ErrorContext(ctx, "failed to set up telemetry", "error", err)
		os.Exit(1)
	}

	source, err := session.NewSource(cfg.ChatAPI.Token)
	if err != nil {
		slog.ErrorContext(ctx, "invalid session token", "error", err)
		os.Exit(1)
	}

	slog.InfoContext(ctx, "chatsync agent starting",
		"env", cfg.Env,
		"base_url", cfg.ChatAPI.BaseURL,
		"user_id", source.User().ID,
		"role", source.User().Role)

	notifier := notify.Log{}
	client := api.New(api.Config{
		BaseURL: cfg.ChatAPI.BaseURL,
		Timeout: cfg.ChatAPI.Timeout,
	}, source, notifier)

	store := state.NewStore()
	store.Subscribe(func(s state.State) {
		if s.Error != "" {
			slog.WarnContext(ctx, "chat state error", "error", s.Error)
		}
	})

	engine := sync.NewEngine(client, store, notifier, source.User())
	runner := sync.NewRunner(engine, sync.RunnerConfig{
		PollInterval:      cfg.Sync.PollInterval,
		HeartbeatInterval: cfg.Sync.HeartbeatInterval,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- runner.Run(ctx)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down agent...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	runner.Stop()

	select {
	case <-shutdownCtx.Done():
		slog.WarnContext(ctx, "shutdown timeout exceeded")
	case err := <-errCh:
		if err != nil {
			slog.ErrorContext(ctx, "runner error during shutdown", "error", err)
		}
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.WarnContext(ctx, "telemetry shutdown error", "error", err)
		}
	}

	slog.InfoContext(ctx, "agent shutdown complete")
}
