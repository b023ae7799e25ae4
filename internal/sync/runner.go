package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"deskline.app/chatsync/common/logger"
	"deskline.app/chatsync/internal/model"
	"deskline.app/chatsync/internal/state"
)

// CustomerDeniedMessage is the fixed error shown to customer accounts.
const CustomerDeniedMessage = "Chat is not available for customer accounts"

type RunnerConfig struct {
	// PollInterval drives the conversation + unread refresh loop.
	PollInterval time.Duration
	// HeartbeatInterval drives the presence re-assertion loop.
	HeartbeatInterval time.Duration
}

// Runner owns the session lifecycle: initial load, the 10s refresh poll,
// the 30s presence heartbeat, and the offline mark on teardown.
type Runner struct {
	engine *Engine
	cfg    RunnerConfig

	// lastUnread is the baseline for the new-message delta notification.
	lastUnread int

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func NewRunner(engine *Engine, cfg RunnerConfig) *Runner {
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 10 * time.Second
	}
	if cfg.HeartbeatInterval == 0 {
		cfg.HeartbeatInterval = 30 * time.Second
	}
	return &Runner{
		engine:    engine,
		cfg:       cfg,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Run performs the initial load and then blocks, servicing the heartbeat
// and refresh tickers until Stop() or context cancellation. Customer
// accounts are denied up front: the error is set and no fetch is issued.
func (r *Runner) Run(ctx context.Context) error {
	defer close(r.stoppedCh)

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "chatsync.sync.runner",
		UserID:    logger.Ptr(r.engine.User().ID),
	})

	if !r.engine.User().Role.CanChat() {
		slog.InfoContext(ctx, "chat denied for role", "role", r.engine.User().Role)
		r.engine.Store().Dispatch(state.SetError{Message: CustomerDeniedMessage})
		return nil
	}

	if err := r.initialLoad(ctx); err != nil {
		slog.WarnContext(ctx, "initial load incomplete", "error", err)
	}
	r.lastUnread = r.engine.Store().State().UnreadCount

	heartbeat := time.NewTicker(r.cfg.HeartbeatInterval)
	defer heartbeat.Stop()
	poll := time.NewTicker(r.cfg.PollInterval)
	defer poll.Stop()

	slog.InfoContext(ctx, "sync runner started",
		"poll_interval", r.cfg.PollInterval,
		"heartbeat_interval", r.cfg.HeartbeatInterval)

	for {
		select {
		case <-ctx.Done():
			r.goOffline()
			return ctx.Err()
		case <-r.stopCh:
			slog.InfoContext(ctx, "sync runner stopping")
			r.goOffline()
			return nil
		case <-heartbeat.C:
			r.engine.UpdateStatus(ctx, onlineStatus(true))
		case <-poll.C:
			r.refreshOnce(ctx)
		}
	}
}

// Stop signals the runner to stop gracefully and waits for it.
func (r *Runner) Stop() {
	close(r.stopCh)
	<-r.stoppedCh
}

func (r *Runner) initialLoad(ctx context.Context) error {
	r.engine.Store().Dispatch(state.SetError{Message: ""})
	r.engine.Store().Dispatch(state.SetLoading{Loading: true})
	defer r.engine.Store().Dispatch(state.SetLoading{Loading: false})

	if err := r.engine.FetchEmployees(ctx); err != nil {
		return err
	}
	if err := r.engine.FetchConversations(ctx); err != nil {
		return err
	}
	if _, err := r.engine.RefreshUnreadCount(ctx); err != nil {
		return err
	}
	r.engine.UpdateStatus(ctx, onlineStatus(true))
	return nil
}

// refreshOnce runs one poll cycle. It skips entirely while the client is
// inside a rate-limited window — polling through the window would only queue
// more requests behind it.
func (r *Runner) refreshOnce(ctx context.Context) {
	if until := r.engine.api.RateLimitedUntil(); time.Now().Before(until) {
		slog.DebugContext(ctx, "skipping refresh, rate limited", "until", until)
		return
	}

	if err := r.engine.FetchConversations(ctx); err != nil {
		return
	}
	count, err := r.engine.RefreshUnreadCount(ctx)
	if err != nil {
		return
	}
	if count > r.lastUnread {
		delta := count - r.lastUnread
		r.engine.notifier.Notify(ctx, fmt.Sprintf("You have %d new message(s)", delta))
	}
	r.lastUnread = count
}

// goOffline marks the agent offline on teardown. The run context may
// already be cancelled, so the call gets its own short deadline.
func (r *Runner) goOffline() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.engine.UpdateStatus(ctx, onlineStatus(false))
}

func onlineStatus(online bool) model.StatusUpdate {
	return model.StatusUpdate{IsOnline: &online}
}
