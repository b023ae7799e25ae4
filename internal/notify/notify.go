// Package notify delivers one-shot user-facing notices (toasts in the UI,
// log lines in headless mode). Notices are informational and must never
// block the flow that raises them.
package notify

import (
	"context"
	"log/slog"
)

type Notifier interface {
	Notify(ctx context.Context, message string)
}

// Func adapts a plain function to the Notifier interface.
type Func func(ctx context.Context, message string)

func (f Func) Notify(ctx context.Context, message string) {
	f(ctx, message)
}

// Log is the headless notifier used by the sync daemon.
type Log struct{}

func (Log) Notify(ctx context.Context, message string) {
	slog.InfoContext(ctx, "user notice", "message", message)
}
