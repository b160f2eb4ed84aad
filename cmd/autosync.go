package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/marcus/trail/internal/app"
	"github.com/marcus/trail/internal/config"
)

// autoSyncAfterMutation runs a debounced push after a mutating command
// completes. A one-shot process cannot outlive the debounce timer, so the
// window is collapsed with Flush. Errors are absorbed into sync status and
// the durable queue; they are never returned to the mutation caller.
func autoSyncAfterMutation(a *app.App) {
	if !config.AutoSyncEnabled() {
		return
	}
	if !a.Session.IsSignedIn() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	a.Syncer.RequestSync()
	if err := a.Syncer.Flush(ctx); err != nil {
		slog.Debug("auto-sync deferred", "error", err)
	}
}
