// internal/handlers/cleanup.go
package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/vmunix/tubebot/internal/events"
	"github.com/vmunix/tubebot/internal/storage"
)

// Defaults used when CleanupConfig fields are zero.
const (
	DefaultSweepHorizon  = time.Hour
	DefaultSweepInterval = 10 * time.Minute
)

// CleanupConfig configures the cleanup handler.
type CleanupConfig struct {
	Horizon  time.Duration // entries untouched for longer are removed
	Interval time.Duration
}

// Sweeper removes stale entries from the storage root.
type Sweeper interface {
	Sweep(horizon time.Duration) (storage.SweepResult, error)
}

// SessionPruner drops expired selection sessions.
type SessionPruner interface {
	Prune() int
}

// CleanupHandler periodically removes scratch directories leaked by crashed
// or killed jobs and drops expired sessions.
type CleanupHandler struct {
	*BaseHandler
	storage  Sweeper
	sessions SessionPruner // may be nil
	config   CleanupConfig
}

// NewCleanupHandler creates a new cleanup handler.
func NewCleanupHandler(bus *events.Bus, store Sweeper, sessions SessionPruner, config CleanupConfig, logger *slog.Logger) *CleanupHandler {
	if config.Horizon <= 0 {
		config.Horizon = DefaultSweepHorizon
	}
	if config.Interval <= 0 {
		config.Interval = DefaultSweepInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CleanupHandler{
		BaseHandler: NewBaseHandler(bus, logger.With("component", "cleanup")),
		storage:     store,
		sessions:    sessions,
		config:      config,
	}
}

// Name returns the handler name.
func (h *CleanupHandler) Name() string {
	return "cleanup"
}

// Start sweeps once immediately, then on every tick.
func (h *CleanupHandler) Start(ctx context.Context) error {
	h.Sweep(ctx)

	ticker := time.NewTicker(h.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			h.Sweep(ctx)
		}
	}
}

// Sweep runs one cleanup pass and returns its storage result.
func (h *CleanupHandler) Sweep(ctx context.Context) storage.SweepResult {
	res, err := h.storage.Sweep(h.config.Horizon)
	if err != nil {
		h.Logger().Error("sweep failed", "error", err)
		return res
	}

	pruned := 0
	if h.sessions != nil {
		pruned = h.sessions.Prune()
	}

	if res.Removed == 0 && res.Errors == 0 && pruned == 0 {
		h.Logger().Debug("sweep complete, nothing to remove", "skipped", res.Skipped)
		return res
	}

	h.Logger().Info("sweep complete",
		"removed", res.Removed,
		"skipped", res.Skipped,
		"errors", res.Errors,
		"sessions_pruned", pruned)

	h.publish(ctx, &events.StorageSwept{
		BaseEvent:      events.NewBaseEvent(events.EventStorageSwept, events.EntityStorage, "root"),
		Removed:        res.Removed,
		Errors:         res.Errors,
		SessionsPruned: pruned,
	})
	return res
}
