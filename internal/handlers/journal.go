// internal/handlers/journal.go
package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/vmunix/tubebot/internal/events"
)

// Defaults used when JournalConfig fields are zero.
const (
	DefaultJournalMaxAge        = 7 * 24 * time.Hour
	DefaultJournalPruneInterval = time.Hour
)

// JournalConfig configures the journal handler.
type JournalConfig struct {
	MaxAge        time.Duration
	PruneInterval time.Duration
}

// Pruner deletes journaled events older than a cutoff.
type Pruner interface {
	Prune(olderThan time.Duration) (int64, error)
}

// JournalHandler logs job outcomes from the bus and keeps the event journal
// bounded.
type JournalHandler struct {
	*BaseHandler
	journal Pruner // may be nil when persistence is off
	config  JournalConfig
}

// NewJournalHandler creates a new journal handler.
func NewJournalHandler(bus *events.Bus, journal Pruner, config JournalConfig, logger *slog.Logger) *JournalHandler {
	if config.MaxAge <= 0 {
		config.MaxAge = DefaultJournalMaxAge
	}
	if config.PruneInterval <= 0 {
		config.PruneInterval = DefaultJournalPruneInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &JournalHandler{
		BaseHandler: NewBaseHandler(bus, logger.With("component", "journal")),
		journal:     journal,
		config:      config,
	}
}

// Name returns the handler name.
func (h *JournalHandler) Name() string {
	return "journal"
}

// Start consumes lifecycle events until ctx ends or the bus closes.
func (h *JournalHandler) Start(ctx context.Context) error {
	all := h.Bus().SubscribeAll(100)
	defer h.Bus().Unsubscribe(all)

	h.prune()
	ticker := time.NewTicker(h.config.PruneInterval)
	defer ticker.Stop()

	for {
		select {
		case e, ok := <-all:
			if !ok {
				return nil // bus closed
			}
			h.record(e)
		case <-ticker.C:
			h.prune()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// record logs terminal job outcomes and rejections. Progress and
// transitions stay at debug.
func (h *JournalHandler) record(e events.Event) {
	log := h.Logger()
	switch ev := e.(type) {
	case *events.JobCompleted:
		log.Info("job completed", "job_id", ev.EntityID(), "identity", ev.Identity,
			"size", ev.Size, "elapsed_s", ev.Elapsed)
	case *events.JobFailed:
		log.Warn("job failed", "job_id", ev.EntityID(), "identity", ev.Identity,
			"from", ev.From, "kind", ev.Kind)
	case *events.JobCancelled:
		log.Info("job cancelled", "job_id", ev.EntityID(), "identity", ev.Identity, "from", ev.From)
	case *events.RequestRejected:
		log.Info("request rejected", "identity", ev.Identity, "kind", ev.Kind, "reason", ev.Reason)
	default:
		log.Debug("event", "type", e.EventType(), "entity_type", e.EntityType(), "entity_id", e.EntityID())
	}
}

func (h *JournalHandler) prune() {
	if h.journal == nil {
		return
	}
	n, err := h.journal.Prune(h.config.MaxAge)
	if err != nil {
		h.Logger().Error("journal prune failed", "error", err)
		return
	}
	if n > 0 {
		h.Logger().Info("journal pruned", "removed", n, "max_age", h.config.MaxAge)
	}
}
