// internal/handlers/handler.go
package handlers

import (
	"context"
	"log/slog"

	"github.com/vmunix/tubebot/internal/events"
)

// Handler is a long-running background task. The server runs every handler
// until its context ends.
type Handler interface {
	// Start runs until ctx is cancelled (blocking).
	Start(ctx context.Context) error

	// Name returns handler name for logging.
	Name() string
}

// BaseHandler provides common handler functionality.
type BaseHandler struct {
	bus    *events.Bus
	logger *slog.Logger
}

// NewBaseHandler creates a base handler.
func NewBaseHandler(bus *events.Bus, logger *slog.Logger) *BaseHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &BaseHandler{
		bus:    bus,
		logger: logger,
	}
}

// publish sends e on the bus, logging rather than failing on error.
func (h *BaseHandler) publish(ctx context.Context, e events.Event) {
	if err := h.bus.Publish(ctx, e); err != nil {
		h.logger.Error("failed to publish event", "type", e.EventType(), "error", err)
	}
}

// Bus returns the event bus.
func (h *BaseHandler) Bus() *events.Bus {
	return h.bus
}

// Logger returns the handler's logger.
func (h *BaseHandler) Logger() *slog.Logger {
	return h.logger
}
