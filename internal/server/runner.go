// Package server wires the bot's components from configuration and runs them.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"

	"github.com/vmunix/tubebot/internal/bot"
	"github.com/vmunix/tubebot/internal/config"
	"github.com/vmunix/tubebot/internal/control"
	"github.com/vmunix/tubebot/internal/events"
	"github.com/vmunix/tubebot/internal/handlers"
	"github.com/vmunix/tubebot/internal/job"
	"github.com/vmunix/tubebot/internal/media"
	"github.com/vmunix/tubebot/internal/migrations"
	"github.com/vmunix/tubebot/internal/progress"
	"github.com/vmunix/tubebot/internal/ratelimit"
	"github.com/vmunix/tubebot/internal/storage"
)

// Extractor is the extraction collaborator: metadata probes and downloads.
type Extractor interface {
	media.Prober
	job.Fetcher
}

// Deps are the outside-world collaborators. DB may be nil to run without
// persistence.
type Deps struct {
	Messenger bot.Messenger
	Extractor Extractor
	DB        *sql.DB
}

// Runner owns the wired component graph.
type Runner struct {
	config *config.Config
	logger *slog.Logger

	bus          *events.Bus
	storage      *storage.Manager
	orchestrator *job.Orchestrator
	handlers     []handlers.Handler
}

// OpenDB opens the SQLite database at path and applies migrations.
func OpenDB(path string) (*sql.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := migrations.Apply(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// NewRunner builds every component from cfg.
func NewRunner(cfg *config.Config, deps Deps, logger *slog.Logger) (*Runner, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Messenger == nil || deps.Extractor == nil {
		return nil, errors.New("server: messenger and extractor are required")
	}

	var journal *events.EventLog
	if deps.DB != nil {
		journal = events.NewEventLog(deps.DB)
	}
	var busJournal events.Journal
	if journal != nil {
		busJournal = journal
	}
	bus := events.NewBus(busJournal, logger.With("component", "bus"))

	store, err := storage.NewManager(cfg.Storage.Root, logger.With("component", "storage"))
	if err != nil {
		return nil, err
	}

	usage := job.NewUsage(deps.DB)
	if err := usage.Load(); err != nil {
		return nil, fmt.Errorf("load usage: %w", err)
	}

	loop := control.New(cfg.Progress.ControlQueue, logger.With("component", "control"))
	sessions := job.NewSessionStore(cfg.Limits.SessionTTL)

	resolver := media.NewResolver(deps.Extractor, ResolverConfig(cfg), logger.With("component", "resolver"))

	orch := job.New(job.Deps{
		Resolver:  resolver,
		Limiter:   ratelimit.New(cfg.Limits.Cooldown),
		Storage:   store,
		Fetcher:   deps.Extractor,
		Sink:      deps.Messenger,
		Deliverer: deps.Messenger,
		Handoff:   loop,
		Bus:       bus,
		Sessions:  sessions,
		Usage:     usage,
		Pool:      job.NewPool(cfg.Limits.MaxConcurrentJobs, logger.With("component", "pool")),
	}, job.Config{
		MaxFileSize:   cfg.Limits.MaxFileSize.Int64(),
		FetchTimeout:  cfg.Extractor.FetchTimeout,
		UploadTimeout: cfg.Limits.UploadTimeout,
		MetadataTTL:   cfg.Limits.MetadataTTL,
		AudioCodec:    cfg.Extractor.AudioCodec,
		Progress: progress.Options{
			Interval:       cfg.Progress.Interval,
			MinDelta:       cfg.Progress.MinDelta,
			HandoffTimeout: cfg.Progress.HandoffTimeout,
		},
	}, logger.With("component", "orchestrator"))

	cleanup := handlers.NewCleanupHandler(bus, store, sessions, handlers.CleanupConfig{
		Horizon:  cfg.Storage.SweepHorizon,
		Interval: cfg.Storage.SweepInterval,
	}, logger)

	var pruner handlers.Pruner
	if journal != nil {
		pruner = journal
	}
	journalHandler := handlers.NewJournalHandler(bus, pruner, handlers.JournalConfig{
		MaxAge: cfg.Database.JournalMaxAge,
	}, logger)

	return &Runner{
		config:       cfg,
		logger:       logger,
		bus:          bus,
		storage:      store,
		orchestrator: orch,
		handlers: []handlers.Handler{
			loop,
			orch,
			bot.New(deps.Messenger, orch, logger.With("component", "bot")),
			cleanup,
			journalHandler,
		},
	}, nil
}

// ResolverConfig maps the extractor and limits sections onto resolver policy.
func ResolverConfig(cfg *config.Config) media.Config {
	tiers := make([]media.AudioTier, 0, len(cfg.Extractor.AudioTiers))
	for _, t := range cfg.Extractor.AudioTiers {
		tiers = append(tiers, media.AudioTier(t))
	}
	return media.Config{
		MaxDuration:     cfg.Limits.MaxDuration,
		ProbeTimeout:    cfg.Extractor.ProbeTimeout,
		MaxVideoOptions: cfg.Extractor.MaxVideoOptions,
		AudioTiers:      tiers,
	}
}

// Orchestrator returns the job orchestrator.
func (r *Runner) Orchestrator() *job.Orchestrator {
	return r.orchestrator
}

// Bus returns the event bus.
func (r *Runner) Bus() *events.Bus {
	return r.bus
}

// Run starts every component and blocks until ctx is cancelled or one of
// them fails. In-flight jobs are cancelled and their scopes released before
// Run returns.
func (r *Runner) Run(ctx context.Context) error {
	defer func() { _ = r.bus.Close() }()

	g, gctx := errgroup.WithContext(ctx)
	for _, h := range r.handlers {
		g.Go(func() error {
			r.logger.Debug("starting handler", "handler", h.Name())
			err := h.Start(gctx)
			switch {
			case err == nil && gctx.Err() == nil:
				return fmt.Errorf("%s stopped unexpectedly", h.Name())
			case err == nil, errors.Is(err, context.Canceled):
				return nil
			default:
				return fmt.Errorf("%s: %w", h.Name(), err)
			}
		})
	}

	r.logger.Info("bot running",
		"storage_root", r.storage.Root(),
		"max_jobs", r.config.Limits.MaxConcurrentJobs,
		"cooldown", r.config.Limits.Cooldown)

	err := g.Wait()
	if left := r.storage.Active(); left > 0 {
		r.logger.Warn("scopes still held at shutdown", "count", left)
	}
	return err
}
