package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vmunix/tubebot/internal/adapters/telegram"
	"github.com/vmunix/tubebot/internal/adapters/ytdlp"
	"github.com/vmunix/tubebot/internal/server"
)

var installExtractor bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the bot",
	Long:  "Connects to Telegram and serves download requests until interrupted.",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&installExtractor, "install-ytdlp", false, "Download yt-dlp if it is not already available")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, path, err := loadConfig(true)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := newLogger(os.Stderr, cfg.Server)
	logger.Info("starting tubebot", "version", version, "config", path)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if installExtractor && cfg.Extractor.Binary == "" {
		logger.Info("ensuring yt-dlp is installed")
		if err := ytdlp.Install(ctx); err != nil {
			return err
		}
	}

	var db *sql.DB
	if cfg.Database.Path != "" {
		db, err = server.OpenDB(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer func() { _ = db.Close() }()
	}

	msgr, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: cfg.Telegram.PollTimeout,
		HTTPTimeout: cfg.Limits.UploadTimeout + cfg.Extractor.SocketTimeout,
		Debug:       cfg.Telegram.Debug,
	}, logger)
	if err != nil {
		return err
	}

	extractor := ytdlp.New(extractorConfig(cfg), logger)

	runner, err := server.NewRunner(cfg, server.Deps{
		Messenger: msgr,
		Extractor: extractor,
		DB:        db,
	}, logger)
	if err != nil {
		return err
	}

	err = runner.Run(ctx)
	if err != nil && ctx.Err() == nil {
		logger.Error("bot stopped", "error", err)
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

// signalContext is used by commands that block on the extractor.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
