package main

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vmunix/tubebot/internal/config"
)

var version = "dev"

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "tubebot",
	Short: "Telegram bot that downloads videos and audio on request",
	Long: `tubebot - Telegram bot that downloads videos and audio on request

Send the bot a link, pick a quality, and it uploads the file back
to the chat. Downloads run through yt-dlp.

Run 'tubebot serve' to start the bot.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: discovered)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override server.log_level")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate("tubebot {{.Version}}\n")
}

// resolveConfigPath returns --config or the first discovered config file.
func resolveConfigPath() (string, error) {
	if configPath != "" {
		return configPath, nil
	}
	return config.Discover()
}

// loadConfig loads and optionally validates the configuration.
func loadConfig(validate bool) (*config.Config, string, error) {
	path, err := resolveConfigPath()
	if err != nil {
		return nil, "", err
	}
	var cfg *config.Config
	if validate {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadWithoutValidation(path)
	}
	if err != nil {
		return nil, path, err
	}
	if logLevel != "" {
		cfg.Server.LogLevel = logLevel
	}
	return cfg, path, nil
}

// newLogger builds the process logger from the server section.
func newLogger(w io.Writer, cfg config.ServerConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)}
	if strings.EqualFold(cfg.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

