package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/vmunix/tubebot/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
}

var configTestCmd = &cobra.Command{
	Use:   "test [path]",
	Short: "Validate configuration file",
	Long:  "Validates config.toml syntax, required fields, and environment variable substitution without starting the bot.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigTest,
}

var initForce bool

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write an example configuration file",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigInit,
}

func init() {
	configInitCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing file")
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configTestCmd, configInitCmd)
}

func runConfigTest(cmd *cobra.Command, args []string) error {
	path, err := pathArg(args)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Validating %s...\n\n", path)

	cfg, err := config.Load(path)
	if err != nil {
		var configErr *config.ConfigError
		if errors.As(err, &configErr) {
			printConfigErrors(out, configErr)
			return fmt.Errorf("configuration invalid")
		}
		return fmt.Errorf("failed to load config: %w", err)
	}

	printConfigSummary(out, cfg)
	fmt.Fprintln(out, "\nConfiguration valid!")
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := config.DefaultPath()
	if len(args) > 0 {
		path = args[0]
	}
	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("%s already exists, use --force to overwrite", path)
	}
	if err := config.WriteDefault(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\nSet TUBEBOT_TELEGRAM_TOKEN and run 'tubebot serve'.\n", path)
	return nil
}

func pathArg(args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	return resolveConfigPath()
}

func printConfigErrors(w io.Writer, e *config.ConfigError) {
	if len(e.Missing) > 0 {
		fmt.Fprintln(w, "Missing environment variables:")
		for _, m := range e.Missing {
			fmt.Fprintf(w, "  - %s\n", m)
		}
		fmt.Fprintln(w)
	}

	if len(e.Errors) > 0 {
		fmt.Fprintln(w, "Validation errors:")
		for _, err := range e.Errors {
			fmt.Fprintf(w, "  - %s\n", err)
		}
		fmt.Fprintln(w)
	}
}

func printConfigSummary(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "Configuration Summary:")
	fmt.Fprintf(w, "  Logging:    %s (%s)\n", cfg.Server.LogLevel, cfg.Server.LogFormat)
	db := cfg.Database.Path
	if db == "" {
		db = "(disabled)"
	}
	fmt.Fprintf(w, "  Database:   %s\n", db)
	fmt.Fprintf(w, "  Storage:    %s (sweep every %s, horizon %s)\n",
		cfg.Storage.Root, cfg.Storage.SweepInterval, cfg.Storage.SweepHorizon)
	fmt.Fprintf(w, "  Limits:     %d jobs, %s max, %s cooldown, %s per file\n",
		cfg.Limits.MaxConcurrentJobs, cfg.Limits.MaxDuration, cfg.Limits.Cooldown,
		humanize.IBytes(uint64(cfg.Limits.MaxFileSize)))
	binary := cfg.Extractor.Binary
	if binary == "" {
		binary = "yt-dlp (managed)"
	}
	fmt.Fprintf(w, "  Extractor:  %s, audio %s %v\n", binary, cfg.Extractor.AudioCodec, cfg.Extractor.AudioTiers)
}
