package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vmunix/tubebot/internal/handlers"
	"github.com/vmunix/tubebot/internal/storage"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove stale download directories",
	Long: `Runs one cleanup pass over the storage root, removing entries
older than storage.sweep_horizon. Safe to run while the bot is stopped;
a running bot sweeps on its own.`,
	Args: cobra.NoArgs,
	RunE: runSweep,
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}

func runSweep(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig(false)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger := newLogger(os.Stderr, cfg.Server)

	store, err := storage.NewManager(cfg.Storage.Root, logger)
	if err != nil {
		return err
	}
	h := handlers.NewCleanupHandler(nil, store, nil, handlers.CleanupConfig{
		Horizon: cfg.Storage.SweepHorizon,
	}, logger)

	res := h.Sweep(cmd.Context())
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d, kept %d, errors %d (root: %s)\n",
		res.Removed, res.Skipped, res.Errors, store.Root())
	if res.Errors > 0 {
		return fmt.Errorf("%d entries could not be removed", res.Errors)
	}
	return nil
}
