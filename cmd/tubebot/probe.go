package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/vmunix/tubebot/internal/adapters/ytdlp"
	"github.com/vmunix/tubebot/internal/config"
	"github.com/vmunix/tubebot/internal/media"
	"github.com/vmunix/tubebot/internal/server"
)

var (
	probeAudio bool
	probeJSON  bool
)

var probeCmd = &cobra.Command{
	Use:   "probe <url>",
	Short: "Resolve a URL and list the options the bot would offer",
	Long: `Runs the same resolution and policy checks as the bot for a URL
and prints the offered options. Nothing is downloaded.`,
	Args: cobra.ExactArgs(1),
	RunE: runProbe,
}

func init() {
	probeCmd.Flags().BoolVar(&probeAudio, "audio", false, "Resolve in audio-only mode")
	probeCmd.Flags().BoolVar(&probeJSON, "json", false, "Output as JSON")
	rootCmd.AddCommand(probeCmd)
}

func runProbe(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(false)
	if err != nil {
		// Probing works without a config file.
		cfg = config.Default()
	}
	logger := newLogger(os.Stderr, cfg.Server)

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	resolver := media.NewResolver(ytdlp.New(extractorConfig(cfg), logger), server.ResolverConfig(cfg), logger)

	mode := media.ModeVideo
	if probeAudio {
		mode = media.ModeAudio
	}
	cand, err := resolver.Resolve(ctx, args[0], mode)
	if err != nil {
		return err
	}

	if probeJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(cand)
	}
	printCandidate(cmd.OutOrStdout(), cand)
	return nil
}

func printCandidate(w io.Writer, c *media.Candidate) {
	fmt.Fprintf(w, "Title:     %s\n", c.Title)
	if c.Uploader != "" {
		fmt.Fprintf(w, "Uploader:  %s\n", c.Uploader)
	}
	fmt.Fprintf(w, "Duration:  %s\n", c.Duration)
	if c.Thumbnail != "" {
		fmt.Fprintf(w, "Thumbnail: %s\n", c.Thumbnail)
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TOKEN\tOPTION\tSIZE")
	for _, o := range media.Options(c) {
		size := "-"
		if !o.Selection.IsAudio() {
			if f, ok := c.Video(o.Selection.FormatID); ok && f.Size > 0 {
				size = "~" + humanize.IBytes(uint64(f.Size))
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", o.Selection.Token(), o.Label, size)
	}
	_ = tw.Flush()
}

// extractorConfig maps the extractor section onto the yt-dlp adapter.
func extractorConfig(cfg *config.Config) ytdlp.Config {
	return ytdlp.Config{
		Binary:        cfg.Extractor.Binary,
		SocketTimeout: cfg.Extractor.SocketTimeout,
		Retries:       cfg.Extractor.Retries,
		CookieFile:    cfg.Extractor.CookieFile,
	}
}
