package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/vmunix/tubebot/internal/events"
	"github.com/vmunix/tubebot/internal/server"
)

var (
	eventsJob   string
	eventsLimit int
	eventsStats time.Duration
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Show the event journal",
	Long: `Prints journaled lifecycle events from database.path, newest first.

  tubebot events                 # last 20 events
  tubebot events --job <id>      # full history of one job
  tubebot events --stats 24h     # counts per event type`,
	Args: cobra.NoArgs,
	RunE: runEvents,
}

func init() {
	eventsCmd.Flags().StringVar(&eventsJob, "job", "", "Show every event for one job")
	eventsCmd.Flags().IntVarP(&eventsLimit, "limit", "n", 20, "Number of recent events")
	eventsCmd.Flags().DurationVar(&eventsStats, "stats", 0, "Count events per type over this window")
	rootCmd.AddCommand(eventsCmd)
}

func runEvents(cmd *cobra.Command, _ []string) error {
	cfg, _, err := loadConfig(false)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if cfg.Database.Path == "" {
		return errors.New("database.path is not set, nothing is journaled")
	}

	db, err := server.OpenDB(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()
	log := events.NewEventLog(db)
	out := cmd.OutOrStdout()

	if eventsStats > 0 {
		counts, err := log.CountByType(time.Now().Add(-eventsStats))
		if err != nil {
			return err
		}
		printCounts(out, counts)
		return nil
	}

	var raws []events.RawEvent
	if eventsJob != "" {
		raws, err = log.ForEntity(events.EntityJob, eventsJob)
	} else {
		raws, err = log.Recent(eventsLimit)
	}
	if err != nil {
		return err
	}
	printEvents(out, events.DefaultRegistry(), raws, time.Now())
	return nil
}

func printCounts(w io.Writer, counts map[string]int) {
	if len(counts) == 0 {
		fmt.Fprintln(w, "No events in window.")
		return
	}
	types := make([]string, 0, len(counts))
	for t := range counts {
		types = append(types, t)
	}
	sort.Strings(types)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tCOUNT")
	for _, t := range types {
		fmt.Fprintf(tw, "%s\t%d\n", t, counts[t])
	}
	_ = tw.Flush()
}

func printEvents(w io.Writer, reg *events.Registry, raws []events.RawEvent, now time.Time) {
	if len(raws) == 0 {
		fmt.Fprintln(w, "No events.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tTYPE\tENTITY\tDETAIL")
	for _, raw := range raws {
		detail := "(undecodable)"
		if e, err := reg.Unmarshal(raw); err == nil {
			detail = describeEvent(e)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s/%s\t%s\n",
			humanize.RelTime(raw.OccurredAt, now, "ago", "from now"),
			raw.EventType, raw.EntityType, raw.EntityID, detail)
	}
	_ = tw.Flush()
}

func describeEvent(e events.Event) string {
	switch ev := e.(type) {
	case *events.RequestRejected:
		return fmt.Sprintf("user %d: %s (%s)", ev.Identity, ev.Kind, ev.Reason)
	case *events.CandidateResolved:
		return fmt.Sprintf("user %d: %q, %d video options", ev.Identity, ev.Title, ev.Videos)
	case *events.JobCreated:
		if ev.Audio {
			return fmt.Sprintf("user %d: audio %s", ev.Identity, ev.Selector)
		}
		return fmt.Sprintf("user %d: %s", ev.Identity, ev.Selector)
	case *events.JobTransitioned:
		return ev.From + " -> " + ev.To
	case *events.JobProgressed:
		return fmt.Sprintf("%.0f%% of %s", ev.Percent, humanize.IBytes(uint64(max(ev.Total, 0))))
	case *events.JobCompleted:
		return fmt.Sprintf("%s in %.0fs", humanize.IBytes(uint64(max(ev.Size, 0))), ev.Elapsed)
	case *events.JobFailed:
		return fmt.Sprintf("%s while %s: %s", ev.Kind, ev.From, ev.Reason)
	case *events.JobCancelled:
		return "cancelled while " + ev.From
	case *events.StorageSwept:
		return fmt.Sprintf("removed %d, errors %d, sessions %d", ev.Removed, ev.Errors, ev.SessionsPruned)
	default:
		return ""
	}
}
