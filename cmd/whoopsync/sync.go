package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/garrettladley/whoopsync/internal/bootstrap"
	"github.com/garrettladley/whoopsync/internal/xcontext"
	"github.com/garrettladley/whoopsync/internal/xsync"
)

const flagHistorical = "historical"

func syncCmd() *cobra.Command {
	var historical bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch WHOOP data and store it",
		Long: "Runs one sync. By default only the recent window is fetched; " +
			"--historical fetches everything WHOOP has.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			s, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			syncer, closeSyncer, err := bootstrap.NewSyncer(ctx, s.cfg, s.store, s.logger)
			if err != nil {
				return err
			}
			defer closeSyncer()

			mode := xsync.ModeDaily
			if historical {
				mode = xsync.ModeHistorical
			}

			summary, runErr := syncer.Run(xcontext.SetTrigger(ctx, xcontext.TriggerCLI), mode)
			if summary != nil {
				printSummary(os.Stdout, summary)
			}
			if runErr != nil {
				return runErr
			}
			if len(summary.Errors) > 0 {
				return fmt.Errorf("sync finished with %d error(s)", len(summary.Errors))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&historical, flagHistorical, false, "fetch the full history instead of the recent window")
	return cmd
}

func printSummary(w io.Writer, summary *xsync.Summary) {
	_, _ = fmt.Fprintf(w, "Run:        %s (%s)\n", summary.RunID, summary.Mode)
	_, _ = fmt.Fprintf(w, "Took:       %s\n", summary.FinishedAt.Sub(summary.StartedAt).Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "Cycles:     %d\n", summary.Cycles)
	_, _ = fmt.Fprintf(w, "Sleeps:     %d (%d linked)\n", summary.Sleeps, summary.LinkedSleeps)
	_, _ = fmt.Fprintf(w, "Recoveries: %d\n", summary.Recoveries)
	_, _ = fmt.Fprintf(w, "Workouts:   %d\n", summary.Workouts)
	for _, kind := range summary.Truncated {
		_, _ = fmt.Fprintf(w, "  %s: page cap reached, rest left for the next run\n", kind)
	}
	for _, e := range summary.Errors {
		_, _ = fmt.Fprintf(w, "  error: %s\n", e)
	}
}
