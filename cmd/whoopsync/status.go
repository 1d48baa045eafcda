package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/garrettladley/whoopsync/internal/repository"
)

type counter interface {
	Count(ctx context.Context) (int, error)
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the last sync run and stored record counts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			s, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			repo := s.store.Repo
			fmt.Printf("Database:   %s\n", s.store.Dialect)

			for _, c := range []struct {
				kind repository.Kind
				repo counter
			}{
				{repository.KindCycle, repo.Cycles},
				{repository.KindSleep, repo.Sleeps},
				{repository.KindRecovery, repo.Recoveries},
				{repository.KindWorkout, repo.Workouts},
			} {
				n, err := c.repo.Count(ctx)
				if err != nil {
					return fmt.Errorf("failed to count %ss: %w", c.kind, err)
				}
				fmt.Printf("%-11s %d\n", string(c.kind)+"s:", n)
			}

			run, err := repo.SyncRuns.Latest(ctx)
			if err != nil {
				return fmt.Errorf("failed to load last sync run: %w", err)
			}
			if run == nil {
				fmt.Println("\nNo sync has run yet.")
				return nil
			}

			fmt.Printf("\nLast run:   %s (%s)\n", run.ID, run.Mode)
			fmt.Printf("Started:    %s\n", run.StartedAt.Local().Format(time.DateTime))
			if run.FinishedAt == nil {
				fmt.Println("Status:     running")
				return nil
			}
			switch {
			case run.FatalError != nil:
				fmt.Printf("Status:     failed: %s\n", *run.FatalError)
			case len(run.Errors) > 0:
				fmt.Printf("Status:     finished with %d error(s)\n", len(run.Errors))
			default:
				fmt.Println("Status:     ok")
			}
			fmt.Printf("Wrote:      %d cycles, %d sleeps, %d recoveries, %d workouts\n",
				run.Cycles, run.Sleeps, run.Recoveries, run.Workouts)
			return nil
		},
	}
}
