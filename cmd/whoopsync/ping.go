//go:build !release

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/garrettladley/whoopsync/internal/bootstrap"
	"github.com/garrettladley/whoopsync/internal/client/whoop"
	"github.com/garrettladley/whoopsync/internal/storage"
)

const pingLimit = 3

func pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check every WHOOP endpoint the sync uses",
		Long:  "Fetches your profile and one short page of each collection without storing anything.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			s, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := s.cfg.Whoop.Validate(); err != nil {
				return err
			}

			client := bootstrap.NewWhoopClient(s.cfg, bootstrap.NewTokenSource(s.cfg, s.store, s.logger), storage.NewMemoryBudget(), s.logger)
			params := &whoop.ListParams{Limit: pingLimit}

			var failures int
			check := func(name string, err error, ok func()) {
				fmt.Printf("\n[%s]\n", name)
				if err != nil {
					fmt.Printf("  ERROR: %v\n", err)
					failures++
					return
				}
				ok()
			}

			profile, err := client.User.GetProfile(ctx)
			check("User.GetProfile", err, func() {
				fmt.Printf("  OK: %s %s (%s)\n", profile.FirstName, profile.LastName, profile.Email)
			})

			body, err := client.User.GetBodyMeasurement(ctx)
			check("User.GetBodyMeasurement", err, func() {
				fmt.Printf("  OK: Height=%.2fm, Weight=%.1fkg, MaxHR=%d\n", body.HeightMeter, body.WeightKilogram, body.MaxHeartRate)
			})

			cycles, err := client.Cycle.List(ctx, params)
			check("Cycle.List", err, func() {
				fmt.Printf("  OK: %d cycles\n", len(cycles.Records))
				for _, c := range cycles.Records {
					fmt.Printf("    - id=%d, start=%s, score_state=%s\n", c.ID, c.Start.Format("2006-01-02"), c.Score.State())
				}
			})

			if cycles != nil && len(cycles.Records) > 0 {
				id := cycles.Records[0].ID
				cycle, err := client.Cycle.Get(ctx, id)
				check(fmt.Sprintf("Cycle.Get id=%d", id), err, func() {
					fmt.Printf("  OK: id=%d, completed=%t\n", cycle.ID, cycle.Completed())
				})
			}

			recoveries, err := client.Recovery.List(ctx, params)
			check("Recovery.List", err, func() {
				fmt.Printf("  OK: %d recoveries\n", len(recoveries.Records))
				for _, r := range recoveries.Records {
					if score, ok := r.Score.Value(); ok {
						fmt.Printf("    - cycle=%d, recovery=%.0f%%, hrv=%.1f\n", r.CycleID, score.RecoveryScore, score.HRVRmssdMilli)
					}
				}
			})

			sleeps, err := client.Sleep.List(ctx, params)
			check("Sleep.List", err, func() {
				fmt.Printf("  OK: %d sleeps\n", len(sleeps.Records))
				for _, s := range sleeps.Records {
					fmt.Printf("    - id=%s, nap=%v, score_state=%s\n", s.ID, s.Nap, s.Score.State())
				}
			})

			workouts, err := client.Workout.List(ctx, params)
			check("Workout.List", err, func() {
				fmt.Printf("  OK: %d workouts\n", len(workouts.Records))
				for _, w := range workouts.Records {
					fmt.Printf("    - id=%s, sport=%s, score_state=%s\n", w.ID, w.SportName, w.Score.State())
				}
			})

			fmt.Println("\n" + "==========")
			if failures > 0 {
				return fmt.Errorf("%d endpoint(s) failed", failures)
			}
			fmt.Println("All endpoints passed!")
			return nil
		},
	}
}
