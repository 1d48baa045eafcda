package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// opening the store applies anything pending
			s, err := openSession(cmd.Context())
			if err != nil {
				return err
			}
			s.Close()

			fmt.Printf("Migrations applied successfully (%s)\n", s.store.Dialect)
			return nil
		},
	}
}
