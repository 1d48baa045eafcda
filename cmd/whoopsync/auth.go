package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/garrettladley/whoopsync/internal/oauth"
)

func authCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with WHOOP",
		Long:  "Opens a browser to authorize with WHOOP and stores the token in the database.",
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

			flow := oauth.NewDirectFlow(oauth.NewConfig(s.cfg.Whoop), s.store.Repo.Tokens, os.Stdout, s.logger)
			token, err := flow.Run(ctx)
			if err != nil {
				return fmt.Errorf("authentication failed: %w", err)
			}

			fmt.Printf("Authentication successful!\n")
			fmt.Printf("Token expires: %s\n", token.Expiry.Format(time.DateTime))

			return nil
		},
	}
}
