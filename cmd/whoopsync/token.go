package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

const flagReveal = "reveal"

func tokenCmd() *cobra.Command {
	var reveal bool

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Show the stored OAuth token",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			s, err := openSession(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			token, err := s.store.Repo.Tokens.Get(ctx)
			if err != nil {
				return fmt.Errorf("failed to get token: %w", err)
			}
			if token == nil {
				fmt.Println("No token stored. Run `whoopsync auth` first.")
				return nil
			}

			if reveal {
				fmt.Printf("Access Token:  %s\n", token.AccessToken)
				if token.RefreshToken != "" {
					fmt.Printf("Refresh Token: %s\n", token.RefreshToken)
				}
			}
			fmt.Printf("Token Type:    %s\n", token.TokenType)
			fmt.Printf("Refreshable:   %t\n", token.RefreshToken != "")
			fmt.Printf("Expiry:        %s\n", token.Expiry.Format(time.RFC3339))

			if token.Expiry.Before(time.Now()) {
				fmt.Printf("Status:        EXPIRED\n")
			} else {
				fmt.Printf("Status:        Valid (expires in %s)\n", time.Until(token.Expiry).Round(time.Second))
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&reveal, flagReveal, false, "print the access and refresh tokens")
	return cmd
}
