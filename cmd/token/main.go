package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"samanvay/internal/adapter/middleware"
	"samanvay/internal/config"
	"samanvay/internal/domain/access"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		secret   string
		subject  string
		role     string
		state    string
		agencyID string
		ttl      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for local development",
		Long: `Mint an HS256 bearer token for the API.

Roles: central_admin, state_officer (needs --state),
executing_agency (needs --agency). The secret defaults to JWT_SECRET.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if secret == "" {
				secret = config.Load().JWTSecret
			}
			if secret == "" {
				return fmt.Errorf("no secret: pass --secret or set JWT_SECRET")
			}
			a := access.Actor{Subject: subject, Role: access.Role(role), State: state, AgencyID: agencyID}
			tok, err := middleware.SignToken(secret, a, ttl, time.Now())
			if err != nil {
				return err
			}
			// round-trip so a bad role or missing claim fails here, not at the API
			if _, err := middleware.ParseToken(secret, tok); err != nil {
				return fmt.Errorf("token would be rejected: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}

	cmd.Flags().StringVar(&secret, "secret", "", "Signing secret (default $JWT_SECRET)")
	cmd.Flags().StringVar(&subject, "sub", "dev-user", "Subject (user id)")
	cmd.Flags().StringVar(&role, "role", string(access.RoleCentralAdmin), "Role")
	cmd.Flags().StringVar(&state, "state", "", "State/UT for state_officer")
	cmd.Flags().StringVar(&agencyID, "agency", "", "Agency id for executing_agency")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")

	return cmd
}
