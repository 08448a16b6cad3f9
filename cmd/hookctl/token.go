package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"hookflo/internal/platform/auth"
)

func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a management API access token for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, _ := cmd.Flags().GetString("user")
			email, _ := cmd.Flags().GetString("email")
			if userID == "" {
				return errors.New("--user is required")
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cfg.JWT.Secret == "" {
				return errors.New("jwt.secret is not configured")
			}

			token, err := auth.NewTokenService(cfg.JWT).GenerateAccessToken(userID, email)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringP("user", "u", "", "User id the token is issued for")
	cmd.Flags().StringP("email", "e", "", "Email claim")
	return cmd
}
