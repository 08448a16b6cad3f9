package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"hookflo/internal/engine/security"
)

func signCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sign [payload-file]",
		Short: "Print the x-webhook-signature value for a payload (reads stdin without a file)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, _ := cmd.Flags().GetString("secret")
			if secret == "" {
				return errors.New("--secret is required")
			}

			var payload []byte
			var err error
			if len(args) == 1 {
				payload, err = os.ReadFile(args[0])
			} else {
				payload, err = io.ReadAll(cmd.InOrStdin())
			}
			if err != nil {
				return err
			}

			sig := security.Sign(payload, secret)
			if prefixed, _ := cmd.Flags().GetBool("prefix"); prefixed {
				sig = "sha256=" + sig
			}
			fmt.Fprintln(cmd.OutOrStdout(), sig)
			return nil
		},
	}
	cmd.Flags().StringP("secret", "s", "", "Signing secret (plaintext)")
	cmd.Flags().Bool("prefix", false, "Prefix the digest with sha256=")
	return cmd
}
