package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hookflo/internal/engine/security"
)

func secretCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Generate, seal and open webhook secrets",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "generate",
		Short: "Print a fresh 256-bit secret as hex",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), security.GenerateSecret())
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "encrypt [plaintext]",
		Short: "Seal a secret with the configured master key (reads stdin without an argument)",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSecretEncrypt,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "decrypt [packed]",
		Short: "Open a packed secret with the configured master key",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSecretDecrypt,
	})
	return cmd
}

func newEncryptor(cmd *cobra.Command) (*security.Encryptor, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return security.NewEncryptor(cfg.Encryption)
}

func runSecretEncrypt(cmd *cobra.Command, args []string) error {
	enc, err := newEncryptor(cmd)
	if err != nil {
		return err
	}
	plaintext, err := inputArg(cmd, args)
	if err != nil {
		return err
	}

	packed, err := enc.EncryptContext(cmd.Context(), plaintext)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), packed)
	return nil
}

func runSecretDecrypt(cmd *cobra.Command, args []string) error {
	enc, err := newEncryptor(cmd)
	if err != nil {
		return err
	}
	packed, err := inputArg(cmd, args)
	if err != nil {
		return err
	}

	plaintext, err := enc.DecryptContext(cmd.Context(), packed)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), plaintext)
	return nil
}
