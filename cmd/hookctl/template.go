package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"hookflo/internal/engine/templates"
)

func templateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Inspect notification templates",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List built-in template ids",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, id := range templates.BaseIDs() {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	})

	render := &cobra.Command{
		Use:   "render <template-id> <event-file>",
		Short: "Render a template against a JSON event, optionally with a merge patch",
		Args:  cobra.ExactArgs(2),
		RunE:  runTemplateRender,
	}
	render.Flags().String("patch", "", "JSON merge patch file to apply before rendering")
	render.Flags().String("platform", "custom", "Platform name passed to the template")
	cmd.AddCommand(render)
	return cmd
}

func runTemplateRender(cmd *cobra.Command, args []string) error {
	tmpl, err := templates.NewRegistry(nil).Resolve(cmd.Context(), "", args[0])
	if err != nil {
		return err
	}

	if patchFile, _ := cmd.Flags().GetString("patch"); patchFile != "" {
		patch, err := os.ReadFile(patchFile)
		if err != nil {
			return err
		}
		if tmpl, err = templates.ApplyPatch(tmpl, patch); err != nil {
			return err
		}
	}

	raw, err := os.ReadFile(args[1])
	if err != nil {
		return err
	}
	var event map[string]interface{}
	if err := json.Unmarshal(raw, &event); err != nil {
		return fmt.Errorf("event must be a JSON object: %w", err)
	}

	platform, _ := cmd.Flags().GetString("platform")
	out, err := tmpl.Render(templates.Data{Platform: platform, Webhook: "preview", Event: event})
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Subject: %s\n\n%s\n\n--- slack ---\n%s\n", out.Subject, out.Body, out.SlackText)
	return nil
}
