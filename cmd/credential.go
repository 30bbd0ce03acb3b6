package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCredentialCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credential",
		Short: "Store broker credentials referenced from the config (pass first, file fallback)",
	}
	cmd.AddCommand(newCredentialSetCmd(app), newCredentialDeleteCmd(app))
	return cmd
}

func newCredentialSetCmd(app *app) *cobra.Command {
	var value string

	cmd := &cobra.Command{
		Use:   "set <key>",
		Short: "Store a credential, e.g. the key named by nats.token_ref",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.credentials.Put(cmd.Context(), args[0], value); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "stored credential %s\n", args[0])
			return err
		},
	}
	cmd.Flags().StringVar(&value, "value", "", "Credential value")
	_ = cmd.MarkFlagRequired("value")
	return cmd
}

func newCredentialDeleteCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>",
		Short: "Remove a stored credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.credentials.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "deleted credential %s\n", args[0])
			return err
		},
	}
}
