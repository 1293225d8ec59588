package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newAuthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with the selected calendar backend",
		Long: `Run or refresh the OAuth flow for the backend selected with --backend.

If a stored credential exists it is refreshed silently; otherwise the
interactive consent flow starts and the resulting token is persisted for
subsequent commands.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, err := newAssistant(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Authenticated with %s.\n", backendName)
			return nil
		},
	}
}
