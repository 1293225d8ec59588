package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDeleteCmd() *cobra.Command {
	var eventID string

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a calendar event",
		Long: `Delete an event by ID.

Deleting an ID that does not exist fails, so a zero exit code always means
the event existed and is now gone.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			assistant, _, err := newAssistant(cmd.Context())
			if err != nil {
				return err
			}

			if err := assistant.DeleteEvent(cmd.Context(), eventID); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Event %s deleted.\n", eventID)
			return nil
		},
	}

	cmd.Flags().StringVar(&eventID, "event-id", "", "ID of the event to delete (required)")
	cobra.CheckErr(cmd.MarkFlagRequired("event-id"))
	return cmd
}
