package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/calassist/calassist/internal/calendar"
)

func newUpdateCmd() *cobra.Command {
	var (
		eventID     string
		title       string
		start       string
		end         string
		description string
		location    string
	)

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update fields of an existing event",
		Long:  `Update an event. Only the flags you pass are changed; everything else keeps its stored value.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch calendar.EventPatch
			if cmd.Flags().Changed("title") {
				patch.Summary = &title
			}
			if cmd.Flags().Changed("description") {
				patch.Description = &description
			}
			if cmd.Flags().Changed("location") {
				patch.Location = &location
			}
			if cmd.Flags().Changed("start") {
				t, err := parseTime(start)
				if err != nil {
					return err
				}
				patch.Start = &t
			}
			if cmd.Flags().Changed("end") {
				t, err := parseTime(end)
				if err != nil {
					return err
				}
				patch.End = &t
			}

			if patch.IsEmpty() {
				return &calendar.ValidationError{Field: "update", Reason: "no fields to change, pass at least one of --title, --start, --end, --description, --location"}
			}

			assistant, _, err := newAssistant(cmd.Context())
			if err != nil {
				return err
			}

			updated, err := assistant.UpdateEvent(cmd.Context(), eventID, patch)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Event updated:\n")
			printEvent(cmd.OutOrStdout(), *updated)
			return nil
		},
	}

	cmd.Flags().StringVar(&eventID, "event-id", "", "ID of the event to update (required)")
	cmd.Flags().StringVar(&title, "title", "", "new event title")
	cmd.Flags().StringVar(&start, "start", "", "new start time")
	cmd.Flags().StringVar(&end, "end", "", "new end time")
	cmd.Flags().StringVar(&description, "description", "", "new event description")
	cmd.Flags().StringVar(&location, "location", "", "new event location")
	cobra.CheckErr(cmd.MarkFlagRequired("event-id"))
	return cmd
}
