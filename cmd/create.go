package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/calassist/calassist/internal/calendar"
)

func newCreateCmd() *cobra.Command {
	var (
		title       string
		start       string
		end         string
		description string
		location    string
		attendees   []string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new calendar event",
		RunE: func(cmd *cobra.Command, args []string) error {
			startTime, err := parseTime(start)
			if err != nil {
				return err
			}
			endTime, err := parseTime(end)
			if err != nil {
				return err
			}

			assistant, _, err := newAssistant(cmd.Context())
			if err != nil {
				return err
			}

			created, err := assistant.CreateEvent(cmd.Context(), calendar.EventInput{
				Summary:     title,
				Start:       startTime,
				End:         endTime,
				Description: description,
				Location:    location,
				Attendees:   attendees,
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Event created:\n")
			printEvent(cmd.OutOrStdout(), *created)
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "event title (required)")
	cmd.Flags().StringVar(&start, "start", "", "start time, RFC3339 or 2006-01-02T15:04:05 (required)")
	cmd.Flags().StringVar(&end, "end", "", "end time, RFC3339 or 2006-01-02T15:04:05 (required)")
	cmd.Flags().StringVar(&description, "description", "", "event description")
	cmd.Flags().StringVar(&location, "location", "", "event location")
	cmd.Flags().StringSliceVar(&attendees, "attendees", nil, "comma-separated attendee email addresses")
	cobra.CheckErr(cmd.MarkFlagRequired("title"))
	cobra.CheckErr(cmd.MarkFlagRequired("start"))
	cobra.CheckErr(cmd.MarkFlagRequired("end"))
	return cmd
}
