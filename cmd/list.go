package cmd

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/calassist/calassist/internal/calendar"
)

func newListCmd() *cobra.Command {
	var days int
	var maxResults int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List upcoming calendar events",
		Long:  `List events from now up to the given number of days, ordered by start time.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			assistant, cfg, err := newAssistant(cmd.Context())
			if err != nil {
				return err
			}

			if !cmd.Flags().Changed("days") {
				days = cfg.DefaultWindowDays
			}

			now := time.Now().UTC()
			events, err := assistant.ListEvents(cmd.Context(), calendar.ListOptions{
				Start:      now,
				End:        now.AddDate(0, 0, days),
				MaxResults: maxResults,
			})
			if err != nil {
				return err
			}

			printEvents(cmd.OutOrStdout(), events)
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", calendar.DefaultWindowDays, "number of days to list")
	cmd.Flags().IntVar(&maxResults, "max", calendar.DefaultMaxResults, "maximum number of events")
	return cmd
}
