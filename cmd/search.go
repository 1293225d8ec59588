package cmd

import (
	"github.com/spf13/cobra"

	"github.com/calassist/calassist/internal/calendar"
)

func newSearchCmd() *cobra.Command {
	var query string
	var maxResults int

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search events by keyword",
		Long: `Search events matching the query against summary and description.

Matching happens server-side with the provider's own semantics, and result
ordering is provider-defined.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			assistant, _, err := newAssistant(cmd.Context())
			if err != nil {
				return err
			}

			events, err := assistant.SearchEvents(cmd.Context(), query, maxResults)
			if err != nil {
				return err
			}

			printEvents(cmd.OutOrStdout(), events)
			return nil
		},
	}

	cmd.Flags().StringVar(&query, "query", "", "search query (required)")
	cmd.Flags().IntVar(&maxResults, "max", calendar.DefaultMaxResults, "maximum number of results")
	cobra.CheckErr(cmd.MarkFlagRequired("query"))
	return cmd
}
