package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/calassist/calassist/internal/auth"
	"github.com/calassist/calassist/internal/calendar"
	"github.com/calassist/calassist/internal/config"
	"github.com/calassist/calassist/internal/google"
	"github.com/calassist/calassist/internal/logging"
	"github.com/calassist/calassist/internal/outlook"
)

var (
	backendName string
	configPath  string
	logLevel    string
)

// rootCmd represents the base command for the calassist application
var rootCmd = &cobra.Command{
	Use:   "calassist",
	Short: "Manage Google Calendar and Outlook events from one interface",
	Long: `calassist is a unified calendar client for Google Calendar and
Microsoft Outlook. It speaks to both providers through one contract, so every
subcommand behaves the same regardless of the selected backend.

Select the backend with --backend and authenticate once with "calassist auth";
tokens are stored locally and refreshed automatically afterwards.`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "calassist version %s\n" .Version}}`)

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode maps the unified error taxonomy to distinct non-zero exit codes
// so scripts can tell the failure kinds apart.
func exitCode(err error) int {
	switch {
	case calendar.IsValidation(err):
		return 2
	case calendar.IsAuth(err):
		return 3
	case calendar.IsNotFound(err):
		return 4
	case calendar.IsRemote(err):
		return 5
	}
	return 1
}

// newAssistant builds the adapter selected by --backend. The returned
// assistant is authenticated and ready for calendar operations. The loaded
// configuration is returned alongside so commands can pick up defaults like
// the listing window.
func newAssistant(ctx context.Context) (calendar.Assistant, *config.Config, error) {
	backend, err := calendar.ParseBackend(backendName)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	logger := logging.New(logLevel)
	slog.SetDefault(logger)

	store := auth.NewStore(cfg.TokenDir, logger)
	flow := &auth.ConsoleFlow{In: os.Stdin, Out: os.Stderr}

	var assistant calendar.Assistant
	switch backend {
	case calendar.BackendGoogle:
		assistant, err = google.New(google.Options{
			ClientID:     cfg.Google.ClientID,
			ClientSecret: cfg.Google.ClientSecret,
			Store:        store,
			Flow:         flow,
			Logger:       logger,
			Timeout:      cfg.HTTPTimeout.Duration,
		})
	case calendar.BackendOutlook:
		assistant, err = outlook.New(outlook.Options{
			ClientID:     cfg.Outlook.ClientID,
			ClientSecret: cfg.Outlook.ClientSecret,
			Tenant:       cfg.Outlook.Tenant,
			Store:        store,
			Flow:         flow,
			Logger:       logger,
			Timeout:      cfg.HTTPTimeout.Duration,
		})
	}
	if err != nil {
		return nil, nil, err
	}

	if err := assistant.Authenticate(ctx); err != nil {
		return nil, nil, err
	}
	return assistant, cfg, nil
}

// parseTime accepts RFC3339 or a bare local-style timestamp interpreted as
// UTC (2006-01-02T15:04:05).
func parseTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02T15:04:05", value); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, &calendar.ValidationError{
		Field:  "time",
		Reason: fmt.Sprintf("cannot parse %q, expected RFC3339 (2025-11-15T14:00:00Z) or 2025-11-15T14:00:00", value),
	}
}

// printEvent writes one event in the list format shared by list and search.
func printEvent(w io.Writer, event calendar.Event) {
	location := event.Location
	if location == "" {
		location = "No location"
	}
	fmt.Fprintf(w, "- %s\n  Time: %s - %s\n  Location: %s\n  ID: %s\n",
		event.Summary,
		event.Start.Format(time.RFC3339),
		event.End.Format(time.RFC3339),
		location,
		event.ID)
}

func printEvents(w io.Writer, events []calendar.Event) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No events found.")
		return
	}
	fmt.Fprintf(w, "Found %d event(s):\n", len(events))
	for _, event := range events {
		printEvent(w, event)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&backendName, "backend", "", "calendar backend to use: google or outlook")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to the config file (default ~/.config/calassist/config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn, error")

	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newListCmd())
	rootCmd.AddCommand(newCreateCmd())
	rootCmd.AddCommand(newUpdateCmd())
	rootCmd.AddCommand(newDeleteCmd())
	rootCmd.AddCommand(newSearchCmd())
}
