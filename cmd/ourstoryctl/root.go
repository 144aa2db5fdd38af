package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ourstory/ourstory/apiclient"
	"github.com/ourstory/ourstory/logger"
	"github.com/ourstory/ourstory/notify"
)

var (
	serverURL string
	datesFile string
	verbose   bool

	log    zerolog.Logger
	client *apiclient.Client
	toasts *notify.Queue
)

var rootCmd = &cobra.Command{
	Use:   "ourstoryctl",
	Short: "Manage an ourstory site from the terminal",
	Long: `ourstoryctl talks to the JSON API of an ourstory server. Every change
is confirmed by the server before it is shown.

Special dates never leave this machine; they are kept in a local file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := "warn"
		if verbose {
			level = "debug"
		}
		log = logger.Console(os.Stderr, level)
		client = apiclient.New(serverURL)
		toasts = notify.NewQueue(notify.DefaultLimit)
		toasts.Subscribe(func(ts []notify.Toast) {
			for _, t := range ts {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", t.Title, t.Description)
			}
		})
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func defaultDatesFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "special-dates.json"
	}
	return filepath.Join(dir, "ourstory", "special-dates.json")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", envOr("OURSTORY_SERVER", "http://localhost:8080"), "base URL of the ourstory server")
	rootCmd.PersistentFlags().StringVar(&datesFile, "dates-file", defaultDatesFile(), "file holding the special dates")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}
