package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ourstory/ourstory"
	"github.com/ourstory/ourstory/logger"
)

var log zerolog.Logger

var rootCmd = &cobra.Command{
	Use:   "ourstory",
	Short: "Serve a couple's timeline, playlist and letters",
	Long: `ourstory serves the timeline, music, letters and special dates pages
together with the JSON API the ourstoryctl client talks to.

Configuration is read from OURSTORY_* environment variables.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log = logger.New("ourstory", os.Getenv(ourstory.EnvPrefix+"_LOG_LEVEL"))
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
