package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ourstory/ourstory"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := ourstory.LoadConfig(log)
		if err != nil {
			log.Error().Err(err).Msg("invalid configuration")
			return err
		}

		app := ourstory.New(cfg, ourstory.DefaultViews(), ourstory.WithLogger(log))
		defer app.Close()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		if err := app.Open(ctx); err != nil {
			log.Error().Err(err).Msg("startup failed")
			return err
		}

		errc := make(chan error, 1)
		go func() { errc <- app.Start() }()

		select {
		case err := <-errc:
			if err != nil {
				log.Error().Err(err).Msg("server stopped")
			}
			return err
		case <-ctx.Done():
		}

		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return app.Shutdown(shutdownCtx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
