// Command convert-images turns the photos in ../banana.images into the
// resized JPEGs the timeline serves from ./public/timeline-images.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/ourstory/ourstory/imgconv"
	"github.com/ourstory/ourstory/logger"
)

const (
	sourceDir = "../banana.images"
	targetDir = "./public/timeline-images"
)

func main() {
	log := logger.Console(os.Stderr, os.Getenv("OURSTORY_LOG_LEVEL"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// files that fail to convert are logged and skipped
	if _, err := imgconv.Run(ctx, imgconv.Job{Source: sourceDir, Target: targetDir}, log); err != nil {
		log.Error().Err(err).Msg("conversion failed")
		os.Exit(1)
	}
}
