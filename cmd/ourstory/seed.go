package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ourstory/ourstory"
	"github.com/ourstory/ourstory/remote"
	"github.com/ourstory/ourstory/seed"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the starter milestones and playlist into the store",
	Long: `seed upserts the bundled milestones and default playlist. Records are
keyed by id, so running it again leaves one copy of each.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := ourstory.LoadConfig(log)
		if err != nil {
			return err
		}

		data, err := loadSeed(seedFile)
		if err != nil {
			return err
		}

		ctx := context.Background()
		client, err := ourstory.OpenRemote(ctx, cfg)
		if err != nil {
			return err
		}
		defer client.Close()
		if err := remote.WaitReady(ctx, client, cfg.ReadyTimeout, log); err != nil {
			return err
		}

		res, err := seed.Apply(ctx, client, data, log)
		if err != nil {
			log.Error().Err(err).Msg("seed failed")
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d milestones and %d songs\n", res.Milestones, res.Songs)
		return nil
	},
}

func loadSeed(path string) (seed.Data, error) {
	if path == "" {
		return seed.Default()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return seed.Data{}, err
	}
	return seed.Parse(b)
}

func init() {
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "YAML file to load instead of the bundled data")
	rootCmd.AddCommand(seedCmd)
}
