package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ourstory/ourstory/model"
	"github.com/ourstory/ourstory/viewstate"
)

var songFlags struct {
	title, artist, url, description string
}

func newPlaylist(cmd *cobra.Command) (*viewstate.Playlist, error) {
	p := viewstate.NewPlaylist(client.Songs(), toasts, log)
	return p, p.Load(cmd.Context())
}

var musicCmd = &cobra.Command{
	Use:   "music",
	Short: "List and edit the playlist",
}

var musicListCmd = &cobra.Command{
	Use:   "list",
	Short: "List songs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPlaylist(cmd)
		if err != nil {
			return err
		}
		for _, s := range p.Items() {
			fmt.Fprintf(cmd.OutOrStdout(), "%-38s %s - %s\n  %s\n", s.ID, s.Title, s.Artist, s.URL)
		}
		return nil
	},
}

var musicAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a song",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPlaylist(cmd)
		if err != nil {
			return err
		}
		var s model.Song
		applySongFlags(cmd, &s)
		out, err := p.Add(cmd.Context(), s)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out.ID)
		return nil
	},
}

var musicEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change fields of a song",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPlaylist(cmd)
		if err != nil {
			return err
		}
		s, ok := p.Find(args[0])
		if !ok {
			return fmt.Errorf("song %q not found", args[0])
		}
		applySongFlags(cmd, &s)
		_, err = p.Update(cmd.Context(), s)
		return err
	},
}

var musicRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Remove a song",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := newPlaylist(cmd)
		if err != nil {
			return err
		}
		return p.Remove(cmd.Context(), args[0])
	},
}

func applySongFlags(cmd *cobra.Command, s *model.Song) {
	f := cmd.Flags()
	if f.Changed("title") {
		s.Title = songFlags.title
	}
	if f.Changed("artist") {
		s.Artist = songFlags.artist
	}
	if f.Changed("url") {
		s.URL = songFlags.url
	}
	if f.Changed("description") {
		s.Description = songFlags.description
	}
}

func init() {
	for _, c := range []*cobra.Command{musicAddCmd, musicEditCmd} {
		c.Flags().StringVar(&songFlags.title, "title", "", "song title")
		c.Flags().StringVar(&songFlags.artist, "artist", "", "artist")
		c.Flags().StringVar(&songFlags.url, "url", "", "YouTube link")
		c.Flags().StringVar(&songFlags.description, "description", "", "what it means to you")
	}
	musicCmd.AddCommand(musicListCmd, musicAddCmd, musicEditCmd, musicRmCmd)
	rootCmd.AddCommand(musicCmd)
}
