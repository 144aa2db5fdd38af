package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ourstory/ourstory/model"
	"github.com/ourstory/ourstory/viewstate"
)

var milestoneFlags struct {
	date, title, description                        string
	songTitle, songArtist, songURL, songDescription string
}

func newTimeline(cmd *cobra.Command) (*viewstate.Timeline, error) {
	tl := viewstate.NewTimeline(client.Timeline(), client, toasts, log)
	return tl, tl.Load(cmd.Context())
}

var timelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "List and edit the milestones on the timeline",
}

var timelineListCmd = &cobra.Command{
	Use:   "list",
	Short: "List milestones grouped by year",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tl, err := newTimeline(cmd)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, g := range tl.Groups() {
			fmt.Fprintln(out, g.Year)
			for _, m := range g.Milestones {
				fmt.Fprintf(out, "  %-38s %-18s %s\n", m.ID, m.FormattedDate, m.Title)
				if m.Song.Title != "" {
					fmt.Fprintf(out, "  %-38s %-18s ♪ %s - %s\n", "", "", m.Song.Title, m.Song.Artist)
				}
			}
		}
		return nil
	},
}

var timelineAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a milestone",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		tl, err := newTimeline(cmd)
		if err != nil {
			return err
		}
		var m model.Milestone
		applyMilestoneFlags(cmd, &m)
		out, err := tl.Add(cmd.Context(), m)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out.ID)
		return nil
	},
}

var timelineEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change fields of a milestone",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tl, err := newTimeline(cmd)
		if err != nil {
			return err
		}
		m, ok := tl.Find(args[0])
		if !ok {
			return fmt.Errorf("milestone %q not found", args[0])
		}
		applyMilestoneFlags(cmd, &m)
		_, err = tl.Update(cmd.Context(), m)
		return err
	},
}

var timelineRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Remove a milestone",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tl, err := newTimeline(cmd)
		if err != nil {
			return err
		}
		return tl.Remove(cmd.Context(), args[0])
	},
}

var timelineImageCmd = &cobra.Command{
	Use:   "image <id> <file>",
	Short: "Upload a picture for a milestone",
	Long: `image uploads a picture for a milestone. The server resizes it to fit
1200x800 and stores it as JPEG.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[1])
		if err != nil {
			return err
		}
		tl, err := newTimeline(cmd)
		if err != nil {
			return err
		}
		m, err := tl.AttachImage(cmd.Context(), args[0], filepath.Base(args[1]), data)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), m.ImageSrc)
		return nil
	},
}

// applyMilestoneFlags copies the flags that were set onto m.
func applyMilestoneFlags(cmd *cobra.Command, m *model.Milestone) {
	set := func(name string, dst *string, v string) {
		if cmd.Flags().Changed(name) {
			*dst = v
		}
	}
	f := milestoneFlags
	set("date", &m.Date, f.date)
	set("title", &m.Title, f.title)
	set("description", &m.Description, f.description)
	set("song-title", &m.Song.Title, f.songTitle)
	set("song-artist", &m.Song.Artist, f.songArtist)
	set("song-url", &m.Song.URL, f.songURL)
	set("song-description", &m.Song.Description, f.songDescription)
	m.FormattedDate = model.FormatDisplayDate(m.Date)
}

func init() {
	for _, c := range []*cobra.Command{timelineAddCmd, timelineEditCmd} {
		c.Flags().StringVar(&milestoneFlags.date, "date", "", "date as YYYY-MM-DD")
		c.Flags().StringVar(&milestoneFlags.title, "title", "", "milestone title")
		c.Flags().StringVar(&milestoneFlags.description, "description", "", "what happened")
		c.Flags().StringVar(&milestoneFlags.songTitle, "song-title", "", "song that goes with it")
		c.Flags().StringVar(&milestoneFlags.songArtist, "song-artist", "", "artist of the song")
		c.Flags().StringVar(&milestoneFlags.songURL, "song-url", "", "YouTube link to the song")
		c.Flags().StringVar(&milestoneFlags.songDescription, "song-description", "", "why this song")
	}
	timelineCmd.AddCommand(timelineListCmd, timelineAddCmd, timelineEditCmd, timelineRmCmd, timelineImageCmd)
	rootCmd.AddCommand(timelineCmd)
}
