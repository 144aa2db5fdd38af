package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/ourstory/ourstory/model"
	"github.com/ourstory/ourstory/specialdates"
)

var dateFlags struct {
	title, description, icon string
}

var icons = map[specialdates.Icon]string{
	specialdates.Heart: "❤",
	specialdates.Gift:  "🎁",
	specialdates.Star:  "⭐",
}

func openBook() (*specialdates.Book, error) {
	return specialdates.Open(specialdates.FileStore{Path: datesFile})
}

var datesCmd = &cobra.Command{
	Use:   "dates",
	Short: "Count down to the dates that matter",
}

var datesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List special dates, upcoming first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		book, err := openBook()
		if err != nil {
			return err
		}
		now := time.Now()
		for _, d := range book.List() {
			fmt.Fprintf(cmd.OutOrStdout(), "%-14d %s %-18s %-20s %s\n",
				d.ID, icons[d.Icon], d.Date.Format(model.DisplayDateLayout), specialdates.DaysText(d.Date, now), d.Title)
		}
		return nil
	},
}

var datesAddCmd = &cobra.Command{
	Use:   "add <YYYY-MM-DD>",
	Short: "Remember a date",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := time.ParseInLocation(model.DateLayout, args[0], time.Local)
		if err != nil {
			return fmt.Errorf("date must be YYYY-MM-DD: %w", err)
		}
		book, err := openBook()
		if err != nil {
			return err
		}
		d, err := book.Add(date, dateFlags.title, dateFlags.description, specialdates.Icon(dateFlags.icon))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d %s\n", d.ID, specialdates.DaysText(d.Date, time.Now()))
		return nil
	},
}

var datesRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Forget a date",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %q", args[0])
		}
		book, err := openBook()
		if err != nil {
			return err
		}
		return book.Remove(id)
	},
}

func init() {
	datesAddCmd.Flags().StringVarP(&dateFlags.title, "title", "t", "", "what the date is")
	datesAddCmd.Flags().StringVarP(&dateFlags.description, "description", "d", "", "a note")
	datesAddCmd.Flags().StringVarP(&dateFlags.icon, "icon", "i", string(specialdates.Heart), "heart, gift or star")
	_ = datesAddCmd.MarkFlagRequired("title")
	datesCmd.AddCommand(datesListCmd, datesAddCmd, datesRmCmd)
	rootCmd.AddCommand(datesCmd)
}
