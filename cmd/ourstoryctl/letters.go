package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ourstory/ourstory/markdown"
	"github.com/ourstory/ourstory/model"
	"github.com/ourstory/ourstory/viewstate"
)

var (
	letterFlags struct {
		title, content, contentFile, date, category string
	}
	listCategory string
)

func newLetters(cmd *cobra.Command) (*viewstate.Letters, error) {
	l := viewstate.NewLetters(client.Letters(), toasts, log)
	return l, l.Load(cmd.Context())
}

var lettersCmd = &cobra.Command{
	Use:   "letters",
	Short: "Read and write letters",
}

var lettersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List letters, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cat := model.Category(listCategory)
		if cat != "" && !cat.Valid() {
			return fmt.Errorf("unknown category %q", listCategory)
		}
		l, err := newLetters(cmd)
		if err != nil {
			return err
		}
		for _, letter := range model.FilterByCategory(l.Items(), cat) {
			fmt.Fprintf(cmd.OutOrStdout(), "%-38s %s  [%s] %s\n  %s\n",
				letter.ID, letter.Date, letter.Category, letter.Title, markdown.Excerpt(letter.Content, 100))
		}
		return nil
	},
}

var lettersShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Print one letter",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		letter, err := client.Letters().Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s · %s\n\n%s\n", letter.Title, letter.Date, letter.Category, letter.Content)
		return nil
	},
}

var lettersAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Write a letter",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLetters(cmd)
		if err != nil {
			return err
		}
		letter := model.Letter{
			Date:     time.Now().Format(model.DateLayout),
			Category: model.CategoryLoveNote,
		}
		if err := applyLetterFlags(cmd, &letter); err != nil {
			return err
		}
		out, err := l.Add(cmd.Context(), letter)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), out.ID)
		return nil
	},
}

var lettersEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Change a letter",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLetters(cmd)
		if err != nil {
			return err
		}
		letter, ok := l.Find(args[0])
		if !ok {
			return fmt.Errorf("letter %q not found", args[0])
		}
		if err := applyLetterFlags(cmd, &letter); err != nil {
			return err
		}
		_, err = l.Update(cmd.Context(), letter)
		return err
	},
}

var lettersRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a letter",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLetters(cmd)
		if err != nil {
			return err
		}
		return l.Remove(cmd.Context(), args[0])
	},
}

func applyLetterFlags(cmd *cobra.Command, l *model.Letter) error {
	f := cmd.Flags()
	if f.Changed("title") {
		l.Title = letterFlags.title
	}
	if f.Changed("content") {
		l.Content = letterFlags.content
	}
	if f.Changed("content-file") {
		b, err := os.ReadFile(letterFlags.contentFile)
		if err != nil {
			return err
		}
		l.Content = string(b)
	}
	if f.Changed("date") {
		l.Date = letterFlags.date
	}
	if f.Changed("category") {
		l.Category = model.Category(letterFlags.category)
	}
	return nil
}

func init() {
	lettersListCmd.Flags().StringVarP(&listCategory, "category", "c", "", "only letters in this category")
	for _, c := range []*cobra.Command{lettersAddCmd, lettersEditCmd} {
		c.Flags().StringVar(&letterFlags.title, "title", "", "letter title")
		c.Flags().StringVar(&letterFlags.content, "content", "", "letter body (markdown)")
		c.Flags().StringVar(&letterFlags.contentFile, "content-file", "", "read the body from a file")
		c.Flags().StringVar(&letterFlags.date, "date", "", "date as YYYY-MM-DD (default today)")
		c.Flags().StringVar(&letterFlags.category, "category", "", "one of the letter categories")
		c.MarkFlagsMutuallyExclusive("content", "content-file")
	}
	lettersCmd.AddCommand(lettersListCmd, lettersShowCmd, lettersAddCmd, lettersEditCmd, lettersRmCmd)
	rootCmd.AddCommand(lettersCmd)
}
