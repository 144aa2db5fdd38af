// Package model holds the three persisted collections of the site
// (timeline milestones, songs, letters) and the rules the forms apply to
// them before anything is sent to the server.
package model

import (
	"encoding/json"
	"time"
)

// DateLayout is the calendar date format stored in the date column.
const DateLayout = "2006-01-02"

// DisplayDateLayout renders a milestone date the way the timeline shows it.
const DisplayDateLayout = "January 2, 2006"

// Milestone is one entry on the relationship timeline.
type Milestone struct {
	ID            string       `json:"id" yaml:"id"`
	Date          string       `json:"date" yaml:"date"`
	FormattedDate string       `json:"formattedDate" yaml:"formattedDate"`
	Title         string       `json:"title" yaml:"title"`
	Description   string       `json:"description" yaml:"description"`
	ImageSrc      string       `json:"imageSrc" yaml:"imageSrc"`
	Song          SongSnapshot `json:"song" yaml:"song"`
}

// SongSnapshot is a copy of song details taken when the milestone was
// written. It is not a reference into the songs collection and is never
// kept in sync with it.
type SongSnapshot struct {
	Title       string `json:"title" yaml:"title"`
	Artist      string `json:"artist" yaml:"artist"`
	URL         string `json:"url" yaml:"url"`
	Description string `json:"description" yaml:"description"`
}

// UnmarshalJSON accepts both an object and a JSON-encoded string holding
// that object. Older rows stored the song column as text.
func (s *SongSnapshot) UnmarshalJSON(data []byte) error {
	type plain SongSnapshot
	if len(data) > 0 && data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		if raw == "" {
			*s = SongSnapshot{}
			return nil
		}
		data = []byte(raw)
	}
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = SongSnapshot(p)
	return nil
}

// Song is a playlist entry.
type Song struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Artist      string `json:"artist" yaml:"artist"`
	URL         string `json:"url" yaml:"url"`
	Description string `json:"description" yaml:"description"`
}

// Letter is a note written to the other person.
type Letter struct {
	ID       string   `json:"id" yaml:"id"`
	Title    string   `json:"title" yaml:"title"`
	Content  string   `json:"content" yaml:"content"`
	Date     string   `json:"date" yaml:"date"`
	Category Category `json:"category" yaml:"category"`
}

// Category classifies a letter.
type Category string

const (
	CategoryLoveNote        Category = "Love Note"
	CategoryAnniversary     Category = "Anniversary"
	CategorySpecialOccasion Category = "Special Occasion"
	CategoryJustBecause     Category = "Just Because"
	CategoryMemory          Category = "Memory"
	CategoryThankYou        Category = "Thank You"
	CategoryApology         Category = "Apology"
	CategoryFutureDreams    Category = "Future Dreams"
)

// Categories lists every letter category in display order.
var Categories = []Category{
	CategoryLoveNote,
	CategoryAnniversary,
	CategorySpecialOccasion,
	CategoryJustBecause,
	CategoryMemory,
	CategoryThankYou,
	CategoryApology,
	CategoryFutureDreams,
}

// Valid reports whether c is one of Categories.
func (c Category) Valid() bool {
	for _, k := range Categories {
		if k == c {
			return true
		}
	}
	return false
}

// FormatDisplayDate turns a YYYY-MM-DD date into the timeline's display
// form. Unparseable input is returned unchanged.
func FormatDisplayDate(date string) string {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return date
	}
	return t.Format(DisplayDateLayout)
}
