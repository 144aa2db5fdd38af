package model

import (
	"strings"
)

// videoHosts are the substrings a playlist URL must contain.
var videoHosts = []string{"youtube.com/watch", "youtu.be/"}

// ValidateSong applies the playlist form checks: title, artist and url are
// required and the url must point at a known video host.
func ValidateSong(s Song) error {
	if blank(s.Title) || blank(s.Artist) || blank(s.URL) {
		return missingInformation()
	}
	if !IsVideoURL(s.URL) {
		return &ValidationError{
			Title:       "Invalid URL",
			Description: "Please enter a valid YouTube URL",
		}
	}
	return nil
}

// IsVideoURL reports whether url contains one of the known video hosts.
func IsVideoURL(url string) bool {
	for _, h := range videoHosts {
		if strings.Contains(url, h) {
			return true
		}
	}
	return false
}

// ValidateLetter requires a title, a body and a known category.
func ValidateLetter(l Letter) error {
	if blank(l.Title) || blank(l.Content) || blank(string(l.Category)) {
		return missingInformation()
	}
	if !l.Category.Valid() {
		return &ValidationError{
			Title:       "Invalid category",
			Description: "Please choose one of the letter categories",
		}
	}
	return nil
}

// ValidateMilestone requires a date, a title, a description and every
// field of the song that goes with the milestone.
func ValidateMilestone(m Milestone) error {
	if blank(m.Date) || blank(m.Title) || blank(m.Description) {
		return missingInformation()
	}
	s := m.Song
	if blank(s.Title) || blank(s.Artist) || blank(s.URL) || blank(s.Description) {
		return missingInformation()
	}
	return nil
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
