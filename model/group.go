package model

import (
	"sort"
	"strings"
)

// YearGroup is the milestones that fall in one calendar year.
type YearGroup struct {
	Year       string
	Milestones []Milestone
}

// GroupByYear buckets milestones by the year of their date. Groups come
// back in ascending year order and keep the input order inside a group.
// Milestones without a parseable year land in a trailing "unknown" group.
func GroupByYear(milestones []Milestone) []YearGroup {
	index := make(map[string]int)
	var groups []YearGroup
	for _, m := range milestones {
		y := yearOf(m.Date)
		i, ok := index[y]
		if !ok {
			i = len(groups)
			index[y] = i
			groups = append(groups, YearGroup{Year: y})
		}
		groups[i].Milestones = append(groups[i].Milestones, m)
	}
	sort.SliceStable(groups, func(i, j int) bool {
		a, b := groups[i].Year, groups[j].Year
		if a == unknownYear || b == unknownYear {
			return b == unknownYear && a != unknownYear
		}
		return a < b
	})
	return groups
}

const unknownYear = "unknown"

func yearOf(date string) string {
	date = strings.TrimSpace(date)
	if len(date) < 4 {
		return unknownYear
	}
	y := date[:4]
	for _, r := range y {
		if r < '0' || r > '9' {
			return unknownYear
		}
	}
	return y
}

// FilterByCategory returns the letters in category c. An empty category
// returns letters unchanged.
func FilterByCategory(letters []Letter, c Category) []Letter {
	if c == "" {
		return letters
	}
	var out []Letter
	for _, l := range letters {
		if l.Category == c {
			out = append(out, l)
		}
	}
	return out
}
