// Package resource implements the three JSON collections served under
// /api: a repository over a remote table and the echo handlers in front
// of it. The handlers pass records through without business validation.
package resource

import (
	"github.com/ourstory/ourstory/model"
	"github.com/ourstory/ourstory/remote"
)

// Kind describes one collection.
type Kind[T any] struct {
	Name  string // URL segment under /api
	Table string
	Order remote.Order
	ID    func(*T) *string
}

// Milestones is the timeline, oldest first.
var Milestones = Kind[model.Milestone]{
	Name:  "timeline",
	Table: remote.TableMilestones,
	Order: remote.Order{Column: "date"},
	ID:    func(m *model.Milestone) *string { return &m.ID },
}

// Songs is the playlist in id order.
var Songs = Kind[model.Song]{
	Name:  "music",
	Table: remote.TableSongs,
	Order: remote.Order{Column: remote.IDColumn},
	ID:    func(s *model.Song) *string { return &s.ID },
}

// Letters are listed newest first.
var Letters = Kind[model.Letter]{
	Name:  "letters",
	Table: remote.TableLetters,
	Order: remote.Order{Column: "date", Descending: true},
	ID:    func(l *model.Letter) *string { return &l.ID },
}
