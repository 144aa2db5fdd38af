package viewstate

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ourstory/ourstory/model"
	"github.com/ourstory/ourstory/notify"
)

// Playlist is the controller behind the music page.
type Playlist = Controller[model.Song]

// Letters is the controller behind the letters page.
type Letters = Controller[model.Letter]

// NewPlaylist returns the songs controller. New songs are appended.
func NewPlaylist(api API[model.Song], n notify.Notifier, log zerolog.Logger) *Playlist {
	return New(Config[model.Song]{
		Kind:     "music",
		API:      api,
		ID:       func(s *model.Song) *string { return &s.ID },
		Validate: model.ValidateSong,
		Notifier: n,
		Logger:   log,
		Messages: Messages[model.Song]{
			LoadFailed: Message{"Error", "Failed to load songs. Please try again."},
			Added: func(s model.Song) Message {
				return Message{"Song added", fmt.Sprintf("%q has been added to your playlist", s.Title)}
			},
			AddFailed:    Message{"Error", "Failed to add song. Please try again."},
			Updated:      Message{"Song updated", "The song has been updated"},
			UpdateFailed: Message{"Error", "Failed to update song. Please try again."},
			Deleted:      Message{"Song deleted", "The song has been removed from your playlist"},
			DeleteFailed: Message{"Error", "Failed to delete song. Please try again."},
		},
	})
}

// NewLetters returns the letters controller. New letters go first.
func NewLetters(api API[model.Letter], n notify.Notifier, log zerolog.Logger) *Letters {
	return New(Config[model.Letter]{
		Kind:     "letters",
		API:      api,
		ID:       func(l *model.Letter) *string { return &l.ID },
		Validate: model.ValidateLetter,
		Prepend:  true,
		Notifier: n,
		Logger:   log,
		Messages: Messages[model.Letter]{
			LoadFailed: Message{"Error", "Failed to load letters. Please try again."},
			Added: func(model.Letter) Message {
				return Message{"Letter added", "Your new letter has been added successfully"}
			},
			AddFailed:    Message{"Error", "Failed to add letter. Please try again."},
			Updated:      Message{"Letter updated", "Your letter has been updated successfully"},
			UpdateFailed: Message{"Error", "Failed to update letter. Please try again."},
			Deleted:      Message{"Letter deleted", "Your letter has been deleted successfully"},
			DeleteFailed: Message{"Error", "Failed to delete letter. Please try again."},
		},
	})
}

func timelineConfig(api API[model.Milestone], n notify.Notifier, log zerolog.Logger) Config[model.Milestone] {
	return Config[model.Milestone]{
		Kind:     "timeline",
		API:      api,
		ID:       func(m *model.Milestone) *string { return &m.ID },
		Validate: model.ValidateMilestone,
		Notifier: n,
		Logger:   log,
		Messages: Messages[model.Milestone]{
			LoadFailed: Message{"Error", "Failed to load timeline. Please try again later."},
			Added: func(model.Milestone) Message {
				return Message{"Success", "New milestone added successfully"}
			},
			AddFailed:    Message{"Error", "Failed to add milestone. Please try again."},
			Updated:      Message{"Success", "Timeline updated successfully"},
			UpdateFailed: Message{"Error", "Failed to update timeline. Please try again."},
			Deleted:      Message{"Success", "Milestone removed"},
			DeleteFailed: Message{"Error", "Failed to delete milestone. Please try again."},
		},
	}
}
