package viewstate

import (
	"bytes"
	"context"
	"encoding/base64"
	"net/http"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ourstory/ourstory/model"
	"github.com/ourstory/ourstory/notify"
)

// ImageUploader stores a milestone picture on the server and returns the
// milestone with its new imageSrc.
type ImageUploader interface {
	UploadImage(ctx context.Context, id, filename string, data []byte) (model.Milestone, error)
}

// Timeline is the milestones controller plus image attachment.
type Timeline struct {
	*Controller[model.Milestone]
	uploader ImageUploader

	mu       sync.Mutex
	previews map[string]string
}

// NewTimeline returns the timeline controller. New milestones are appended.
func NewTimeline(api API[model.Milestone], up ImageUploader, n notify.Notifier, log zerolog.Logger) *Timeline {
	return &Timeline{
		Controller: New(timelineConfig(api, n, log)),
		uploader:   up,
		previews:   make(map[string]string),
	}
}

// Groups returns the milestones grouped by year.
func (t *Timeline) Groups() []model.YearGroup {
	return model.GroupByYear(t.Items())
}

// Preview returns the local preview shown while an upload for id runs.
func (t *Timeline) Preview(id string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	p, ok := t.previews[id]
	return p, ok
}

// ImageFor returns what to display for m: the pending preview if any,
// otherwise its stored image.
func (t *Timeline) ImageFor(m model.Milestone) string {
	if p, ok := t.Preview(m.ID); ok {
		return p
	}
	return m.ImageSrc
}

// AttachImage shows data as a preview for milestone id immediately, then
// uploads it and replaces the milestone with the server's copy. The
// preview is dropped once the upload finishes either way.
func (t *Timeline) AttachImage(ctx context.Context, id, filename string, data []byte) (model.Milestone, error) {
	t.mu.Lock()
	t.previews[id] = dataURL(data)
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		delete(t.previews, id)
		t.mu.Unlock()
	}()

	out, err := t.uploader.UploadImage(ctx, id, filename, data)
	if err != nil {
		t.log.Error().Err(err).Str("id", id).Msg("image upload failed")
		t.notify(Message{"Error", "Failed to upload image. Please try again."})
		return model.Milestone{}, err
	}
	t.replace(out)
	t.notify(t.cfg.Messages.Updated)
	return out, nil
}

func dataURL(data []byte) string {
	ct := http.DetectContentType(data)
	var b bytes.Buffer
	b.WriteString("data:")
	b.WriteString(ct)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(data))
	return b.String()
}
