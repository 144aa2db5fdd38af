package viewstate

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ourstory/ourstory/model"
	"github.com/ourstory/ourstory/notify"
)

// fakeAPI is an in-memory server for one collection.
type fakeAPI[T any] struct {
	mu      sync.Mutex
	id      func(*T) *string
	items   []T
	keys    []string
	calls   atomic.Int32
	fail    error
	gate    chan struct{}
	entered chan struct{}
}

func (f *fakeAPI[T]) List(ctx context.Context) ([]T, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	return append([]T(nil), f.items...), nil
}

func (f *fakeAPI[T]) Create(ctx context.Context, rec T, key string) (T, error) {
	f.calls.Add(1)
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		var zero T
		return zero, f.fail
	}
	f.keys = append(f.keys, key)
	f.items = append(f.items, rec)
	return rec, nil
}

func (f *fakeAPI[T]) Update(ctx context.Context, rec T, key string) (T, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		var zero T
		return zero, f.fail
	}
	f.keys = append(f.keys, key)
	for i := range f.items {
		if *f.id(&f.items[i]) == *f.id(&rec) {
			f.items[i] = rec
		}
	}
	return rec, nil
}

func (f *fakeAPI[T]) Delete(ctx context.Context, id, key string) error {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return f.fail
	}
	f.keys = append(f.keys, key)
	kept := f.items[:0]
	for _, it := range f.items {
		if *f.id(&it) != id {
			kept = append(kept, it)
		}
	}
	f.items = kept
	return nil
}

func songAPI(songs ...model.Song) *fakeAPI[model.Song] {
	return &fakeAPI[model.Song]{id: func(s *model.Song) *string { return &s.ID }, items: songs}
}

var errDown = errors.New("store unavailable: connection refused")

func TestLoadTransitionsToReady(t *testing.T) {
	api := songAPI(model.Song{ID: "1", Title: "ETA"})
	c := NewPlaylist(api, notify.NewQueue(1), zerolog.Nop())

	assert.Equal(t, Loading, c.State())
	require.NoError(t, c.Load(context.Background()))
	assert.Equal(t, Ready, c.State())
	assert.Len(t, c.Items(), 1)
}

func TestLoadFailureKeepsLoadingAndNotifies(t *testing.T) {
	api := songAPI()
	api.fail = errDown
	q := notify.NewQueue(1)
	c := NewPlaylist(api, q, zerolog.Nop())

	assert.Error(t, c.Load(context.Background()))
	assert.Equal(t, Loading, c.State())
	require.Len(t, q.Toasts(), 1)
	assert.Equal(t, "Failed to load songs. Please try again.", q.Toasts()[0].Description)
}

func TestAddSongWithEmptyArtistSendsNothing(t *testing.T) {
	api := songAPI()
	q := notify.NewQueue(1)
	c := NewPlaylist(api, q, zerolog.Nop())

	_, err := c.Add(context.Background(), model.Song{Title: "Yellow", URL: "https://youtu.be/yKNxeF4KMsY"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrValidation))
	assert.Equal(t, int32(0), api.calls.Load())
	require.Len(t, q.Toasts(), 1)
	assert.Equal(t, "Missing information", q.Toasts()[0].Title)
}

func TestAddMilestoneWithBlankSongArtistSendsNothing(t *testing.T) {
	api := &fakeAPI[model.Milestone]{id: func(m *model.Milestone) *string { return &m.ID }}
	q := notify.NewQueue(1)
	tl := NewTimeline(api, nil, q, zerolog.Nop())

	_, err := tl.Add(context.Background(), model.Milestone{
		Date:        "2024-01-01",
		Title:       "trip",
		Description: "first trip together",
		Song:        model.SongSnapshot{Title: "Night Drive", URL: "https://youtu.be/x", Description: "on the radio"},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrValidation))
	assert.Equal(t, int32(0), api.calls.Load())
	assert.Empty(t, tl.Items())
	require.Len(t, q.Toasts(), 1)
	assert.Equal(t, "Missing information", q.Toasts()[0].Title)
}

func TestAddSongRejectsNonVideoURL(t *testing.T) {
	api := songAPI()
	q := notify.NewQueue(1)
	c := NewPlaylist(api, q, zerolog.Nop())

	_, err := c.Add(context.Background(), model.Song{Title: "Yellow", Artist: "Coldplay", URL: "https://example.com/yellow"})
	require.Error(t, err)
	assert.Equal(t, int32(0), api.calls.Load())
	assert.Equal(t, "Invalid URL", q.Toasts()[0].Title)
}

func TestAddAppendsServerRecord(t *testing.T) {
	api := songAPI(model.Song{ID: "1", Title: "first"})
	q := notify.NewQueue(1)
	c := NewPlaylist(api, q, zerolog.Nop())
	require.NoError(t, c.Load(context.Background()))

	out, err := c.Add(context.Background(), model.Song{Title: "ETA", Artist: "NewJeans", URL: "https://youtube.com/watch?v=jOTfBlKSQYY"})
	require.NoError(t, err)
	assert.NotEmpty(t, out.ID)

	items := c.Items()
	require.Len(t, items, 2)
	assert.Equal(t, out.ID, items[1].ID)
	assert.Equal(t, `"ETA" has been added to your playlist`, q.Toasts()[0].Description)
	require.Len(t, api.keys, 1)
	assert.NotEmpty(t, api.keys[0])
}

func TestAddLetterPrepends(t *testing.T) {
	api := &fakeAPI[model.Letter]{
		id:    func(l *model.Letter) *string { return &l.ID },
		items: []model.Letter{{ID: "old", Title: "old"}},
	}
	c := NewLetters(api, notify.NewQueue(1), zerolog.Nop())
	require.NoError(t, c.Load(context.Background()))

	out, err := c.Add(context.Background(), model.Letter{
		Title:    "hi",
		Content:  "thinking of you",
		Date:     "2025-02-14",
		Category: model.CategoryLoveNote,
	})
	require.NoError(t, err)
	items := c.Items()
	require.Len(t, items, 2)
	assert.Equal(t, out.ID, items[0].ID)
}

func TestAddFailureKeepsPreviousState(t *testing.T) {
	api := songAPI(model.Song{ID: "1"})
	q := notify.NewQueue(1)
	c := NewPlaylist(api, q, zerolog.Nop())
	require.NoError(t, c.Load(context.Background()))

	api.fail = errDown
	_, err := c.Add(context.Background(), model.Song{Title: "a", Artist: "b", URL: "https://youtu.be/x"})
	require.Error(t, err)
	assert.Len(t, c.Items(), 1)
	assert.Equal(t, Ready, c.State())
	assert.Equal(t, "Failed to add song. Please try again.", q.Toasts()[0].Description)
}

func TestConcurrentDuplicateAddsShareOneRequest(t *testing.T) {
	api := songAPI()
	api.gate = make(chan struct{})
	api.entered = make(chan struct{}, 4)
	c := NewPlaylist(api, notify.NewQueue(1), zerolog.Nop())
	song := model.Song{Title: "a", Artist: "b", URL: "https://youtu.be/x"}

	var wg sync.WaitGroup
	results := make([]model.Song, 3)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = c.Add(context.Background(), song)
		}(i)
	}
	<-api.entered
	// give the other submissions time to join the in-flight call
	time.Sleep(50 * time.Millisecond)
	close(api.gate)
	wg.Wait()

	assert.Equal(t, int32(1), api.calls.Load())
	assert.Len(t, c.Items(), 1)
	for _, r := range results {
		assert.Equal(t, results[0].ID, r.ID)
	}
}

func TestUpdateReplacesByID(t *testing.T) {
	api := songAPI(model.Song{ID: "1", Title: "a", Artist: "b", URL: "https://youtu.be/x"})
	c := NewPlaylist(api, notify.NewQueue(1), zerolog.Nop())
	require.NoError(t, c.Load(context.Background()))

	_, err := c.Update(context.Background(), model.Song{ID: "1", Title: "a2", Artist: "b", URL: "https://youtu.be/x"})
	require.NoError(t, err)
	got, ok := c.Find("1")
	require.True(t, ok)
	assert.Equal(t, "a2", got.Title)
}

func TestRemove(t *testing.T) {
	api := songAPI(model.Song{ID: "1"}, model.Song{ID: "2"})
	q := notify.NewQueue(1)
	c := NewPlaylist(api, q, zerolog.Nop())
	require.NoError(t, c.Load(context.Background()))

	require.NoError(t, c.Remove(context.Background(), "1"))
	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "2", items[0].ID)
	assert.Equal(t, "Song deleted", q.Toasts()[0].Title)

	api.fail = errDown
	assert.Error(t, c.Remove(context.Background(), "2"))
	assert.Len(t, c.Items(), 1)
}

type fakeUploader struct {
	t       *testing.T
	tl      **Timeline
	fail    error
	sawPrev bool
}

func (u *fakeUploader) UploadImage(ctx context.Context, id, filename string, data []byte) (model.Milestone, error) {
	p, ok := (*u.tl).Preview(id)
	u.sawPrev = ok && strings.HasPrefix(p, "data:")
	if u.fail != nil {
		return model.Milestone{}, u.fail
	}
	m, _ := (*u.tl).Find(id)
	m.ImageSrc = "/public/timeline-images/" + id + ".jpg"
	return m, nil
}

func TestAttachImageShowsPreviewThenServerCopy(t *testing.T) {
	api := &fakeAPI[model.Milestone]{
		id:    func(m *model.Milestone) *string { return &m.ID },
		items: []model.Milestone{{ID: "m1", Date: "2024-01-01", Title: "trip", Description: "d"}},
	}
	var tl *Timeline
	up := &fakeUploader{t: t, tl: &tl}
	tl = NewTimeline(api, up, notify.NewQueue(1), zerolog.Nop())
	require.NoError(t, tl.Load(context.Background()))

	out, err := tl.AttachImage(context.Background(), "m1", "photo.png", []byte("\x89PNG\r\n\x1a\n...."))
	require.NoError(t, err)
	assert.True(t, up.sawPrev)
	assert.Equal(t, "/public/timeline-images/m1.jpg", out.ImageSrc)

	_, pending := tl.Preview("m1")
	assert.False(t, pending)
	m, _ := tl.Find("m1")
	assert.Equal(t, out.ImageSrc, tl.ImageFor(m))

	groups := tl.Groups()
	require.Len(t, groups, 1)
	assert.Equal(t, "2024", groups[0].Year)
}

func TestAttachImageFailureNotifies(t *testing.T) {
	api := &fakeAPI[model.Milestone]{
		id:    func(m *model.Milestone) *string { return &m.ID },
		items: []model.Milestone{{ID: "m1"}},
	}
	var tl *Timeline
	up := &fakeUploader{t: t, tl: &tl, fail: errDown}
	q := notify.NewQueue(1)
	tl = NewTimeline(api, up, q, zerolog.Nop())
	require.NoError(t, tl.Load(context.Background()))

	_, err := tl.AttachImage(context.Background(), "m1", "photo.jpg", []byte("x"))
	require.Error(t, err)
	assert.Equal(t, "Failed to upload image. Please try again.", q.Toasts()[0].Description)
	m, _ := tl.Find("m1")
	assert.Empty(t, m.ImageSrc)
}
