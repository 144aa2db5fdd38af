package resource

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ourstory/ourstory/model"
	"github.com/ourstory/ourstory/remote"
	"github.com/ourstory/ourstory/remote/sqlitestore"
)

type testServer struct {
	e     *echo.Echo
	store remote.Client
	reg   *prometheus.Registry
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()
	store, err := sqlitestore.Open(sqlitestore.Config{
		Path:   filepath.Join(dir, "test.db"),
		Tables: remote.Tables,
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return newTestServer(t, store)
}

func newTestServer(t *testing.T, store remote.Client) *testServer {
	t.Helper()
	replay := NewReplay(time.Minute)
	t.Cleanup(replay.Close)
	reg := prometheus.NewRegistry()
	cfg := RouteConfig{
		Replay:  replay,
		Metrics: NewMetrics(reg),
		Logger:  zerolog.Nop(),
	}
	e := echo.New()
	NewRoute(NewRepo(Milestones, store), cfg).Register(e.Group("/api/timeline"))
	NewRoute(NewRepo(Songs, store), cfg).Register(e.Group("/api/music"))
	NewRoute(NewRepo(Letters, store), cfg).Register(e.Group("/api/letters"))
	return &testServer{e: e, store: store, reg: reg}
}

func (s *testServer) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

// counter sums the named counter over series whose label values include
// every value in labels.
func (s *testServer) counter(t *testing.T, name string, labels ...string) float64 {
	t.Helper()
	families, err := s.reg.Gather()
	require.NoError(t, err)
	total := 0.0
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	series:
		for _, m := range mf.GetMetric() {
			values := map[string]bool{}
			for _, lp := range m.GetLabel() {
				values[lp.GetValue()] = true
			}
			for _, l := range labels {
				if !values[l] {
					continue series
				}
			}
			total += m.GetCounter().GetValue()
		}
	}
	return total
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestCreateMilestoneThenList(t *testing.T) {
	s := setupTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/timeline",
		`{"title":"trip","date":"2024-01-01","imageSrc":"/x.jpg","song":{"title":"Yellow","artist":"Coldplay","url":"https://youtu.be/yKNxeF4KMsY","description":"car"}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	created := decode[model.Milestone](t, rec)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "trip", created.Title)
	assert.Equal(t, "Coldplay", created.Song.Artist)

	list := decode[[]model.Milestone](t, s.do(t, http.MethodGet, "/api/timeline", ""))
	require.Len(t, list, 1)
	assert.Equal(t, created.ID, list[0].ID)

	groups := model.GroupByYear(list)
	require.Len(t, groups, 1)
	assert.Equal(t, "2024", groups[0].Year)
}

func TestCreateKeepsClientID(t *testing.T) {
	s := setupTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/music", `{"id":"7","title":"Cruel Summer","artist":"Taylor Swift","url":"https://youtube.com/watch?v=ic8j13piAhQ"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "7", decode[model.Song](t, rec).ID)
}

func TestUpdateThenList(t *testing.T) {
	s := setupTestServer(t)
	created := decode[model.Song](t, s.do(t, http.MethodPost, "/api/music", `{"title":"light","artist":"Wave to Earth"}`))

	rec := s.do(t, http.MethodPut, "/api/music",
		`{"id":"`+created.ID+`","title":"light","artist":"wave to earth","description":"first dance"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[model.Song](t, rec)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "first dance", updated.Description)

	list := decode[[]model.Song](t, s.do(t, http.MethodGet, "/api/music", ""))
	require.Len(t, list, 1)
	assert.Equal(t, "wave to earth", list[0].Artist)
	assert.Equal(t, created.ID, list[0].ID)
}

func TestUpdateUnknownIDEchoesRecord(t *testing.T) {
	s := setupTestServer(t)
	rec := s.do(t, http.MethodPut, "/api/letters", `{"id":"ghost","title":"boo"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ghost", decode[model.Letter](t, rec).ID)
	assert.Empty(t, decode[[]model.Letter](t, s.do(t, http.MethodGet, "/api/letters", "")))
}

func TestUpdateRequiresID(t *testing.T) {
	s := setupTestServer(t)
	rec := s.do(t, http.MethodPut, "/api/music", `{"title":"no id"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "id is required", decode[errorBody](t, rec).Error)
}

func TestInvalidJSON(t *testing.T) {
	s := setupTestServer(t)
	rec := s.do(t, http.MethodPost, "/api/letters", `{"title":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, decode[errorBody](t, rec).Error)
}

func TestDeleteThenList(t *testing.T) {
	s := setupTestServer(t)
	a := decode[model.Song](t, s.do(t, http.MethodPost, "/api/music", `{"title":"a"}`))
	b := decode[model.Song](t, s.do(t, http.MethodPost, "/api/music", `{"title":"b"}`))

	rec := s.do(t, http.MethodDelete, "/api/music", `{"id":"`+a.ID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[successBody](t, rec).Success)

	list := decode[[]model.Song](t, s.do(t, http.MethodGet, "/api/music", ""))
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)
}

func TestDeleteUnknownIDSucceeds(t *testing.T) {
	s := setupTestServer(t)
	s.do(t, http.MethodPost, "/api/letters", `{"id":"keep","title":"stay"}`)

	rec := s.do(t, http.MethodDelete, "/api/letters", `{"id":"does-not-exist"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	list := decode[[]model.Letter](t, s.do(t, http.MethodGet, "/api/letters", ""))
	require.Len(t, list, 1)
	assert.Equal(t, "keep", list[0].ID)
}

func TestDeleteRequiresID(t *testing.T) {
	s := setupTestServer(t)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodDelete, "/api/music", `{}`).Code)
}

func TestListOrdering(t *testing.T) {
	s := setupTestServer(t)
	for _, d := range []string{"2023-02-14", "2021-09-01", "2024-12-25"} {
		s.do(t, http.MethodPost, "/api/timeline", `{"title":"m","date":"`+d+`"}`)
		s.do(t, http.MethodPost, "/api/letters", `{"title":"l","date":"`+d+`"}`)
	}

	ms := decode[[]model.Milestone](t, s.do(t, http.MethodGet, "/api/timeline", ""))
	require.Len(t, ms, 3)
	for i := 1; i < len(ms); i++ {
		assert.LessOrEqual(t, ms[i-1].Date, ms[i].Date)
	}

	ls := decode[[]model.Letter](t, s.do(t, http.MethodGet, "/api/letters", ""))
	require.Len(t, ls, 3)
	for i := 1; i < len(ls); i++ {
		assert.GreaterOrEqual(t, ls[i-1].Date, ls[i].Date)
	}
}

func TestGetByID(t *testing.T) {
	s := setupTestServer(t)
	s.do(t, http.MethodPost, "/api/letters", `{"id":"l1","title":"hello","category":"Love Note"}`)

	rec := s.do(t, http.MethodGet, "/api/letters/l1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.CategoryLoveNote, decode[model.Letter](t, rec).Category)

	rec = s.do(t, http.MethodGet, "/api/letters/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not found", decode[errorBody](t, rec).Error)
}

func TestIdempotencyKeyReplays(t *testing.T) {
	s := setupTestServer(t)

	first := s.do(t, http.MethodPost, "/api/music", `{"title":"once"}`, IdempotencyHeader, "abc")
	require.Equal(t, http.StatusOK, first.Code)
	second := s.do(t, http.MethodPost, "/api/music", `{"title":"once"}`, IdempotencyHeader, "abc")
	require.Equal(t, http.StatusOK, second.Code)

	assert.Equal(t, "true", second.Header().Get(ReplayedHeader))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Len(t, decode[[]model.Song](t, s.do(t, http.MethodGet, "/api/music", "")), 1)
	assert.Equal(t, 1.0, s.counter(t, "ourstory_resource_idempotent_replays_total", "music"))
}

func TestIdempotencyKeyWithDifferentPayloadIsRejected(t *testing.T) {
	s := setupTestServer(t)

	first := s.do(t, http.MethodPost, "/api/music", `{"title":"once"}`, IdempotencyHeader, "abc")
	require.Equal(t, http.StatusOK, first.Code)
	second := s.do(t, http.MethodPost, "/api/music", `{"title":"twice"}`, IdempotencyHeader, "abc")
	require.Equal(t, http.StatusUnprocessableEntity, second.Code)

	assert.Empty(t, second.Header().Get(ReplayedHeader))
	assert.Equal(t, "idempotency key reused with a different payload", decode[errorBody](t, second).Error)
	songs := decode[[]model.Song](t, s.do(t, http.MethodGet, "/api/music", ""))
	require.Len(t, songs, 1)
	assert.Equal(t, "once", songs[0].Title)
}

func TestConcurrentSameKeyCreatesOnce(t *testing.T) {
	s := setupTestServer(t)

	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rec := s.do(t, http.MethodPost, "/api/letters", `{"title":"dup"}`, IdempotencyHeader, "same")
			var l model.Letter
			if json.Unmarshal(rec.Body.Bytes(), &l) == nil {
				ids[i] = l.ID
			}
		}(i)
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.Len(t, decode[[]model.Letter](t, s.do(t, http.MethodGet, "/api/letters", "")), 1)
}

func TestStoreFailureReturns500WithMessage(t *testing.T) {
	s := newTestServer(t, failingClient{})

	rec := s.do(t, http.MethodGet, "/api/timeline", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "connection refused", decode[errorBody](t, rec).Error)

	rec = s.do(t, http.MethodPost, "/api/timeline", `{"title":"x"}`, IdempotencyHeader, "k")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "", rec.Header().Get(ReplayedHeader))

	rec = s.do(t, http.MethodPost, "/api/timeline", `{"title":"x"}`, IdempotencyHeader, "k")
	assert.Equal(t, "", rec.Header().Get(ReplayedHeader), "failed mutations are not replayed")

	assert.Equal(t, 1.0, s.counter(t, "ourstory_resource_operations_total", "timeline", "list", "error"))
}

type failingClient struct{}

func (failingClient) From(name string) remote.Table { return failingTable{name: name} }

func (failingClient) Bucket(name string) remote.Bucket { return nil }

func (failingClient) Ping(ctx context.Context) error { return errRefused }

func (failingClient) Close() error { return nil }

var errRefused = errors.New("connection refused")

type failingTable struct{ name string }

func (f failingTable) Select(ctx context.Context, q remote.Query) ([]remote.Row, error) {
	return nil, remote.Wrap("select", f.name, errRefused)
}

func (f failingTable) Insert(ctx context.Context, rows ...remote.Row) ([]remote.Row, error) {
	return nil, remote.Wrap("insert", f.name, errRefused)
}

func (f failingTable) Upsert(ctx context.Context, rows ...remote.Row) ([]remote.Row, error) {
	return nil, remote.Wrap("upsert", f.name, errRefused)
}

func (f failingTable) Update(ctx context.Context, patch remote.Row, filters ...remote.Filter) ([]remote.Row, error) {
	return nil, remote.Wrap("update", f.name, errRefused)
}

func (f failingTable) Delete(ctx context.Context, filters ...remote.Filter) error {
	return remote.Wrap("delete", f.name, errRefused)
}

func TestOnChangeRunsAfterAcceptedMutations(t *testing.T) {
	store, err := sqlitestore.Open(sqlitestore.Config{
		Path:   filepath.Join(t.TempDir(), "change.db"),
		Tables: remote.Tables,
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	var mu sync.Mutex
	var changed []string
	e := echo.New()
	NewRoute(NewRepo(Songs, store), RouteConfig{
		Logger: zerolog.Nop(),
		OnChange: func(kind string) {
			mu.Lock()
			changed = append(changed, kind)
			mu.Unlock()
		},
	}).Register(e.Group("/api/music"))
	s := &testServer{e: e, store: store, reg: prometheus.NewRegistry()}

	s.do(t, http.MethodPost, "/api/music", `{"id":"1","title":"a"}`)
	s.do(t, http.MethodPut, "/api/music", `{"id":"1","title":"b"}`)
	s.do(t, http.MethodPut, "/api/music", `{"title":"no id"}`)
	s.do(t, http.MethodDelete, "/api/music", `{"id":"1"}`)
	s.do(t, http.MethodGet, "/api/music", "")

	assert.Equal(t, []string{"music", "music", "music"}, changed)
}
