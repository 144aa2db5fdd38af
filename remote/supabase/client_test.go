package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ourstory/ourstory/model"
	"github.com/ourstory/ourstory/remote"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(Config{URL: srv.URL + "/", Key: "anon-key"})
}

func TestSelectBuildsPostgRESTQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/rest/v1/letters", r.URL.Path)
		assert.Equal(t, "eq.Memory", r.URL.Query().Get("category"))
		assert.Equal(t, "date.desc", r.URL.Query().Get("order"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer anon-key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"1","category":"Memory"}]`))
	})

	rows, err := c.From(remote.TableLetters).Select(context.Background(), remote.Query{
		Filters: []remote.Filter{remote.Eq("category", "Memory")},
		Order:   &remote.Order{Column: "date", Descending: true},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "1", rows[0].ID())
}

func TestInsertSendsRepresentationPreference(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))
		var body []map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body, 1)
		body[0]["created"] = true
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(body)
	})

	rows, err := c.From(remote.TableSongs).Insert(context.Background(), remote.Row{"id": "5", "title": "Yellow"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, true, rows[0]["created"])
}

func TestUpsertMergesDuplicates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.Header.Get("Prefer"), "resolution=merge-duplicates")
		w.Write([]byte(`[]`))
	})
	_, err := c.From(remote.TableSongs).Upsert(context.Background(), remote.Row{"id": "5"})
	require.NoError(t, err)
}

func TestUpdateFiltersAndDropsID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "eq.m1", r.URL.Query().Get("id"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, hasID := body["id"]
		assert.False(t, hasID)
		w.Write([]byte(`[{"id":"m1","title":"new"}]`))
	})
	rows, err := c.From(remote.TableMilestones).Update(context.Background(), remote.Row{"id": "m1", "title": "new"}, remote.Eq("id", "m1"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "new", rows[0]["title"])
}

func TestDeleteRequiresFilter(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusNoContent)
	})
	assert.Error(t, c.From(remote.TableSongs).Delete(context.Background()))
	assert.False(t, called)
	require.NoError(t, c.From(remote.TableSongs).Delete(context.Background(), remote.Eq("id", "1")))
	assert.True(t, called)
}

func TestErrorMessageSurfaced(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"code":"42P01","message":"relation \"public.songs\" does not exist"}`))
	})
	_, err := c.From(remote.TableSongs).Select(context.Background(), remote.Query{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrStoreUnavailable))
	assert.Equal(t, `relation "public.songs" does not exist`, remote.Message(err))
}

func TestBucketUploadAndPublicURL(t *testing.T) {
	var got string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/storage/v1/object/timeline-images/m1.jpg", r.URL.Path)
		assert.Equal(t, "image/jpeg", r.Header.Get("Content-Type"))
		assert.Equal(t, "true", r.Header.Get("x-upsert"))
		b, _ := io.ReadAll(r.Body)
		got = string(b)
		w.Write([]byte(`{"Key":"timeline-images/m1.jpg"}`))
	})
	b := c.Bucket("timeline-images")
	require.NoError(t, b.Upload(context.Background(), "m1.jpg", strings.NewReader("jpeg"), "image/jpeg"))
	assert.Equal(t, "jpeg", got)
	assert.True(t, strings.HasSuffix(b.PublicURL("m1.jpg"), "/storage/v1/object/public/timeline-images/m1.jpg"))
}

func TestPing(t *testing.T) {
	status := http.StatusServiceUnavailable
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
	})
	assert.Error(t, c.Ping(context.Background()))
	status = http.StatusOK
	assert.NoError(t, c.Ping(context.Background()))
}
