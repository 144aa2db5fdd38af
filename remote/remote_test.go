package remote

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ourstory/ourstory/model"
)

func TestRowRoundTrip(t *testing.T) {
	in := model.Milestone{ID: "m1", Date: "2024-01-01", Title: "trip", Song: model.SongSnapshot{Title: "light"}}
	row, err := ToRow(in)
	require.NoError(t, err)
	assert.Equal(t, "m1", row.ID())
	song, ok := row["song"].(map[string]any)
	require.True(t, ok, "nested snapshot stays an object")
	assert.Equal(t, "light", song["title"])

	out, err := FromRow[model.Milestone](row)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestStoreErrorMatchesUnavailable(t *testing.T) {
	err := Wrap("select", TableSongs, errors.New("connection refused"))
	assert.ErrorIs(t, err, model.ErrStoreUnavailable)
	assert.Equal(t, "connection refused", Message(err))
	assert.Contains(t, err.Error(), "songs")
	assert.Nil(t, Wrap("select", TableSongs, nil))
	assert.Same(t, err, Wrap("update", TableSongs, err))
}

func TestCheckQuery(t *testing.T) {
	assert.NoError(t, CheckQuery(Query{Filters: []Filter{Eq("id", "x")}, Order: &Order{Column: "date"}}))
	assert.Error(t, CheckQuery(Query{Order: &Order{Column: "date; drop table songs"}}))
	assert.Error(t, CheckFilters([]Filter{Eq("a.b", "x")}))
}

type pingClient struct {
	Client
	failures int
	calls    int
}

func (p *pingClient) Ping(ctx context.Context) error {
	p.calls++
	if p.calls <= p.failures {
		return errors.New("not yet")
	}
	return nil
}

func TestWaitReady(t *testing.T) {
	c := &pingClient{failures: 2}
	require.NoError(t, WaitReady(context.Background(), c, 5*time.Second, zerolog.Nop()))
	assert.Equal(t, 3, c.calls)
}

func TestWaitReadyGivesUp(t *testing.T) {
	c := &pingClient{failures: 1 << 30}
	err := WaitReady(context.Background(), c, 300*time.Millisecond, zerolog.Nop())
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrStoreUnavailable)
}
