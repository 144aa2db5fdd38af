package seed

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ourstory/ourstory/model"
	"github.com/ourstory/ourstory/remote"
	"github.com/ourstory/ourstory/remote/sqlitestore"
)

func TestDefaultParses(t *testing.T) {
	d, err := Default()
	require.NoError(t, err)
	require.NotEmpty(t, d.Milestones)
	require.Len(t, d.Songs, 10)
	assert.Equal(t, "Night Drive", d.Songs[0].Title)

	first := d.Milestones[0]
	assert.Equal(t, "May 14, 2022", first.FormattedDate)
	assert.Equal(t, "Sam Wills", first.Song.Artist)
	for _, s := range d.Songs {
		assert.NoError(t, model.ValidateSong(s), s.Title)
	}
}

func TestParseRejectsMissingID(t *testing.T) {
	_, err := Parse([]byte("songs:\n  - title: x\n"))
	assert.Error(t, err)
}

func TestApplyIsRepeatable(t *testing.T) {
	store, err := sqlitestore.Open(sqlitestore.Config{
		Path:   filepath.Join(t.TempDir(), "seed.db"),
		Tables: remote.Tables,
	})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	d, err := Default()
	require.NoError(t, err)
	ctx := context.Background()
	for i := 0; i < 2; i++ {
		res, err := Apply(ctx, store, d, zerolog.Nop())
		require.NoError(t, err)
		assert.Equal(t, len(d.Milestones), res.Milestones)
		assert.Equal(t, len(d.Songs), res.Songs)
	}

	rows, err := store.From(remote.TableSongs).Select(ctx, remote.Query{})
	require.NoError(t, err)
	assert.Len(t, rows, len(d.Songs))

	rows, err = store.From(remote.TableMilestones).Select(ctx, remote.Query{
		Filters: []remote.Filter{remote.Eq("id", "4")},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	m, err := remote.FromRow[model.Milestone](rows[0])
	require.NoError(t, err)
	assert.Equal(t, "IV OF SPADES", m.Song.Artist)
}
