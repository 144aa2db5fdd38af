package ourstory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListCache(t *testing.T) {
	loads := 0
	c := newListCache(time.Minute, func(context.Context) ([]string, error) {
		loads++
		return []string{"a"}, nil
	})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		items, err := c.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"a"}, items)
	}
	assert.Equal(t, 1, loads)

	c.Invalidate()
	_, err := c.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, loads)
}

func TestListCacheDisabled(t *testing.T) {
	loads := 0
	c := newListCache(-1, func(context.Context) ([]int, error) {
		loads++
		return nil, nil
	})
	c.List(context.Background())
	c.List(context.Background())
	assert.Equal(t, 2, loads)
}

func TestListCacheKeepsNothingOnError(t *testing.T) {
	fail := true
	c := newListCache(time.Minute, func(context.Context) ([]int, error) {
		if fail {
			return nil, errors.New("store unavailable")
		}
		return []int{1}, nil
	})
	_, err := c.List(context.Background())
	require.Error(t, err)

	fail = false
	items, err := c.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{1}, items)
}
