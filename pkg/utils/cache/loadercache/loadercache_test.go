package loadercache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/racecoach/pkg/utils/cache"
)

type counter struct {
	calls int
	fail  bool
}

func (c *counter) load(_ context.Context, key string) (*int, error) {
	c.calls++
	if c.fail {
		return nil, errors.New("load failed")
	}
	v := len(key)
	return &v, nil
}

func TestLoaderCache_Get(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1000, 0)
	cnt := &counter{}
	c := New(
		WithLoader(cnt.load),
		WithExpiration[string, int](time.Minute),
		withClock[string, int](func() time.Time { return now }),
	)

	v, err := c.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, 3, *v)
	_, err = c.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, 1, cnt.calls)

	// expired entries are reloaded
	now = now.Add(2 * time.Minute)
	_, err = c.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, 2, cnt.calls)

	c.Invalidate(ctx, "abc")
	_, err = c.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, 3, cnt.calls)

	c.InvalidateAll(ctx)
	_, err = c.Get(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, 4, cnt.calls)
}

func TestLoaderCache_LoadError(t *testing.T) {
	ctx := context.Background()
	cnt := &counter{fail: true}
	c := New(WithLoader(cnt.load))

	_, err := c.Get(ctx, "abc")
	require.Error(t, err)
	_, err = c.Get(ctx, "abc")
	require.Error(t, err)
	// errors are not cached
	assert.Equal(t, 2, cnt.calls)
}

func TestLoaderCache_NoLoader(t *testing.T) {
	c := New[string, int]()
	_, err := c.Get(context.Background(), "abc")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}

func TestLoaderCache_NoExpiration(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1000, 0)
	cnt := &counter{}
	c := New(
		WithLoader(cnt.load),
		WithExpiration[string, int](0),
		withClock[string, int](func() time.Time { return now }),
	)
	_, err := c.Get(ctx, "x")
	require.NoError(t, err)
	now = now.Add(24 * time.Hour)
	_, err = c.Get(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, 1, cnt.calls)
}
