package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *RistrettoCache {
	t.Helper()

	c, err := NewRistretto()
	require.NoError(t, err)
	t.Cleanup(c.Close)

	return c
}

func TestRistrettoCache_SetGet(t *testing.T) {
	c := newTestCache(t)

	require.True(t, c.Set("query-1", []int{1, 2, 3}, 24))
	c.Wait()

	got, ok := c.Get("query-1")
	require.True(t, ok)
	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestRistrettoCache_Miss(t *testing.T) {
	c := newTestCache(t)

	_, ok := c.Get("missing")
	assert.False(t, ok)
}

func TestRistrettoCache_Del(t *testing.T) {
	c := newTestCache(t)

	require.True(t, c.Set("query-1", "result", 8))
	c.Wait()

	c.Del("query-1")
	c.Wait()

	_, ok := c.Get("query-1")
	assert.False(t, ok)
}

func TestRistrettoCache_Overwrite(t *testing.T) {
	c := newTestCache(t)

	require.True(t, c.Set("query-1", "old", 8))
	c.Wait()
	require.True(t, c.Set("query-1", "new", 8))
	c.Wait()

	got, ok := c.Get("query-1")
	require.True(t, ok)
	assert.Equal(t, "new", got)
}
