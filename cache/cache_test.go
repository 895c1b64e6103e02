package cache

import (
	"fmt"
	"testing"

	"github.com/hupe1980/catalogo/idset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestCache_Stats(t *testing.T) {
	c := NewRequestCache()

	_, ok := c.Get("k")
	assert.False(t, ok)

	c.Set("k", idset.Of(1, 2))
	s, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, []uint32{1, 2}, s.ToArray())

	st := c.Stats()
	assert.Equal(t, int64(1), st.Hits)
	assert.Equal(t, int64(1), st.Misses)
	assert.Equal(t, int64(1), st.Sets)
	assert.Equal(t, 1, st.Len)

	c.Clear()
	assert.Equal(t, Stats{}, c.Stats())
}

func TestQueryCache_Visibility(t *testing.T) {
	c, err := NewQueryCache(64)
	require.NoError(t, err)

	c.Set("q", idset.Of(7), 10)

	_, ok, err := c.Get("q", 9)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrStale)

	ids, ok, err := c.Get("q", 10)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []uint32{7}, ids.ToArray())

	_, ok, err = c.Get("q", NoSnapshot)
	require.NoError(t, err)
	assert.True(t, ok)

	_, ok, err = c.Get("absent", NoSnapshot)
	require.NoError(t, err)
	assert.False(t, ok)

	st := c.Stats()
	assert.Equal(t, int64(2), st.Hits)
	assert.Equal(t, int64(1), st.Misses)
	assert.Equal(t, int64(1), st.Stale)
}

func TestQueryCache_Evicts(t *testing.T) {
	c, err := NewQueryCache(numShards)
	require.NoError(t, err)

	for i := range 10 * numShards {
		c.Set(fmt.Sprintf("k%d", i), idset.Of(uint32(i)), 0)
	}
	assert.LessOrEqual(t, c.Len(), numShards)

	c.Purge()
	assert.Equal(t, 0, c.Len())
}
