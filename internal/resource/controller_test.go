package resource

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestController_Workers(t *testing.T) {
	c := NewController(Config{MaxWorkers: 2})

	require.NoError(t, c.AcquireWorker(t.Context()))
	require.NoError(t, c.AcquireWorker(t.Context()))
	assert.Equal(t, int64(2), c.ActiveWorkers())
	assert.False(t, c.TryAcquireWorker())

	c.ReleaseWorker()
	assert.True(t, c.TryAcquireWorker())
	assert.Equal(t, int64(2), c.ActiveWorkers())
}

func TestController_AcquireWorkerCanceled(t *testing.T) {
	c := NewController(Config{MaxWorkers: 1})
	require.NoError(t, c.AcquireWorker(t.Context()))

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.AcquireWorker(ctx), context.DeadlineExceeded)
}

func TestController_DefaultWorkers(t *testing.T) {
	c := NewController(Config{})
	assert.Positive(t, c.Config().MaxWorkers)
}

func TestController_WaitObjects(t *testing.T) {
	c := NewController(Config{})
	require.NoError(t, c.WaitObjects(t.Context(), 10))
	assert.Equal(t, int64(10), c.Reindexed())

	limited := NewController(Config{ObjectsPerSecond: 1000})
	start := time.Now()
	require.NoError(t, limited.WaitObjects(t.Context(), 1500))
	assert.GreaterOrEqual(t, time.Since(start), 400*time.Millisecond)
	assert.Equal(t, int64(1500), limited.Reindexed())

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	assert.Error(t, c.WaitObjects(ctx, 1))
}

func TestController_NilSafe(t *testing.T) {
	var c *Controller
	require.NoError(t, c.AcquireWorker(t.Context()))
	assert.True(t, c.TryAcquireWorker())
	c.ReleaseWorker()
	require.NoError(t, c.WaitObjects(t.Context(), 5))
	require.NoError(t, c.AcquireIO(t.Context(), 5))
	assert.Zero(t, c.Reindexed())
}

func TestRateLimitedIO(t *testing.T) {
	c := NewController(Config{IOLimitBytesPerSec: 1 << 20})

	var buf bytes.Buffer
	w := NewRateLimitedWriter(t.Context(), &buf, c)
	n, err := io.Copy(w, strings.NewReader("snapshot bytes"))
	require.NoError(t, err)
	assert.Equal(t, int64(14), n)

	r := NewRateLimitedReader(t.Context(), &buf, c)
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "snapshot bytes", string(got))
}
