package s3

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/hupe1980/catalogo/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegration_Store(t *testing.T) {
	bucket := os.Getenv("S3_BUCKET")
	if bucket == "" {
		t.Skip("Skipping S3 integration test: S3_BUCKET not set")
	}
	ctx := context.Background()

	store, err := New(ctx, bucket, WithPrefix(fmt.Sprintf("test-catalogo-%d/", time.Now().UnixNano())))
	require.NoError(t, err)

	data := make([]byte, 1024*1024)
	_, _ = rand.Read(data)

	require.NoError(t, store.Put(ctx, "snap.cat", data))
	got, err := blobstore.ReadAll(ctx, store, "snap.cat")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"snap.cat"}, names)

	require.NoError(t, store.Delete(ctx, "snap.cat"))
	_, err = store.Open(ctx, "snap.cat")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}
