// Package blobstore stores catalog snapshots and plan files as named blobs.
//
// Store is the interface for reading and writing blobs. Implementations
// must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem with atomic replace
//   - MemoryStore: in-memory, for tests
//   - CachingStore: block cache in front of any Store
//   - minio.Store: MinIO and other S3-compatible servers
//   - s3.Store: Amazon S3 with range reads and multipart uploads
//
// Writing and reading a blob:
//
//	store := blobstore.NewLocalStore("/var/lib/catalogo")
//	if err := store.Put(ctx, "snapshots/main.cat", data); err != nil {
//	    return err
//	}
//	data, err := blobstore.ReadAll(ctx, store, "snapshots/main.cat")
package blobstore
