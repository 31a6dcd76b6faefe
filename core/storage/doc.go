// Package storage provides an abstraction layer for the upload-target
// object store.
//
// It wraps the MinIO Go client to provide a simplified interface for the
// operations the feed uploader needs: existence checks, uploads, listings and
// removals. This abstraction supports both AWS S3 and self-hosted MinIO
// instances.
//
// # Client Interface
//
// The Client interface abstracts the underlying storage provider, making it
// easier to mock storage interactions for unit testing (as seen in
// core/storage/mocks).
//
// # Operations
//
//   - BucketExists: Verifies access to the target bucket.
//   - StatObject: Checks for an existing feed object.
//   - PutObject: Uploads a feed file (create or replace).
//   - ListObjects: Lists feed objects (supports prefix/recursive).
//   - RemoveObject: Deletes an orphaned feed object.
//
// # Usage
//
//	client, err := storage.NewClient(config)
//	exists, err := client.BucketExists(ctx, "feeds")
package storage
