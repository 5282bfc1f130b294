// Package blobstore provides the storage abstraction for published
// snapshots.
//
// Store is the interface for reading and writing blobs (snapshots and
// CURRENT pointer files). Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - LocalStore: local filesystem, atomic writes, mmap reads
//   - MemoryStore: in-process map, for tests
//   - s3.Store: Amazon S3 with range reads and multipart uploads
//   - s3.CommitStore: S3 plus DynamoDB for atomic CURRENT pointers
//   - minio.Store: MinIO and other S3-compatible servers
//
// # Custom Implementations
//
//	type Store interface {
//	    Open(ctx, name) (Blob, error)
//	    Create(ctx, name) (WritableBlob, error)
//	    Put(ctx, name, data) error
//	    Delete(ctx, name) error
//	    List(ctx, prefix) ([]string, error)
//	}
//
// Missing blobs are reported with errors matching ErrNotFound
// (os.ErrNotExist).
package blobstore
