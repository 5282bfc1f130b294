// Package s3 provides Amazon S3 implementations of blobstore.Store.
//
// # Usage
//
//	store, err := s3.New(ctx, "my-bucket",
//	    s3.WithPrefix("configs/"),
//	    s3.WithRegion("eu-central-1"),
//	)
//
//	cat := catalog.New(store)
//	weapons, err := cat.Load(ctx, "weapons")
//
// # Features
//
//   - Range reads for partial fetches
//   - Multipart streaming uploads through feature/s3/manager
//   - CRC32C checksums on uploads
//   - Conditional creates (If-None-Match) for snapshot blobs
//   - CommitStore: DynamoDB conditional writes for CURRENT pointers
package s3
