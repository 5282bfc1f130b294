// Package catalog loads named Containers from a blobstore.Store.
//
// Every name owns a directory in the store:
//
//	weapons/00000001.blob   snapshot written by Publish
//	weapons/00000002.blob
//	weapons/CURRENT         name of the live snapshot blob
//
// Publish writes a new snapshot blob and then flips CURRENT, so readers
// always resolve a complete snapshot. Load resolves CURRENT, decodes the
// snapshot once and hands out the cached Container until it is evicted.
//
// # Usage
//
//	cat := catalog.New(store, catalog.WithCompression(snapshot.ZSTD))
//	defer cat.Close()
//
//	if _, err := cat.Publish(ctx, "weapons", c); err != nil {
//	    return err
//	}
//
//	weapons, err := cat.Load(ctx, "weapons")
package catalog
