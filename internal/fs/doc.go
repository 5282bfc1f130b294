// Package fs provides the file system abstraction behind atomic file writes,
// with fault injection for tests.
//
//   - [FileSystem] and [File]: the operations an atomic write needs
//   - [LocalFS]: production implementation using the os package
//   - [FaultyFS]: test wrapper that fails writes, syncs, closes or renames
//   - [AtomicFile]: temp file + sync + rename (or link, for create-only)
//
// Production code uses fs.Default:
//
//	f, err := fs.CreateAtomic(fs.Default, path)
//	if err != nil {
//	    return err
//	}
//	if _, err := f.Write(data); err != nil {
//	    _ = f.Abort()
//	    return err
//	}
//	return f.Commit()
//
// Operations take no context.Context: local file system calls are not
// interruptible at the syscall level.
package fs
