package fs

import (
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// TempInfix marks temporary files created by CreateAtomic.
const TempInfix = ".tmp-"

// IsTemp reports whether name is a temporary file left by CreateAtomic.
func IsTemp(name string) bool {
	return strings.HasPrefix(filepath.Base(name), ".") && strings.Contains(name, TempInfix)
}

// AtomicFile is written under a temporary name next to its target and moved
// into place by Commit or CommitNew. Readers never see a partial file.
type AtomicFile struct {
	fsys FileSystem
	f    File
	path string
	done bool
}

// CreateAtomic creates the parent directories of path and a temporary file
// beside it.
func CreateAtomic(fsys FileSystem, path string) (*AtomicFile, error) {
	dir := filepath.Dir(path)
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	prefix := filepath.Join(dir, "."+filepath.Base(path)+TempInfix)
	for range 10000 {
		name := prefix + strconv.FormatUint(uint64(rand.Uint32()), 36)
		f, err := fsys.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return &AtomicFile{fsys: fsys, f: f, path: path}, nil
	}
	return nil, &os.PathError{Op: "createtemp", Path: prefix + "*", Err: os.ErrExist}
}

// Name returns the target path.
func (a *AtomicFile) Name() string { return a.path }

func (a *AtomicFile) Write(p []byte) (int, error) {
	if a.done {
		return 0, os.ErrClosed
	}
	return a.f.Write(p)
}

// Sync flushes the temporary file.
func (a *AtomicFile) Sync() error {
	if a.done {
		return os.ErrClosed
	}
	return a.f.Sync()
}

func (a *AtomicFile) finish() error {
	if a.done {
		return os.ErrClosed
	}
	a.done = true
	if err := a.f.Sync(); err != nil {
		_ = a.f.Close()
		return err
	}
	return a.f.Close()
}

// Commit replaces the target with the written data.
func (a *AtomicFile) Commit() error {
	if err := a.finish(); err != nil {
		a.cleanup()
		return err
	}
	if err := a.fsys.Rename(a.f.Name(), a.path); err != nil {
		a.cleanup()
		return err
	}
	return nil
}

// CommitNew moves the data into place only if the target does not exist.
// Otherwise it fails with an error matching os.ErrExist.
func (a *AtomicFile) CommitNew() error {
	defer a.cleanup()
	if err := a.finish(); err != nil {
		return err
	}
	return a.fsys.Link(a.f.Name(), a.path)
}

// Abort discards the written data.
func (a *AtomicFile) Abort() error {
	if a.done {
		return os.ErrClosed
	}
	a.done = true
	_ = a.f.Close()
	return a.fsys.Remove(a.f.Name())
}

func (a *AtomicFile) cleanup() {
	_ = a.fsys.Remove(a.f.Name())
}
