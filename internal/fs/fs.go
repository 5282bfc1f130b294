package fs

import (
	"io"
	"os"
)

// File represents an open file being written.
type File interface {
	io.Writer
	io.Closer
	Sync() error
	Name() string
}

// FileSystem abstracts the file system operations used for atomic writes.
type FileSystem interface {
	OpenFile(name string, flag int, perm os.FileMode) (File, error)
	Remove(name string) error
	Rename(oldpath, newpath string) error
	Link(oldname, newname string) error
	MkdirAll(path string, perm os.FileMode) error
}

// LocalFS implements FileSystem using the local os package.
type LocalFS struct{}

func (LocalFS) OpenFile(name string, flag int, perm os.FileMode) (File, error) {
	return os.OpenFile(name, flag, perm)
}

func (LocalFS) Remove(name string) error {
	return os.Remove(name)
}

func (LocalFS) Rename(oldpath, newpath string) error {
	return os.Rename(oldpath, newpath)
}

func (LocalFS) Link(oldname, newname string) error {
	return os.Link(oldname, newname)
}

func (LocalFS) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

// Default is the default local file system.
var Default FileSystem = LocalFS{}
