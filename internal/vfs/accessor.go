package vfs

import (
	"io"
	"io/fs"
	"os"
)

// Accessor abstracts the read-side filesystem calls used by listing and
// serving. The default implementation goes straight to the OS; deployments
// with root-owned external mounts can plug in a privileged implementation
// without the gateway knowing how elevation works.
type Accessor interface {
	Open(name string) (File, error)
	Stat(name string) (fs.FileInfo, error)
	ReadDir(name string) ([]fs.DirEntry, error)
}

// File is the subset of *os.File the serving pipeline needs.
type File interface {
	io.ReadSeekCloser
	Stat() (fs.FileInfo, error)
}

// OSAccessor reads the filesystem with the process's own privileges.
type OSAccessor struct{}

func (OSAccessor) Open(name string) (File, error)             { return os.Open(name) }
func (OSAccessor) Stat(name string) (fs.FileInfo, error)      { return os.Stat(name) }
func (OSAccessor) ReadDir(name string) ([]fs.DirEntry, error) { return os.ReadDir(name) }
