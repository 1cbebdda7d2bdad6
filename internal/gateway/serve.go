package gateway

import (
	"context"
	"io/fs"
	"os"

	"github.com/bytevault/bytevault/internal/account"
	"github.com/bytevault/bytevault/internal/vfs"
)

// ServeResult hands the API layer everything it needs to write a file
// response. The caller owns the File and must Close it.
type ServeResult struct {
	File vfs.File
	Info fs.FileInfo
	Name string
}

// OpenFile resolves, guards, and opens a file for serving. Directories
// are not servable.
func (g *Gateway) OpenFile(ctx context.Context, sess *account.Session, category vfs.Category, relPath string) (*ServeResult, error) {
	abs, err := g.resolveGuarded(sess.StoragePath, category, relPath)
	if err != nil {
		return nil, err
	}

	f, err := g.fs.Open(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, ErrIsDirectory
	}

	return &ServeResult{File: f, Info: info, Name: info.Name()}, nil
}
