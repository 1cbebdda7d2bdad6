// Package gateway implements the secure file storage core: listing,
// upload staging, serving, and guarded mutations beneath a per-account
// storage root.
package gateway

import (
	"os"
	"path/filepath"

	"github.com/bytevault/bytevault/internal/account"
	"github.com/bytevault/bytevault/internal/vfs"
)

// Gateway owns every filesystem operation derived from user input. All
// paths pass through vfs.Resolve and vfs.AssertWithin before any syscall.
type Gateway struct {
	fs            vfs.Accessor
	quotas        account.QuotaService
	ghosts        account.GhostFolderService
	obfuscator    account.Obfuscator
	stagingDir    string
	maxUploadSize int64
}

// New creates a gateway. stagingDir is created if missing; staged uploads
// should live on the same filesystem as the storage roots so the final
// relocation can be a rename, but a cross-device staging dir still works
// via the copy fallback.
func New(fs vfs.Accessor, quotas account.QuotaService, ghosts account.GhostFolderService, obfuscator account.Obfuscator, stagingDir string, maxUploadSize int64) (*Gateway, error) {
	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return nil, err
	}
	return &Gateway{
		fs:            fs,
		quotas:        quotas,
		ghosts:        ghosts,
		obfuscator:    obfuscator,
		stagingDir:    stagingDir,
		maxUploadSize: maxUploadSize,
	}, nil
}

// resolveGuarded resolves a category/path pair under root and runs the
// path guard. The only way gateway code obtains an absolute path.
func (g *Gateway) resolveGuarded(root string, category vfs.Category, relPath string) (string, error) {
	abs := vfs.Resolve(root, category, relPath)
	if err := vfs.AssertWithin(abs, root); err != nil {
		return "", err
	}
	return abs, nil
}

// categoryRel returns the account-relative form of an entry, i.e. the
// category directory joined with the path inside it. Ghost folder entries
// are stored in this form.
func categoryRel(category vfs.Category, relPath string) string {
	return filepath.ToSlash(filepath.Join(category.Dir(), filepath.FromSlash(relPath)))
}
