package gateway

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/bytevault/bytevault/internal/account"
	"github.com/bytevault/bytevault/internal/logging"
	"github.com/bytevault/bytevault/internal/vfs"
)

// Mkdir creates a directory (and any missing parents) inside a category.
// Creating a directory that already exists is not an error.
func (g *Gateway) Mkdir(ctx context.Context, sess *account.Session, category vfs.Category, relPath string) error {
	abs, err := g.resolveGuarded(sess.StoragePath, category, relPath)
	if err != nil {
		return err
	}
	return os.MkdirAll(abs, 0o755)
}

// Delete removes a file or a directory tree. Deleting something that does
// not exist reports ErrNotFound so clients can distinguish stale UI state
// from a successful removal.
func (g *Gateway) Delete(ctx context.Context, sess *account.Session, category vfs.Category, relPath string) error {
	abs, err := g.resolveGuarded(sess.StoragePath, category, relPath)
	if err != nil {
		return err
	}
	if _, err := g.fs.Stat(abs); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return err
	}
	if err := os.RemoveAll(abs); err != nil {
		return err
	}
	g.refreshUsage(sess)
	logging.Info("deleted",
		zap.Int("account_id", sess.AccountID),
		zap.String("category", string(category)),
		zap.String("path", relPath))
	return nil
}

// Move renames a file or directory within a single category. Missing
// destination parents are created; an existing destination is a conflict,
// never an overwrite.
func (g *Gateway) Move(ctx context.Context, sess *account.Session, category vfs.Category, fromPath, toPath string) error {
	return g.move(ctx, sess, category, fromPath, category, toPath)
}

// CrossMove relocates a file or directory from one category to another.
// Same conflict semantics as Move.
func (g *Gateway) CrossMove(ctx context.Context, sess *account.Session, fromCategory vfs.Category, fromPath string, toCategory vfs.Category, toPath string) error {
	return g.move(ctx, sess, fromCategory, fromPath, toCategory, toPath)
}

func (g *Gateway) move(ctx context.Context, sess *account.Session, fromCategory vfs.Category, fromPath string, toCategory vfs.Category, toPath string) error {
	src, err := g.resolveGuarded(sess.StoragePath, fromCategory, fromPath)
	if err != nil {
		return err
	}
	dst, err := g.resolveGuarded(sess.StoragePath, toCategory, toPath)
	if err != nil {
		return err
	}

	srcInfo, err := g.fs.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return err
	}
	if _, err := g.fs.Stat(dst); err == nil {
		return ErrConflict
	} else if !os.IsNotExist(err) {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	if srcInfo.IsDir() {
		// Directory trees get no cross-device fallback; staging and roots
		// share a filesystem in every supported deployment.
		if err := os.Rename(src, dst); err != nil {
			return err
		}
	} else if err := moveFile(src, dst); err != nil {
		return err
	}

	logging.Info("moved",
		zap.Int("account_id", sess.AccountID),
		zap.String("from_category", string(fromCategory)),
		zap.String("from", fromPath),
		zap.String("to_category", string(toCategory)),
		zap.String("to", toPath))
	return nil
}
