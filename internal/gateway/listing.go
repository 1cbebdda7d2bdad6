package gateway

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/bytevault/bytevault/internal/account"
	"github.com/bytevault/bytevault/internal/logging"
	"github.com/bytevault/bytevault/internal/protocol"
	"github.com/bytevault/bytevault/internal/vfs"
)

// List enumerates a directory in an account's category. A missing
// directory is not an error: fresh accounts have no category directories
// until the first write, so it returns empty results. Ghost folders are
// filtered only when no search query is present; obfuscation rewrites
// displayed metadata only, never the values used for real I/O.
func (g *Gateway) List(ctx context.Context, sess *account.Session, settings *account.Settings, category vfs.Category, relPath, query string) (*protocol.ListResponse, error) {
	dir, err := g.resolveGuarded(sess.StoragePath, category, relPath)
	if err != nil {
		return nil, err
	}

	resp := &protocol.ListResponse{
		Folders: []protocol.DirEntry{},
		Files:   []protocol.DirEntry{},
	}

	entries, err := g.fs.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return resp, nil
		}
		return nil, err
	}

	var ghosts []string
	if settings.GhostFolders && query == "" {
		ghosts, err = g.ghosts.ListGhostFolders(ctx, sess.AccountID)
		if err != nil {
			// Hiding is best-effort config, not an access control boundary;
			// a lookup failure must not take listings down.
			logging.Warn("ghost folder lookup failed",
				zap.Int("account_id", sess.AccountID), zap.Error(err))
		}
	}

	lowerQuery := strings.ToLower(query)

	for _, entry := range entries {
		name := entry.Name()
		if query != "" && !strings.Contains(strings.ToLower(name), lowerQuery) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if entry.IsDir() {
			entryRel := path.Join(categoryRel(category, relPath), name)
			if isGhosted(entryRel, ghosts) {
				continue
			}
			itemCount, hasSub := g.folderStats(filepath.Join(dir, name))
			de := protocol.DirEntry{
				Name:               name,
				IsFolder:           true,
				ModifiedTimeMillis: info.ModTime().UnixMilli(),
				ItemCount:          itemCount,
				HasSubfolders:      hasSub,
			}
			if settings.FileObfuscation {
				de.ModifiedTimeMillis = g.obfuscator.ModTime(entryRel, de.ModifiedTimeMillis)
			}
			resp.Folders = append(resp.Folders, de)
			continue
		}

		de := protocol.DirEntry{
			Name:               name,
			IsFolder:           false,
			ModifiedTimeMillis: info.ModTime().UnixMilli(),
			SizeBytes:          info.Size(),
		}
		if settings.FileObfuscation {
			entryRel := path.Join(categoryRel(category, relPath), name)
			de.SizeBytes = g.obfuscator.Size(entryRel, de.SizeBytes)
			de.ModifiedTimeMillis = g.obfuscator.ModTime(entryRel, de.ModifiedTimeMillis)
		}
		resp.Files = append(resp.Files, de)
	}

	return resp, nil
}

// folderStats does the shallow secondary read for a listed folder.
func (g *Gateway) folderStats(dir string) (itemCount int, hasSubfolders bool) {
	children, err := g.fs.ReadDir(dir)
	if err != nil {
		return 0, false
	}
	for _, child := range children {
		itemCount++
		if child.IsDir() {
			hasSubfolders = true
		}
	}
	return itemCount, hasSubfolders
}

// isGhosted reports whether an account-relative path matches or is nested
// under a ghost entry.
func isGhosted(entryRel string, ghosts []string) bool {
	for _, ghost := range ghosts {
		ghost = strings.Trim(ghost, "/")
		if ghost == "" {
			continue
		}
		if entryRel == ghost || strings.HasPrefix(entryRel, ghost+"/") {
			return true
		}
	}
	return false
}
