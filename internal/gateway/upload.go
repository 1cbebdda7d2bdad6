package gateway

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bytevault/bytevault/internal/account"
	"github.com/bytevault/bytevault/internal/logging"
	"github.com/bytevault/bytevault/internal/metrics"
	"github.com/bytevault/bytevault/internal/protocol"
	"github.com/bytevault/bytevault/internal/vfs"
)

// stagedFile is one uploaded stream parked in the staging directory. It is
// owned exclusively by the pipeline until renamed into place or deleted.
type stagedFile struct {
	filename    string // client-supplied name, already Base()'d
	stagingPath string
	size        int64
}

// Upload consumes a multipart stream. Fields (category, path) may arrive
// in any order relative to file parts, so every file part is staged first
// and the destination is resolved only in the finish phase, once all
// fields are known. On any failure every staging file is removed before
// the error returns. Two uploads racing on the same final filename resolve
// last-write-wins through rename semantics; that is documented behavior.
func (g *Gateway) Upload(ctx context.Context, sess *account.Session, mr *multipart.Reader) ([]protocol.UploadedFile, vfs.Category, error) {
	var (
		category vfs.Category = vfs.CategoryGeneral
		relPath  string
		staged   []stagedFile
	)

	cleanup := func() {
		for _, sf := range staged {
			if err := os.Remove(sf.stagingPath); err != nil && !os.IsNotExist(err) {
				logging.Warn("staging cleanup failed",
					zap.String("staging_path", sf.stagingPath), zap.Error(err))
			}
		}
		metrics.AddStagingFiles(-len(staged))
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			cleanup()
			return nil, category, err
		}

		if part.FileName() == "" {
			// Form field
			value, err := io.ReadAll(io.LimitReader(part, 4096))
			part.Close()
			if err != nil {
				cleanup()
				return nil, category, err
			}
			switch part.FormName() {
			case "category":
				category = vfs.Category(string(value))
			case "path":
				relPath = string(value)
			}
			continue
		}

		sf, err := g.stageFilePart(ctx, part)
		part.Close()
		if err != nil {
			cleanup()
			return nil, category, err
		}
		staged = append(staged, *sf)
		metrics.AddStagingFiles(1)
	}

	if len(staged) == 0 {
		return []protocol.UploadedFile{}, category, nil
	}

	// Finish phase: all fields known, commit the staged files.
	destDir, err := g.resolveGuarded(sess.StoragePath, category, relPath)
	if err != nil {
		cleanup()
		return nil, category, err
	}

	if err := g.checkQuota(ctx, sess, staged); err != nil {
		cleanup()
		return nil, category, err
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		cleanup()
		return nil, category, err
	}

	// Committed entries are popped off staged so a failure partway through
	// only cleans up what is still staged.
	results := make([]protocol.UploadedFile, 0, len(staged))
	for len(staged) > 0 {
		sf := staged[0]
		finalPath := filepath.Join(destDir, sf.filename)
		if err := vfs.AssertWithin(finalPath, sess.StoragePath); err != nil {
			cleanup()
			return nil, category, err
		}
		if err := moveFile(sf.stagingPath, finalPath); err != nil {
			cleanup()
			metrics.RecordUpload(sf.size, false)
			return nil, category, err
		}
		staged = staged[1:]
		metrics.AddStagingFiles(-1)
		metrics.RecordUpload(sf.size, true)
		results = append(results, protocol.UploadedFile{
			Filename: sf.filename,
			Path:     filepath.ToSlash(filepath.Join(relPath, sf.filename)),
		})
	}

	g.refreshUsage(sess)

	logging.Info("upload committed",
		zap.Int("account_id", sess.AccountID),
		zap.String("category", string(category)),
		zap.String("path", relPath),
		zap.Int("files", len(results)))

	return results, category, nil
}

// stageFilePart streams one file part to a uniquely named staging file,
// enforcing the per-file size cap without buffering content in memory. A
// dropped connection surfaces as a read error here; the caller removes the
// partial staging file.
func (g *Gateway) stageFilePart(ctx context.Context, part *multipart.Part) (*stagedFile, error) {
	filename := filepath.Base(filepath.FromSlash(part.FileName()))
	if filename == "." || filename == string(filepath.Separator) || filename == "" {
		filename = "unnamed"
	}

	stagingPath := filepath.Join(g.stagingDir, uuid.NewString()+".staging")
	f, err := os.OpenFile(stagingPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, err
	}

	n, err := io.Copy(f, io.LimitReader(part, g.maxUploadSize+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(stagingPath)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, err
	}
	if n > g.maxUploadSize {
		os.Remove(stagingPath)
		return nil, ErrTooLarge
	}

	return &stagedFile{filename: filename, stagingPath: stagingPath, size: n}, nil
}

// checkQuota enforces the family storage quota before bytes are committed.
// Check-then-write: concurrent uploads in the same bucket can briefly
// overshoot; accounting converges afterwards.
func (g *Gateway) checkQuota(ctx context.Context, sess *account.Session, staged []stagedFile) error {
	if !sess.FamilyMember {
		return nil
	}
	q, err := g.quotas.GetQuota(ctx, sess.AccountID)
	if err != nil {
		return err
	}
	if q.LimitBytes == 0 {
		return nil
	}
	var incoming int64
	for _, sf := range staged {
		incoming += sf.size
	}
	if q.UsedBytes+incoming > q.LimitBytes {
		metrics.RecordQuotaExceeded()
		return ErrQuotaExceeded
	}
	return nil
}

// moveFile prefers an atomic rename and falls back to copy-then-delete
// when staging and destination sit on different filesystems.
func moveFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) || !errors.Is(linkErr.Err, syscall.EXDEV) {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return err
	}
	return os.Remove(src)
}
