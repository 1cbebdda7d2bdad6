package gateway

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/bytevault/bytevault/internal/account"
	"github.com/bytevault/bytevault/internal/logging"
	"github.com/bytevault/bytevault/internal/metrics"
	"github.com/bytevault/bytevault/internal/protocol"
)

// TreeSize walks an account's storage root and sums regular file sizes.
// Unreadable entries are skipped rather than failing the whole walk.
func TreeSize(root string) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			return nil
		}
		if d.Type().IsRegular() {
			info, err := d.Info()
			if err != nil {
				return nil
			}
			total += info.Size()
		}
		return nil
	})
	if err != nil && os.IsNotExist(err) {
		return 0, nil
	}
	return total, err
}

// DiskFree reports the bytes available to unprivileged writes on the
// filesystem holding path.
func DiskFree(path string) (int64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, err
	}
	return int64(st.Bavail) * int64(st.Bsize), nil
}

// Usage computes the account's storage consumption and available space.
// Family members see their remaining quota as the available figure; full
// accounts see the real free space of the backing disk. The fresh usage
// number is written back to the quota store asynchronously so a slow
// database never delays the response.
func (g *Gateway) Usage(ctx context.Context, sess *account.Session) (*protocol.UsageResponse, error) {
	start := time.Now()
	used, err := TreeSize(sess.StoragePath)
	if err != nil {
		return nil, err
	}
	metrics.RecordAccounting(time.Since(start))

	resp := &protocol.UsageResponse{UsedBytes: used}

	if sess.FamilyMember {
		q, err := g.quotas.GetQuota(ctx, sess.AccountID)
		if err != nil {
			return nil, err
		}
		if q.LimitBytes > 0 {
			resp.QuotaBytes = q.LimitBytes
			remaining := q.LimitBytes - used
			if remaining < 0 {
				remaining = 0
			}
			resp.AvailableBytes = remaining
		} else {
			free, err := DiskFree(sess.StoragePath)
			if err != nil {
				return nil, err
			}
			resp.AvailableBytes = free
		}
	} else {
		free, err := DiskFree(sess.StoragePath)
		if err != nil {
			return nil, err
		}
		resp.AvailableBytes = free
	}

	go g.recordUsed(sess.AccountID, used)

	return resp, nil
}

// RecomputeUsage refreshes the stored usage figure for one account. The
// periodic recompute loop calls this so quota checks work from numbers no
// staler than one interval.
func (g *Gateway) RecomputeUsage(ctx context.Context, accountID int, storagePath string) error {
	start := time.Now()
	used, err := TreeSize(storagePath)
	if err != nil {
		return err
	}
	metrics.RecordAccounting(time.Since(start))
	return g.quotas.SetUsed(ctx, accountID, used)
}

// refreshUsage recomputes and writes back a family member's usage after a
// successful write operation. Asynchronous and best-effort: it must never
// delay or fail the operation that triggered it.
func (g *Gateway) refreshUsage(sess *account.Session) {
	if !sess.FamilyMember {
		return
	}
	root := sess.StoragePath
	accountID := sess.AccountID
	go func() {
		start := time.Now()
		used, err := TreeSize(root)
		if err != nil {
			logging.Warn("usage refresh failed",
				zap.Int("account_id", accountID), zap.Error(err))
			return
		}
		metrics.RecordAccounting(time.Since(start))
		g.recordUsed(accountID, used)
	}()
}

func (g *Gateway) recordUsed(accountID int, used int64) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := g.quotas.SetUsed(ctx, accountID, used); err != nil {
		logging.Warn("usage writeback failed",
			zap.Int("account_id", accountID), zap.Error(err))
	}
}
