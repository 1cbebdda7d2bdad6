package gateway

import (
	"context"
	"sync"
	"testing"

	"github.com/bytevault/bytevault/internal/account"
	"github.com/bytevault/bytevault/internal/vfs"
)

// Test fakes for the account collaborators.

type fakeQuotas struct {
	mu      sync.Mutex
	quota   account.Quota
	lastSet int64
	setErr  error
}

func (f *fakeQuotas) GetQuota(ctx context.Context, accountID int) (*account.Quota, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := f.quota
	return &q, nil
}

func (f *fakeQuotas) SetUsed(ctx context.Context, accountID int, usedBytes int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastSet = usedBytes
	return f.setErr
}

func (f *fakeQuotas) lastSetUsed() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastSet
}

type fakeGhosts struct {
	paths []string
	err   error
}

func (f *fakeGhosts) ListGhostFolders(ctx context.Context, accountID int) ([]string, error) {
	return f.paths, f.err
}

// nopObfuscator passes values through unchanged so listing tests can
// assert real sizes.
type nopObfuscator struct{}

func (nopObfuscator) Size(path string, size int64) int64         { return size }
func (nopObfuscator) ModTime(path string, modMillis int64) int64 { return modMillis }

func newTestGateway(t *testing.T, quotas *fakeQuotas, ghosts *fakeGhosts) *Gateway {
	t.Helper()
	if quotas == nil {
		quotas = &fakeQuotas{}
	}
	if ghosts == nil {
		ghosts = &fakeGhosts{}
	}
	g, err := New(vfs.OSAccessor{}, quotas, ghosts, nopObfuscator{}, t.TempDir(), 1<<20)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func testSession(t *testing.T) *account.Session {
	t.Helper()
	return &account.Session{
		AccountID:   1,
		StoragePath: t.TempDir(),
	}
}
