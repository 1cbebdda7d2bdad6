package gateway

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/bytevault/bytevault/internal/account"
)

func TestTreeSize(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "files", "a.bin"), make([]byte, 100))
	writeFile(t, filepath.Join(root, "photos", "deep", "b.bin"), make([]byte, 250))

	got, err := TreeSize(root)
	if err != nil {
		t.Fatal(err)
	}
	if got != 350 {
		t.Errorf("TreeSize = %d, want 350", got)
	}
}

func TestTreeSizeMissingRoot(t *testing.T) {
	got, err := TreeSize(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("missing root should not error: %v", err)
	}
	if got != 0 {
		t.Errorf("TreeSize = %d, want 0", got)
	}
}

func TestDiskFree(t *testing.T) {
	free, err := DiskFree(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if free <= 0 {
		t.Errorf("DiskFree = %d", free)
	}
}

func TestUsageOwner(t *testing.T) {
	g := newTestGateway(t, nil, nil)
	sess := testSession(t)
	writeFile(t, filepath.Join(sess.StoragePath, "files", "a.bin"), make([]byte, 500))

	resp, err := g.Usage(context.Background(), sess)
	if err != nil {
		t.Fatal(err)
	}
	if resp.UsedBytes != 500 {
		t.Errorf("UsedBytes = %d", resp.UsedBytes)
	}
	if resp.AvailableBytes <= 0 {
		t.Errorf("AvailableBytes = %d", resp.AvailableBytes)
	}
	if resp.QuotaBytes != 0 {
		t.Errorf("owner should have no quota, got %d", resp.QuotaBytes)
	}
}

func TestUsageFamilyMember(t *testing.T) {
	quotas := &fakeQuotas{quota: account.Quota{LimitBytes: 1000}}
	g := newTestGateway(t, quotas, nil)
	sess := testSession(t)
	sess.FamilyMember = true
	writeFile(t, filepath.Join(sess.StoragePath, "files", "a.bin"), make([]byte, 300))

	resp, err := g.Usage(context.Background(), sess)
	if err != nil {
		t.Fatal(err)
	}
	if resp.UsedBytes != 300 {
		t.Errorf("UsedBytes = %d", resp.UsedBytes)
	}
	if resp.QuotaBytes != 1000 {
		t.Errorf("QuotaBytes = %d", resp.QuotaBytes)
	}
	if resp.AvailableBytes != 700 {
		t.Errorf("AvailableBytes = %d, want 700", resp.AvailableBytes)
	}
}

func TestUsageFamilyMemberOverQuota(t *testing.T) {
	quotas := &fakeQuotas{quota: account.Quota{LimitBytes: 100}}
	g := newTestGateway(t, quotas, nil)
	sess := testSession(t)
	sess.FamilyMember = true
	writeFile(t, filepath.Join(sess.StoragePath, "files", "a.bin"), make([]byte, 300))

	resp, err := g.Usage(context.Background(), sess)
	if err != nil {
		t.Fatal(err)
	}
	if resp.AvailableBytes != 0 {
		t.Errorf("over-quota available should clamp to 0, got %d", resp.AvailableBytes)
	}
}

func TestRecomputeUsage(t *testing.T) {
	quotas := &fakeQuotas{}
	g := newTestGateway(t, quotas, nil)
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "files", "a.bin"), make([]byte, 128))

	if err := g.RecomputeUsage(context.Background(), 7, root); err != nil {
		t.Fatal(err)
	}
	if got := quotas.lastSetUsed(); got != 128 {
		t.Errorf("SetUsed got %d, want 128", got)
	}
}
