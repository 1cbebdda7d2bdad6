package gateway

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/bytevault/bytevault/internal/account"
	"github.com/bytevault/bytevault/internal/vfs"
)

func writeFile(t *testing.T, path string, content []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestListBasic(t *testing.T) {
	g := newTestGateway(t, nil, nil)
	sess := testSession(t)

	writeFile(t, filepath.Join(sess.StoragePath, "files", "notes.txt"), []byte("hello"))
	writeFile(t, filepath.Join(sess.StoragePath, "files", "docs", "a.pdf"), []byte("pdf"))

	resp, err := g.List(context.Background(), sess, &account.Settings{}, vfs.CategoryGeneral, "", "")
	if err != nil {
		t.Fatal(err)
	}

	if len(resp.Files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(resp.Files))
	}
	if resp.Files[0].Name != "notes.txt" || resp.Files[0].SizeBytes != 5 {
		t.Errorf("unexpected file entry: %+v", resp.Files[0])
	}
	if len(resp.Folders) != 1 {
		t.Fatalf("expected 1 folder, got %d", len(resp.Folders))
	}
	f := resp.Folders[0]
	if f.Name != "docs" || !f.IsFolder {
		t.Errorf("unexpected folder entry: %+v", f)
	}
	if f.ItemCount != 1 || f.HasSubfolders {
		t.Errorf("folder stats wrong: %+v", f)
	}
}

func TestListMissingDirectoryIsEmpty(t *testing.T) {
	g := newTestGateway(t, nil, nil)
	sess := testSession(t)

	resp, err := g.List(context.Background(), sess, &account.Settings{}, vfs.CategoryPhotos, "nope", "")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Folders == nil || resp.Files == nil {
		t.Fatal("expected initialized empty slices, got nil")
	}
	if len(resp.Folders) != 0 || len(resp.Files) != 0 {
		t.Errorf("expected empty results, got %+v", resp)
	}
}

func TestListQueryFilter(t *testing.T) {
	g := newTestGateway(t, nil, nil)
	sess := testSession(t)

	writeFile(t, filepath.Join(sess.StoragePath, "files", "Report-2026.pdf"), []byte("x"))
	writeFile(t, filepath.Join(sess.StoragePath, "files", "holiday.jpg"), []byte("x"))

	resp, err := g.List(context.Background(), sess, &account.Settings{}, vfs.CategoryGeneral, "", "report")
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Files) != 1 || resp.Files[0].Name != "Report-2026.pdf" {
		t.Errorf("case-insensitive query filter failed: %+v", resp.Files)
	}
}

func TestListGhostFoldersHidden(t *testing.T) {
	ghosts := &fakeGhosts{paths: []string{"files/secret"}}
	g := newTestGateway(t, nil, ghosts)
	sess := testSession(t)

	if err := os.MkdirAll(filepath.Join(sess.StoragePath, "files", "secret"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(sess.StoragePath, "files", "public"), 0o755); err != nil {
		t.Fatal(err)
	}

	settings := &account.Settings{GhostFolders: true}
	resp, err := g.List(context.Background(), sess, settings, vfs.CategoryGeneral, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Folders) != 1 || resp.Folders[0].Name != "public" {
		t.Errorf("ghost folder not hidden: %+v", resp.Folders)
	}
}

func TestListGhostFoldersVisibleWithQuery(t *testing.T) {
	// Hiding is casual-browsing-only: a search query reveals ghosts.
	ghosts := &fakeGhosts{paths: []string{"files/secret"}}
	g := newTestGateway(t, nil, ghosts)
	sess := testSession(t)

	if err := os.MkdirAll(filepath.Join(sess.StoragePath, "files", "secret"), 0o755); err != nil {
		t.Fatal(err)
	}

	settings := &account.Settings{GhostFolders: true}
	resp, err := g.List(context.Background(), sess, settings, vfs.CategoryGeneral, "", "secret")
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Folders) != 1 {
		t.Errorf("ghost folder should be visible under query: %+v", resp.Folders)
	}
}

func TestListGhostFoldersDisabled(t *testing.T) {
	ghosts := &fakeGhosts{paths: []string{"files/secret"}}
	g := newTestGateway(t, nil, ghosts)
	sess := testSession(t)

	if err := os.MkdirAll(filepath.Join(sess.StoragePath, "files", "secret"), 0o755); err != nil {
		t.Fatal(err)
	}

	resp, err := g.List(context.Background(), sess, &account.Settings{}, vfs.CategoryGeneral, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Folders) != 1 {
		t.Errorf("ghost filtering should be off when the setting is off: %+v", resp.Folders)
	}
}

func TestListObfuscation(t *testing.T) {
	g, err := New(vfs.OSAccessor{}, &fakeQuotas{}, &fakeGhosts{}, account.NewFuzzObfuscator(), t.TempDir(), 1<<20)
	if err != nil {
		t.Fatal(err)
	}
	sess := testSession(t)
	writeFile(t, filepath.Join(sess.StoragePath, "files", "big.bin"), make([]byte, 10000))

	settings := &account.Settings{FileObfuscation: true}
	resp, err := g.List(context.Background(), sess, settings, vfs.CategoryGeneral, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(resp.Files))
	}
	displayed := resp.Files[0].SizeBytes
	if displayed < 7500 || displayed > 12500 {
		t.Errorf("obfuscated size outside ±25%%: %d", displayed)
	}

	// Deterministic across requests.
	resp2, err := g.List(context.Background(), sess, settings, vfs.CategoryGeneral, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if resp2.Files[0].SizeBytes != displayed {
		t.Errorf("obfuscated size unstable: %d vs %d", resp2.Files[0].SizeBytes, displayed)
	}
}

func TestListTraversalRejected(t *testing.T) {
	g := newTestGateway(t, nil, nil)
	sess := testSession(t)

	_, err := g.List(context.Background(), sess, &account.Settings{}, vfs.CategoryGeneral, "../../../etc", "")
	if err != ErrPathTraversal {
		t.Errorf("expected ErrPathTraversal, got %v", err)
	}
}
