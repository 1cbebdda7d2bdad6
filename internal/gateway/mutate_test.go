package gateway

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/bytevault/bytevault/internal/vfs"
)

func TestMkdir(t *testing.T) {
	g := newTestGateway(t, nil, nil)
	sess := testSession(t)
	ctx := context.Background()

	if err := g.Mkdir(ctx, sess, vfs.CategoryGeneral, "a/b/c"); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(filepath.Join(sess.StoragePath, "files", "a", "b", "c"))
	if err != nil || !info.IsDir() {
		t.Fatalf("directory not created: %v", err)
	}

	// Idempotent
	if err := g.Mkdir(ctx, sess, vfs.CategoryGeneral, "a/b/c"); err != nil {
		t.Errorf("repeat mkdir failed: %v", err)
	}
}

func TestDelete(t *testing.T) {
	g := newTestGateway(t, nil, nil)
	sess := testSession(t)
	ctx := context.Background()

	writeFile(t, filepath.Join(sess.StoragePath, "files", "tree", "deep", "x.txt"), []byte("x"))

	if err := g.Delete(ctx, sess, vfs.CategoryGeneral, "tree"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(sess.StoragePath, "files", "tree")); !os.IsNotExist(err) {
		t.Error("tree not removed")
	}
}

func TestDeleteMissing(t *testing.T) {
	g := newTestGateway(t, nil, nil)
	sess := testSession(t)

	err := g.Delete(context.Background(), sess, vfs.CategoryGeneral, "ghost")
	if err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMove(t *testing.T) {
	g := newTestGateway(t, nil, nil)
	sess := testSession(t)
	ctx := context.Background()

	writeFile(t, filepath.Join(sess.StoragePath, "files", "old.txt"), []byte("payload"))

	if err := g.Move(ctx, sess, vfs.CategoryGeneral, "old.txt", "archive/new.txt"); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(filepath.Join(sess.StoragePath, "files", "archive", "new.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "payload" {
		t.Errorf("content = %q", got)
	}
	if _, err := os.Stat(filepath.Join(sess.StoragePath, "files", "old.txt")); !os.IsNotExist(err) {
		t.Error("source still present")
	}
}

func TestMoveConflict(t *testing.T) {
	g := newTestGateway(t, nil, nil)
	sess := testSession(t)
	ctx := context.Background()

	writeFile(t, filepath.Join(sess.StoragePath, "files", "a.txt"), []byte("a"))
	writeFile(t, filepath.Join(sess.StoragePath, "files", "b.txt"), []byte("b"))

	err := g.Move(ctx, sess, vfs.CategoryGeneral, "a.txt", "b.txt")
	if err != ErrConflict {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	// Destination untouched.
	got, _ := os.ReadFile(filepath.Join(sess.StoragePath, "files", "b.txt"))
	if string(got) != "b" {
		t.Errorf("destination overwritten: %q", got)
	}
}

func TestMoveMissingSource(t *testing.T) {
	g := newTestGateway(t, nil, nil)
	sess := testSession(t)

	err := g.Move(context.Background(), sess, vfs.CategoryGeneral, "absent.txt", "dst.txt")
	if err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMoveDirectory(t *testing.T) {
	g := newTestGateway(t, nil, nil)
	sess := testSession(t)
	ctx := context.Background()

	writeFile(t, filepath.Join(sess.StoragePath, "files", "src", "inner", "f.txt"), []byte("f"))

	if err := g.Move(ctx, sess, vfs.CategoryGeneral, "src", "dst"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(sess.StoragePath, "files", "dst", "inner", "f.txt")); err != nil {
		t.Errorf("directory contents lost: %v", err)
	}
}

func TestCrossMove(t *testing.T) {
	g := newTestGateway(t, nil, nil)
	sess := testSession(t)
	ctx := context.Background()

	writeFile(t, filepath.Join(sess.StoragePath, "files", "pic.jpg"), []byte("jpeg"))

	err := g.CrossMove(ctx, sess, vfs.CategoryGeneral, "pic.jpg", vfs.CategoryPhotos, "2026/pic.jpg")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(sess.StoragePath, "photos", "2026", "pic.jpg")); err != nil {
		t.Errorf("file not relocated: %v", err)
	}
	if _, err := os.Stat(filepath.Join(sess.StoragePath, "files", "pic.jpg")); !os.IsNotExist(err) {
		t.Error("source still present")
	}
}

func TestCrossMoveConflict(t *testing.T) {
	g := newTestGateway(t, nil, nil)
	sess := testSession(t)
	ctx := context.Background()

	writeFile(t, filepath.Join(sess.StoragePath, "files", "x.txt"), []byte("new"))
	writeFile(t, filepath.Join(sess.StoragePath, "trash", "x.txt"), []byte("old"))

	err := g.CrossMove(ctx, sess, vfs.CategoryGeneral, "x.txt", vfs.CategoryTrash, "x.txt")
	if err != ErrConflict {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}

func TestMutationsTraversalRejected(t *testing.T) {
	g := newTestGateway(t, nil, nil)
	sess := testSession(t)
	ctx := context.Background()
	hostile := "../../outside"

	if err := g.Mkdir(ctx, sess, vfs.CategoryGeneral, hostile); err != ErrPathTraversal {
		t.Errorf("mkdir: expected ErrPathTraversal, got %v", err)
	}
	if err := g.Delete(ctx, sess, vfs.CategoryGeneral, hostile); err != ErrPathTraversal {
		t.Errorf("delete: expected ErrPathTraversal, got %v", err)
	}
	if err := g.Move(ctx, sess, vfs.CategoryGeneral, hostile, "dst"); err != ErrPathTraversal {
		t.Errorf("move src: expected ErrPathTraversal, got %v", err)
	}
	writeFile(t, filepath.Join(sess.StoragePath, "files", "src.txt"), []byte("s"))
	if err := g.Move(ctx, sess, vfs.CategoryGeneral, "src.txt", hostile); err != ErrPathTraversal {
		t.Errorf("move dst: expected ErrPathTraversal, got %v", err)
	}
}
