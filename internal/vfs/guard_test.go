package vfs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestAssertWithinLexical(t *testing.T) {
	root := t.TempDir()

	tests := []struct {
		name     string
		resolved string
		wantErr  bool
	}{
		{"inside", filepath.Join(root, "files", "a.txt"), false},
		{"root itself", root, false},
		{"parent escape", filepath.Join(root, ".."), true},
		{"dotdot in middle", filepath.Join(root, "files", "..", "..", "other"), true},
		{"sibling prefix", root + "-evil/file", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := AssertWithin(tt.resolved, root)
			if tt.wantErr && !errors.Is(err, ErrPathTraversal) {
				t.Errorf("expected ErrPathTraversal, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestAssertWithinResolvesThroughCategoryTraversal(t *testing.T) {
	root := t.TempDir()
	// A path built from hostile input that cleans back inside the root is
	// fine; one that cleans outside is not.
	inside := Resolve(root, CategoryGeneral, "sub/../other.txt")
	if err := AssertWithin(inside, root); err != nil {
		t.Errorf("clean-inside path rejected: %v", err)
	}
	outside := Resolve(root, CategoryGeneral, "../../../../etc/passwd")
	if err := AssertWithin(outside, root); !errors.Is(err, ErrPathTraversal) {
		t.Errorf("expected ErrPathTraversal, got %v", err)
	}
}

func TestAssertWithinSymlinkEscape(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()

	if err := os.MkdirAll(filepath.Join(root, "files"), 0o755); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(root, "files", "evil")
	if err := os.Symlink(outside, link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	// The symlinked dir itself escapes.
	if err := AssertWithin(link, root); !errors.Is(err, ErrPathTraversal) {
		t.Errorf("symlinked dir: expected ErrPathTraversal, got %v", err)
	}

	// A not-yet-existing file beneath the symlinked dir escapes too: the
	// partial resolution must catch the existing symlinked ancestor.
	target := filepath.Join(link, "payload.txt")
	if err := AssertWithin(target, root); !errors.Is(err, ErrPathTraversal) {
		t.Errorf("file under symlinked dir: expected ErrPathTraversal, got %v", err)
	}
}

func TestAssertWithinSymlinkInside(t *testing.T) {
	root := t.TempDir()

	if err := os.MkdirAll(filepath.Join(root, "files", "real"), 0o755); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(root, "files", "alias")
	if err := os.Symlink(filepath.Join(root, "files", "real"), link); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	if err := AssertWithin(link, root); err != nil {
		t.Errorf("symlink staying inside root rejected: %v", err)
	}
}

func TestAssertWithinMissingTarget(t *testing.T) {
	root := t.TempDir()
	// Upload destinations do not exist yet; the lexical check still holds.
	target := filepath.Join(root, "files", "new", "deep", "file.bin")
	if err := AssertWithin(target, root); err != nil {
		t.Errorf("missing target rejected: %v", err)
	}
}
