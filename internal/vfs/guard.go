package vfs

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ErrPathTraversal is returned when a resolved path escapes its storage
// root. Always treated as attacker input by callers: logged distinctly,
// never echoed back to the client.
var ErrPathTraversal = errors.New("path escapes storage root")

// AssertWithin verifies that resolved never escapes root. Two phases:
// a lexical containment check on the cleaned paths, then, when the target
// exists, a physical check with all symlinks resolved on both sides. A
// missing target skips the physical phase — upload and mkdir destinations
// cannot carry a symlink before they are created.
func AssertWithin(resolved, root string) error {
	if err := assertWithinLexical(resolved, root); err != nil {
		return err
	}

	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		if os.IsNotExist(err) {
			// Root not materialized yet; lexical check is all we have.
			return nil
		}
		return err
	}

	realTarget, err := evalSymlinksPartial(resolved)
	if err != nil {
		return err
	}
	if realTarget == "" {
		return nil
	}

	return assertWithinLexical(realTarget, realRoot)
}

func assertWithinLexical(resolved, root string) error {
	cleanRoot := filepath.Clean(root)
	cleanPath := filepath.Clean(resolved)

	if cleanPath == cleanRoot {
		return nil
	}
	if !strings.HasPrefix(cleanPath, cleanRoot+string(filepath.Separator)) {
		return ErrPathTraversal
	}
	return nil
}

// evalSymlinksPartial resolves symlinks for the deepest existing ancestor
// of path and rejoins the missing suffix. Returns "" when nothing along
// the path exists yet. This closes the gap where an existing intermediate
// directory is a symlink pointing outside the root while the final
// component has not been created.
func evalSymlinksPartial(path string) (string, error) {
	remainder := ""
	current := path
	for {
		real, err := filepath.EvalSymlinks(current)
		if err == nil {
			return filepath.Join(real, remainder), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", nil
		}
		remainder = filepath.Join(filepath.Base(current), remainder)
		current = parent
	}
}
