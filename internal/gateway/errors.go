package gateway

import (
	"errors"

	"github.com/bytevault/bytevault/internal/vfs"
)

// Error taxonomy for gateway operations. Handlers map these to HTTP
// statuses; anything not in the list is an unexpected I/O failure and
// surfaces as a 500.
var (
	ErrUnauthorized  = errors.New("authentication required")
	ErrSuspended     = errors.New("account suspended")
	ErrVaultLocked   = errors.New("vault lockdown active")
	ErrPathTraversal = vfs.ErrPathTraversal
	ErrNotFound      = errors.New("not found")
	ErrIsDirectory   = errors.New("target is a directory")
	ErrConflict      = errors.New("destination already exists")
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	ErrTooLarge      = errors.New("file exceeds maximum upload size")
)
