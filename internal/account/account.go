// Package account defines the narrow interfaces through which the gateway
// consumes its external collaborators: session validation, account
// settings, family quotas, and ghost-folder configuration. The gateway
// never reaches past these interfaces into collaborator internals.
package account

import "context"

// Session identifies an authenticated caller.
type Session struct {
	AccountID    int
	StoragePath  string
	Suspended    bool
	FamilyMember bool
}

// Ref pairs an account with its storage root. Used by batch jobs that
// walk account trees without a session.
type Ref struct {
	AccountID   int
	StoragePath string
}

// Settings are the per-account flags the gateway applies on every request.
type Settings struct {
	VaultLockdown   bool
	GhostFolders    bool
	FileObfuscation bool
}

// Quota is a family member's storage budget. LimitBytes == 0 means
// unlimited (owner accounts).
type Quota struct {
	LimitBytes int64
	UsedBytes  int64
}

// PolicySnapshot is fetched fresh per write request — these flags are
// security-critical and must reflect the latest state, so it is never
// cached.
type PolicySnapshot struct {
	Authenticated bool
	Suspended     bool
	VaultLocked   bool
}

// SessionService validates bearer tokens.
type SessionService interface {
	Validate(ctx context.Context, token string) (*Session, error)
}

// SettingsService reads account settings.
type SettingsService interface {
	GetSettings(ctx context.Context, accountID int) (*Settings, error)
}

// QuotaService reads family quotas and accepts usage writeback. SetUsed is
// fire-and-forget: accounting calls it after recomputation and ignores
// failures.
type QuotaService interface {
	GetQuota(ctx context.Context, accountID int) (*Quota, error)
	SetUsed(ctx context.Context, accountID int, usedBytes int64) error
}

// GhostFolderService lists the account-relative paths hidden from casual
// browsing.
type GhostFolderService interface {
	ListGhostFolders(ctx context.Context, accountID int) ([]string, error)
}

// Obfuscator rewrites displayed entry metadata. Deterministic per file;
// the gateway only applies it conditionally and never feeds the fuzzed
// values back into real I/O.
type Obfuscator interface {
	Size(path string, size int64) int64
	ModTime(path string, modMillis int64) int64
}
