// Package postgres implements the account collaborator interfaces against
// the accounts database.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/bytevault/bytevault/internal/account"
)

// Store implements account.SettingsService, account.QuotaService and
// account.GhostFolderService over PostgreSQL.
type Store struct {
	db *sql.DB
}

// New opens a connection pool and verifies it.
func New(databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	return &Store{db: db}, nil
}

// NewFromDB wraps an existing connection pool.
func NewFromDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying connection pool.
func (s *Store) DB() *sql.DB { return s.db }

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// GetSettings reads an account's security settings. Vault lockdown is a
// server-wide flag; it freezes writes for every account, so it is read
// from server_settings rather than the account row.
func (s *Store) GetSettings(ctx context.Context, accountID int) (*account.Settings, error) {
	out := &account.Settings{}

	err := s.db.QueryRowContext(ctx,
		`SELECT sec_ghost_folders, sec_file_obfuscation FROM account_settings WHERE account_id = $1`,
		accountID).Scan(&out.GhostFolders, &out.FileObfuscation)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("get account settings: %w", err)
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT vault_lockdown FROM server_settings WHERE id = 1`).Scan(&out.VaultLockdown)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("get server settings: %w", err)
	}

	return out, nil
}

// SetVaultLockdown flips the global write freeze.
func (s *Store) SetVaultLockdown(ctx context.Context, locked bool) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO server_settings (id, vault_lockdown) VALUES (1, $1)
		 ON CONFLICT (id) DO UPDATE SET vault_lockdown = EXCLUDED.vault_lockdown`,
		locked)
	if err != nil {
		return fmt.Errorf("set vault lockdown: %w", err)
	}
	return nil
}

// GetQuota returns the storage quota for a family member. Zero limit means
// unlimited (owner accounts have no quota row).
func (s *Store) GetQuota(ctx context.Context, accountID int) (*account.Quota, error) {
	q := &account.Quota{}
	err := s.db.QueryRowContext(ctx,
		`SELECT quota_bytes, used_bytes FROM family_quotas WHERE account_id = $1`,
		accountID).Scan(&q.LimitBytes, &q.UsedBytes)
	if err == sql.ErrNoRows {
		return q, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get quota: %w", err)
	}
	return q, nil
}

// SetUsed writes back recomputed usage for a quota bucket.
func (s *Store) SetUsed(ctx context.Context, accountID int, usedBytes int64) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE family_quotas SET used_bytes = $2, updated_at = NOW() WHERE account_id = $1`,
		accountID, usedBytes)
	if err != nil {
		return fmt.Errorf("set used bytes: %w", err)
	}
	return nil
}

// ListGhostFolders returns the account-relative paths hidden from casual
// browsing, ordered for deterministic filtering.
func (s *Store) ListGhostFolders(ctx context.Context, accountID int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT path FROM ghost_folders WHERE account_id = $1 ORDER BY path`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list ghost folders: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan ghost folder: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// GetStoragePath returns the storage root recorded for an account. Used to
// fill the storage-root cache on miss.
func (s *Store) GetStoragePath(ctx context.Context, accountID int) (string, error) {
	var path string
	err := s.db.QueryRowContext(ctx,
		`SELECT storage_path FROM accounts WHERE id = $1`, accountID).Scan(&path)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("account %d not found", accountID)
	}
	if err != nil {
		return "", fmt.Errorf("get storage path: %w", err)
	}
	return path, nil
}

// ListQuotaAccounts returns the id and storage root of every account with
// a quota row. The usage recompute loop iterates this set.
func (s *Store) ListQuotaAccounts(ctx context.Context) ([]account.Ref, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.id, a.storage_path FROM accounts a
		 JOIN family_quotas q ON q.account_id = a.id
		 ORDER BY a.id`)
	if err != nil {
		return nil, fmt.Errorf("list quota accounts: %w", err)
	}
	defer rows.Close()

	var refs []account.Ref
	for rows.Next() {
		var ref account.Ref
		if err := rows.Scan(&ref.AccountID, &ref.StoragePath); err != nil {
			return nil, fmt.Errorf("scan quota account: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// UpdateStoragePath changes an account's storage root. Callers must
// invalidate the root cache afterwards.
func (s *Store) UpdateStoragePath(ctx context.Context, accountID int, path string) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE accounts SET storage_path = $2 WHERE id = $1`, accountID, path)
	if err != nil {
		return fmt.Errorf("update storage path: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("account %d not found", accountID)
	}
	return nil
}
