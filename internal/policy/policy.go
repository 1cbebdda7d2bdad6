// Package policy implements the account policy gate: the per-request
// checks every operation passes before any path is resolved.
package policy

import (
	"context"

	"github.com/bytevault/bytevault/internal/account"
	"github.com/bytevault/bytevault/internal/gateway"
	"github.com/bytevault/bytevault/internal/metrics"
)

// Gate evaluates account policy against a fresh snapshot. Snapshots are
// fetched per write request and never cached; suspension and vault
// lockdown must take effect immediately.
type Gate struct {
	settings account.SettingsService
}

// NewGate creates a policy gate backed by the settings collaborator.
func NewGate(settings account.SettingsService) *Gate {
	return &Gate{settings: settings}
}

// Snapshot fetches the current policy state for a session. A nil session
// yields an unauthenticated snapshot.
func (g *Gate) Snapshot(ctx context.Context, sess *account.Session) (*account.PolicySnapshot, error) {
	if sess == nil {
		return &account.PolicySnapshot{}, nil
	}
	settings, err := g.settings.GetSettings(ctx, sess.AccountID)
	if err != nil {
		return nil, err
	}
	return &account.PolicySnapshot{
		Authenticated: true,
		Suspended:     sess.Suspended,
		VaultLocked:   settings.VaultLockdown,
	}, nil
}

// CheckWrite enforces the write-side policy in order: unauthenticated,
// then suspended, then vault lockdown. Quota is not checked here — it is
// data-dependent and enforced at the point bytes are committed.
func CheckWrite(snap *account.PolicySnapshot) error {
	if !snap.Authenticated {
		metrics.RecordPolicyRejection("unauthorized")
		return gateway.ErrUnauthorized
	}
	if snap.Suspended {
		metrics.RecordPolicyRejection("suspended")
		return gateway.ErrSuspended
	}
	if snap.VaultLocked {
		metrics.RecordPolicyRejection("vault_locked")
		return gateway.ErrVaultLocked
	}
	return nil
}

// CheckRead enforces the read-side policy. Reads are not blocked by
// suspension or vault lockdown, only by missing authentication.
func CheckRead(snap *account.PolicySnapshot) error {
	if !snap.Authenticated {
		metrics.RecordPolicyRejection("unauthorized")
		return gateway.ErrUnauthorized
	}
	return nil
}
