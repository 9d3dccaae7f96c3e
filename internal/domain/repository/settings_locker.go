package repository

import (
	"context"
	"time"

	"autosolver/internal/platform/lease"
)

// settingsLocker leases a settings row through its lease_holder/lease_expires_at columns.
// The lease key is the settings id.
type settingsLocker struct {
	repo SettingsRepository
}

func NewSettingsLocker(repo SettingsRepository) lease.Locker {
	return &settingsLocker{repo: repo}
}

func (l *settingsLocker) Acquire(ctx context.Context, settingsID string, ttl time.Duration) (*lease.Lease, error) {
	holder := lease.NewHolderID()
	expires, err := l.repo.AcquireLease(ctx, settingsID, holder, ttl)
	if err != nil {
		return nil, err
	}
	return &lease.Lease{Key: settingsID, Holder: holder, ExpiresAt: *expires}, nil
}

func (l *settingsLocker) Release(ctx context.Context, ls *lease.Lease) error {
	if ls == nil {
		return nil
	}
	return l.repo.ReleaseLease(ctx, ls.Key, ls.Holder)
}
