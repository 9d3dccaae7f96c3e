package lease

import (
	"context"
	"time"

	"autosolver/internal/common"

	"github.com/google/uuid"
)

// Lease is a held, expiring claim on a key.
type Lease struct {
	Key       string
	Holder    string
	ExpiresAt time.Time
}

// Valid reports whether the lease has not expired at now.
func (l *Lease) Valid(now time.Time) bool {
	return l != nil && now.Before(l.ExpiresAt)
}

// Locker hands out leases. Acquire returns common.ErrLeaseHeld when another
// holder owns an unexpired lease on key. Release is a no-op if the lease already
// expired or was taken over.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (*Lease, error)
	Release(ctx context.Context, l *Lease) error
}

func NewHolderID() string {
	return uuid.NewString()
}

// WithLease runs fn while holding a lease on key and always releases it afterwards.
func WithLease(ctx context.Context, locker Locker, key string, ttl time.Duration, fn func(ctx context.Context) error) (err error) {
	l, err := locker.Acquire(ctx, key, ttl)
	if err != nil {
		return err
	}
	defer func() {
		// release on a fresh context so a cancelled caller still frees the key
		relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if relErr := locker.Release(relCtx, l); relErr != nil && err == nil {
			err = common.Errorf("release lease %s: %w", key, relErr)
		}
	}()
	return fn(ctx)
}
