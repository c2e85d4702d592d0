// Package distlock provides advisory distributed locks used to keep multiple
// API replicas from recomputing the same pipeline window at once. Locks bound
// duplicate work; they are never required for correctness because the
// pipeline is pure.
package distlock

import (
	"context"
	"database/sql"
	"hash/fnv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lock is a single-owner advisory lock. A Lock instance belongs to one
// goroutine; concurrent holders need separate instances.
type Lock interface {
	// Acquire tries to take the lock without blocking. Returns true on success.
	Acquire(ctx context.Context) (bool, error)
	// Release releases the lock if this instance still owns it.
	Release(ctx context.Context) error
}

// Provider builds locks against the best available backend: Redis when
// configured (works across hosts), otherwise PostgreSQL advisory locks on the
// metrics database.
type Provider struct {
	redis *redis.Client
	db    *sql.DB
}

// NewProvider creates a lock provider. Either client may be nil; at least one
// backend must be present.
func NewProvider(redisClient *redis.Client, db *sql.DB) *Provider {
	return &Provider{redis: redisClient, db: db}
}

// Lock returns a lock for the given key. The TTL only applies to the Redis
// backend; advisory locks are released when the session drops.
func (p *Provider) Lock(key string, ttl time.Duration) Lock {
	if p.redis != nil {
		return NewRedisLock(p.redis, key, ttl)
	}
	return NewPGAdvisoryLock(p.db, key)
}

// PGAdvisoryLock implements Lock with pg_try_advisory_lock, keyed by an FNV
// hash of the key string. The lock is session-scoped: a dropped connection
// releases it, which stands in for the Redis TTL.
type PGAdvisoryLock struct {
	db     *sql.DB
	lockID int64
}

// NewPGAdvisoryLock creates an advisory lock for the given key.
func NewPGAdvisoryLock(db *sql.DB, key string) *PGAdvisoryLock {
	h := fnv.New64a()
	h.Write([]byte(key))
	return &PGAdvisoryLock{db: db, lockID: int64(h.Sum64())}
}

// Acquire tries to take the advisory lock without blocking.
func (l *PGAdvisoryLock) Acquire(ctx context.Context) (bool, error) {
	var acquired bool
	err := l.db.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", l.lockID).Scan(&acquired)
	return acquired, err
}

// Release releases the advisory lock.
func (l *PGAdvisoryLock) Release(ctx context.Context) error {
	_, err := l.db.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", l.lockID)
	return err
}
