package postgres

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/doctalk-labs/doctalk-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DistributedLock = (*AdvisoryLock)(nil)

// AdvisoryLock serializes per-document ingestion through PostgreSQL
// session advisory locks when no Redis is configured.
//
// Advisory locks differ from the Redis lease in two ways the worker has
// to live with: they are bound to the database session rather than a
// TTL (a worker crash releases them when its connections drop), and
// they cannot expire early, so the ttl argument is accepted but unused.
type AdvisoryLock struct {
	db *DB
}

// NewAdvisoryLock creates an advisory-lock manager on the shared pool.
func NewAdvisoryLock(db *DB) *AdvisoryLock {
	return &AdvisoryLock{db: db}
}

// advisoryKey folds a lock name like "ingest:<document-id>" into the
// bigint key space pg_try_advisory_lock expects. FNV-1a over the
// prefixed name keeps keys stable across workers and releases.
func advisoryKey(name string) int64 {
	h := fnv.New64a()
	h.Write([]byte("doctalk:lock:" + name))
	return int64(h.Sum64())
}

// Acquire tries to take the document's lock without blocking. The ttl
// is ignored; see the type comment.
func (l *AdvisoryLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	var acquired bool
	err := l.db.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", advisoryKey(name)).Scan(&acquired)
	if err != nil {
		return false, err
	}
	return acquired, nil
}

// Release unlocks the document's lock. pg_advisory_unlock reports false
// when this session never held it; that case is not an error here, so
// the worker's deferred Release stays safe.
func (l *AdvisoryLock) Release(ctx context.Context, name string) error {
	var released bool
	return l.db.QueryRowContext(ctx, "SELECT pg_advisory_unlock($1)", advisoryKey(name)).Scan(&released)
}

// Extend is a no-op: session advisory locks have no TTL to renew. A
// slow ingestion keeps its lock for as long as the session lives.
func (l *AdvisoryLock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	return nil
}

// Ping checks if the PostgreSQL backend is healthy.
func (l *AdvisoryLock) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}
