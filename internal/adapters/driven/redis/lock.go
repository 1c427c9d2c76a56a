package redis

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/doctalk-labs/doctalk-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DistributedLock = (*Lock)(nil)

const lockPrefix = "doctalk:lock:"

// Lock is a Redis-backed lease used to serialize ingestion across worker
// processes. The worker takes one lease per document (name "ingest:<id>")
// before running the pipeline; a duplicate or retried task for the same
// document is turned away until the lease is released or its TTL lapses.
//
// Each Lock instance carries an owner token so that a worker can only
// release or renew leases it took itself. A lease left behind by a
// crashed worker simply expires.
type Lock struct {
	client *redis.Client
	owner  string
}

// NewLock creates a lock manager for this process. The owner token is
// hostname:pid:random so concurrent workers on one host stay distinct.
func NewLock(client *redis.Client) *Lock {
	hostname, _ := os.Hostname()
	nonce := make([]byte, 8)
	_, _ = rand.Read(nonce)

	return &Lock{
		client: client,
		owner:  fmt.Sprintf("%s:%d:%s", hostname, os.Getpid(), hex.EncodeToString(nonce)),
	}
}

// Release and Extend must check ownership and act in one step, so both
// run as Lua. A plain GET-then-DEL would let a worker whose lease just
// expired delete the lease of whoever took it next.
var (
	releaseScript = redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		else
			return 0
		end
	`)

	extendScript = redis.NewScript(`
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("pexpire", KEYS[1], ARGV[2])
		else
			return 0
		end
	`)
)

// Acquire takes the named lease for ttl. Returns false without error
// when another worker (or an earlier task of this one) already holds it.
func (l *Lock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	taken, err := l.client.SetNX(ctx, lockPrefix+name, l.owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	return taken, nil
}

// Release gives the lease back if this process holds it. Releasing a
// lease that expired or belongs to another worker is a no-op, which
// keeps the worker's deferred Release safe after a slow ingestion.
func (l *Lock) Release(ctx context.Context, name string) error {
	_, err := releaseScript.Run(ctx, l.client, []string{lockPrefix + name}, l.owner).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("release lock %s: %w", name, err)
	}
	return nil
}

// Extend renews the lease for a document whose ingestion is outliving
// the initial TTL. Fails if the lease lapsed or changed hands.
func (l *Lock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	result, err := extendScript.Run(ctx, l.client, []string{lockPrefix + name}, l.owner, ttl.Milliseconds()).Result()
	if err != nil {
		return fmt.Errorf("extend lock %s: %w", name, err)
	}
	if result.(int64) == 0 {
		return fmt.Errorf("lock %s not held by this instance", name)
	}
	return nil
}

// Ping checks if the Redis backend is healthy.
func (l *Lock) Ping(ctx context.Context) error {
	return l.client.Ping(ctx).Err()
}

// OwnerID exposes this process's owner token for logs.
func (l *Lock) OwnerID() string {
	return l.owner
}
