// Package cache stores LLM summaries keyed by the text they were made from
// (together with whatever else the caller folds into the key), so re-running a scrape over the same articles does not pay for the same
// completion twice.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

const keyPrefix = "f1crawler:summary:"

// Cache is a best-effort text cache. Failures are reported as misses.
type Cache interface {
	Get(ctx context.Context, input string) (string, bool)
	Set(ctx context.Context, input, summary string)
}

// Key returns the storage key for an input text.
func Key(input string) string {
	sum := sha256.Sum256([]byte(input))
	return keyPrefix + hex.EncodeToString(sum[:])
}

// Nop never hits.
type Nop struct{}

func (Nop) Get(context.Context, string) (string, bool) { return "", false }
func (Nop) Set(context.Context, string, string)         {}

// Redis keeps summaries in a Redis server with a TTL.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedis connects to addr lazily; no I/O happens until first use.
func NewRedis(addr string, ttl time.Duration) *Redis {
	return &Redis{
		rdb: redis.NewClient(&redis.Options{
			Addr:        addr,
			DialTimeout: 2 * time.Second,
			ReadTimeout: 2 * time.Second,
		}),
		ttl: ttl,
	}
}

// Get looks up the summary stored for input.
func (r *Redis) Get(ctx context.Context, input string) (string, bool) {
	val, err := r.rdb.Get(ctx, Key(input)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false
	}
	if err != nil {
		log.Printf("summary cache get: %v", err)
		return "", false
	}
	return val, true
}

// Set stores summary for input.
func (r *Redis) Set(ctx context.Context, input, summary string) {
	if err := r.rdb.Set(ctx, Key(input), summary, r.ttl).Err(); err != nil {
		log.Printf("summary cache set: %v", err)
	}
}

// Close closes the client connection pool.
func (r *Redis) Close() error {
	return r.rdb.Close()
}

// New returns a Redis cache when addr is set and Nop otherwise.
func New(addr string, ttl time.Duration) Cache {
	if addr == "" {
		return Nop{}
	}
	return NewRedis(addr, ttl)
}
