/*
Package cache stores rendered calculation responses keyed by a fingerprint of
the request that produced them.

PURPOSE:
  The engine is deterministic: the same loan request always yields the same
  schedule. Long ARM or daily schedules are expensive to build and large to
  encode, so the API keeps the encoded response and serves repeats from here.

BACKENDS:
  memory: Process-local map with TTL (single instance, tests)
  redis:  Shared across instances (github.com/redis/go-redis/v9)
  none:   Never hits

KEYS:
  Fingerprint hashes the canonical JSON encoding of a request with SHA-256.
  Encoding a Go struct is deterministic (field order is fixed), so equal
  requests hash equally regardless of the client's key order or whitespace.
*/
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// KeyPrefix namespaces every key the service writes.
const KeyPrefix = "loancalc:v1:"

// Cache is a byte-oriented result cache. A miss is (nil, false, nil); an error
// means the backend could not answer and the caller should compute anyway.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Fingerprint returns the cache key for a request value.
func Fingerprint(request any) (string, error) {
	data, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("failed to encode request for fingerprint: %w", err)
	}
	sum := sha256.Sum256(data)
	return KeyPrefix + hex.EncodeToString(sum[:]), nil
}

// Nop never stores anything.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (Nop) Set(context.Context, string, []byte) error { return nil }
