// Package store caches serialized pricing results. Every engine is a pure
// function of its request (seed included), so a result can be replayed for an
// identical request until its TTL expires. Implementations include Redis
// (shared between replicas) and in-memory (single process, tests).
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// ResultStore is the cache interface used by the pricing service.
type ResultStore interface {
	// Get returns the cached payload for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Put stores payload under key for the store's TTL.
	Put(ctx context.Context, key string, payload []byte) error
}

// Key derives the cache key of a request: the hex SHA-256 of the method name
// and the request's JSON encoding. Requests must encode deterministically,
// which holds for structs (fields are emitted in declaration order).
func Key(method string, request any) (string, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("store: encode %s request: %w", method, err)
	}
	h := sha256.New()
	h.Write([]byte(method))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil)), nil
}
