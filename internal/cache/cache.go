// Package cache stores encoded graphs between API requests.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// KeyPrefix namespaces every key written by this package.
const KeyPrefix = "vpcviz:graph"

// Cache is a byte store with per-entry expiry.
type Cache interface {
	// Get returns the stored data and whether the key was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores data under key. A zero ttl stores it without expiry.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Close releases the underlying connection.
	Close() error
}

// GraphKey derives the key of the graph fetched from region and accountIDs.
// The order of accountIDs does not matter.
func GraphKey(region string, accountIDs []string) string {
	ids := slices.Clone(accountIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	data, _ := json.Marshal([]any{region, ids})
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s", KeyPrefix, hex.EncodeToString(hash[:]))
}
