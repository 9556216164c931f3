package subscriptions

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/otdoges/zapdev-sub005/pkg/config"
	pkgredis "github.com/otdoges/zapdev-sub005/pkg/redis"
)

// SnapshotCache stores the per-customer subscription snapshot in Redis. Writes
// replace the stored value whole; losing the key only costs a provider
// round-trip on the next read.
type SnapshotCache struct {
	client    *pkgredis.Client
	namespace string
	ttl       time.Duration
}

// NewSnapshotCache builds a snapshot cache on the shared Redis client.
func NewSnapshotCache(client *pkgredis.Client, cfg config.CacheConfig) *SnapshotCache {
	return &SnapshotCache{
		client:    client,
		namespace: cfg.Namespace,
		ttl:       cfg.SnapshotTTL,
	}
}

// Put overwrites the stored snapshot for the customer.
func (c *SnapshotCache) Put(ctx context.Context, snapshot SubscriptionSnapshot) error {
	if snapshot.CustomerID == "" {
		return fmt.Errorf("snapshot customer id is required")
	}
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	key := c.client.SubscriptionKey(c.namespace, snapshot.CustomerID)
	if err := c.client.Set(ctx, key, string(payload), c.ttl); err != nil {
		return fmt.Errorf("store snapshot: %w", err)
	}
	return nil
}

// Get returns the stored snapshot and whether one was present.
func (c *SnapshotCache) Get(ctx context.Context, customerID string) (SubscriptionSnapshot, bool, error) {
	var snapshot SubscriptionSnapshot
	if customerID == "" {
		return snapshot, false, fmt.Errorf("customer id is required")
	}
	key := c.client.SubscriptionKey(c.namespace, customerID)
	raw, err := c.client.Get(ctx, key)
	if err != nil {
		if err == pkgredis.Nil {
			return snapshot, false, nil
		}
		return snapshot, false, fmt.Errorf("load snapshot: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		// a corrupt entry reads as a miss; the next sync rewrites it
		return SubscriptionSnapshot{}, false, nil
	}
	return snapshot, true, nil
}

// Delete removes the stored snapshot for the customer.
func (c *SnapshotCache) Delete(ctx context.Context, customerID string) error {
	if customerID == "" {
		return fmt.Errorf("customer id is required")
	}
	return c.client.Del(ctx, c.client.SubscriptionKey(c.namespace, customerID))
}
