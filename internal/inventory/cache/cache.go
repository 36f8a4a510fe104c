// Package cache keeps a read-side snapshot of the inventory listing in
// Redis. The ledger in the store stays the source of truth: the snapshot is
// best-effort, bounded by a TTL, and invalidated on every write.
package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sou1357/bloodbankapp/internal/inventory/models"
)

const snapshotKey = "inventory:snapshot"

// AvailabilityCache stores the serialized inventory listing.
type AvailabilityCache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *AvailabilityCache {
	return &AvailabilityCache{client: client, ttl: ttl}
}

// Get returns the cached listing, or ok=false on miss or any cache failure.
func (c *AvailabilityCache) Get(ctx context.Context) ([]*models.Record, bool) {
	payload, err := c.client.Get(ctx, snapshotKey).Bytes()
	if err != nil {
		return nil, false
	}
	var records []*models.Record
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, false
	}
	return records, true
}

// Set stores the listing. Failures are swallowed: a cold cache only costs a
// store read.
func (c *AvailabilityCache) Set(ctx context.Context, records []*models.Record) {
	payload, err := json.Marshal(records)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, snapshotKey, payload, c.ttl).Err()
}

// Invalidate drops the snapshot after any ledger write.
func (c *AvailabilityCache) Invalidate(ctx context.Context) {
	_ = c.client.Del(ctx, snapshotKey).Err()
}
