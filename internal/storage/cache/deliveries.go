// --- File: internal/storage/cache/deliveries.go ---
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tinywideclouds/go-notification-dispatch/pkg/notification"
)

// DeliveryCache remembers successful deliveries so a redelivered
// message is not sent twice.
type DeliveryCache struct {
	cache CacheClient
	ttl   time.Duration
}

func NewDeliveryCache(cache CacheClient, ttl time.Duration) *DeliveryCache {
	return &DeliveryCache{cache: cache, ttl: ttl}
}

// Lookup returns the remembered result, or nil if the id has not been delivered.
func (d *DeliveryCache) Lookup(ctx context.Context, notificationID string) (*notification.Result, error) {
	if notificationID == "" {
		return nil, nil
	}
	var res notification.Result
	err := d.cache.Get(ctx, deliveryKey(notificationID), &res)
	if errors.Is(err, ErrMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("delivery lookup failed: %w", err)
	}
	return &res, nil
}

// Remember stores successful results only.
func (d *DeliveryCache) Remember(ctx context.Context, res notification.Result) error {
	if !res.IsSuccess() || res.NotificationID == "" {
		return nil
	}
	return d.cache.Set(ctx, deliveryKey(res.NotificationID), res, d.ttl)
}

func deliveryKey(notificationID string) string {
	return fmt.Sprintf("notify:delivered:%s", notificationID)
}
