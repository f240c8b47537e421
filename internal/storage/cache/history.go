// --- File: internal/storage/cache/history.go ---
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/tinywideclouds/go-notification-dispatch/pkg/notification"
)

// CacheClient defines the subset of Redis commands we need.
type CacheClient interface {
	// Get returns ErrMiss if the key is absent.
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// HistoryStore is the durable event history, e.g. the Firestore EventStore.
type HistoryStore interface {
	Publish(ctx context.Context, e notification.Event) error
	Events(ctx context.Context, notificationID string) ([]notification.Event, error)
}

// CachedHistory is a Decorator that adds Read-Aside caching to a HistoryStore.
type CachedHistory struct {
	realStore HistoryStore
	cache     CacheClient
	ttl       time.Duration
}

func NewCachedHistory(realStore HistoryStore, cache CacheClient, ttl time.Duration) *CachedHistory {
	return &CachedHistory{
		realStore: realStore,
		cache:     cache,
		ttl:       ttl,
	}
}

// --- READ PATH (Read-Aside) ---

func (h *CachedHistory) Events(ctx context.Context, notificationID string) ([]notification.Event, error) {
	key := historyKey(notificationID)

	// 1. Try Cache
	var cached []notification.Event
	if err := h.cache.Get(ctx, key, &cached); err == nil {
		return cached, nil
	}

	// 2. Fallback to Real Store
	fresh, err := h.realStore.Events(ctx, notificationID)
	if err != nil {
		return nil, err
	}

	// 3. Only settled histories are cached; an in-flight one would go stale.
	if len(fresh) > 0 && fresh[len(fresh)-1].Type.Terminal() {
		_ = h.cache.Set(ctx, key, fresh, h.ttl)
	}
	return fresh, nil
}

// --- WRITE PATH (Invalidate-on-Write) ---

func (h *CachedHistory) Publish(ctx context.Context, e notification.Event) error {
	if err := h.realStore.Publish(ctx, e); err != nil {
		return err
	}
	return h.cache.Del(ctx, historyKey(e.NotificationID))
}

func historyKey(notificationID string) string {
	return fmt.Sprintf("notify:history:%s", notificationID)
}
