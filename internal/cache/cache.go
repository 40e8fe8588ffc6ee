package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bigmove/backend/internal/models"
)

// SlotTTL is how long fetched time slots stay fresh.
const SlotTTL = 30 * time.Minute

type SlotEntry struct {
	Data      models.DeliveryTimeSlots
	Timestamp time.Time
}

type SlotCache struct {
	mu      sync.RWMutex
	entries map[string]SlotEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewSlotCache(ttl time.Duration, now func() time.Time) *SlotCache {
	if now == nil {
		now = time.Now
	}
	return &SlotCache{
		entries: make(map[string]SlotEntry),
		ttl:     ttl,
		now:     now,
	}
}

// Key builds the "<date>-<option>" cache key.
func Key(date string, option models.DeliveryOption) string {
	return fmt.Sprintf("%s-%s", date, option.Type())
}

// Get treats entries as old as ttl or older as misses.
func (c *SlotCache) Get(key string) (models.DeliveryTimeSlots, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || c.now().Sub(e.Timestamp) >= c.ttl {
		return models.DeliveryTimeSlots{}, false
	}
	return e.Data, true
}

func (c *SlotCache) Set(key string, data models.DeliveryTimeSlots) {
	c.mu.Lock()
	c.entries[key] = SlotEntry{Data: data, Timestamp: c.now()}
	c.mu.Unlock()
}

func (c *SlotCache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

func (c *SlotCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Purge drops expired entries and reports how many were removed.
func (c *SlotCache) Purge() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for k, e := range c.entries {
		if now.Sub(e.Timestamp) >= c.ttl {
			delete(c.entries, k)
			removed++
		}
	}
	return removed
}

func (c *SlotCache) StartAutoPurge(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.Purge()
		case <-ctx.Done():
			return
		}
	}
}
