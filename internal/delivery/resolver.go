package delivery

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bigmove/backend/internal/cache"
	"github.com/bigmove/backend/internal/models"
)

// SlotSource is the backend the resolver asks for dates and slots.
type SlotSource interface {
	AvailableDates(ctx context.Context, option models.DeliveryOption) ([]string, error)
	TimeSlots(ctx context.Context, date string, option models.DeliveryOption) (models.DeliveryTimeSlots, error)
}

// Resolver loads dates eagerly and slots lazily per date, caching slot
// responses under "<date>-<option>". Each checkout session owns one, so the
// current slot data and the last error belong to a single customer.
type Resolver struct {
	source SlotSource
	cache  *cache.SlotCache

	mu      sync.Mutex
	current models.DeliveryTimeSlots
	lastErr error
}

func NewResolver(source SlotSource, now func() time.Time) *Resolver {
	return NewResolverWithTTL(source, cache.SlotTTL, now)
}

func NewResolverWithTTL(source SlotSource, ttl time.Duration, now func() time.Time) *Resolver {
	return &Resolver{
		source:  source,
		cache:   cache.NewSlotCache(ttl, now),
		current: emptySlots(),
	}
}

func emptySlots() models.DeliveryTimeSlots {
	return models.DeliveryTimeSlots{
		LoadingTimes:   []models.TimeSlot{},
		UnloadingTimes: []models.TimeSlot{},
	}
}

// Dates maps the eligible date strings into AvailableDate values with empty
// slot lists.
func (r *Resolver) Dates(ctx context.Context, option models.DeliveryOption) ([]models.AvailableDate, error) {
	dates, err := r.source.AvailableDates(ctx, option)
	if err != nil {
		r.setErr(err)
		slog.ErrorContext(ctx, "fetch available dates failed", "option", option, "error", err)
		return nil, err
	}
	out := make([]models.AvailableDate, 0, len(dates))
	for _, d := range dates {
		out = append(out, models.AvailableDate{Date: d, TimeSlots: []models.TimeSlot{}})
	}
	r.setErr(nil)
	return out, nil
}

// TimeSlots serves from the cache when fresh. A failed fetch clears the
// current slot data and records the error; it is not retried.
func (r *Resolver) TimeSlots(ctx context.Context, date string, option models.DeliveryOption) (models.DeliveryTimeSlots, error) {
	key := cache.Key(date, option)
	if data, ok := r.cache.Get(key); ok {
		r.setCurrent(data, nil)
		return data, nil
	}

	data, err := r.source.TimeSlots(ctx, date, option)
	if err != nil {
		slog.ErrorContext(ctx, "fetch time slots failed", "date", date, "option", option, "error", err)
		r.setCurrent(emptySlots(), err)
		return emptySlots(), err
	}
	r.cache.Set(key, data)
	r.setCurrent(data, nil)
	return data, nil
}

// Current is the slot data of the last TimeSlots call.
func (r *Resolver) Current() models.DeliveryTimeSlots {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

func (r *Resolver) LastError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

func (r *Resolver) setCurrent(data models.DeliveryTimeSlots, err error) {
	r.mu.Lock()
	r.current = data
	r.lastErr = err
	r.mu.Unlock()
}

func (r *Resolver) setErr(err error) {
	r.mu.Lock()
	r.lastErr = err
	r.mu.Unlock()
}

// Forget drops the cached slots of one date so the next call refetches them.
func (r *Resolver) Forget(date string, option models.DeliveryOption) {
	r.cache.Delete(cache.Key(date, option))
}

func (r *Resolver) Purge() int {
	return r.cache.Purge()
}

// StartAutoPurge evicts stale slot entries until ctx is done.
func (r *Resolver) StartAutoPurge(ctx context.Context, interval time.Duration) {
	r.cache.StartAutoPurge(ctx, interval)
}
