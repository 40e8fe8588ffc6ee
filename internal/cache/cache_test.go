package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bigmove/backend/internal/models"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func slots(times ...string) models.DeliveryTimeSlots {
	var out models.DeliveryTimeSlots
	for _, tm := range times {
		out.LoadingTimes = append(out.LoadingTimes, models.TimeSlot{Time: tm, Available: true, MaxCapacity: 100})
	}
	return out
}

func TestKey(t *testing.T) {
	assert.Equal(t, "2026-10-20-REGULAR", Key("2026-10-20", models.DeliveryRegular))
	assert.Equal(t, "2026-10-16-NEXT_DAY", Key("2026-10-16", models.DeliveryNextDay))
}

func TestGetRespectsTTL(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)}
	c := NewSlotCache(SlotTTL, clock.Now)

	c.Set("k", slots("09:00"))

	clock.t = clock.t.Add(29*time.Minute + 59*time.Second)
	got, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "09:00", got.LoadingTimes[0].Time)

	clock.t = clock.t.Add(time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestPurge(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)}
	c := NewSlotCache(SlotTTL, clock.Now)

	c.Set("old", slots("09:00"))
	clock.t = clock.t.Add(20 * time.Minute)
	c.Set("new", slots("12:00"))
	clock.t = clock.t.Add(15 * time.Minute)

	assert.Equal(t, 1, c.Purge())
	assert.Equal(t, 1, c.Len())
	_, ok := c.Get("new")
	assert.True(t, ok)
}

func TestStartAutoPurgeStopsOnCancel(t *testing.T) {
	c := NewSlotCache(time.Nanosecond, nil)
	c.Set("k", slots("09:00"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.StartAutoPurge(ctx, time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, time.Millisecond)
	cancel()
	<-done
}
