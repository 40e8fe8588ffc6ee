package delivery

import (
	"context"
	"fmt"
	"time"

	"github.com/bigmove/backend/internal/apperr"
	"github.com/bigmove/backend/internal/models"
)

const SlotCapacity = 100

var DefaultSlotTimes = []string{"09:00", "12:00", "15:00", "18:00"}

type BookingCounter interface {
	CountByDate(ctx context.Context, date string) (loading, unloading map[string]int, err error)
}

// BookingSource answers slot questions from the booking table.
type BookingSource struct {
	counter  BookingCounter
	loc      *time.Location
	now      func() time.Time
	times    []string
	capacity int
}

func NewBookingSource(counter BookingCounter, loc *time.Location, now func() time.Time) *BookingSource {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return &BookingSource{
		counter:  counter,
		loc:      loc,
		now:      now,
		times:    DefaultSlotTimes,
		capacity: SlotCapacity,
	}
}

func (s *BookingSource) localNow() time.Time {
	return s.now().In(s.loc)
}

func (s *BookingSource) AvailableDates(_ context.Context, option models.DeliveryOption) ([]string, error) {
	now := s.localNow()
	if OptionDisabled(option, now) {
		return nil, fmt.Errorf("%s after %d:00: %w", option, SameDayCutoffHour, apperr.ErrOptionClosed)
	}
	return FormatDates(EligibleDates(option, now)), nil
}

func (s *BookingSource) TimeSlots(ctx context.Context, date string, option models.DeliveryOption) (models.DeliveryTimeSlots, error) {
	now := s.localNow()
	d, err := ParseDate(date, s.loc)
	if err != nil {
		return models.DeliveryTimeSlots{}, err
	}
	if OptionDisabled(option, now) {
		return models.DeliveryTimeSlots{}, fmt.Errorf("%s: %w", option, apperr.ErrOptionClosed)
	}
	if IsDateDisabled(option, d, now) {
		return models.DeliveryTimeSlots{}, fmt.Errorf("%s for %s: %w", date, option, apperr.ErrDateUnavailable)
	}

	loading, unloading, err := s.counter.CountByDate(ctx, date)
	if err != nil {
		return models.DeliveryTimeSlots{}, fmt.Errorf("count bookings: %w", err)
	}
	return models.DeliveryTimeSlots{
		LoadingTimes:   s.build(loading),
		UnloadingTimes: s.build(unloading),
	}, nil
}

func (s *BookingSource) build(counts map[string]int) []models.TimeSlot {
	out := make([]models.TimeSlot, 0, len(s.times))
	for _, t := range s.times {
		n := counts[t]
		remaining := s.capacity - n
		if remaining < 0 {
			remaining = 0
		}
		out = append(out, models.TimeSlot{
			Time:              t,
			Available:         n < s.capacity,
			CurrentBookings:   n,
			MaxCapacity:       s.capacity,
			RemainingCapacity: remaining,
		})
	}
	return out
}
