// Package delivery decides which delivery dates and time slots a customer
// may pick for each delivery option.
package delivery

import (
	"fmt"
	"time"

	"github.com/bigmove/backend/internal/apperr"
	"github.com/bigmove/backend/internal/models"
)

const (
	DateLayout = "2006-01-02"

	// MaxDaysAhead is the last bookable day counted from today.
	MaxDaysAhead = 28
	// RegularMinDays is the earliest regular delivery counted from today.
	RegularMinDays = 3
	// SameDayCutoffHour closes same-day delivery from this local hour on.
	SameDayCutoffHour = 14
)

const SameDayClosedMessage = "현재 시각은 당일 배송 접수가 마감된 시간입니다.\n(당일 배송 접수 가능 시간 : 14시까지)\n익일 배송이나 일반 배송을 선택해 주세요."

func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// daysFrom counts calendar days from today to d, ignoring the clock.
func daysFrom(today, d time.Time) int {
	a := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return int(b.Sub(a).Hours() / 24)
}

// IsDateDisabled reports whether d can not be chosen for option at now.
func IsDateDisabled(option models.DeliveryOption, d, now time.Time) bool {
	offset := daysFrom(StartOfDay(now), d)
	if offset > MaxDaysAhead {
		return true
	}

	switch option {
	case models.DeliverySameDay:
		return offset != 0
	case models.DeliveryNextDay:
		return offset != 1
	case models.DeliveryRegular:
		return offset < RegularMinDays
	default:
		return true
	}
}

// OptionDisabled reports whether the option itself is closed at now.
func OptionDisabled(option models.DeliveryOption, now time.Time) bool {
	return option == models.DeliverySameDay && now.Hour() >= SameDayCutoffHour
}

// EligibleDates lists the selectable dates for option, in ascending order.
func EligibleDates(option models.DeliveryOption, now time.Time) []time.Time {
	if OptionDisabled(option, now) {
		return nil
	}
	today := StartOfDay(now)
	var out []time.Time
	for i := 0; i <= MaxDaysAhead; i++ {
		d := today.AddDate(0, 0, i)
		if !IsDateDisabled(option, d, now) {
			out = append(out, d)
		}
	}
	return out
}

func ParseDate(s string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("date %q: %w", s, apperr.ErrInvalidInput)
	}
	return d, nil
}

func FormatDates(dates []time.Time) []string {
	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, d.Format(DateLayout))
	}
	return out
}
