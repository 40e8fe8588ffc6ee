package delivery

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bigmove/backend/internal/apperr"
	"github.com/bigmove/backend/internal/models"
)

// Hour extracts HH from an "HH:MM" slot time.
func Hour(t string) (int, error) {
	hh, mm, ok := strings.Cut(t, ":")
	if !ok || len(hh) == 0 || len(mm) != 2 {
		return 0, fmt.Errorf("slot time %q: %w", t, apperr.ErrInvalidInput)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("slot time %q: %w", t, apperr.ErrInvalidInput)
	}
	return h, nil
}

func Bookable(s models.TimeSlot) bool {
	return s.CurrentBookings < s.MaxCapacity
}

// UnloadingTimes keeps the slots strictly later than the loading hour that
// still have capacity. Without a loading time nothing is offered.
func UnloadingTimes(loading string, slots []models.TimeSlot) ([]models.TimeSlot, error) {
	out := []models.TimeSlot{}
	if loading == "" {
		return out, nil
	}
	loadingHour, err := Hour(loading)
	if err != nil {
		return nil, err
	}
	for _, s := range slots {
		h, err := Hour(s.Time)
		if err != nil {
			continue
		}
		if h > loadingHour && Bookable(s) {
			out = append(out, s)
		}
	}
	return out, nil
}

func findSlot(at string, slots []models.TimeSlot) (models.TimeSlot, bool) {
	for _, s := range slots {
		if s.Time == at {
			return s, true
		}
	}
	return models.TimeSlot{}, false
}
