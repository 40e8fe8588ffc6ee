package delivery

import (
	"fmt"

	"github.com/bigmove/backend/internal/apperr"
	"github.com/bigmove/backend/internal/models"
	"github.com/bigmove/backend/internal/pricing"
)

// Selection tracks the date page choices. Picking an upstream field clears
// every field that depends on it.
type Selection struct {
	Option    models.DeliveryOption `json:"option"`
	Date      string                `json:"date"`
	Loading   *models.TimeSlot      `json:"loading_time"`
	Unloading *models.TimeSlot      `json:"unloading_time"`
}

func (s *Selection) SelectOption(o models.DeliveryOption) {
	s.Option = o
	s.Date = ""
	s.Loading = nil
	s.Unloading = nil
}

func (s *Selection) SelectDate(date string) {
	s.Date = date
	s.Loading = nil
	s.Unloading = nil
}

// SelectLoading always clears the unloading time.
func (s *Selection) SelectLoading(at string, slots models.DeliveryTimeSlots) error {
	slot, ok := findSlot(at, slots.LoadingTimes)
	if !ok || !Bookable(slot) {
		return fmt.Errorf("loading time %s: %w", at, apperr.ErrSlotUnavailable)
	}
	s.Loading = &slot
	s.Unloading = nil
	return nil
}

func (s *Selection) SelectUnloading(at string, slots models.DeliveryTimeSlots) error {
	if s.Loading == nil {
		return fmt.Errorf("unloading before loading: %w", apperr.ErrStepIncomplete)
	}
	allowed, err := UnloadingTimes(s.Loading.Time, slots.UnloadingTimes)
	if err != nil {
		return err
	}
	slot, ok := findSlot(at, allowed)
	if !ok {
		return fmt.Errorf("unloading time %s: %w", at, apperr.ErrSlotUnavailable)
	}
	s.Unloading = &slot
	return nil
}

func (s Selection) Complete() bool {
	return s.Option != "" && s.Date != "" && s.Loading != nil && s.Unloading != nil
}

// DeliveryInfo converts a complete selection into the draft section.
func (s *Selection) DeliveryInfo() (models.DeliveryInfo, error) {
	if !s.Complete() {
		return models.DeliveryInfo{}, fmt.Errorf("delivery selection: %w", apperr.ErrStepIncomplete)
	}
	return models.DeliveryInfo{
		Date:           s.Date,
		LoadingTime:    s.Loading.Time,
		UnloadingTime:  s.Unloading.Time,
		DeliveryOption: s.Option,
		DeliveryFee:    pricing.DeliveryFee(s.Option),
	}, nil
}
