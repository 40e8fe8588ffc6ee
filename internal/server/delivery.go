package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bigmove/backend/internal/apperr"
	"github.com/bigmove/backend/internal/delivery"
	"github.com/bigmove/backend/internal/models"
)

type datesResponse struct {
	Dates   []string `json:"dates"`
	Message string   `json:"message"`
}

func parseOption(s string) (models.DeliveryOption, error) {
	opt, err := models.ParseDeliveryOption(s)
	if err != nil {
		return "", fmt.Errorf("%v: %w", err, apperr.ErrInvalidInput)
	}
	return opt, nil
}

// handleAvailableDates ignores area_code; every area shares one calendar.
func (s *Server) handleAvailableDates(w http.ResponseWriter, r *http.Request) {
	opt, err := parseOption(r.URL.Query().Get("delivery_type"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	dates, err := s.Slots.Dates(r.Context(), opt)
	if errors.Is(err, apperr.ErrOptionClosed) {
		writeJSON(w, http.StatusOK, datesResponse{Dates: []string{}, Message: delivery.SameDayClosedMessage})
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := datesResponse{Dates: make([]string, 0, len(dates))}
	for _, d := range dates {
		out.Dates = append(out.Dates, d.Date)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDeliverySlots(w http.ResponseWriter, r *http.Request) {
	opt, err := parseOption(chi.URLParam(r, "deliveryType"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	date := r.URL.Query().Get("date")
	if date == "" {
		writeError(w, r, fmt.Errorf("date is required: %w", apperr.ErrInvalidInput))
		return
	}

	slots, err := s.Slots.TimeSlots(r.Context(), date, opt)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, slots)
}
