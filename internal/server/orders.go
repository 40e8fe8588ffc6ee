package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/bigmove/backend/internal/apperr"
	"github.com/bigmove/backend/internal/models"
)

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var d models.OrderDraft
	if err := decodeJSON(w, r, &d); err != nil {
		writeError(w, r, err)
		return
	}
	o, err := s.Orders.CreateOrder(r.Context(), d)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := s.Orders.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := strconv.ParseInt(q.Get("limit"), 10, 64)
	if err != nil {
		limit = 10
	}

	status := models.OrderStatus(q.Get("status"))
	switch status {
	case "", models.OrderStatusPending, models.OrderStatusPaid, models.OrderStatusCancelled:
	default:
		writeError(w, r, fmt.Errorf("status %q: %w", status, apperr.ErrInvalidInput))
		return
	}

	orders, err := s.Orders.ListOrders(r.Context(), q.Get("cursor"), limit, status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if orders == nil {
		orders = []*models.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	o, err := s.Orders.CancelOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}
