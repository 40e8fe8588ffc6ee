package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/bigmove/backend/internal/address"
	"github.com/bigmove/backend/internal/apperr"
	"github.com/bigmove/backend/internal/audit"
	"github.com/bigmove/backend/internal/config"
	"github.com/bigmove/backend/internal/middleware"
	"github.com/bigmove/backend/internal/models"
	"github.com/bigmove/backend/internal/options"
	"github.com/bigmove/backend/internal/payment"
	"github.com/bigmove/backend/internal/service"
)

const maxBodyBytes = 1 << 20

type ItemStore interface {
	ListByCategory(ctx context.Context, categoryID string) ([]models.Item, error)
	GetDetails(ctx context.Context, categoryID, itemID string) (*models.ItemDetail, error)
}

type SlotResolver interface {
	Dates(ctx context.Context, option models.DeliveryOption) ([]models.AvailableDate, error)
	TimeSlots(ctx context.Context, date string, option models.DeliveryOption) (models.DeliveryTimeSlots, error)
}

type OrderService interface {
	CreateOrder(ctx context.Context, d models.OrderDraft) (*models.Order, error)
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	ListOrders(ctx context.Context, cursor string, limit int64, status models.OrderStatus) ([]*models.Order, error)
	CancelOrder(ctx context.Context, id string) (*models.Order, error)
}

type PaymentService interface {
	Confirm(ctx context.Context, in payment.ConfirmRequest) (*models.Order, error)
}

type Deps struct {
	Items    ItemStore
	Slots    SlotResolver
	Options  options.Catalog
	Orders   OrderService
	Payments PaymentService
	Distance address.DistanceCalculator
	Checkout *service.Checkout
	Audit    *audit.AuditWorkerPool
}

type Server struct {
	Deps
	user     string
	password string
	addr     string
}

func NewServer(cfg *config.Config, deps Deps) *Server {
	return &Server{
		Deps:     deps,
		user:     cfg.Username,
		password: cfg.Password,
		addr:     cfg.Addr(),
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.LogMiddleware(s.Audit, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete))

	r.Route("/api", func(r chi.Router) {
		r.Get("/categories/{id}/items", s.handleListItems)
		r.Get("/categories/{id}/items/{itemId}/details", s.handleItemDetails)

		r.Get("/delivery/available-dates", s.handleAvailableDates)
		r.Get("/delivery/delivery-slots/{deliveryType}", s.handleDeliverySlots)

		r.Get("/service-options", s.handleListOptions)
		r.Post("/service-options/calculate", s.handleCalculateOptions)

		r.Post("/distance", s.handleDistance)

		r.Post("/orders", s.handleCreateOrder)
		r.Get("/orders/{id}", s.handleGetOrder)
		r.Group(func(r chi.Router) {
			r.Use(middleware.BasicAuthMiddleware(s.user, s.password))
			r.Get("/orders", s.handleListOrders)
			r.Post("/orders/{id}/cancel", s.handleCancelOrder)
		})

		if s.Checkout != nil {
			r.Route("/checkout", s.checkoutRoutes)
		}
	})
	r.Post("/payments/confirm", s.handleConfirmPayment)

	return r
}

// Run serves until ctx is done, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.Items.ListByCategory(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleItemDetails(w http.ResponseWriter, r *http.Request) {
	item, err := s.Items.GetDetails(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "itemId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleListOptions(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.Options.List())
}

func (s *Server) handleCalculateOptions(w http.ResponseWriter, r *http.Request) {
	var sel options.Selection
	if err := decodeJSON(w, r, &sel); err != nil {
		writeError(w, r, err)
		return
	}
	applied, err := s.Options.Apply(sel)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, applied)
}

type distanceRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (s *Server) handleDistance(w http.ResponseWriter, r *http.Request) {
	var req distanceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.From == "" || req.To == "" {
		writeError(w, r, fmt.Errorf("from and to are required: %w", apperr.ErrInvalidInput))
		return
	}
	writeJSON(w, http.StatusOK, s.Distance.CalculateDistance(r.Context(), req.From, req.To))
}

func (s *Server) handleConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var req payment.ConfirmRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	o, err := s.Payments.Confirm(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	} else {
		slog.DebugContext(r.Context(), "request rejected", "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorBody{Error: apperr.Kind(err), Message: apperr.Message(err)})
}

func writeJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

// decodeJSON reads a bounded request body. An empty body leaves v untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("bad JSON: %v: %w", err, apperr.ErrInvalidInput)
	}
	return nil
}
