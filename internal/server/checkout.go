package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bigmove/backend/internal/address"
	"github.com/bigmove/backend/internal/draft"
	"github.com/bigmove/backend/internal/options"
	"github.com/bigmove/backend/internal/service"
)

func (s *Server) checkoutRoutes(r chi.Router) {
	r.Post("/", s.handleStartCheckout)
	r.Route("/{sid}", func(r chi.Router) {
		r.Get("/", s.handleGetCheckout)
		r.Patch("/", s.handlePatchCheckout)
		r.Delete("/", s.handleDeleteCheckout)
		r.Post("/submit", s.handleSubmitCheckout)
		r.Get("/dates", s.handleCheckoutDates)
		r.Get("/slots", s.handleCheckoutSlots)
		r.Put("/delivery", s.handleCheckoutDelivery)
		r.Put("/options", s.handleCheckoutOptions)
		r.Post("/address/{side}/{action}", s.handleCheckoutAddress)
	})
}

func (s *Server) handleStartCheckout(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Checkout.Start(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess.View())
}

func (s *Server) handleGetCheckout(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Checkout.Get(r.Context(), chi.URLParam(r, "sid"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.View())
}

func (s *Server) handlePatchCheckout(w http.ResponseWriter, r *http.Request) {
	var p draft.Patch
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, r, err)
		return
	}
	d, err := s.Checkout.Patch(r.Context(), chi.URLParam(r, "sid"), p)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleDeleteCheckout(w http.ResponseWriter, r *http.Request) {
	if err := s.Checkout.Delete(r.Context(), chi.URLParam(r, "sid")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSubmitCheckout(w http.ResponseWriter, r *http.Request) {
	o, err := s.Checkout.Submit(r.Context(), chi.URLParam(r, "sid"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (s *Server) handleCheckoutDates(w http.ResponseWriter, r *http.Request) {
	res, err := s.Checkout.Dates(r.Context(), chi.URLParam(r, "sid"), r.URL.Query().Get("delivery_type"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleCheckoutSlots(w http.ResponseWriter, r *http.Request) {
	slots, err := s.Checkout.Slots(r.Context(), chi.URLParam(r, "sid"), r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, slots)
}

func (s *Server) handleCheckoutDelivery(w http.ResponseWriter, r *http.Request) {
	var req service.DeliveryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	d, err := s.Checkout.SetDelivery(r.Context(), chi.URLParam(r, "sid"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleCheckoutOptions(w http.ResponseWriter, r *http.Request) {
	var sel options.Selection
	if err := decodeJSON(w, r, &sel); err != nil {
		writeError(w, r, err)
		return
	}
	d, err := s.Checkout.SetOptions(r.Context(), chi.URLParam(r, "sid"), sel)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleCheckoutAddress(w http.ResponseWriter, r *http.Request) {
	side, err := address.ParseSide(chi.URLParam(r, "side"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req service.AddressRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	v, err := s.Checkout.Address(r.Context(), chi.URLParam(r, "sid"), side, chi.URLParam(r, "action"), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}
