package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"bookmarket/internal/reservation"
)

type ReservationHandler struct {
	Reservations *reservation.Repo
}

type reserveReq struct {
	ProductID string `json:"product_id"`
}

func (h *ReservationHandler) Register(r *chi.Mux) {
	r.Get("/reservations", h.list)
	r.Post("/reservations", h.reserve)
	r.Post("/reservations/{id}/cancel", h.cancel)
}

func (h *ReservationHandler) list(w http.ResponseWriter, r *http.Request) {
	uid, okID := requireUser(w, r)
	if !okID {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	list, err := h.Reservations.ListByUser(ctx, uid)
	if err != nil {
		failErr(w, err)
		return
	}
	ok(w, http.StatusOK, list)
}

func (h *ReservationHandler) reserve(w http.ResponseWriter, r *http.Request) {
	uid, okID := requireUser(w, r)
	if !okID {
		return
	}
	var req reserveReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.ProductID == "" {
		fail(w, http.StatusBadRequest, "missing product_id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := h.Reservations.Reserve(ctx, uid, req.ProductID)
	if err != nil {
		failErr(w, err)
		return
	}
	ok(w, http.StatusCreated, res)
}

func (h *ReservationHandler) cancel(w http.ResponseWriter, r *http.Request) {
	uid, okID := requireUser(w, r)
	if !okID {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Reservations.Cancel(ctx, uid, chi.URLParam(r, "id")); err != nil {
		failErr(w, err)
		return
	}
	ok(w, http.StatusOK, nil)
}
