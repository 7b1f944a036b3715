package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"bookmarket/internal/dispatch"
	"bookmarket/internal/redisx"
)

type DeliveryHandler struct {
	Dispatch *dispatch.Service
	Redis    *redis.Client
}

type deliveryStatusReq struct {
	Status string `json:"status"`
}

func (h *DeliveryHandler) Register(r *chi.Mux) {
	r.Get("/deliveries/available", h.available)
	r.Get("/deliveries/mine", h.mine)
	r.Get("/deliveries/earnings", h.earnings)
	r.Post("/deliveries/{id}/accept", h.accept)
	r.Post("/deliveries/{id}/status", h.setStatus)
}

func (h *DeliveryHandler) available(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	list, err := h.Dispatch.Available(ctx)
	if err != nil {
		failErr(w, err)
		return
	}
	ok(w, http.StatusOK, list)
}

func (h *DeliveryHandler) mine(w http.ResponseWriter, r *http.Request) {
	uid, okID := requireUser(w, r)
	if !okID {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	list, err := h.Dispatch.ForDriver(ctx, uid)
	if err != nil {
		failErr(w, err)
		return
	}
	ok(w, http.StatusOK, list)
}

func (h *DeliveryHandler) earnings(w http.ResponseWriter, r *http.Request) {
	uid, okID := requireUser(w, r)
	if !okID {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	total, err := h.Dispatch.Earnings(ctx, uid)
	if err != nil {
		failErr(w, err)
		return
	}
	ok(w, http.StatusOK, map[string]int64{"earnings_cents": total})
}

func (h *DeliveryHandler) accept(w http.ResponseWriter, r *http.Request) {
	uid, okID := requireUser(w, r)
	if !okID {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	d, err := h.Dispatch.Accept(ctx, uid, chi.URLParam(r, "id"))
	if err != nil {
		failErr(w, err)
		return
	}
	ok(w, http.StatusOK, d)
}

func (h *DeliveryHandler) setStatus(w http.ResponseWriter, r *http.Request) {
	uid, okID := requireUser(w, r)
	if !okID {
		return
	}
	var req deliveryStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	d, err := h.Dispatch.Advance(ctx, uid, chi.URLParam(r, "id"), dispatch.Status(req.Status))
	if err != nil {
		failErr(w, err)
		return
	}

	// Delivered cascades onto the order; the cached status is now stale
	if d.Status == dispatch.StatusDelivered {
		_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyOrderStatus, d.OrderID)).Err()
	}

	ok(w, http.StatusOK, d)
}
