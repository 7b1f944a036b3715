package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"bookmarket/internal/cart"
)

type CartHandler struct {
	Carts *cart.Repo
}

type addItemReq struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	IsRental  bool   `json:"is_rental"`
}

func (h *CartHandler) Register(r *chi.Mux) {
	r.Get("/cart", h.show)
	r.Get("/cart/count", h.count)
	r.Post("/cart/items", h.addItem)
	r.Delete("/cart/items/{productID}", h.removeItem)
}

func (h *CartHandler) show(w http.ResponseWriter, r *http.Request) {
	uid, okID := requireUser(w, r)
	if !okID {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	lines, err := h.Carts.Lines(ctx, uid)
	if err != nil {
		failErr(w, err)
		return
	}
	var total int64
	for _, l := range lines {
		total += l.UnitPriceCents * int64(l.Quantity)
	}
	ok(w, http.StatusOK, map[string]any{"items": lines, "total_cents": total})
}

// count backs the cart badge without pulling the full line snapshots.
func (h *CartHandler) count(w http.ResponseWriter, r *http.Request) {
	uid, okID := requireUser(w, r)
	if !okID {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	n, err := h.Carts.Count(ctx, uid)
	if err != nil {
		failErr(w, err)
		return
	}
	ok(w, http.StatusOK, map[string]int{"count": n})
}

func (h *CartHandler) addItem(w http.ResponseWriter, r *http.Request) {
	uid, okID := requireUser(w, r)
	if !okID {
		return
	}
	var req addItemReq
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

	if err := h.Carts.AddItem(ctx, uid, req.ProductID, req.Quantity, req.IsRental); err != nil {
		failErr(w, err)
		return
	}
	ok(w, http.StatusOK, nil)
}

func (h *CartHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	uid, okID := requireUser(w, r)
	if !okID {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Carts.RemoveItem(ctx, uid, chi.URLParam(r, "productID")); err != nil {
		failErr(w, err)
		return
	}
	ok(w, http.StatusOK, nil)
}
