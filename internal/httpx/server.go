package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"bookmarket/internal/cart"
	"bookmarket/internal/catalog"
	"bookmarket/internal/checkout"
	"bookmarket/internal/dispatch"
	"bookmarket/internal/ledger"
	"bookmarket/internal/orders"
	"bookmarket/internal/reservation"
	"bookmarket/internal/users"
)

func NewRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

type result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func ok(w http.ResponseWriter, code int, data any) {
	writeJSON(w, code, result{Success: true, Data: data})
}

func fail(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, result{Success: false, Message: msg})
}

// failErr maps the domain sentinels onto HTTP codes. Unknown errors become
// a generic 500: internal details never leak into responses.
func failErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orders.ErrNotFound),
		errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, cart.ErrItemNotFound),
		errors.Is(err, ledger.ErrWalletNotFound),
		errors.Is(err, users.ErrNotFound),
		errors.Is(err, dispatch.ErrNotFound),
		errors.Is(err, reservation.ErrNotFound):
		fail(w, http.StatusNotFound, err.Error())
	case errors.Is(err, checkout.ErrNotAllowed),
		errors.Is(err, dispatch.ErrNotYourDelivery),
		errors.Is(err, dispatch.ErrNotDriver):
		fail(w, http.StatusForbidden, err.Error())
	case errors.Is(err, dispatch.ErrAlreadyAssigned),
		errors.Is(err, dispatch.ErrExists),
		errors.Is(err, dispatch.ErrOrderCancelled),
		errors.Is(err, checkout.ErrDeliveryInProgress),
		errors.Is(err, reservation.ErrAlreadyReserved):
		fail(w, http.StatusConflict, err.Error())
	case errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, catalog.ErrInsufficientStock),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, orders.ErrInvalidTransition),
		errors.Is(err, dispatch.ErrInvalidTransition),
		errors.Is(err, reservation.ErrNotActive):
		fail(w, http.StatusBadRequest, err.Error())
	default:
		fail(w, http.StatusInternalServerError, "something went wrong")
	}
}

// userID is the acting user, passed explicitly by the gateway. No handler
// reads identity from anywhere else.
func userID(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := userID(r)
	if id == "" {
		fail(w, http.StatusUnauthorized, "missing X-User-ID header")
		return "", false
	}
	return id, true
}
