package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"bookmarket/internal/ledger"
)

type WalletHandler struct {
	Ledger *ledger.Service
}

type walletAmountReq struct {
	AmountCents int64 `json:"amount_cents"`
}

func (h *WalletHandler) Register(r *chi.Mux) {
	r.Get("/wallet", h.balance)
	r.Get("/wallet/transactions", h.transactions)
	r.Post("/wallet/deposit", h.deposit)
	r.Post("/wallet/withdraw", h.withdraw)
}

func (h *WalletHandler) balance(w http.ResponseWriter, r *http.Request) {
	uid, okID := requireUser(w, r)
	if !okID {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	balance, err := h.Ledger.Balance(ctx, uid)
	if err != nil {
		failErr(w, err)
		return
	}
	ok(w, http.StatusOK, map[string]int64{"balance_cents": balance})
}

func (h *WalletHandler) transactions(w http.ResponseWriter, r *http.Request) {
	uid, okID := requireUser(w, r)
	if !okID {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	txns, err := h.Ledger.History(ctx, uid, 50)
	if err != nil {
		failErr(w, err)
		return
	}
	ok(w, http.StatusOK, txns)
}

func (h *WalletHandler) deposit(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, h.Ledger.Deposit)
}

func (h *WalletHandler) withdraw(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, h.Ledger.Withdraw)
}

func (h *WalletHandler) apply(w http.ResponseWriter, r *http.Request,
	op func(context.Context, string, int64) (*ledger.Transaction, error)) {

	uid, okID := requireUser(w, r)
	if !okID {
		return
	}
	var req walletAmountReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	txn, err := op(ctx, uid, req.AmountCents)
	if err != nil {
		failErr(w, err)
		return
	}
	ok(w, http.StatusOK, txn)
}
