package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"bookmarket/internal/checkout"
	"bookmarket/internal/redisx"
)

type stubRunner struct {
	err   error
	calls int
}

func (r *stubRunner) WithinTx(_ context.Context, _ func(checkout.Store) error) error {
	r.calls++
	return r.err
}

func newCheckoutServer(runner *stubRunner) (*chi.Mux, *redisStub) {
	rdb, stub := newStubRedis()
	h := &CheckoutHandler{Checkout: checkout.NewService(runner), Redis: rdb}
	mux := chi.NewRouter()
	h.Register(mux)
	return mux, stub
}

func postCheckout(mux *chi.Mux, idemKey string) *httptest.ResponseRecorder {
	body := strings.NewReader(`{"delivery_address":"Jl. Merdeka 1"}`)
	req := httptest.NewRequest(http.MethodPost, "/checkout", body)
	req.Header.Set("X-User-ID", "cust-1")
	if idemKey != "" {
		req.Header.Set("Idempotency-Key", idemKey)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestPlaceOrder_ReservesKeyBeforeWork(t *testing.T) {
	runner := &stubRunner{err: checkout.ErrEmptyCart}
	mux, stub := newCheckoutServer(runner)

	postCheckout(mux, "req-1")

	if len(stub.cmds) == 0 || stub.cmds[0] != "set idem:checkout:cust-1:req-1" {
		t.Fatalf("first redis command = %v, want the key reservation", stub.cmds)
	}
}

func TestPlaceOrder_ConflictWhileFirstRequestRuns(t *testing.T) {
	runner := &stubRunner{err: checkout.ErrEmptyCart}
	mux, stub := newCheckoutServer(runner)
	stub.data[fmt.Sprintf(redisx.KeyIdemCheckout, "cust-1", "req-1")] = idemPending

	rec := postCheckout(mux, "req-1")

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusConflict)
	}
	if runner.calls != 0 {
		t.Fatalf("PlaceOrder ran %d times while the key was held", runner.calls)
	}
}

func TestPlaceOrder_ReplaysStoredResponse(t *testing.T) {
	runner := &stubRunner{err: checkout.ErrEmptyCart}
	mux, stub := newCheckoutServer(runner)
	stored := `{"orders":[{"order_id":"ord-1","order_number":"ORD-ord-1","bookstore_id":"bs-1","total_cents":2000}],"total_cents":2000,"idempotent":false}`
	stub.data[fmt.Sprintf(redisx.KeyIdemCheckout, "cust-1", "req-1")] = stored

	rec := postCheckout(mux, "req-1")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if runner.calls != 0 {
		t.Fatalf("PlaceOrder ran %d times on a replay", runner.calls)
	}
	var out struct {
		Success bool         `json:"success"`
		Data    checkoutResp `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !out.Data.Idempotent {
		t.Fatal("replayed response not flagged idempotent")
	}
	if len(out.Data.Orders) != 1 || out.Data.Orders[0].OrderID != "ord-1" {
		t.Fatalf("orders = %+v, want the stored order", out.Data.Orders)
	}
}

func TestPlaceOrder_FreesKeyOnFailure(t *testing.T) {
	runner := &stubRunner{err: checkout.ErrEmptyCart}
	mux, stub := newCheckoutServer(runner)

	rec := postCheckout(mux, "req-1")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	key := fmt.Sprintf(redisx.KeyIdemCheckout, "cust-1", "req-1")
	if stub.has(key) {
		t.Fatal("reservation still held after a failed checkout")
	}
	if !stub.seen("del " + key) {
		t.Fatalf("commands %v do not free the reservation", stub.cmds)
	}
}
