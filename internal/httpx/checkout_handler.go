package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"bookmarket/internal/checkout"
	"bookmarket/internal/events"
	kafkax "bookmarket/internal/kafka"
	"bookmarket/internal/redisx"
)

type CheckoutHandler struct {
	Checkout *checkout.Service
	Redis    *redis.Client
	Producer *kafkax.Producer
	Service  string
}

// idemPending marks an idempotency key whose first request is still in
// flight; finished requests overwrite it with the response JSON.
const idemPending = "pending"

type checkoutReq struct {
	DeliveryAddress string `json:"delivery_address"`
	Notes           string `json:"notes"`
}

type checkoutResp struct {
	Orders     []orderSummary `json:"orders"`
	TotalCents int64          `json:"total_cents"`
	Idempotent bool           `json:"idempotent"`
}

type orderSummary struct {
	OrderID     string `json:"order_id"`
	OrderNumber string `json:"order_number"`
	BookstoreID string `json:"bookstore_id"`
	TotalCents  int64  `json:"total_cents"`
}

func (h *CheckoutHandler) Register(r *chi.Mux) {
	r.Post("/checkout", h.placeOrder)
	r.Post("/orders/{id}/cancel", h.cancelOrder)
}

func (h *CheckoutHandler) placeOrder(w http.ResponseWriter, r *http.Request) {
	uid, okID := requireUser(w, r)
	if !okID {
		return
	}
	var req checkoutReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.DeliveryAddress == "" {
		fail(w, http.StatusBadRequest, "missing delivery_address")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	// Idempotency: the key is reserved with SetNX before any work, so two
	// concurrent retries cannot both reach PlaceOrder. The loser of the
	// reservation either replays the stored response or, while the first
	// request is still running, gets a conflict.
	var idemKey string
	if reqID := r.Header.Get("Idempotency-Key"); reqID != "" {
		idemKey = fmt.Sprintf(redisx.KeyIdemCheckout, uid, reqID)
		fresh, err := h.Redis.SetNX(ctx, idemKey, idemPending, redisx.TTLIdempotency).Result()
		if err == nil && !fresh {
			cached, _ := h.Redis.Get(ctx, idemKey).Result()
			if cached == idemPending {
				fail(w, http.StatusConflict, "checkout already in progress")
				return
			}
			var resp checkoutResp
			if json.Unmarshal([]byte(cached), &resp) == nil {
				resp.Idempotent = true
				ok(w, http.StatusOK, resp)
				return
			}
		}
	}

	res, err := h.Checkout.PlaceOrder(ctx, uid, req.DeliveryAddress, req.Notes)
	if err != nil {
		// free the key so a retry can run
		if idemKey != "" {
			_ = h.Redis.Del(ctx, idemKey).Err()
		}
		failErr(w, err)
		return
	}

	resp := checkoutResp{TotalCents: res.TotalCents}
	for _, o := range res.Orders {
		resp.Orders = append(resp.Orders, orderSummary{
			OrderID:     o.ID,
			OrderNumber: o.OrderNumber,
			BookstoreID: o.BookstoreID,
			TotalCents:  o.TotalCents,
		})

		statusKey := fmt.Sprintf(redisx.KeyOrderStatus, o.ID)
		_ = h.Redis.Set(ctx, statusKey, fmt.Sprintf(`{"status":%q}`, o.Status), redisx.TTLStatusCache).Err()

		h.publishPlaced(r, o.ID, o.OrderNumber, o.CustomerID, o.BookstoreID, o.TotalCents)
	}
	if idemKey != "" {
		_ = h.Redis.Set(ctx, idemKey, kafkax.MustMarshal(resp), redisx.TTLIdempotency).Err()
	}

	ok(w, http.StatusCreated, resp)
}

func (h *CheckoutHandler) publishPlaced(r *http.Request, orderID, orderNumber, customerID, bookstoreID string, totalCents int64) {
	if h.Producer == nil {
		return
	}
	ev := events.Envelope{
		EventID:       uuid.NewString(),
		EventType:     events.EventOrderPlaced,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: orderID,
		Payload: kafkax.MustMarshal(events.OrderPlacedPayload{
			OrderID:     orderID,
			OrderNumber: orderNumber,
			CustomerID:  customerID,
			BookstoreID: bookstoreID,
			TotalCents:  totalCents,
		}),
	}
	h.Producer.Publish(events.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(events.EventOrderPlaced)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (h *CheckoutHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	uid, okID := requireUser(w, r)
	if !okID {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	orderID := chi.URLParam(r, "id")
	refund, err := h.Checkout.CancelOrder(ctx, uid, orderID)
	if err != nil {
		failErr(w, err)
		return
	}

	// the cached status is now stale
	_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyOrderStatus, orderID)).Err()

	ok(w, http.StatusOK, map[string]any{"refund": refund})
}
