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
	"bookmarket/internal/dispatch"
	"bookmarket/internal/events"
	kafkax "bookmarket/internal/kafka"
	"bookmarket/internal/notify"
	"bookmarket/internal/orders"
	"bookmarket/internal/redisx"
	"bookmarket/internal/users"
)

type OrdersHandler struct {
	Orders   *orders.Repo
	Users    *users.Repo
	Dispatch *dispatch.Service
	Notifier *notify.Notifier
	Redis    *redis.Client
	Producer *kafkax.Producer
	Service  string
}

type setStatusReq struct {
	Status string `json:"status"`
}

type assignDriverReq struct {
	DriverID string `json:"driver_id"`
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Get("/orders", h.list)
	r.Get("/orders/{id}", h.get)
	r.Get("/orders/{id}/status", h.getStatus)
	r.Post("/orders/{id}/status", h.setStatus)
	r.Post("/orders/{id}/assign-driver", h.assignDriver)
}

// list shows the acting user's side of the marketplace: bookstores see
// orders placed with them, everyone else sees orders they placed.
func (h *OrdersHandler) list(w http.ResponseWriter, r *http.Request) {
	uid, okID := requireUser(w, r)
	if !okID {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	isStore, err := h.Users.HasRole(ctx, uid, users.RoleBookstore)
	if err != nil {
		failErr(w, err)
		return
	}

	var list []orders.Order
	if isStore {
		list, err = h.Orders.ListByBookstore(ctx, uid)
	} else {
		list, err = h.Orders.ListByCustomer(ctx, uid)
	}
	if err != nil {
		failErr(w, err)
		return
	}
	ok(w, http.StatusOK, list)
}

func (h *OrdersHandler) get(w http.ResponseWriter, r *http.Request) {
	uid, okID := requireUser(w, r)
	if !okID {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Orders.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		failErr(w, err)
		return
	}
	if uid != o.CustomerID && uid != o.BookstoreID {
		failErr(w, checkout.ErrNotAllowed)
		return
	}

	items, err := h.Orders.Items(ctx, o.ID)
	if err != nil {
		failErr(w, err)
		return
	}
	ok(w, http.StatusOK, map[string]any{"order": o, "items": items})
}

func (h *OrdersHandler) getStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(s))
		return
	}

	o, err := h.Orders.Get(ctx, orderID)
	if err != nil {
		failErr(w, err)
		return
	}
	b := []byte(fmt.Sprintf(`{"status":%q}`, o.Status))
	_ = h.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

// setStatus is the bookstore's lever on the order lifecycle. The repo
// enforces the status machine; here we enforce who may pull the lever.
func (h *OrdersHandler) setStatus(w http.ResponseWriter, r *http.Request) {
	uid, okID := requireUser(w, r)
	if !okID {
		return
	}
	var req setStatusReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "invalid json")
		return
	}
	to := orders.Status(req.Status)
	if !orders.KnownStatus(to) {
		fail(w, http.StatusBadRequest, "unknown status")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	orderID := chi.URLParam(r, "id")
	o, err := h.Orders.Get(ctx, orderID)
	if err != nil {
		failErr(w, err)
		return
	}
	if uid != o.BookstoreID {
		if isAdmin, aerr := h.Users.HasRole(ctx, uid, users.RoleAdmin); aerr != nil || !isAdmin {
			failErr(w, checkout.ErrNotAllowed)
			return
		}
	}

	old := o.Status
	updated, err := h.Orders.Transition(ctx, orderID, to)
	if err != nil {
		failErr(w, err)
		return
	}

	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	_ = h.Redis.Set(ctx, key, fmt.Sprintf(`{"status":%q}`, updated.Status), redisx.TTLStatusCache).Err()

	if h.Notifier != nil {
		h.Notifier.Notify(ctx, updated.CustomerID, "Order Update",
			fmt.Sprintf("Order #%s is now %s.", updated.OrderNumber, updated.Status),
			notify.TypeOrder)
	}
	h.publishStatusChanged(r, updated, string(old))

	ok(w, http.StatusOK, updated)
}

func (h *OrdersHandler) publishStatusChanged(r *http.Request, o *orders.Order, old string) {
	if h.Producer == nil {
		return
	}
	ev := events.Envelope{
		EventID:       uuid.NewString(),
		EventType:     events.EventOrderStatusChanged,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: o.ID,
		Payload: kafkax.MustMarshal(events.OrderStatusChangedPayload{
			OrderID:     o.ID,
			OrderNumber: o.OrderNumber,
			CustomerID:  o.CustomerID,
			OldStatus:   old,
			NewStatus:   string(o.Status),
		}),
	}
	h.Producer.Publish(events.PartitionKey(o.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(events.EventOrderStatusChanged)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func (h *OrdersHandler) assignDriver(w http.ResponseWriter, r *http.Request) {
	uid, okID := requireUser(w, r)
	if !okID {
		return
	}
	var req assignDriverReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.DriverID == "" {
		fail(w, http.StatusBadRequest, "missing driver_id")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	isAdmin, err := h.Users.HasRole(ctx, uid, users.RoleAdmin)
	if err != nil {
		failErr(w, err)
		return
	}
	if !isAdmin {
		failErr(w, checkout.ErrNotAllowed)
		return
	}

	d, err := h.Dispatch.AssignDriver(ctx, chi.URLParam(r, "id"), req.DriverID)
	if err != nil {
		failErr(w, err)
		return
	}
	ok(w, http.StatusOK, d)
}
