package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bookmarket/internal/orders"
)

type memStore struct {
	mu         sync.Mutex
	deliveries map[string]*Delivery
	orderState map[string]orders.Status
}

func newMemStore() *memStore {
	return &memStore{
		deliveries: make(map[string]*Delivery),
		orderState: make(map[string]orders.Status),
	}
}

func (m *memStore) CreateAvailable(_ context.Context, d *Delivery) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.deliveries {
		if other.OrderID == d.OrderID {
			return ErrExists
		}
	}
	cp := *d
	m.deliveries[d.ID] = &cp
	return nil
}

func (m *memStore) Get(_ context.Context, id string) (*Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *memStore) ByOrder(_ context.Context, orderID string) (*Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.deliveries {
		if d.OrderID == orderID {
			cp := *d
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) Available(_ context.Context) ([]Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Delivery
	for _, d := range m.deliveries {
		if d.Status == StatusAvailable {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *memStore) ByDriver(_ context.Context, driverID string) ([]Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Delivery
	for _, d := range m.deliveries {
		if d.DriverID == driverID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *memStore) Accept(_ context.Context, deliveryID, driverID string, at time.Time) (*Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[deliveryID]
	if !ok {
		return nil, ErrNotFound
	}
	if d.Status != StatusAvailable {
		return nil, ErrAlreadyAssigned
	}
	d.DriverID = driverID
	d.Status = StatusAssigned
	d.AssignedAt = &at
	d.UpdatedAt = at
	cp := *d
	return &cp, nil
}

func (m *memStore) Advance(_ context.Context, deliveryID, driverID string, to Status, at time.Time) (*Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.deliveries[deliveryID]
	if !ok {
		return nil, ErrNotFound
	}
	if m.orderState[d.OrderID] == orders.StatusCancelled {
		return nil, ErrOrderCancelled
	}
	if d.DriverID != driverID {
		return nil, ErrNotYourDelivery
	}
	if !CanTransition(d.Status, to) {
		return nil, ErrInvalidTransition
	}
	d.Status = to
	d.UpdatedAt = at
	switch to {
	case StatusPickedUp:
		d.PickupAt = &at
	case StatusDelivered:
		d.DeliveredAt = &at
		m.orderState[d.OrderID] = orders.StatusDelivered
	}
	cp := *d
	return &cp, nil
}

func (m *memStore) Assign(_ context.Context, orderID, driverID, trackingNumber, deliveryID string, at time.Time) (*Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.orderState[orderID] == orders.StatusCancelled {
		return nil, ErrOrderCancelled
	}
	for _, d := range m.deliveries {
		if d.OrderID == orderID {
			if d.Status != StatusAvailable {
				return nil, ErrAlreadyAssigned
			}
			d.DriverID = driverID
			d.Status = StatusAssigned
			d.AssignedAt = &at
			cp := *d
			return &cp, nil
		}
	}
	d := &Delivery{
		ID: deliveryID, OrderID: orderID, DriverID: driverID,
		Status: StatusAssigned, TrackingNumber: trackingNumber,
		FeeCents: DeliveryFeeCents, AssignedAt: &at, CreatedAt: at, UpdatedAt: at,
	}
	m.deliveries[deliveryID] = d
	if m.orderState[orderID] == orders.StatusPending {
		m.orderState[orderID] = orders.StatusProcessing
	}
	cp := *d
	return &cp, nil
}

func (m *memStore) EarningsCents(_ context.Context, driverID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var total int64
	for _, d := range m.deliveries {
		if d.DriverID == driverID && d.Status == StatusDelivered {
			total += d.FeeCents
		}
	}
	return total, nil
}

type staticDrivers map[string]bool

func (s staticDrivers) IsDriver(_ context.Context, id string) (bool, error) {
	return s[id], nil
}

type staticOrders map[string]*orders.Order

func (s staticOrders) Get(_ context.Context, id string) (*orders.Order, error) {
	o, ok := s[id]
	if !ok {
		return nil, orders.ErrNotFound
	}
	return o, nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingNotifier) Notify(_ context.Context, userID, title, _, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, userID+":"+title)
}

func newTestService(store *memStore) (*Service, *recordingNotifier) {
	n := &recordingNotifier{}
	svc := NewService(store,
		staticDrivers{"drv-1": true, "drv-2": true, "drv-3": true, "drv-4": true},
		staticOrders{"ord-1": {ID: "ord-1", CustomerID: "cust-1", Status: orders.StatusProcessing}},
		n)
	return svc, n
}

func TestCreateForOrder(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(store)

	d, err := svc.CreateForOrder(context.Background(), "ord-1")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if d.Status != StatusAvailable {
		t.Errorf("Expected Available, got %s", d.Status)
	}
	if d.FeeCents != DeliveryFeeCents {
		t.Errorf("Expected fee %d, got %d", DeliveryFeeCents, d.FeeCents)
	}
	if d.TrackingNumber == "" || d.TrackingNumber == "TRK-" {
		t.Errorf("Expected a tracking number, got %q", d.TrackingNumber)
	}

	// one delivery per order
	if _, err := svc.CreateForOrder(context.Background(), "ord-1"); !errors.Is(err, ErrExists) {
		t.Fatalf("Expected ErrExists, got %v", err)
	}
}

func TestAccept_NotDriver(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(store)
	d, _ := svc.CreateForOrder(context.Background(), "ord-1")

	if _, err := svc.Accept(context.Background(), "cust-1", d.ID); !errors.Is(err, ErrNotDriver) {
		t.Fatalf("Expected ErrNotDriver, got %v", err)
	}
}

// Several drivers race for the same Available delivery; exactly one may win
// and everyone else must see ErrAlreadyAssigned.
func TestAccept_Race(t *testing.T) {
	store := newMemStore()
	svc, notifier := newTestService(store)
	d, _ := svc.CreateForOrder(context.Background(), "ord-1")

	drivers := []string{"drv-1", "drv-2", "drv-3", "drv-4"}
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners, losers := 0, 0

	for _, drv := range drivers {
		wg.Add(1)
		go func(drv string) {
			defer wg.Done()
			_, err := svc.Accept(context.Background(), drv, d.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners++
			case errors.Is(err, ErrAlreadyAssigned):
				losers++
			default:
				t.Errorf("Unexpected error: %v", err)
			}
		}(drv)
	}
	wg.Wait()

	if winners != 1 || losers != len(drivers)-1 {
		t.Fatalf("Expected 1 winner and %d losers, got %d and %d", len(drivers)-1, winners, losers)
	}

	got, _ := store.Get(context.Background(), d.ID)
	if got.Status != StatusAssigned || got.DriverID == "" || got.AssignedAt == nil {
		t.Errorf("Expected assigned delivery with a driver, got %+v", got)
	}
	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	if len(notifier.calls) != 1 || notifier.calls[0] != "cust-1:Driver Assigned" {
		t.Errorf("Expected one customer notification, got %v", notifier.calls)
	}
}

func TestAdvance_FullLifecycle(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(store)
	d, _ := svc.CreateForOrder(context.Background(), "ord-1")
	if _, err := svc.Accept(context.Background(), "drv-1", d.ID); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	for _, st := range []Status{StatusPickedUp, StatusInTransit, StatusDelivered} {
		got, err := svc.Advance(context.Background(), "drv-1", d.ID, st)
		if err != nil {
			t.Fatalf("Advance to %s: %v", st, err)
		}
		if got.Status != st {
			t.Fatalf("Expected %s, got %s", st, got.Status)
		}
	}

	got, _ := store.Get(context.Background(), d.ID)
	if got.PickupAt == nil || got.DeliveredAt == nil {
		t.Errorf("Expected pickup and delivery dates stamped, got %+v", got)
	}
	if store.orderState["ord-1"] != orders.StatusDelivered {
		t.Errorf("Expected order closed as Delivered, got %s", store.orderState["ord-1"])
	}

	earned, _ := svc.Earnings(context.Background(), "drv-1")
	if earned != DeliveryFeeCents {
		t.Errorf("Expected earnings %d, got %d", DeliveryFeeCents, earned)
	}
}

func TestAdvance_NoSkipping(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(store)
	d, _ := svc.CreateForOrder(context.Background(), "ord-1")
	if _, err := svc.Accept(context.Background(), "drv-1", d.ID); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	for _, st := range []Status{StatusInTransit, StatusDelivered, StatusAvailable} {
		if _, err := svc.Advance(context.Background(), "drv-1", d.ID, st); !errors.Is(err, ErrInvalidTransition) {
			t.Fatalf("Advance to %s: expected ErrInvalidTransition, got %v", st, err)
		}
	}
	if _, err := svc.Advance(context.Background(), "drv-1", d.ID, Status("Lost")); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("Expected ErrInvalidTransition for unknown status, got %v", err)
	}
}

// A delivery whose order was cancelled after assignment must refuse every
// further step: the order was refunded and restocked, nothing may ship.
func TestAdvance_CancelledOrder(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(store)
	d, _ := svc.CreateForOrder(context.Background(), "ord-1")
	if _, err := svc.Accept(context.Background(), "drv-1", d.ID); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	store.orderState["ord-1"] = orders.StatusCancelled

	if _, err := svc.Advance(context.Background(), "drv-1", d.ID, StatusPickedUp); !errors.Is(err, ErrOrderCancelled) {
		t.Fatalf("Expected ErrOrderCancelled, got %v", err)
	}
	got, _ := store.Get(context.Background(), d.ID)
	if got.Status != StatusAssigned {
		t.Errorf("Expected delivery stuck at Assigned, got %s", got.Status)
	}
}

func TestAdvance_WrongDriver(t *testing.T) {
	store := newMemStore()
	svc, _ := newTestService(store)
	d, _ := svc.CreateForOrder(context.Background(), "ord-1")
	if _, err := svc.Accept(context.Background(), "drv-1", d.ID); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if _, err := svc.Advance(context.Background(), "drv-2", d.ID, StatusPickedUp); !errors.Is(err, ErrNotYourDelivery) {
		t.Fatalf("Expected ErrNotYourDelivery, got %v", err)
	}
}

func TestAssignDriver(t *testing.T) {
	store := newMemStore()
	store.orderState["ord-1"] = orders.StatusPending
	svc, notifier := newTestService(store)

	d, err := svc.AssignDriver(context.Background(), "ord-1", "drv-2")
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if d.DriverID != "drv-2" || d.Status != StatusAssigned {
		t.Errorf("Expected drv-2 assigned, got %+v", d)
	}
	if store.orderState["ord-1"] != orders.StatusProcessing {
		t.Errorf("Expected order moved to Processing, got %s", store.orderState["ord-1"])
	}
	if len(notifier.calls) != 1 || notifier.calls[0] != "drv-2:Delivery Assigned" {
		t.Errorf("Expected driver notification, got %v", notifier.calls)
	}

	if _, err := svc.AssignDriver(context.Background(), "ord-1", "drv-3"); !errors.Is(err, ErrAlreadyAssigned) {
		t.Fatalf("Expected ErrAlreadyAssigned, got %v", err)
	}
	if _, err := svc.AssignDriver(context.Background(), "ord-2", "cust-1"); !errors.Is(err, ErrNotDriver) {
		t.Fatalf("Expected ErrNotDriver, got %v", err)
	}
}

func TestAssignDriver_CancelledOrder(t *testing.T) {
	store := newMemStore()
	store.orderState["ord-1"] = orders.StatusCancelled
	svc, notifier := newTestService(store)

	if _, err := svc.AssignDriver(context.Background(), "ord-1", "drv-2"); !errors.Is(err, ErrOrderCancelled) {
		t.Fatalf("Expected ErrOrderCancelled, got %v", err)
	}
	if len(notifier.calls) != 0 {
		t.Errorf("Expected no notification, got %v", notifier.calls)
	}
}
