package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"bookmarket/internal/notify"
	"bookmarket/internal/orders"
)

type Store interface {
	CreateAvailable(ctx context.Context, d *Delivery) error
	Get(ctx context.Context, id string) (*Delivery, error)
	ByOrder(ctx context.Context, orderID string) (*Delivery, error)
	Available(ctx context.Context) ([]Delivery, error)
	ByDriver(ctx context.Context, driverID string) ([]Delivery, error)
	Accept(ctx context.Context, deliveryID, driverID string, at time.Time) (*Delivery, error)
	Advance(ctx context.Context, deliveryID, driverID string, to Status, at time.Time) (*Delivery, error)
	Assign(ctx context.Context, orderID, driverID, trackingNumber, deliveryID string, at time.Time) (*Delivery, error)
	EarningsCents(ctx context.Context, driverID string) (int64, error)
}

type DriverDirectory interface {
	IsDriver(ctx context.Context, id string) (bool, error)
}

type OrderDirectory interface {
	Get(ctx context.Context, id string) (*orders.Order, error)
}

type Notifier interface {
	Notify(ctx context.Context, userID, title, message, kind string)
}

type Service struct {
	store    Store
	drivers  DriverDirectory
	orders   OrderDirectory
	notifier Notifier

	now   func() time.Time
	newID func() string
}

func NewService(store Store, drivers DriverDirectory, dir OrderDirectory, notifier Notifier) *Service {
	return &Service{
		store:    store,
		drivers:  drivers,
		orders:   dir,
		notifier: notifier,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

func trackingNumber(id string) string { return "TRK-" + id }

// CreateForOrder opens a delivery job that any driver can pick up.
func (s *Service) CreateForOrder(ctx context.Context, orderID string) (*Delivery, error) {
	id := s.newID()
	d := &Delivery{
		ID:             id,
		OrderID:        orderID,
		Status:         StatusAvailable,
		TrackingNumber: trackingNumber(id),
		FeeCents:       DeliveryFeeCents,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.store.CreateAvailable(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) Available(ctx context.Context) ([]Delivery, error) {
	return s.store.Available(ctx)
}

func (s *Service) ForDriver(ctx context.Context, driverID string) ([]Delivery, error) {
	return s.store.ByDriver(ctx, driverID)
}

func (s *Service) Earnings(ctx context.Context, driverID string) (int64, error) {
	return s.store.EarningsCents(ctx, driverID)
}

// Accept lets a driver claim an Available delivery. First come first
// served: losers of the race get ErrAlreadyAssigned.
func (s *Service) Accept(ctx context.Context, driverID, deliveryID string) (*Delivery, error) {
	ok, err := s.drivers.IsDriver(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotDriver
	}

	d, err := s.store.Accept(ctx, deliveryID, driverID, s.now().UTC())
	if err != nil {
		return nil, err
	}
	s.notifyCustomer(ctx, d, "Driver Assigned",
		"A driver has accepted your delivery %s.")
	return d, nil
}

// Advance moves the driver's delivery one step forward.
func (s *Service) Advance(ctx context.Context, driverID, deliveryID string, to Status) (*Delivery, error) {
	if !KnownStatus(to) {
		return nil, ErrInvalidTransition
	}
	d, err := s.store.Advance(ctx, deliveryID, driverID, to, s.now().UTC())
	if err != nil {
		return nil, err
	}
	switch to {
	case StatusPickedUp:
		s.notifyCustomer(ctx, d, "Order Picked Up", "Your delivery %s has been picked up.")
	case StatusInTransit:
		s.notifyCustomer(ctx, d, "Order In Transit", "Your delivery %s is on its way.")
	case StatusDelivered:
		s.notifyCustomer(ctx, d, "Order Delivered", "Your delivery %s has arrived.")
	}
	return d, nil
}

// AssignDriver is the admin path: pin a specific driver onto an order.
func (s *Service) AssignDriver(ctx context.Context, orderID, driverID string) (*Delivery, error) {
	ok, err := s.drivers.IsDriver(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotDriver
	}

	id := s.newID()
	d, err := s.store.Assign(ctx, orderID, driverID, trackingNumber(id), id, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.Notify(ctx, driverID, "Delivery Assigned",
			fmt.Sprintf("You have been assigned delivery %s.", d.TrackingNumber),
			notify.TypeDelivery)
	}
	return d, nil
}

func (s *Service) notifyCustomer(ctx context.Context, d *Delivery, title, format string) {
	if s.notifier == nil {
		return
	}
	o, err := s.orders.Get(ctx, d.OrderID)
	if err != nil {
		return
	}
	s.notifier.Notify(ctx, o.CustomerID, title,
		fmt.Sprintf(format, d.TrackingNumber), notify.TypeDelivery)
}
