package checkout

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"bookmarket/internal/cart"
	"bookmarket/internal/ledger"
	"bookmarket/internal/notify"
	"bookmarket/internal/orders"
)

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrNotAllowed         = errors.New("not allowed to modify this order")
	ErrDeliveryInProgress = errors.New("order delivery is already in progress")
)

// Result describes one successful PlaceOrder call: one order per bookstore
// plus the ledger transaction charged for each.
type Result struct {
	Orders       []orders.Order
	Transactions []ledger.Transaction
	TotalCents   int64
}

// Service is the order engine. All state flows through the Store inside a
// single transaction, so a failure in any group leaves nothing behind.
type Service struct {
	store TxRunner
	now   func() time.Time
	newID func() string
}

func NewService(store TxRunner) *Service {
	return &Service{store: store, now: time.Now, newID: uuid.NewString}
}

func orderNumber(id string) string { return "ORD-" + id }

// PlaceOrder turns the customer's cart into one paid order per bookstore.
// Either every group commits or none does.
func (s *Service) PlaceOrder(ctx context.Context, customerID, deliveryAddress, notes string) (*Result, error) {
	var res Result
	err := s.store.WithinTx(ctx, func(st Store) error {
		lines, err := st.Lines(ctx, customerID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		var total int64
		for _, ln := range lines {
			total += ln.UnitPriceCents * int64(ln.Quantity)
		}

		// the whole cart is checked against the balance before any mutation
		balance, err := st.WalletBalance(ctx, customerID)
		if err != nil {
			return err
		}
		if total > balance {
			return ledger.ErrInsufficientFunds
		}

		for _, group := range groupByBookstore(lines) {
			if err := s.placeGroup(ctx, st, customerID, deliveryAddress, notes, group, &res); err != nil {
				return err
			}
		}

		if err := st.ClearCart(ctx, customerID); err != nil {
			return err
		}
		res.TotalCents = total
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

type bookstoreGroup struct {
	bookstoreID string
	lines       []cart.Line
	totalCents  int64
}

// groupByBookstore splits cart lines per owning bookstore in a
// deterministic order.
func groupByBookstore(lines []cart.Line) []bookstoreGroup {
	byStore := make(map[string]*bookstoreGroup)
	for _, ln := range lines {
		g, ok := byStore[ln.BookstoreID]
		if !ok {
			g = &bookstoreGroup{bookstoreID: ln.BookstoreID}
			byStore[ln.BookstoreID] = g
		}
		g.lines = append(g.lines, ln)
		g.totalCents += ln.UnitPriceCents * int64(ln.Quantity)
	}

	ids := make([]string, 0, len(byStore))
	for id := range byStore {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]bookstoreGroup, 0, len(ids))
	for _, id := range ids {
		out = append(out, *byStore[id])
	}
	return out
}

func (s *Service) placeGroup(ctx context.Context, st Store, customerID, deliveryAddress, notes string, g bookstoreGroup, res *Result) error {
	now := s.now().UTC()
	o := orders.Order{
		ID:              s.newID(),
		OrderNumber:     orderNumber(s.newID()),
		CustomerID:      customerID,
		BookstoreID:     g.bookstoreID,
		Status:          orders.StatusPending,
		TotalCents:      g.totalCents,
		DeliveryAddress: deliveryAddress,
		Notes:           notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := st.InsertOrder(ctx, &o); err != nil {
		return err
	}

	for _, ln := range g.lines {
		it := orders.OrderItem{
			ID:              s.newID(),
			OrderID:         o.ID,
			ProductID:       ln.ProductID,
			Quantity:        ln.Quantity,
			UnitPriceCents:  ln.UnitPriceCents,
			TotalPriceCents: ln.UnitPriceCents * int64(ln.Quantity),
			IsRental:        ln.IsRental,
		}
		if ln.IsRental {
			start := now
			end := now.Add(orders.RentalPeriod)
			it.RentalStart = &start
			it.RentalEnd = &end
		}
		if err := st.InsertOrderItem(ctx, &it); err != nil {
			return err
		}
		if err := st.ReserveStock(ctx, ln.ProductID, ln.Quantity); err != nil {
			return err
		}
	}

	if err := st.InsertPayment(ctx, &orders.Payment{
		ID:          s.newID(),
		OrderID:     o.ID,
		AmountCents: g.totalCents,
		Method:      orders.PaymentMethodWallet,
		Status:      orders.PaymentStatusCompleted,
		PaymentDate: now,
	}); err != nil {
		return err
	}
	if err := st.MarkOrderPaid(ctx, o.ID, now); err != nil {
		return err
	}
	o.IsPaid = true
	o.PaymentDate = &now

	// one ledger transaction per bookstore group, linked to its order
	txn, err := st.ApplyEntry(ctx, ledger.NewPurchase(customerID, g.totalCents, o.ID, o.OrderNumber))
	if err != nil {
		return err
	}

	if err := st.InsertNotification(ctx, &notify.Notification{
		ID:        s.newID(),
		UserID:    g.bookstoreID,
		Title:     "New Order",
		Message:   fmt.Sprintf("New order #%s has been placed.", o.OrderNumber),
		Type:      notify.TypeOrder,
		CreatedAt: now,
	}); err != nil {
		return err
	}

	res.Orders = append(res.Orders, o)
	res.Transactions = append(res.Transactions, *txn)
	return nil
}

// CancelOrder reverses a Pending or Processing order: restocks every item,
// refunds the wallet if the order was paid, and marks it Cancelled, all
// within one transaction.
func (s *Service) CancelOrder(ctx context.Context, actorID, orderID string) (*ledger.Transaction, error) {
	var refund *ledger.Transaction
	err := s.store.WithinTx(ctx, func(st Store) error {
		o, err := st.OrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if actorID != o.CustomerID && actorID != o.BookstoreID {
			return ErrNotAllowed
		}
		if !orders.CanTransition(o.Status, orders.StatusCancelled) {
			return orders.ErrInvalidTransition
		}
		// a delivery already taken by a driver blocks cancellation; an
		// untaken job is withdrawn here so no driver ships a dead order
		if err := st.CancelOpenDelivery(ctx, orderID); err != nil {
			return err
		}

		items, err := st.OrderItems(ctx, orderID)
		if err != nil {
			return err
		}
		for _, it := range items {
			if err := st.ReleaseStock(ctx, it.ProductID, it.Quantity); err != nil {
				return err
			}
		}

		now := s.now().UTC()
		if o.IsPaid {
			refund, err = st.ApplyEntry(ctx, ledger.NewRefund(o.CustomerID, o.TotalCents, o.ID, o.OrderNumber))
			if err != nil {
				return err
			}
		}

		if err := st.SetOrderStatus(ctx, orderID, orders.StatusCancelled, now); err != nil {
			return err
		}
		return st.InsertNotification(ctx, &notify.Notification{
			ID:        s.newID(),
			UserID:    o.CustomerID,
			Title:     "Order Cancelled",
			Message:   fmt.Sprintf("Order #%s has been cancelled and refunded.", o.OrderNumber),
			Type:      notify.TypeOrder,
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}
	return refund, nil
}
