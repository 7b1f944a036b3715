package checkout

import (
	"context"
	"time"

	"bookmarket/internal/cart"
	"bookmarket/internal/ledger"
	"bookmarket/internal/notify"
	"bookmarket/internal/orders"
)

// Store is everything the order engine touches inside one transaction.
type Store interface {
	Lines(ctx context.Context, userID string) ([]cart.Line, error)
	ClearCart(ctx context.Context, userID string) error

	// WalletBalance locks the wallet row for the rest of the transaction.
	WalletBalance(ctx context.Context, userID string) (int64, error)
	ApplyEntry(ctx context.Context, e ledger.Entry) (*ledger.Transaction, error)

	ReserveStock(ctx context.Context, productID string, qty int) error
	ReleaseStock(ctx context.Context, productID string, qty int) error

	InsertOrder(ctx context.Context, o *orders.Order) error
	InsertOrderItem(ctx context.Context, it *orders.OrderItem) error
	InsertPayment(ctx context.Context, p *orders.Payment) error
	MarkOrderPaid(ctx context.Context, orderID string, at time.Time) error
	OrderForUpdate(ctx context.Context, orderID string) (*orders.Order, error)
	OrderItems(ctx context.Context, orderID string) ([]orders.OrderItem, error)
	SetOrderStatus(ctx context.Context, orderID string, st orders.Status, at time.Time) error

	// CancelOpenDelivery withdraws the order's delivery job if no driver
	// has taken it yet; otherwise it returns ErrDeliveryInProgress.
	CancelOpenDelivery(ctx context.Context, orderID string) error

	InsertNotification(ctx context.Context, n *notify.Notification) error
}

// TxRunner commits everything fn did, or nothing.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(Store) error) error
}
