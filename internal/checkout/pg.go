package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bookmarket/internal/cart"
	"bookmarket/internal/catalog"
	"bookmarket/internal/dispatch"
	"bookmarket/internal/ledger"
	"bookmarket/internal/notify"
	"bookmarket/internal/orders"
)

// PGStore composes the domain repos under a single pgx transaction.
type PGStore struct {
	Pool       *pgxpool.Pool
	Carts      *cart.Repo
	Wallets    *ledger.Repo
	Products   *catalog.Repo
	Orders     *orders.Repo
	Notes      *notify.Repo
	Deliveries *dispatch.Repo
}

func (s *PGStore) WithinTx(ctx context.Context, fn func(Store) error) error {
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := fn(&txStore{q: tx, pg: s}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// txStore binds every repo call to the open transaction.
type txStore struct {
	q  pgx.Tx
	pg *PGStore
}

func (s *txStore) Lines(ctx context.Context, userID string) ([]cart.Line, error) {
	return s.pg.Carts.LinesIn(ctx, s.q, userID)
}

func (s *txStore) ClearCart(ctx context.Context, userID string) error {
	return s.pg.Carts.ClearIn(ctx, s.q, userID)
}

func (s *txStore) WalletBalance(ctx context.Context, userID string) (int64, error) {
	return s.pg.Wallets.BalanceForUpdateIn(ctx, s.q, userID)
}

func (s *txStore) ApplyEntry(ctx context.Context, e ledger.Entry) (*ledger.Transaction, error) {
	return s.pg.Wallets.ApplyIn(ctx, s.q, e)
}

func (s *txStore) ReserveStock(ctx context.Context, productID string, qty int) error {
	return s.pg.Products.ReserveIn(ctx, s.q, productID, qty)
}

func (s *txStore) ReleaseStock(ctx context.Context, productID string, qty int) error {
	return s.pg.Products.ReleaseIn(ctx, s.q, productID, qty)
}

func (s *txStore) InsertOrder(ctx context.Context, o *orders.Order) error {
	return s.pg.Orders.InsertIn(ctx, s.q, o)
}

func (s *txStore) InsertOrderItem(ctx context.Context, it *orders.OrderItem) error {
	return s.pg.Orders.InsertItemIn(ctx, s.q, it)
}

func (s *txStore) InsertPayment(ctx context.Context, p *orders.Payment) error {
	return s.pg.Orders.InsertPaymentIn(ctx, s.q, p)
}

func (s *txStore) MarkOrderPaid(ctx context.Context, orderID string, at time.Time) error {
	return s.pg.Orders.MarkPaidIn(ctx, s.q, orderID, at)
}

func (s *txStore) OrderForUpdate(ctx context.Context, orderID string) (*orders.Order, error) {
	return s.pg.Orders.GetForUpdateIn(ctx, s.q, orderID)
}

func (s *txStore) OrderItems(ctx context.Context, orderID string) ([]orders.OrderItem, error) {
	return s.pg.Orders.ItemsIn(ctx, s.q, orderID)
}

func (s *txStore) SetOrderStatus(ctx context.Context, orderID string, st orders.Status, at time.Time) error {
	return s.pg.Orders.SetStatusIn(ctx, s.q, orderID, st, at)
}

func (s *txStore) CancelOpenDelivery(ctx context.Context, orderID string) error {
	err := s.pg.Deliveries.CancelOpenIn(ctx, s.q, orderID)
	if errors.Is(err, dispatch.ErrAlreadyAssigned) {
		return ErrDeliveryInProgress
	}
	return err
}

func (s *txStore) InsertNotification(ctx context.Context, n *notify.Notification) error {
	return s.pg.Notes.InsertIn(ctx, s.q, n)
}
