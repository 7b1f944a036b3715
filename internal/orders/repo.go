package orders

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bookmarket/internal/postgres"
)

type Repo struct{ DB *pgxpool.Pool }

const orderCols = `id, order_number, customer_id, bookstore_id, status, total_cents, is_paid,
	delivery_address, notes, payment_date, delivery_date, created_at, updated_at`

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.OrderNumber, &o.CustomerID, &o.BookstoreID, &o.Status,
		&o.TotalCents, &o.IsPaid, &o.DeliveryAddress, &o.Notes,
		&o.PaymentDate, &o.DeliveryDate, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *Repo) InsertIn(ctx context.Context, q postgres.Querier, o *Order) error {
	_, err := q.Exec(ctx, `
		INSERT INTO orders(id, order_number, customer_id, bookstore_id, status, total_cents,
			is_paid, delivery_address, notes, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		o.ID, o.OrderNumber, o.CustomerID, o.BookstoreID, o.Status, o.TotalCents,
		o.IsPaid, o.DeliveryAddress, o.Notes, o.CreatedAt, o.UpdatedAt)
	return err
}

func (r *Repo) InsertItemIn(ctx context.Context, q postgres.Querier, it *OrderItem) error {
	_, err := q.Exec(ctx, `
		INSERT INTO order_items(id, order_id, product_id, quantity, unit_price_cents,
			total_price_cents, is_rental, rental_start, rental_end)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		it.ID, it.OrderID, it.ProductID, it.Quantity, it.UnitPriceCents,
		it.TotalPriceCents, it.IsRental, it.RentalStart, it.RentalEnd)
	return err
}

func (r *Repo) InsertPaymentIn(ctx context.Context, q postgres.Querier, p *Payment) error {
	_, err := q.Exec(ctx, `
		INSERT INTO payments(id, order_id, amount_cents, method, status, payment_date)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		p.ID, p.OrderID, p.AmountCents, p.Method, p.Status, p.PaymentDate)
	return err
}

func (r *Repo) MarkPaidIn(ctx context.Context, q postgres.Querier, orderID string, at time.Time) error {
	ct, err := q.Exec(ctx, `
		UPDATE orders SET is_paid=true, payment_date=$2, updated_at=$2 WHERE id=$1`, orderID, at)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, id string) (*Order, error) {
	return r.GetIn(ctx, r.DB, id)
}

func (r *Repo) GetIn(ctx context.Context, q postgres.Querier, id string) (*Order, error) {
	return scanOrder(q.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1`, id))
}

func (r *Repo) GetForUpdateIn(ctx context.Context, q postgres.Querier, id string) (*Order, error) {
	return scanOrder(q.QueryRow(ctx, `SELECT `+orderCols+` FROM orders WHERE id=$1 FOR UPDATE`, id))
}

func (r *Repo) Items(ctx context.Context, orderID string) ([]OrderItem, error) {
	return r.ItemsIn(ctx, r.DB, orderID)
}

func (r *Repo) ItemsIn(ctx context.Context, q postgres.Querier, orderID string) ([]OrderItem, error) {
	rows, err := q.Query(ctx, `
		SELECT id, order_id, product_id, quantity, unit_price_cents, total_price_cents,
			is_rental, rental_start, rental_end
		FROM order_items WHERE order_id=$1`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity,
			&it.UnitPriceCents, &it.TotalPriceCents, &it.IsRental,
			&it.RentalStart, &it.RentalEnd); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *Repo) SetStatusIn(ctx context.Context, q postgres.Querier, orderID string, st Status, at time.Time) error {
	ct, err := q.Exec(ctx, `
		UPDATE orders SET status=$2, updated_at=$3 WHERE id=$1`, orderID, st, at)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetDeliveredIn marks the terminal state reached from delivery dispatch.
func (r *Repo) SetDeliveredIn(ctx context.Context, q postgres.Querier, orderID string, at time.Time) error {
	ct, err := q.Exec(ctx, `
		UPDATE orders SET status=$2, delivery_date=$3, updated_at=$3 WHERE id=$1`,
		orderID, StatusDelivered, at)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Transition validates against the state machine and applies the change in
// one transaction, locking the row so concurrent updates serialize.
func (r *Repo) Transition(ctx context.Context, orderID string, to Status) (*Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	o, err := r.GetForUpdateIn(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(o.Status, to) {
		return nil, ErrInvalidTransition
	}

	now := time.Now().UTC()
	if to == StatusShipped || to == StatusOutForDelivery {
		// estimated delivery: next day
		eta := now.Add(24 * time.Hour)
		if _, err := tx.Exec(ctx, `
			UPDATE orders SET status=$2, delivery_date=$3, updated_at=$4 WHERE id=$1`,
			orderID, to, eta, now); err != nil {
			return nil, err
		}
		o.DeliveryDate = &eta
	} else {
		if err := r.SetStatusIn(ctx, tx, orderID, to, now); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	o.Status = to
	o.UpdatedAt = now
	return o, nil
}

func (r *Repo) ListByCustomer(ctx context.Context, customerID string) ([]Order, error) {
	return r.list(ctx, `customer_id`, customerID)
}

func (r *Repo) ListByBookstore(ctx context.Context, bookstoreID string) ([]Order, error) {
	return r.list(ctx, `bookstore_id`, bookstoreID)
}

func (r *Repo) list(ctx context.Context, col, id string) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+orderCols+` FROM orders WHERE `+col+`=$1 ORDER BY created_at DESC`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.OrderNumber, &o.CustomerID, &o.BookstoreID, &o.Status,
			&o.TotalCents, &o.IsPaid, &o.DeliveryAddress, &o.Notes,
			&o.PaymentDate, &o.DeliveryDate, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
