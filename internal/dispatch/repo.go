package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bookmarket/internal/orders"
	"bookmarket/internal/postgres"
)

const deliveryCols = `id, order_id, driver_id, status, tracking_number, fee_cents,
	assigned_at, pickup_at, delivered_at, created_at, updated_at`

type Repo struct {
	DB     *pgxpool.Pool
	Orders *orders.Repo
}

func scanDelivery(row pgx.Row) (*Delivery, error) {
	var d Delivery
	err := row.Scan(&d.ID, &d.OrderID, &d.DriverID, &d.Status, &d.TrackingNumber,
		&d.FeeCents, &d.AssignedAt, &d.PickupAt, &d.DeliveredAt, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// CreateAvailable inserts an unassigned delivery for the order. One delivery
// per order: a second insert for the same order returns ErrExists, which
// also makes redelivered events harmless.
func (r *Repo) CreateAvailable(ctx context.Context, d *Delivery) error {
	tag, err := r.DB.Exec(ctx, `
		INSERT INTO deliveries (id, order_id, driver_id, status, tracking_number, fee_cents, created_at, updated_at)
		VALUES ($1, $2, '', $3, $4, $5, now(), now())
		ON CONFLICT (order_id) DO NOTHING`,
		d.ID, d.OrderID, StatusAvailable, d.TrackingNumber, d.FeeCents)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrExists
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, id string) (*Delivery, error) {
	return scanDelivery(r.DB.QueryRow(ctx,
		`SELECT `+deliveryCols+` FROM deliveries WHERE id = $1`, id))
}

func (r *Repo) ByOrder(ctx context.Context, orderID string) (*Delivery, error) {
	return scanDelivery(r.DB.QueryRow(ctx,
		`SELECT `+deliveryCols+` FROM deliveries WHERE order_id = $1`, orderID))
}

func (r *Repo) Available(ctx context.Context) ([]Delivery, error) {
	return r.list(ctx, `SELECT `+deliveryCols+` FROM deliveries WHERE status = $1 ORDER BY created_at`, StatusAvailable)
}

func (r *Repo) ByDriver(ctx context.Context, driverID string) ([]Delivery, error) {
	return r.list(ctx, `SELECT `+deliveryCols+` FROM deliveries WHERE driver_id = $1 ORDER BY created_at DESC`, driverID)
}

func (r *Repo) list(ctx context.Context, query string, arg any) ([]Delivery, error) {
	rows, err := r.DB.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Delivery
	for rows.Next() {
		d, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

// Accept claims an Available delivery for the driver. The status predicate
// in the UPDATE decides the race: concurrent drivers hit the same row and
// exactly one sees an affected row, the rest get ErrAlreadyAssigned.
func (r *Repo) Accept(ctx context.Context, deliveryID, driverID string, at time.Time) (*Delivery, error) {
	d, err := scanDelivery(r.DB.QueryRow(ctx, `
		UPDATE deliveries
		SET driver_id = $2, status = $3, assigned_at = $4, updated_at = $4
		WHERE id = $1 AND status = $5
		RETURNING `+deliveryCols,
		deliveryID, driverID, StatusAssigned, at, StatusAvailable))
	if errors.Is(err, ErrNotFound) {
		if _, gerr := r.Get(ctx, deliveryID); gerr == nil {
			return nil, ErrAlreadyAssigned
		}
		return nil, ErrNotFound
	}
	return d, err
}

// Advance moves a delivery one step forward on behalf of its driver,
// stamping pickup and delivery dates. Reaching Delivered also closes the
// order in the same transaction. A cancelled order blocks every step: the
// goods were restocked and the customer refunded, so nothing may ship.
func (r *Repo) Advance(ctx context.Context, deliveryID, driverID string, to Status, at time.Time) (*Delivery, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// lock the order before the delivery, same order as cancellation takes
	var orderID string
	err = tx.QueryRow(ctx, `SELECT order_id FROM deliveries WHERE id = $1`, deliveryID).Scan(&orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	o, err := r.Orders.GetForUpdateIn(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status == orders.StatusCancelled {
		return nil, ErrOrderCancelled
	}

	d, err := scanDelivery(tx.QueryRow(ctx,
		`SELECT `+deliveryCols+` FROM deliveries WHERE id = $1 FOR UPDATE`, deliveryID))
	if err != nil {
		return nil, err
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
	}

	if _, err := tx.Exec(ctx, `
		UPDATE deliveries
		SET status = $2, pickup_at = $3, delivered_at = $4, updated_at = $5
		WHERE id = $1`,
		d.ID, d.Status, d.PickupAt, d.DeliveredAt, at); err != nil {
		return nil, err
	}

	if to == StatusDelivered {
		if err := r.Orders.SetDeliveredIn(ctx, tx, d.OrderID, at); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

// Assign is the admin override: bind a driver to the order's delivery,
// creating the delivery if the dispatcher has not produced one yet, and
// nudge a Pending order into Processing.
func (r *Repo) Assign(ctx context.Context, orderID, driverID, trackingNumber, deliveryID string, at time.Time) (*Delivery, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	o, err := r.Orders.GetForUpdateIn(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status == orders.StatusCancelled {
		return nil, ErrOrderCancelled
	}

	d, err := scanDelivery(tx.QueryRow(ctx,
		`SELECT `+deliveryCols+` FROM deliveries WHERE order_id = $1 FOR UPDATE`, orderID))
	switch {
	case errors.Is(err, ErrNotFound):
		d, err = scanDelivery(tx.QueryRow(ctx, `
			INSERT INTO deliveries (id, order_id, driver_id, status, tracking_number, fee_cents, assigned_at, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
			RETURNING `+deliveryCols,
			deliveryID, orderID, driverID, StatusAssigned, trackingNumber, DeliveryFeeCents, at))
		if err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		if d.Status != StatusAvailable {
			return nil, ErrAlreadyAssigned
		}
		d, err = scanDelivery(tx.QueryRow(ctx, `
			UPDATE deliveries
			SET driver_id = $2, status = $3, assigned_at = $4, updated_at = $4
			WHERE id = $1
			RETURNING `+deliveryCols,
			d.ID, driverID, StatusAssigned, at))
		if err != nil {
			return nil, err
		}
	}

	if o.Status == orders.StatusPending {
		if err := r.Orders.SetStatusIn(ctx, tx, orderID, orders.StatusProcessing, at); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return d, nil
}

// CancelOpenIn withdraws the order's delivery job inside the caller's
// transaction. Only a job no driver has taken may be withdrawn; once a
// delivery is past Available the goods are in motion and the caller gets
// ErrAlreadyAssigned instead.
func (r *Repo) CancelOpenIn(ctx context.Context, q postgres.Querier, orderID string) error {
	var st Status
	err := q.QueryRow(ctx, `SELECT status FROM deliveries WHERE order_id = $1 FOR UPDATE`, orderID).Scan(&st)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	if err != nil {
		return err
	}
	if st != StatusAvailable {
		return ErrAlreadyAssigned
	}
	_, err = q.Exec(ctx, `DELETE FROM deliveries WHERE order_id = $1`, orderID)
	return err
}

// EarningsCents sums the fees of the driver's completed deliveries.
func (r *Repo) EarningsCents(ctx context.Context, driverID string) (int64, error) {
	var total int64
	err := r.DB.QueryRow(ctx, `
		SELECT COALESCE(SUM(fee_cents), 0) FROM deliveries
		WHERE driver_id = $1 AND status = $2`,
		driverID, StatusDelivered).Scan(&total)
	return total, err
}
