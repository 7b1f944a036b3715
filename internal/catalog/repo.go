package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bookmarket/internal/postgres"
)

type Repo struct{ DB *pgxpool.Pool }

const productCols = `id, bookstore_id, category_id, name, price_cents, stock_quantity, is_available, created_at, updated_at`

func scanProduct(row pgx.Row) (*Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.BookstoreID, &p.CategoryID, &p.Name, &p.PriceCents,
		&p.StockQuantity, &p.IsAvailable, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repo) Get(ctx context.Context, id string) (*Product, error) {
	return r.GetIn(ctx, r.DB, id)
}

func (r *Repo) GetIn(ctx context.Context, q postgres.Querier, id string) (*Product, error) {
	return scanProduct(q.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id=$1`, id))
}

func (r *Repo) List(ctx context.Context) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+productCols+` FROM products WHERE is_available ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.BookstoreID, &p.CategoryID, &p.Name, &p.PriceCents,
			&p.StockQuantity, &p.IsAvailable, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// CheckAvailability is a read-only stock lookup; it never mutates.
func (r *Repo) CheckAvailability(ctx context.Context, productID string, qty int) (bool, error) {
	p, err := r.Get(ctx, productID)
	if err != nil {
		return false, err
	}
	return p.IsAvailable && p.StockQuantity >= qty, nil
}

// Reserve decrements stock only if enough remains. Single conditional
// statement, so concurrent reserves cannot oversell.
func (r *Repo) Reserve(ctx context.Context, productID string, qty int) error {
	return r.ReserveIn(ctx, r.DB, productID, qty)
}

func (r *Repo) ReserveIn(ctx context.Context, q postgres.Querier, productID string, qty int) error {
	ct, err := q.Exec(ctx, `
		UPDATE products SET stock_quantity = stock_quantity - $2, updated_at = now()
		WHERE id=$1 AND stock_quantity >= $2`, productID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 1 {
		return nil
	}

	var available int
	err = q.QueryRow(ctx, `SELECT stock_quantity FROM products WHERE id=$1`, productID).Scan(&available)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrProductNotFound
	}
	if err != nil {
		return err
	}
	return &InsufficientStockError{ProductID: productID, Requested: qty, Available: available}
}

// Release puts reserved stock back. No upper bound check; trusts the caller.
func (r *Repo) Release(ctx context.Context, productID string, qty int) error {
	return r.ReleaseIn(ctx, r.DB, productID, qty)
}

func (r *Repo) ReleaseIn(ctx context.Context, q postgres.Querier, productID string, qty int) error {
	ct, err := q.Exec(ctx, `
		UPDATE products SET stock_quantity = stock_quantity + $2, updated_at = now()
		WHERE id=$1`, productID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}
