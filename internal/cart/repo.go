package cart

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bookmarket/internal/catalog"
	"bookmarket/internal/postgres"
)

type Repo struct{ DB *pgxpool.Pool }

// ensureCart creates the user's cart lazily on first use.
func (r *Repo) ensureCart(ctx context.Context, q postgres.Querier, userID string) (string, error) {
	var id string
	err := q.QueryRow(ctx, `SELECT id FROM carts WHERE user_id=$1`, userID).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}
	id = uuid.NewString()
	if _, err := q.Exec(ctx, `INSERT INTO carts(id, user_id) VALUES ($1,$2)`, id, userID); err != nil {
		return "", err
	}
	return id, nil
}

// AddItem merges quantity into an existing line, capped by the product's
// current stock (same rule the storefront applies at add time).
func (r *Repo) AddItem(ctx context.Context, userID, productID string, qty int, isRental bool) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	cartID, err := r.ensureCart(ctx, tx, userID)
	if err != nil {
		return err
	}

	var stock int
	var available bool
	err = tx.QueryRow(ctx, `SELECT stock_quantity, is_available FROM products WHERE id=$1 FOR UPDATE`, productID).
		Scan(&stock, &available)
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.ErrProductNotFound
	}
	if err != nil {
		return err
	}
	if !available {
		return catalog.ErrProductNotFound
	}

	var have int
	err = tx.QueryRow(ctx, `SELECT quantity FROM cart_items WHERE cart_id=$1 AND product_id=$2`, cartID, productID).Scan(&have)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	if stock < have+qty {
		return &catalog.InsufficientStockError{ProductID: productID, Requested: have + qty, Available: stock}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO cart_items(id, cart_id, product_id, quantity, is_rental)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (cart_id, product_id)
		DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity`,
		uuid.NewString(), cartID, productID, qty, isRental)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *Repo) RemoveItem(ctx context.Context, userID, productID string) error {
	ct, err := r.DB.Exec(ctx, `
		DELETE FROM cart_items
		WHERE product_id=$2 AND cart_id = (SELECT id FROM carts WHERE user_id=$1)`,
		userID, productID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrItemNotFound
	}
	return nil
}

// Lines resolves items against the catalog for display or checkout.
func (r *Repo) Lines(ctx context.Context, userID string) ([]Line, error) {
	return r.LinesIn(ctx, r.DB, userID)
}

func (r *Repo) LinesIn(ctx context.Context, q postgres.Querier, userID string) ([]Line, error) {
	rows, err := q.Query(ctx, `
		SELECT ci.product_id, p.name, p.bookstore_id, p.price_cents, ci.quantity, ci.is_rental
		FROM cart_items ci
		JOIN carts c ON c.id = ci.cart_id
		JOIN products p ON p.id = ci.product_id
		WHERE c.user_id=$1
		ORDER BY p.bookstore_id, p.name`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Line
	for rows.Next() {
		var ln Line
		if err := rows.Scan(&ln.ProductID, &ln.ProductName, &ln.BookstoreID,
			&ln.UnitPriceCents, &ln.Quantity, &ln.IsRental); err != nil {
			return nil, err
		}
		out = append(out, ln)
	}
	return out, rows.Err()
}

func (r *Repo) Count(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.DB.QueryRow(ctx, `
		SELECT COALESCE(SUM(ci.quantity), 0)
		FROM cart_items ci JOIN carts c ON c.id = ci.cart_id
		WHERE c.user_id=$1`, userID).Scan(&n)
	return n, err
}

// Clear removes the items but keeps the cart row.
func (r *Repo) Clear(ctx context.Context, userID string) error {
	return r.ClearIn(ctx, r.DB, userID)
}

func (r *Repo) ClearIn(ctx context.Context, q postgres.Querier, userID string) error {
	_, err := q.Exec(ctx, `
		DELETE FROM cart_items WHERE cart_id = (SELECT id FROM carts WHERE user_id=$1)`, userID)
	return err
}
