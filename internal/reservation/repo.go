package reservation

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bookmarket/internal/catalog"
)

var (
	ErrNotFound        = errors.New("reservation not found")
	ErrAlreadyReserved = errors.New("product already reserved by this user")
	ErrNotActive       = errors.New("reservation is not active")
)

type Repo struct {
	DB       *pgxpool.Pool
	Products *catalog.Repo
}

// Reserve holds one unit of the product for the user. A user may hold at
// most one active reservation per product; the unit comes straight out of
// sellable stock so carts and reservations never promise the same copy.
func (r *Repo) Reserve(ctx context.Context, userID, productID string) (*Reservation, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	var existing int
	err = tx.QueryRow(ctx, `
		SELECT count(*) FROM reservations
		WHERE user_id = $1 AND product_id = $2 AND status = $3`,
		userID, productID, StatusReserved).Scan(&existing)
	if err != nil {
		return nil, err
	}
	if existing > 0 {
		return nil, ErrAlreadyReserved
	}

	if err := r.Products.ReserveIn(ctx, tx, productID, 1); err != nil {
		return nil, err
	}

	res := &Reservation{
		ID:        uuid.NewString(),
		UserID:    userID,
		ProductID: productID,
		Status:    StatusReserved,
		CreatedAt: time.Now().UTC(),
	}
	res.UpdatedAt = res.CreatedAt
	if _, err := tx.Exec(ctx, `
		INSERT INTO reservations (id, user_id, product_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)`,
		res.ID, res.UserID, res.ProductID, res.Status, res.CreatedAt); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return res, nil
}

// Cancel releases the held unit back into stock.
func (r *Repo) Cancel(ctx context.Context, userID, id string) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var res Reservation
	err = tx.QueryRow(ctx, `
		SELECT id, user_id, product_id, status, created_at, updated_at
		FROM reservations WHERE id = $1 AND user_id = $2 FOR UPDATE`,
		id, userID).Scan(&res.ID, &res.UserID, &res.ProductID, &res.Status, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	if res.Status != StatusReserved {
		return ErrNotActive
	}

	if err := r.Products.ReleaseIn(ctx, tx, res.ProductID, 1); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE reservations SET status = $2, updated_at = now() WHERE id = $1`,
		id, StatusCancelled); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *Repo) ListByUser(ctx context.Context, userID string) ([]Reservation, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, user_id, product_id, status, created_at, updated_at
		FROM reservations WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Reservation
	for rows.Next() {
		var res Reservation
		if err := rows.Scan(&res.ID, &res.UserID, &res.ProductID, &res.Status,
			&res.CreatedAt, &res.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}
