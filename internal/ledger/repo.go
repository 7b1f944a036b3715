package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bookmarket/internal/postgres"
)

type Repo struct{ DB *pgxpool.Pool }

// settle computes the resulting transaction for an entry against the
// current balance. The no-negative-balance rule lives here.
func settle(e Entry, before int64) (*Transaction, error) {
	after := before + e.AmountCents
	if after < 0 {
		return nil, ErrInsufficientFunds
	}
	return &Transaction{
		ID:                 uuid.NewString(),
		UserID:             e.UserID,
		WalletID:           e.UserID,
		OrderID:            e.OrderID,
		Type:               e.Type,
		AmountCents:        e.AmountCents,
		BalanceBeforeCents: before,
		BalanceAfterCents:  after,
		Description:        e.Description,
		CreatedAt:          time.Now().UTC(),
	}, nil
}

func (r *Repo) EnsureWallet(ctx context.Context, userID string) error {
	return r.EnsureWalletIn(ctx, r.DB, userID)
}

func (r *Repo) EnsureWalletIn(ctx context.Context, q postgres.Querier, userID string) error {
	_, err := q.Exec(ctx, `
		INSERT INTO wallets(user_id, balance_cents)
		VALUES ($1, 0)
		ON CONFLICT (user_id) DO NOTHING`, userID)
	return err
}

func (r *Repo) Wallet(ctx context.Context, userID string) (*Wallet, error) {
	var w Wallet
	err := r.DB.QueryRow(ctx, `
		SELECT user_id, balance_cents, created_at, updated_at
		FROM wallets WHERE user_id=$1`, userID).
		Scan(&w.UserID, &w.BalanceCents, &w.CreatedAt, &w.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// BalanceForUpdateIn locks the wallet row for the rest of the caller's
// transaction. Used by checkout to serialize against concurrent charges.
func (r *Repo) BalanceForUpdateIn(ctx context.Context, q postgres.Querier, userID string) (int64, error) {
	var balance int64
	err := q.QueryRow(ctx, `SELECT balance_cents FROM wallets WHERE user_id=$1 FOR UPDATE`, userID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrWalletNotFound
	}
	if err != nil {
		return 0, err
	}
	return balance, nil
}

// Apply mutates the balance and appends the matching transaction as one
// atomic unit.
func (r *Repo) Apply(ctx context.Context, e Entry) (*Transaction, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	t, err := r.ApplyIn(ctx, tx, e)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return t, nil
}

// ApplyIn runs the same mutation inside a caller-owned transaction.
func (r *Repo) ApplyIn(ctx context.Context, q postgres.Querier, e Entry) (*Transaction, error) {
	before, err := r.BalanceForUpdateIn(ctx, q, e.UserID)
	if err != nil {
		return nil, err
	}
	t, err := settle(e, before)
	if err != nil {
		return nil, err
	}
	if _, err := q.Exec(ctx, `
		UPDATE wallets SET balance_cents=$2, updated_at=now() WHERE user_id=$1`,
		e.UserID, t.BalanceAfterCents); err != nil {
		return nil, err
	}
	if _, err := q.Exec(ctx, `
		INSERT INTO transactions(id, user_id, wallet_id, order_id, type, amount_cents,
			balance_before_cents, balance_after_cents, description, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		t.ID, t.UserID, t.WalletID, t.OrderID, t.Type, t.AmountCents,
		t.BalanceBeforeCents, t.BalanceAfterCents, t.Description, t.CreatedAt); err != nil {
		return nil, err
	}
	return t, nil
}

func (r *Repo) History(ctx context.Context, userID string, limit int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.DB.Query(ctx, `
		SELECT id, user_id, wallet_id, order_id, type, amount_cents,
			balance_before_cents, balance_after_cents, description, created_at
		FROM transactions WHERE user_id=$1
		ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.WalletID, &t.OrderID, &t.Type, &t.AmountCents,
			&t.BalanceBeforeCents, &t.BalanceAfterCents, &t.Description, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
