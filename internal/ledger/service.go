package ledger

import "context"

// Store is the slice of the repo the service needs. *Repo satisfies it.
type Store interface {
	EnsureWallet(ctx context.Context, userID string) error
	Wallet(ctx context.Context, userID string) (*Wallet, error)
	Apply(ctx context.Context, e Entry) (*Transaction, error)
	History(ctx context.Context, userID string, limit int) ([]Transaction, error)
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Deposit credits the wallet, creating it on first use.
func (s *Service) Deposit(ctx context.Context, userID string, amountCents int64) (*Transaction, error) {
	if amountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	if err := s.store.EnsureWallet(ctx, userID); err != nil {
		return nil, err
	}
	return s.store.Apply(ctx, NewDeposit(userID, amountCents))
}

func (s *Service) Withdraw(ctx context.Context, userID string, amountCents int64) (*Transaction, error) {
	if amountCents <= 0 {
		return nil, ErrInvalidAmount
	}
	return s.store.Apply(ctx, NewWithdrawal(userID, amountCents))
}

func (s *Service) Balance(ctx context.Context, userID string) (int64, error) {
	if err := s.store.EnsureWallet(ctx, userID); err != nil {
		return 0, err
	}
	w, err := s.store.Wallet(ctx, userID)
	if err != nil {
		return 0, err
	}
	return w.BalanceCents, nil
}

func (s *Service) History(ctx context.Context, userID string, limit int) ([]Transaction, error) {
	return s.store.History(ctx, userID, limit)
}
