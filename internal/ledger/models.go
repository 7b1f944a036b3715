package ledger

import (
	"fmt"
	"time"
)

type TxnType string

const (
	TxnDeposit    TxnType = "Deposit"
	TxnWithdrawal TxnType = "Withdrawal"
	TxnPurchase   TxnType = "Purchase"
)

// Wallet is the stored-value account, one per user. All amounts are cents.
type Wallet struct {
	UserID       string    `json:"user_id"`
	BalanceCents int64     `json:"balance_cents"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Transaction is an immutable ledger entry. BalanceAfterCents always equals
// BalanceBeforeCents + AmountCents, and consecutive entries for one wallet
// chain: after(n) == before(n+1).
type Transaction struct {
	ID                 string    `json:"id"`
	UserID             string    `json:"user_id"`
	WalletID           string    `json:"wallet_id"`
	OrderID            string    `json:"order_id,omitempty"` // empty unless tied to an order
	Type               TxnType   `json:"type"`
	AmountCents        int64     `json:"amount_cents"` // signed delta
	BalanceBeforeCents int64     `json:"balance_before_cents"`
	BalanceAfterCents  int64     `json:"balance_after_cents"`
	Description        string    `json:"description"`
	CreatedAt          time.Time `json:"created_at"`
}

// Entry is a requested balance mutation before it has been applied.
type Entry struct {
	UserID      string
	Type        TxnType
	AmountCents int64 // signed delta
	OrderID     string
	Description string
}

func NewDeposit(userID string, amountCents int64) Entry {
	return Entry{UserID: userID, Type: TxnDeposit, AmountCents: amountCents,
		Description: "Wallet deposit"}
}

func NewWithdrawal(userID string, amountCents int64) Entry {
	return Entry{UserID: userID, Type: TxnWithdrawal, AmountCents: -amountCents,
		Description: "Wallet withdrawal"}
}

// NewPurchase debits an order payment, linked to the order for audit.
func NewPurchase(userID string, amountCents int64, orderID, orderNumber string) Entry {
	return Entry{UserID: userID, Type: TxnPurchase, AmountCents: -amountCents,
		OrderID: orderID, Description: fmt.Sprintf("Order %s payment", orderNumber)}
}

// NewRefund credits a cancelled order's payment back, linked to the order.
func NewRefund(userID string, amountCents int64, orderID, orderNumber string) Entry {
	return Entry{UserID: userID, Type: TxnDeposit, AmountCents: amountCents,
		OrderID: orderID, Description: fmt.Sprintf("Order %s refund", orderNumber)}
}
