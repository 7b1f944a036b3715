package orders

import (
	"errors"
	"time"
)

// RentalPeriod is the fixed rental window applied at purchase time.
const RentalPeriod = 30 * 24 * time.Hour

type Order struct {
	ID              string     `json:"id"`
	OrderNumber     string     `json:"order_number"`
	CustomerID      string     `json:"customer_id"`
	BookstoreID     string     `json:"bookstore_id"`
	Status          Status     `json:"status"`
	TotalCents      int64      `json:"total_cents"`
	IsPaid          bool       `json:"is_paid"`
	DeliveryAddress string     `json:"delivery_address"`
	Notes           string     `json:"notes,omitempty"`
	PaymentDate     *time.Time `json:"payment_date,omitempty"`
	DeliveryDate    *time.Time `json:"delivery_date,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// OrderItem snapshots price and quantity at purchase time, so later product
// price changes never rewrite order history.
type OrderItem struct {
	ID              string     `json:"id"`
	OrderID         string     `json:"order_id"`
	ProductID       string     `json:"product_id"`
	Quantity        int        `json:"quantity"`
	UnitPriceCents  int64      `json:"unit_price_cents"`
	TotalPriceCents int64      `json:"total_price_cents"`
	IsRental        bool       `json:"is_rental"`
	RentalStart     *time.Time `json:"rental_start,omitempty"`
	RentalEnd       *time.Time `json:"rental_end,omitempty"`
}

type Payment struct {
	ID          string    `json:"id"`
	OrderID     string    `json:"order_id"`
	AmountCents int64     `json:"amount_cents"`
	Method      string    `json:"method"`
	Status      string    `json:"status"`
	PaymentDate time.Time `json:"payment_date"`
}

const (
	PaymentMethodWallet    = "Wallet"
	PaymentStatusCompleted = "Completed"
)

var (
	ErrNotFound          = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid order status transition")
)
