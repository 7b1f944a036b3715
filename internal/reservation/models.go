package reservation

import "time"

type Status string

const (
	StatusReserved  Status = "Reserved"
	StatusCancelled Status = "Cancelled"
)

// Reservation is a single-unit hold on a product: one unit of stock is set
// aside until the customer cancels or picks it up in store.
type Reservation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ProductID string    `json:"product_id"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
