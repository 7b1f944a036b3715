package catalog

import "time"

type Product struct {
	ID            string    `json:"id"`
	BookstoreID   string    `json:"bookstore_id"`
	CategoryID    string    `json:"category_id"`
	Name          string    `json:"name"`
	PriceCents    int64     `json:"price_cents"`
	StockQuantity int       `json:"stock_quantity"`
	IsAvailable   bool      `json:"is_available"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
