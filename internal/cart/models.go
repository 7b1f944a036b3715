package cart

import "errors"

// Line is a resolved cart item: the price/bookstore snapshot the order
// engine consumes, decoupled from the live product row. Cart and item rows
// themselves never leave the repo.
type Line struct {
	ProductID      string `json:"product_id"`
	ProductName    string `json:"product_name"`
	BookstoreID    string `json:"bookstore_id"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Quantity       int    `json:"quantity"`
	IsRental       bool   `json:"is_rental"`
}

var (
	ErrItemNotFound    = errors.New("item not found in cart")
	ErrInvalidQuantity = errors.New("quantity must be positive")
)
