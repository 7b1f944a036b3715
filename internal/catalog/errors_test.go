package catalog

import (
	"errors"
	"fmt"
	"testing"
)

func TestInsufficientStockError(t *testing.T) {
	err := fmt.Errorf("reserve: %w", &InsufficientStockError{ProductID: "p1", Requested: 5, Available: 2})

	if !errors.Is(err, ErrInsufficientStock) {
		t.Error("Expected errors.Is to match ErrInsufficientStock through wrapping")
	}

	var stockErr *InsufficientStockError
	if !errors.As(err, &stockErr) {
		t.Fatal("Expected errors.As to recover the typed error")
	}
	if stockErr.ProductID != "p1" || stockErr.Requested != 5 || stockErr.Available != 2 {
		t.Errorf("Unexpected fields: %+v", stockErr)
	}
}
