package dispatch

import "errors"

var (
	ErrNotFound          = errors.New("delivery not found")
	ErrExists            = errors.New("delivery already exists for this order")
	ErrAlreadyAssigned   = errors.New("delivery already taken by another driver")
	ErrNotYourDelivery   = errors.New("delivery belongs to another driver")
	ErrNotDriver         = errors.New("user is not a delivery driver")
	ErrInvalidTransition = errors.New("invalid delivery status transition")
	ErrOrderCancelled    = errors.New("order has been cancelled")
)
