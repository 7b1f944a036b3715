package redisx

import "time"

const (
	// Checkout idempotency: idem:checkout:{user_id}:{request_id} -> order ids
	KeyIdemCheckout = "idem:checkout:%s:%s"

	// Order status cache: order_status:{order_id} -> {"status": "..."}
	KeyOrderStatus = "order_status:%s"

	// Dedup for event consumers: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
