package dispatch

import "time"

// DeliveryFeeCents is the flat fee credited to the driver once a delivery
// reaches Delivered.
const DeliveryFeeCents int64 = 5000

type Delivery struct {
	ID             string     `json:"id"`
	OrderID        string     `json:"order_id"`
	DriverID       string     `json:"driver_id,omitempty"` // empty until a driver takes the job
	Status         Status     `json:"status"`
	TrackingNumber string     `json:"tracking_number"`
	FeeCents       int64      `json:"fee_cents"`
	AssignedAt     *time.Time `json:"assigned_at,omitempty"`
	PickupAt       *time.Time `json:"pickup_at,omitempty"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}
