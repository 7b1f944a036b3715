package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"bookmarket/internal/events"
	kafkax "bookmarket/internal/kafka"
	"bookmarket/internal/orders"
	"bookmarket/internal/redisx"
)

// StatusConsumer turns order status events into delivery jobs: when an
// order reaches Processing it opens an Available delivery for drivers.
type StatusConsumer struct {
	Service *Service
	RDB     *redis.Client
	Group   string
}

// Handle processes one OrderStatusChanged event. Events are deduplicated by
// event id in redis so redelivered messages cannot open a second job; the
// unique order constraint is the backstop when the dedup key has expired.
func (c *StatusConsumer) Handle(ctx context.Context, m kafkago.Message) error {
	var env events.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		log.Printf("dispatcher: drop undecodable message at offset %d: %v", m.Offset, err)
		return nil
	}
	if env.EventType != events.EventOrderStatusChanged {
		return nil
	}

	key := fmt.Sprintf(redisx.KeyDedup, c.Group, env.EventID)
	fresh, err := c.RDB.SetNX(ctx, key, 1, redisx.TTLDedup).Result()
	if err != nil {
		return fmt.Errorf("dedup check: %w", err)
	}
	if !fresh {
		log.Printf("dispatcher: skip duplicate event %s", env.EventID)
		return nil
	}

	p, err := kafkax.UnwrapPayload[events.OrderStatusChangedPayload](env.Payload)
	if err != nil {
		log.Printf("dispatcher: drop malformed payload in event %s: %v", env.EventID, err)
		return nil
	}
	if orders.Status(p.NewStatus) != orders.StatusProcessing {
		return nil
	}

	d, err := c.Service.CreateForOrder(ctx, p.OrderID)
	if errors.Is(err, ErrExists) {
		return nil
	}
	if err != nil {
		return err
	}
	log.Printf("dispatcher: delivery %s open for order %s", d.TrackingNumber, p.OrderNumber)
	return nil
}
