package events

const (
	TopicOrderPlaced        = "market.order.placed"
	TopicOrderStatusChanged = "market.order.status"
	TopicNotifications      = "market.notifications"
)

// Partition key = order_id so all events for one order stay ordered.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
