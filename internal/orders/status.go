package orders

type Status string

const (
	StatusPending        Status = "Pending"
	StatusProcessing     Status = "Processing"
	StatusShipped        Status = "Shipped"
	StatusOutForDelivery Status = "OutForDelivery"
	StatusDelivered      Status = "Delivered"
	StatusCancelled      Status = "Cancelled"
)

var validNext = map[Status]map[Status]bool{
	StatusPending:        {StatusProcessing: true, StatusCancelled: true},
	StatusProcessing:     {StatusShipped: true, StatusOutForDelivery: true, StatusCancelled: true},
	StatusShipped:        {StatusOutForDelivery: true, StatusDelivered: true},
	StatusOutForDelivery: {StatusDelivered: true},
	StatusDelivered:      {},
	StatusCancelled:      {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

func KnownStatus(s Status) bool {
	_, ok := validNext[s]
	return ok
}
