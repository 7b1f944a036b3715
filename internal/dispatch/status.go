package dispatch

type Status string

const (
	StatusAvailable Status = "Available"
	StatusAssigned  Status = "Assigned"
	StatusPickedUp  Status = "PickedUp"
	StatusInTransit Status = "InTransit"
	StatusDelivered Status = "Delivered"
)

// The delivery lifecycle is strictly linear: each status has exactly one
// successor and no step may be skipped.
var validNext = map[Status]Status{
	StatusAvailable: StatusAssigned,
	StatusAssigned:  StatusPickedUp,
	StatusPickedUp:  StatusInTransit,
	StatusInTransit: StatusDelivered,
}

func CanTransition(from, to Status) bool {
	next, ok := validNext[from]
	return ok && next == to
}

func KnownStatus(s Status) bool {
	switch s {
	case StatusAvailable, StatusAssigned, StatusPickedUp, StatusInTransit, StatusDelivered:
		return true
	}
	return false
}
