package dispatch

import "testing"

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusAvailable, StatusAssigned, true},
		{StatusAssigned, StatusPickedUp, true},
		{StatusPickedUp, StatusInTransit, true},
		{StatusInTransit, StatusDelivered, true},

		// skipping a step is never allowed
		{StatusAvailable, StatusPickedUp, false},
		{StatusAssigned, StatusInTransit, false},
		{StatusAssigned, StatusDelivered, false},
		{StatusPickedUp, StatusDelivered, false},

		// no going back, no self loops
		{StatusAssigned, StatusAvailable, false},
		{StatusDelivered, StatusInTransit, false},
		{StatusDelivered, StatusDelivered, false},
		{StatusAvailable, StatusAvailable, false},
	}
	for _, c := range cases {
		if got := CanTransition(c.from, c.to); got != c.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestKnownStatus(t *testing.T) {
	for _, s := range []Status{StatusAvailable, StatusAssigned, StatusPickedUp, StatusInTransit, StatusDelivered} {
		if !KnownStatus(s) {
			t.Errorf("Expected %s to be known", s)
		}
	}
	if KnownStatus(Status("Lost")) {
		t.Error("Expected Lost to be unknown")
	}
}
