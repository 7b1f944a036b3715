package users

import (
	"errors"
	"time"
)

// Role is a tag on the one User row. The four kinds share the same identity
// record instead of carrying parallel nullable profile links.
type Role string

const (
	RoleAdmin     Role = "Admin"
	RoleBookstore Role = "Bookstore"
	RoleCustomer  Role = "Customer"
	RoleDriver    Role = "DeliveryDriver"
)

type User struct {
	ID        string
	Role      Role
	Name      string
	Email     string
	CreatedAt time.Time
}

var ErrNotFound = errors.New("user not found")
