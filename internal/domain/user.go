package domain

import (
	"fmt"
	"time"
)

// Role is the closed set of account roles.
type Role uint8

const (
	roleInvalid Role = iota
	RoleAdmin
	RoleUser
	RoleStoreOwner
)

// Roles lists every valid role.
var Roles = []Role{RoleAdmin, RoleUser, RoleStoreOwner}

// ParseRole maps the wire name of a role to its value.
func ParseRole(s string) (Role, error) {
	switch s {
	case "admin":
		return RoleAdmin, nil
	case "user":
		return RoleUser, nil
	case "store_owner":
		return RoleStoreOwner, nil
	}
	return roleInvalid, fmt.Errorf("%w: unknown role %q", ErrInvalidValue, s)
}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleUser:
		return "user"
	case RoleStoreOwner:
		return "store_owner"
	}
	return "invalid"
}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleUser, RoleStoreOwner:
		return true
	}
	return false
}

// DisplayName is the human readable role label.
func (r Role) DisplayName() string {
	switch r {
	case RoleAdmin:
		return "System Admin"
	case RoleUser:
		return "Normal User"
	case RoleStoreOwner:
		return "Store Owner"
	}
	return r.String()
}

// LandingPath is where a user of this role is sent when they reach an area
// their role may not enter.
func (r Role) LandingPath() string {
	switch r {
	case RoleAdmin:
		return "/admin/dashboard"
	case RoleUser:
		return "/user/stores"
	case RoleStoreOwner:
		return "/store-owner/dashboard"
	}
	return "/login"
}

func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: role %d", ErrInvalidValue, uint8(r))
	}
	return []byte(r.String()), nil
}

func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// User is an account. StoreID is only set for store owners linked to a store.
// PasswordHash never leaves the service layer.
type User struct {
	ID           string
	Name         string
	Email        string
	Address      string
	Role         Role
	StoreID      string
	PasswordHash string
	CreatedAt    time.Time
}

// UserSortField selects the column used to order user listings.
type UserSortField string

const (
	SortByName    UserSortField = "name"
	SortByEmail   UserSortField = "email"
	SortByAddress UserSortField = "address"
	SortByRole    UserSortField = "role"
)

// ParseUserSortField validates a sort column, defaulting to name.
func ParseUserSortField(s string) (UserSortField, error) {
	switch UserSortField(s) {
	case "":
		return SortByName, nil
	case SortByName, SortByEmail, SortByAddress, SortByRole:
		return UserSortField(s), nil
	}
	return "", fmt.Errorf("%w: unknown sort field %q", ErrInvalidValue, s)
}

// UserFilter narrows and orders a user listing. Query matches name, email or
// address case-insensitively; a nil Role matches every role.
type UserFilter struct {
	Query      string
	Role       *Role
	SortBy     UserSortField
	Descending bool
}
