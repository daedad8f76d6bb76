package enums

import "fmt"

// UserRole is the system role attached to an account.
type UserRole string

const (
	UserRoleCustomer UserRole = "customer"
	UserRoleAdmin    UserRole = "admin"
)

var validUserRoles = []UserRole{
	UserRoleCustomer,
	UserRoleAdmin,
}

// String implements fmt.Stringer.
func (v UserRole) String() string {
	return string(v)
}

// IsValid reports whether the value is a known UserRole.
func (v UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseUserRole converts raw input into a UserRole.
func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}
