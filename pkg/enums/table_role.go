package enums

import "fmt"

// TableRole represents an explicit per-table permissions role.
type TableRole string

const (
	TableRoleOwner   TableRole = "OWNER"
	TableRoleCoOwner TableRole = "CO_OWNER"
	TableRoleCaptain TableRole = "CAPTAIN"
	TableRoleManager TableRole = "MANAGER"
	TableRoleStaff   TableRole = "STAFF"
)

var validTableRoles = []TableRole{
	TableRoleOwner,
	TableRoleCoOwner,
	TableRoleCaptain,
	TableRoleManager,
	TableRoleStaff,
}

// String implements fmt.Stringer.
func (r TableRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known TableRole.
func (r TableRole) IsValid() bool {
	for _, candidate := range validTableRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseTableRole converts raw input into a TableRole.
func ParseTableRole(value string) (TableRole, error) {
	for _, candidate := range validTableRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid table role %q", value)
}
