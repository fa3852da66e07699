package enums

import "fmt"

// TableType distinguishes how a table's seats are paid for.
type TableType string

const (
	// TableTypePrepaid means the host pays for the whole table upfront.
	TableTypePrepaid TableType = "PREPAID"
	// TableTypeCaptainPAYG means a captain reserves the table for free and
	// each guest pays individually.
	TableTypeCaptainPAYG TableType = "CAPTAIN_PAYG"
)

var validTableTypes = []TableType{
	TableTypePrepaid,
	TableTypeCaptainPAYG,
}

// String implements fmt.Stringer.
func (t TableType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TableType.
func (t TableType) IsValid() bool {
	for _, candidate := range validTableTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTableType converts raw input into a TableType.
func ParseTableType(value string) (TableType, error) {
	for _, candidate := range validTableTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid table type %q", value)
}
