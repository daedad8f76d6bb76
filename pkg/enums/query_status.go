package enums

import "fmt"

// QueryStatus tracks a customer query through support.
type QueryStatus string

const (
	QueryStatusOpen       QueryStatus = "open"
	QueryStatusInProgress QueryStatus = "in_progress"
	QueryStatusResolved   QueryStatus = "resolved"
)

var validQueryStatuses = []QueryStatus{
	QueryStatusOpen,
	QueryStatusInProgress,
	QueryStatusResolved,
}

// String implements fmt.Stringer.
func (v QueryStatus) String() string {
	return string(v)
}

// IsValid reports whether the value is a known QueryStatus.
func (v QueryStatus) IsValid() bool {
	for _, candidate := range validQueryStatuses {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseQueryStatus converts raw input into a QueryStatus.
func ParseQueryStatus(value string) (QueryStatus, error) {
	for _, candidate := range validQueryStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid query status %q", value)
}
