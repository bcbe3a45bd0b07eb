package enums

import "fmt"

// OrderGroupStatus tracks a multi-seller checkout session.
type OrderGroupStatus string

const (
	OrderGroupStatusInProgress OrderGroupStatus = "in_progress"
	OrderGroupStatusCompleted  OrderGroupStatus = "completed"
	OrderGroupStatusExpired    OrderGroupStatus = "expired"
)

var validOrderGroupStatuses = []OrderGroupStatus{
	OrderGroupStatusInProgress,
	OrderGroupStatusCompleted,
	OrderGroupStatusExpired,
}

// String implements fmt.Stringer.
func (o OrderGroupStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderGroupStatus.
func (o OrderGroupStatus) IsValid() bool {
	for _, candidate := range validOrderGroupStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOrderGroupStatus converts raw input into an OrderGroupStatus.
func ParseOrderGroupStatus(value string) (OrderGroupStatus, error) {
	for _, candidate := range validOrderGroupStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order group status %q", value)
}
