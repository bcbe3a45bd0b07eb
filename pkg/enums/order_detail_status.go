package enums

import "fmt"

// OrderDetailStatus tracks one line item within a seller order.
type OrderDetailStatus string

const (
	OrderDetailStatusPending   OrderDetailStatus = "pending"
	OrderDetailStatusConfirmed OrderDetailStatus = "confirmed"
	OrderDetailStatusCanceled  OrderDetailStatus = "canceled"
)

var validOrderDetailStatuses = []OrderDetailStatus{
	OrderDetailStatusPending,
	OrderDetailStatusConfirmed,
	OrderDetailStatusCanceled,
}

// String implements fmt.Stringer.
func (o OrderDetailStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderDetailStatus.
func (o OrderDetailStatus) IsValid() bool {
	for _, candidate := range validOrderDetailStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOrderDetailStatus converts raw input into an OrderDetailStatus.
func ParseOrderDetailStatus(value string) (OrderDetailStatus, error) {
	for _, candidate := range validOrderDetailStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order detail status %q", value)
}
