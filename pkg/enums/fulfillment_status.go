package enums

import "fmt"

// FulfillmentStatus tracks physical fulfillment of a seller order.
type FulfillmentStatus string

const (
	FulfillmentStatusNone       FulfillmentStatus = "none"
	FulfillmentStatusProcessing FulfillmentStatus = "processing"
	FulfillmentStatusShipped    FulfillmentStatus = "shipped"
	FulfillmentStatusDelivered  FulfillmentStatus = "delivered"
	FulfillmentStatusCanceled   FulfillmentStatus = "canceled"
)

var validFulfillmentStatuses = []FulfillmentStatus{
	FulfillmentStatusNone,
	FulfillmentStatusProcessing,
	FulfillmentStatusShipped,
	FulfillmentStatusDelivered,
	FulfillmentStatusCanceled,
}

// String implements fmt.Stringer.
func (f FulfillmentStatus) String() string {
	return string(f)
}

// IsValid reports whether the value is a known FulfillmentStatus.
func (f FulfillmentStatus) IsValid() bool {
	for _, candidate := range validFulfillmentStatuses {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParseFulfillmentStatus converts raw input into a FulfillmentStatus.
func ParseFulfillmentStatus(value string) (FulfillmentStatus, error) {
	for _, candidate := range validFulfillmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid fulfillment status %q", value)
}
