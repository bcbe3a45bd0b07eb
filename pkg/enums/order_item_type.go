package enums

import "fmt"

// OrderItemType identifies what kind of catalog record a line item references.
type OrderItemType string

const (
	OrderItemTypeMaterial OrderItemType = "material"
	OrderItemTypeDesign   OrderItemType = "design"
	OrderItemTypeProduct  OrderItemType = "product"
)

var validOrderItemTypes = []OrderItemType{
	OrderItemTypeMaterial,
	OrderItemTypeDesign,
	OrderItemTypeProduct,
}

// String implements fmt.Stringer.
func (o OrderItemType) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderItemType.
func (o OrderItemType) IsValid() bool {
	for _, candidate := range validOrderItemTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOrderItemType converts raw input into an OrderItemType.
func ParseOrderItemType(value string) (OrderItemType, error) {
	for _, candidate := range validOrderItemTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order item type %q", value)
}
