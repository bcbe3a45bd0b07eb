package enums

import "fmt"

// StockTransactionType classifies a material stock ledger entry.
type StockTransactionType string

const (
	StockTransactionTypeSupplierReceipt  StockTransactionType = "supplier_receipt"
	StockTransactionTypeCustomerSale     StockTransactionType = "customer_sale"
	StockTransactionTypeCustomerReturn   StockTransactionType = "customer_return"
	StockTransactionTypeManualAdjustment StockTransactionType = "manual_adjustment"
	StockTransactionTypeProductionUsage  StockTransactionType = "production_usage"
)

var validStockTransactionTypes = []StockTransactionType{
	StockTransactionTypeSupplierReceipt,
	StockTransactionTypeCustomerSale,
	StockTransactionTypeCustomerReturn,
	StockTransactionTypeManualAdjustment,
	StockTransactionTypeProductionUsage,
}

// String implements fmt.Stringer.
func (s StockTransactionType) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StockTransactionType.
func (s StockTransactionType) IsValid() bool {
	for _, candidate := range validStockTransactionTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseStockTransactionType converts raw input into a StockTransactionType.
func ParseStockTransactionType(value string) (StockTransactionType, error) {
	for _, candidate := range validStockTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock transaction type %q", value)
}
