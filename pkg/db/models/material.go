package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Material is a raw-material catalog record owned by a supplier. Price and
// SupplierID are the authoritative values re-derived at checkout time.
// QuantityAvailable is an aggregate over warehouse stock, clamped at zero.
type Material struct {
	ID                uint            `gorm:"column:id;primaryKey;autoIncrement"`
	SupplierID        uint            `gorm:"column:supplier_id;not null;index"`
	Name              string          `gorm:"column:name;not null"`
	Unit              string          `gorm:"column:unit;not null;default:'m'"`
	Price             decimal.Decimal `gorm:"column:price;type:decimal(18,2);not null"`
	QuantityAvailable decimal.Decimal `gorm:"column:quantity_available;type:decimal(18,2);not null;default:0"`
	IsActive          bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
