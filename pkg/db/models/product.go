package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a finished item produced from a design. The selling designer is
// resolved through the parent design, never trusted from the caller.
type Product struct {
	ID        uint            `gorm:"column:id;primaryKey;autoIncrement"`
	DesignID  uint            `gorm:"column:design_id;not null;index"`
	SKU       string          `gorm:"column:sku;not null"`
	Price     decimal.Decimal `gorm:"column:price;type:decimal(18,2);not null"`
	Quantity  int             `gorm:"column:quantity;not null;default:0"`
	IsActive  bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
