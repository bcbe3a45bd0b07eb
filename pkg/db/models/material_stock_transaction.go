package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ecofashion/ecofashion-backend/pkg/enums"
)

// MaterialStockTransaction is an append-only stock ledger entry mirroring the
// wallet transaction pattern: every quantity change carries before/after
// snapshots, and summing deltas reproduces QuantityOnHand.
type MaterialStockTransaction struct {
	ID             uint                       `gorm:"column:id;primaryKey;autoIncrement"`
	MaterialID     uint                       `gorm:"column:material_id;not null;index"`
	WarehouseID    uint                       `gorm:"column:warehouse_id;not null;index"`
	QuantityChange decimal.Decimal            `gorm:"column:quantity_change;type:decimal(18,2);not null"`
	BeforeQty      decimal.Decimal            `gorm:"column:before_qty;type:decimal(18,2);not null"`
	AfterQty       decimal.Decimal            `gorm:"column:after_qty;type:decimal(18,2);not null"`
	Type           enums.StockTransactionType `gorm:"column:type;type:text;not null"`
	Unit           string                     `gorm:"column:unit;not null;default:'m'"`
	Note           string                     `gorm:"column:note"`
	OrderID        *uint                      `gorm:"column:order_id;index"`
	CreatedAt      time.Time                  `gorm:"column:created_at;autoCreateTime"`
}
