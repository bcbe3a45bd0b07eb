package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaterialStock is the on-hand quantity for one (material, warehouse) pair.
// QuantityOnHand may go negative under the overdraft sale policy; the
// material-level aggregate is clamped at zero instead.
type MaterialStock struct {
	ID             uint            `gorm:"column:id;primaryKey;autoIncrement"`
	MaterialID     uint            `gorm:"column:material_id;not null;index:idx_stock_material_warehouse,unique"`
	WarehouseID    uint            `gorm:"column:warehouse_id;not null;index:idx_stock_material_warehouse,unique"`
	QuantityOnHand decimal.Decimal `gorm:"column:quantity_on_hand;type:decimal(18,2);not null;default:0"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
