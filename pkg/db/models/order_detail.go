package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ecofashion/ecofashion-backend/pkg/enums"
)

// OrderDetail is one line item within a seller order. Exactly one of
// MaterialID/DesignID/ProductID is set, matching ItemType. UnitPrice is a
// snapshot taken at order time and never recomputed from the catalog.
type OrderDetail struct {
	ID         uint                    `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID    uint                    `gorm:"column:order_id;not null;index"`
	ItemType   enums.OrderItemType     `gorm:"column:item_type;type:text;not null"`
	MaterialID *uint                   `gorm:"column:material_id;index"`
	DesignID   *uint                   `gorm:"column:design_id;index"`
	ProductID  *uint                   `gorm:"column:product_id;index"`
	SellerID   uint                    `gorm:"column:seller_id;not null"`
	Quantity   int                     `gorm:"column:quantity;not null"`
	UnitPrice  decimal.Decimal         `gorm:"column:unit_price;type:decimal(18,2);not null"`
	Status     enums.OrderDetailStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	CreatedAt  time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

// LineTotal returns quantity x unit price.
func (d OrderDetail) LineTotal() decimal.Decimal {
	return d.UnitPrice.Mul(decimal.NewFromInt(int64(d.Quantity)))
}
