package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ecofashion/ecofashion-backend/pkg/enums"
)

// CartItem is one prospective purchase line. UnitPrice is a display snapshot
// taken when the item was added; checkout re-derives the authoritative price.
type CartItem struct {
	ID         uint                `gorm:"column:id;primaryKey;autoIncrement"`
	CartID     uint                `gorm:"column:cart_id;not null;index"`
	ItemType   enums.OrderItemType `gorm:"column:item_type;type:text;not null"`
	MaterialID *uint               `gorm:"column:material_id"`
	DesignID   *uint               `gorm:"column:design_id"`
	ProductID  *uint               `gorm:"column:product_id"`
	Quantity   int                 `gorm:"column:quantity;not null"`
	UnitPrice  decimal.Decimal     `gorm:"column:unit_price;type:decimal(18,2);not null"`
	CreatedAt  time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
