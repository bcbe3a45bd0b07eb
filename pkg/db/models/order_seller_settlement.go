package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ecofashion/ecofashion-backend/pkg/enums"
)

// OrderSellerSettlement is the commission-adjusted payout owed to one seller
// for one order. At most one row exists per (order, seller); NetAmount moves
// from the platform wallet to the seller wallet exactly once on release.
type OrderSellerSettlement struct {
	ID               uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	OrderID          uint                   `gorm:"column:order_id;not null;index:idx_settlement_order_seller,unique"`
	SellerID         uint                   `gorm:"column:seller_id;not null;index:idx_settlement_order_seller,unique"`
	SellerType       enums.SellerType       `gorm:"column:seller_type;type:text;not null"`
	GrossAmount      decimal.Decimal        `gorm:"column:gross_amount;type:decimal(18,2);not null"`
	CommissionRate   decimal.Decimal        `gorm:"column:commission_rate;type:decimal(5,4);not null"`
	CommissionAmount decimal.Decimal        `gorm:"column:commission_amount;type:decimal(18,2);not null"`
	NetAmount        decimal.Decimal        `gorm:"column:net_amount;type:decimal(18,2);not null"`
	Status           enums.SettlementStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	ReleasedAt       *time.Time             `gorm:"column:released_at"`
	CreatedAt        time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *OrderSellerSettlement) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
