package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ecofashion/ecofashion-backend/pkg/enums"
)

// Order represents one seller's slice of a checkout session.
type Order struct {
	ID                uint                    `gorm:"column:id;primaryKey;autoIncrement"`
	UserID            uint                    `gorm:"column:user_id;not null;index"`
	OrderGroupID      *uuid.UUID              `gorm:"column:order_group_id;type:uuid;index"`
	SellerType        enums.SellerType        `gorm:"column:seller_type;type:text;not null"`
	SellerID          uint                    `gorm:"column:seller_id;not null;index"`
	ShippingAddress   string                  `gorm:"column:shipping_address;not null"`
	Subtotal          decimal.Decimal         `gorm:"column:subtotal;type:decimal(18,2);not null"`
	ShippingFee       decimal.Decimal         `gorm:"column:shipping_fee;type:decimal(18,2);not null"`
	Discount          decimal.Decimal         `gorm:"column:discount;type:decimal(18,2);not null"`
	TotalPrice        decimal.Decimal         `gorm:"column:total_price;type:decimal(18,2);not null"`
	Status            enums.OrderStatus       `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentStatus     enums.PaymentStatus     `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	FulfillmentStatus enums.FulfillmentStatus `gorm:"column:fulfillment_status;type:text;not null;default:'none'"`
	CommissionRate    *decimal.Decimal        `gorm:"column:commission_rate;type:decimal(5,4)"`
	CommissionAmount  *decimal.Decimal        `gorm:"column:commission_amount;type:decimal(18,2)"`
	NetAmount         *decimal.Decimal        `gorm:"column:net_amount;type:decimal(18,2)"`
	PaymentDate       *time.Time              `gorm:"column:payment_date"`
	ExpiresAt         *time.Time              `gorm:"column:expires_at"`
	Details           []OrderDetail           `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	OrderDate         time.Time               `gorm:"column:order_date;autoCreateTime"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
