package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/ecofashion/ecofashion-backend/pkg/enums"
)

// PaymentTransaction records one attempt to pay an order through the external
// gateway. Each retry gets a fresh row with its own TxnRef; a transaction in a
// terminal status is never re-processed by a later callback.
type PaymentTransaction struct {
	ID                   uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderID              uint                `gorm:"column:order_id;not null;index"`
	UserID               uint                `gorm:"column:user_id;not null"`
	Amount               decimal.Decimal     `gorm:"column:amount;type:decimal(18,2);not null"`
	Status               enums.PaymentStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	TxnRef               string              `gorm:"column:txn_ref;uniqueIndex;not null"`
	Provider             string              `gorm:"column:provider;not null;default:'vnpay'"`
	GatewayResponseCode  *string             `gorm:"column:gateway_response_code"`
	GatewayTransactionNo *string             `gorm:"column:gateway_transaction_no"`
	RawPayload           *string             `gorm:"column:raw_payload"`
	PayURL               *string             `gorm:"column:pay_url"`
	PaidAt               *time.Time          `gorm:"column:paid_at"`
	CreatedAt            time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *PaymentTransaction) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
