package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/ecofashion/ecofashion-backend/pkg/enums"
)

// Wallet holds one balance per user plus the single platform wallet. Balance
// is mutated only through WalletTransaction creation.
type Wallet struct {
	ID             uint               `gorm:"column:id;primaryKey;autoIncrement"`
	UserID         uint               `gorm:"column:user_id;uniqueIndex;not null"`
	Balance        decimal.Decimal    `gorm:"column:balance;type:decimal(18,2);not null;default:0"`
	IsSystemWallet bool               `gorm:"column:is_system_wallet;not null;default:false"`
	Status         enums.WalletStatus `gorm:"column:status;type:text;not null;default:'active'"`
	CreatedAt      time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
