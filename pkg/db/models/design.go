package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Design is a designer-owned catalog record. Designs can be sold pre-sale
// (before any product inventory backs them).
type Design struct {
	ID         uint            `gorm:"column:id;primaryKey;autoIncrement"`
	DesignerID uint            `gorm:"column:designer_id;not null;index"`
	Name       string          `gorm:"column:name;not null"`
	Price      decimal.Decimal `gorm:"column:price;type:decimal(18,2);not null"`
	IsActive   bool            `gorm:"column:is_active;not null;default:true"`
	CreatedAt  time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
