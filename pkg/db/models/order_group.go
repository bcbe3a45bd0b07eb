package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecofashion/ecofashion-backend/pkg/enums"
)

// OrderGroup wraps every order created from one checkout call.
type OrderGroup struct {
	ID              uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	UserID          uint                   `gorm:"column:user_id;not null;index"`
	Status          enums.OrderGroupStatus `gorm:"column:status;type:text;not null;default:'in_progress'"`
	TotalOrders     int                    `gorm:"column:total_orders;not null;default:0"`
	CompletedOrders int                    `gorm:"column:completed_orders;not null;default:0"`
	ExpiresAt       time.Time              `gorm:"column:expires_at;not null"`
	Orders          []Order                `gorm:"foreignKey:OrderGroupID"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

func (g *OrderGroup) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}
