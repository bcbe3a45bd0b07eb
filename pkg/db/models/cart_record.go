package models

import "time"

// CartRecord is a per-user mutable cart holding prospective purchase lines.
type CartRecord struct {
	ID        uint       `gorm:"column:id;primaryKey;autoIncrement"`
	UserID    uint       `gorm:"column:user_id;uniqueIndex;not null"`
	Items     []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
