package models

import "time"

// Warehouse is a storage location owned by a supplier or designer. Each owner
// designates one default warehouse used for sale deductions.
type Warehouse struct {
	ID          uint      `gorm:"column:id;primaryKey;autoIncrement"`
	OwnerUserID uint      `gorm:"column:owner_user_id;not null;index"`
	Name        string    `gorm:"column:name;not null"`
	IsDefault   bool      `gorm:"column:is_default;not null;default:false"`
	IsActive    bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
