package models

import "time"

// User is the minimal identity record the core consumes. Authentication and
// profile management live outside this service.
type User struct {
	ID        uint      `gorm:"column:id;primaryKey;autoIncrement"`
	Email     string    `gorm:"column:email;uniqueIndex;not null"`
	FullName  string    `gorm:"column:full_name"`
	Role      string    `gorm:"column:role;not null;default:'customer'"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
