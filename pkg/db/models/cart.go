package models

import (
	"time"

	"github.com/google/uuid"
)

// Cart is the working set of products a user intends to buy. One cart per
// user, created at registration and never destroyed, only cleared.
type Cart struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex"`
	Products  []Product `gorm:"foreignKey:CartID"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
