package models

import (
	"time"

	"github.com/google/uuid"
)

// Address is a user-owned shipping location. The checkout workflow only reads
// addresses; it never mutates them.
type Address struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID     uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	Street     string    `gorm:"column:street;not null"`
	Number     string    `gorm:"column:number;not null"`
	City       string    `gorm:"column:city;not null"`
	Country    string    `gorm:"column:country;not null"`
	PostalCode string    `gorm:"column:postal_code;not null"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
