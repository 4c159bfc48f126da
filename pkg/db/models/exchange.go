package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/anavasquez/restyle-backend/pkg/enums"
)

// Exchange is a barter proposal between two users, typically over one product
// from each side. Participation is recorded in the exchange_products join
// table so pending-exchange lookups stay a derived query.
type Exchange struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerID        uuid.UUID            `gorm:"column:owner_id;type:uuid;not null;index"`
	RequesterID    uuid.UUID            `gorm:"column:requester_id;type:uuid;not null;index"`
	Status         enums.ExchangeStatus `gorm:"column:status;not null;default:'PENDING'"`
	ExchangeDate   time.Time            `gorm:"column:exchange_date;not null"`
	CompletionDate *time.Time           `gorm:"column:completion_date"`
	Products       []Product            `gorm:"many2many:exchange_products"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
