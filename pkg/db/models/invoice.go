package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice is the durable record of a checkout. It is written once and never
// mutated afterwards; its product list is the immutable snapshot of what was
// purchased.
type Invoice struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID       `gorm:"column:user_id;type:uuid;not null;index"`
	AddressID   uuid.UUID       `gorm:"column:address_id;type:uuid;not null"`
	TotalAmount decimal.Decimal `gorm:"column:total_amount;type:numeric(12,2);not null"`
	Products    []Product       `gorm:"foreignKey:InvoiceID"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}
