package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/anavasquez/restyle-backend/pkg/enums"
)

// Product is a secondhand listing owned by exactly one user.
//
// Cart membership and invoice attribution live on the product row as
// nullable foreign keys; the reverse relations (which products a cart or
// invoice holds) are derived queries rather than maintained pointers.
type Product struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID      uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	CategoryID  *uuid.UUID          `gorm:"column:category_id;type:uuid;index"`
	CartID      *uuid.UUID          `gorm:"column:cart_id;type:uuid;index"`
	InvoiceID   *uuid.UUID          `gorm:"column:invoice_id;type:uuid;index"`
	Name        string              `gorm:"column:name;not null"`
	Description string              `gorm:"column:description"`
	Price       decimal.Decimal     `gorm:"column:price;type:numeric(10,2);not null"`
	Size        string              `gorm:"column:size"`
	ImageURL    *string             `gorm:"column:image_url"`
	Status      enums.ProductStatus `gorm:"column:status;not null;default:'AVAILABLE'"`
	PublishedAt time.Time           `gorm:"column:published_at;autoCreateTime"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
