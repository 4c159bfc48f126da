package products

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/anavasquez/restyle-backend/pkg/db/models"
)

// CreateInput captures the payload required to publish a listing.
type CreateInput struct {
	UserID      uuid.UUID
	CategoryID  *uuid.UUID
	Name        string
	Description string
	Price       decimal.Decimal
	Size        string
	ImageURL    *string
}

// UpdateInput carries the mutable listing fields; nil pointers are left untouched.
type UpdateInput struct {
	CategoryID  *uuid.UUID
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Size        *string
	ImageURL    *string
}

// Page is a cursor page of listings.
type Page struct {
	Items      []models.Product `json:"items"`
	NextCursor string           `json:"next_cursor,omitempty"`
}
