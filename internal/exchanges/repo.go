package exchanges

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/anavasquez/restyle-backend/pkg/db/models"
	"github.com/anavasquez/restyle-backend/pkg/enums"
)

// ExchangeRepository exposes persistence operations for barter proposals.
// Product participation lives in the exchange_products join table; the
// pending-exchange check is a derived query against it.
type ExchangeRepository interface {
	WithTx(tx *gorm.DB) ExchangeRepository
	Create(ctx context.Context, exchange *models.Exchange) (*models.Exchange, error)
	Save(ctx context.Context, exchange *models.Exchange) (*models.Exchange, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Exchange, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Exchange, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListAll(ctx context.Context) ([]models.Exchange, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Exchange, error)
	ListByRequester(ctx context.Context, requesterID uuid.UUID) ([]models.Exchange, error)
	HasPendingForProduct(ctx context.Context, productID uuid.UUID) (bool, error)
	AttachProducts(ctx context.Context, exchange *models.Exchange, products []models.Product) error
}

// Repository is the GORM-backed ExchangeRepository.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an exchange repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) ExchangeRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts a new exchange.
func (r *Repository) Create(ctx context.Context, exchange *models.Exchange) (*models.Exchange, error) {
	if err := r.db.WithContext(ctx).Omit("Products").Create(exchange).Error; err != nil {
		return nil, err
	}
	return exchange, nil
}

// Save persists the provided exchange.
func (r *Repository) Save(ctx context.Context, exchange *models.Exchange) (*models.Exchange, error) {
	if err := r.db.WithContext(ctx).Omit("Products").Save(exchange).Error; err != nil {
		return nil, err
	}
	return exchange, nil
}

// FindByID loads an exchange with its participating products.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Exchange, error) {
	var exchange models.Exchange
	err := r.db.WithContext(ctx).
		Preload("Products").
		First(&exchange, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &exchange, nil
}

// FindByIDForUpdate loads an exchange like FindByID but locks its row until
// the surrounding transaction commits, serializing concurrent settlements.
func (r *Repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Exchange, error) {
	var exchange models.Exchange
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Products").
		First(&exchange, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &exchange, nil
}

// Delete removes the exchange and its join rows.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Select("Products").
		Delete(&models.Exchange{ID: id}).Error
}

// ListAll returns every exchange, newest first.
func (r *Repository) ListAll(ctx context.Context) ([]models.Exchange, error) {
	var rows []models.Exchange
	err := r.db.WithContext(ctx).
		Preload("Products").
		Order("exchange_date DESC").
		Find(&rows).Error
	return rows, err
}

// ListByOwner returns every exchange where the user is the owner side.
func (r *Repository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Exchange, error) {
	var rows []models.Exchange
	err := r.db.WithContext(ctx).
		Preload("Products").
		Where("owner_id = ?", ownerID).
		Order("exchange_date DESC").
		Find(&rows).Error
	return rows, err
}

// ListByRequester returns every exchange where the user is the requester side.
func (r *Repository) ListByRequester(ctx context.Context, requesterID uuid.UUID) ([]models.Exchange, error) {
	var rows []models.Exchange
	err := r.db.WithContext(ctx).
		Preload("Products").
		Where("requester_id = ?", requesterID).
		Order("exchange_date DESC").
		Find(&rows).Error
	return rows, err
}

// HasPendingForProduct reports whether the product already participates in a
// PENDING exchange.
func (r *Repository) HasPendingForProduct(ctx context.Context, productID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Exchange{}).
		Joins("JOIN exchange_products ep ON ep.exchange_id = exchanges.id").
		Where("ep.product_id = ? AND exchanges.status = ?", productID, enums.ExchangeStatusPending).
		Count(&count).Error
	return count > 0, err
}

// AttachProducts records the participating products for the exchange.
func (r *Repository) AttachProducts(ctx context.Context, exchange *models.Exchange, products []models.Product) error {
	return r.db.WithContext(ctx).
		Model(exchange).
		Association("Products").
		Append(products)
}
