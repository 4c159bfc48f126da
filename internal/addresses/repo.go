package addresses

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/anavasquez/restyle-backend/pkg/db/models"
)

// AddressRepository exposes persistence operations for user addresses.
type AddressRepository interface {
	WithTx(tx *gorm.DB) AddressRepository
	Create(ctx context.Context, address *models.Address) (*models.Address, error)
	Save(ctx context.Context, address *models.Address) (*models.Address, error)
	FindByIDForUser(ctx context.Context, id, userID uuid.UUID) (*models.Address, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Address, error)
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

// Repository is the GORM-backed AddressRepository.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an address repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) AddressRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts a new address.
func (r *Repository) Create(ctx context.Context, address *models.Address) (*models.Address, error) {
	if err := r.db.WithContext(ctx).Create(address).Error; err != nil {
		return nil, err
	}
	return address, nil
}

// Save persists the provided address.
func (r *Repository) Save(ctx context.Context, address *models.Address) (*models.Address, error) {
	if err := r.db.WithContext(ctx).Save(address).Error; err != nil {
		return nil, err
	}
	return address, nil
}

// FindByIDForUser loads an address restricted to its owning user.
func (r *Repository) FindByIDForUser(ctx context.Context, id, userID uuid.UUID) (*models.Address, error) {
	var address models.Address
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&address).Error
	if err != nil {
		return nil, err
	}
	return &address, nil
}

// ListByUser returns every address owned by the given user.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Address, error) {
	var rows []models.Address
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

// Delete removes an address owned by the given user.
func (r *Repository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&models.Address{}).Error
}
