package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/anavasquez/restyle-backend/pkg/db/models"
)

// CartRepository exposes persistence operations for carts and their product
// membership. Membership is the cart_id column on products; there is no
// second copy of the relation to keep in sync.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	Create(ctx context.Context, cart *models.Cart) (*models.Cart, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error)
	FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	CountProducts(ctx context.Context, cartID uuid.UUID) (int64, error)
	AttachProduct(ctx context.Context, cartID, productID uuid.UUID) error
	DetachProduct(ctx context.Context, productID uuid.UUID) error
	DetachAll(ctx context.Context, cartID uuid.UUID) error
}

// Repository is the GORM-backed CartRepository.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts a new cart.
func (r *Repository) Create(ctx context.Context, cart *models.Cart) (*models.Cart, error) {
	if err := r.db.WithContext(ctx).Create(cart).Error; err != nil {
		return nil, err
	}
	return cart, nil
}

// FindByID loads a cart with its current products.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Products").
		First(&cart, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// FindByUser loads the single cart owned by the given user.
func (r *Repository) FindByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	var cart models.Cart
	err := r.db.WithContext(ctx).
		Preload("Products").
		First(&cart, "user_id = ?", userID).Error
	if err != nil {
		return nil, err
	}
	return &cart, nil
}

// CountProducts returns how many products currently reference the cart.
func (r *Repository) CountProducts(ctx context.Context, cartID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("cart_id = ?", cartID).
		Count(&count).Error
	return count, err
}

// AttachProduct points the product's cart_id at the cart.
func (r *Repository) AttachProduct(ctx context.Context, cartID, productID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Update("cart_id", cartID).Error
}

// DetachProduct clears the product's cart association.
func (r *Repository) DetachProduct(ctx context.Context, productID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		Update("cart_id", nil).Error
}

// DetachAll clears the cart association for every product in the cart.
func (r *Repository) DetachAll(ctx context.Context, cartID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("cart_id = ?", cartID).
		Update("cart_id", nil).Error
}
