package products

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/anavasquez/restyle-backend/pkg/db/models"
	"github.com/anavasquez/restyle-backend/pkg/enums"
	"github.com/anavasquez/restyle-backend/pkg/pagination"
)

// ProductRepository exposes persistence operations for listings.
type ProductRepository interface {
	WithTx(tx *gorm.DB) ProductRepository
	Create(ctx context.Context, product *models.Product) (*models.Product, error)
	Save(ctx context.Context, product *models.Product) (*models.Product, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ExistsByID(ctx context.Context, id uuid.UUID) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.ProductStatus) error
	ListAvailable(ctx context.Context, params pagination.Params) ([]models.Product, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Product, error)
	ListByCategory(ctx context.Context, categoryID uuid.UUID) ([]models.Product, error)
	ListByStatus(ctx context.Context, status enums.ProductStatus) ([]models.Product, error)
	Search(ctx context.Context, query string) ([]models.Product, error)
}

// Repository is the GORM-backed ProductRepository.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a product repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) ProductRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts a new product.
func (r *Repository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	if product.Status == "" {
		product.Status = enums.ProductStatusAvailable
	}
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// Save persists the provided product.
func (r *Repository) Save(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Save(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// FindByID loads a product by its id.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDForUpdate loads a product like FindByID but locks its row until the
// surrounding transaction commits.
func (r *Repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&product, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// ExistsByID reports whether a product with the given id exists.
func (r *Repository) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Count(&count).Error
	return count > 0, err
}

// Delete removes the product row.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id).Error
}

// UpdateStatus writes only the status column.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.ProductStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// ListAvailable returns a cursor page of AVAILABLE listings, newest first.
func (r *Repository) ListAvailable(ctx context.Context, params pagination.Params) ([]models.Product, error) {
	q := r.db.WithContext(ctx).
		Where("status = ?", enums.ProductStatusAvailable).
		Order("published_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		q = q.Where("(published_at, id) < (?, ?)", cursor.PublishedAt, cursor.ID)
	}

	var rows []models.Product
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByUser returns every product owned by the given user.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Product, error) {
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("published_at DESC").
		Find(&rows).Error
	return rows, err
}

// ListByCategory returns every product within the given category.
func (r *Repository) ListByCategory(ctx context.Context, categoryID uuid.UUID) ([]models.Product, error) {
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Where("category_id = ?", categoryID).
		Order("published_at DESC").
		Find(&rows).Error
	return rows, err
}

// ListByStatus returns every product in the given lifecycle state.
func (r *Repository) ListByStatus(ctx context.Context, status enums.ProductStatus) ([]models.Product, error) {
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("published_at DESC").
		Find(&rows).Error
	return rows, err
}

// Search matches the query as a case-insensitive substring of name or description.
func (r *Repository) Search(ctx context.Context, query string) ([]models.Product, error) {
	pattern := "%" + query + "%"
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Where("name ILIKE ? OR description ILIKE ?", pattern, pattern).
		Order("published_at DESC").
		Find(&rows).Error
	return rows, err
}
