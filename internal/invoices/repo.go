package invoices

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/anavasquez/restyle-backend/pkg/db/models"
)

// InvoiceRepository exposes persistence operations for invoices.
type InvoiceRepository interface {
	WithTx(tx *gorm.DB) InvoiceRepository
	Create(ctx context.Context, invoice *models.Invoice) (*models.Invoice, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Invoice, error)
	AttachProducts(ctx context.Context, invoiceID uuid.UUID, productIDs []uuid.UUID) error
}

// Repository is the GORM-backed InvoiceRepository.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an invoice repository bound to the provided DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) InvoiceRepository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts a new invoice.
func (r *Repository) Create(ctx context.Context, invoice *models.Invoice) (*models.Invoice, error) {
	if err := r.db.WithContext(ctx).Omit("Products").Create(invoice).Error; err != nil {
		return nil, err
	}
	return invoice, nil
}

// FindByID loads an invoice with its purchased products.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	var invoice models.Invoice
	err := r.db.WithContext(ctx).
		Preload("Products").
		First(&invoice, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// ListByUser returns every invoice billed to the given user, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Invoice, error) {
	var rows []models.Invoice
	err := r.db.WithContext(ctx).
		Preload("Products").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

// AttachProducts stamps the invoice id onto the purchased product rows.
func (r *Repository) AttachProducts(ctx context.Context, invoiceID uuid.UUID, productIDs []uuid.UUID) error {
	if len(productIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id IN ?", productIDs).
		Update("invoice_id", invoiceID).Error
}
