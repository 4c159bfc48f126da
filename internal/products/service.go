package products

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/anavasquez/restyle-backend/pkg/db/models"
	"github.com/anavasquez/restyle-backend/pkg/enums"
	pkgerrors "github.com/anavasquez/restyle-backend/pkg/errors"
	"github.com/anavasquez/restyle-backend/pkg/pagination"
)

// allowedTransitions encodes the lifecycle state machine. SOLD is terminal.
var allowedTransitions = map[enums.ProductStatus][]enums.ProductStatus{
	enums.ProductStatusAvailable: {enums.ProductStatusReserved, enums.ProductStatusSold},
	enums.ProductStatusReserved:  {enums.ProductStatusAvailable, enums.ProductStatusSold},
	enums.ProductStatusSold:      {},
}

func canTransition(from, to enums.ProductStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// Service owns the product lifecycle. Every status write in the system goes
// through TransitionStatus so the state machine is enforced in one place.
type Service interface {
	WithTx(tx *gorm.DB) Service
	Create(ctx context.Context, input CreateInput) (*models.Product, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Product, error)
	Delete(ctx context.Context, id uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, newStatus enums.ProductStatus) (*models.Product, error)
	ListAvailable(ctx context.Context, params pagination.Params) (*Page, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Product, error)
	ListByCategory(ctx context.Context, categoryID uuid.UUID) ([]models.Product, error)
	ListByStatus(ctx context.Context, status enums.ProductStatus) ([]models.Product, error)
	Search(ctx context.Context, query string) ([]models.Product, error)
}

type service struct {
	repo ProductRepository
}

// NewService builds a product service backed by the provided repository.
func NewService(repo ProductRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{repo: repo}, nil
}

// WithTx rebinds the service to a transaction.
func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx)}
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Product, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner user id is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	if input.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product price must be non-negative")
	}

	product := &models.Product{
		UserID:      input.UserID,
		CategoryID:  input.CategoryID,
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Price:       input.Price,
		Size:        input.Size,
		ImageURL:    input.ImageURL,
		Status:      enums.ProductStatusAvailable,
	}
	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}
	return created, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Product, error) {
	product, err := s.loadProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name cannot be empty")
		}
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		product.Description = *input.Description
	}
	if input.Price != nil {
		if input.Price.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product price must be non-negative")
		}
		product.Price = *input.Price
	}
	if input.Size != nil {
		product.Size = *input.Size
	}
	if input.ImageURL != nil {
		product.ImageURL = input.ImageURL
	}
	if input.CategoryID != nil {
		product.CategoryID = input.CategoryID
	}

	saved, err := s.repo.Save(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save product")
	}
	return saved, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	exists, err := s.repo.ExistsByID(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check product")
	}
	if !exists {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	return nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return s.loadProduct(ctx, id)
}

// TransitionStatus moves a product through its lifecycle. The next state is
// computed from the loaded row and persisted as a single status write; callers
// never mutate status directly.
func (s *service) TransitionStatus(ctx context.Context, id uuid.UUID, newStatus enums.ProductStatus) (*models.Product, error) {
	if !newStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown product status %q", newStatus))
	}

	product, err := s.loadProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	if !canTransition(product.Status, newStatus) {
		return nil, pkgerrors.New(
			pkgerrors.CodeInvalidTransition,
			fmt.Sprintf("cannot transition product from %s to %s", product.Status, newStatus),
		).WithDetails(map[string]any{"from": product.Status, "to": newStatus})
	}

	if err := s.repo.UpdateStatus(ctx, id, newStatus); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist product status")
	}
	product.Status = newStatus
	return product, nil
}

func (s *service) ListAvailable(ctx context.Context, params pagination.Params) (*Page, error) {
	rows, err := s.repo.ListAvailable(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	page := &Page{Items: rows}
	if len(rows) > limit {
		page.Items = rows[:limit]
		last := page.Items[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			PublishedAt: last.PublishedAt,
			ID:          last.ID,
		})
	}
	return page, nil
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Product, error) {
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products by user")
	}
	return rows, nil
}

func (s *service) ListByCategory(ctx context.Context, categoryID uuid.UUID) ([]models.Product, error) {
	rows, err := s.repo.ListByCategory(ctx, categoryID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products by category")
	}
	return rows, nil
}

func (s *service) ListByStatus(ctx context.Context, status enums.ProductStatus) ([]models.Product, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown product status %q", status))
	}
	rows, err := s.repo.ListByStatus(ctx, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products by status")
	}
	return rows, nil
}

func (s *service) Search(ctx context.Context, query string) ([]models.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "search query is required")
	}
	rows, err := s.repo.Search(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search products")
	}
	return rows, nil
}

func (s *service) loadProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}
