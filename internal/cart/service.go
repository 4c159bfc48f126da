package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/anavasquez/restyle-backend/internal/products"
	"github.com/anavasquez/restyle-backend/pkg/db/models"
	"github.com/anavasquez/restyle-backend/pkg/enums"
	pkgerrors "github.com/anavasquez/restyle-backend/pkg/errors"
)

// Service manages the working set of products a user intends to buy. Add and
// remove are idempotent: repeating a call leaves the cart in the same state.
type Service interface {
	WithTx(tx *gorm.DB) Service
	Get(ctx context.Context, cartID uuid.UUID) (*models.Cart, error)
	GetByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error)
	AddProduct(ctx context.Context, cartID, productID uuid.UUID) error
	RemoveProduct(ctx context.Context, cartID, productID uuid.UUID) error
	Clear(ctx context.Context, cartID uuid.UUID) error
	Total(ctx context.Context, cartID uuid.UUID) (decimal.Decimal, error)
}

type service struct {
	repo        CartRepository
	productRepo products.ProductRepository
}

// NewService builds a cart service backed by the provided repositories.
func NewService(repo CartRepository, productRepo products.ProductRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	return &service{repo: repo, productRepo: productRepo}, nil
}

// WithTx rebinds the service to a transaction.
func (s *service) WithTx(tx *gorm.DB) Service {
	if tx == nil {
		return s
	}
	return &service{repo: s.repo.WithTx(tx), productRepo: s.productRepo.WithTx(tx)}
}

func (s *service) Get(ctx context.Context, cartID uuid.UUID) (*models.Cart, error) {
	return s.loadCart(ctx, cartID)
}

func (s *service) GetByUser(ctx context.Context, userID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return cart, nil
}

// AddProduct associates the product with the cart. Re-adding a product the
// cart already holds is a no-op; a product held by another cart or no longer
// AVAILABLE is rejected.
func (s *service) AddProduct(ctx context.Context, cartID, productID uuid.UUID) error {
	cart, err := s.loadCart(ctx, cartID)
	if err != nil {
		return err
	}

	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return err
	}

	if product.CartID != nil {
		if *product.CartID == cart.ID {
			return nil
		}
		return pkgerrors.New(pkgerrors.CodeStateConflict, "product is already in another cart")
	}
	if product.Status != enums.ProductStatusAvailable {
		return pkgerrors.New(
			pkgerrors.CodeStateConflict,
			fmt.Sprintf("product is %s, only AVAILABLE products can be added to a cart", product.Status),
		)
	}

	if err := s.repo.AttachProduct(ctx, cart.ID, product.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach product to cart")
	}
	return nil
}

// RemoveProduct clears the association. Removing a product that is not in the
// cart is a no-op.
func (s *service) RemoveProduct(ctx context.Context, cartID, productID uuid.UUID) error {
	cart, err := s.loadCart(ctx, cartID)
	if err != nil {
		return err
	}

	product, err := s.loadProduct(ctx, productID)
	if err != nil {
		return err
	}

	if product.CartID == nil || *product.CartID != cart.ID {
		return nil
	}

	if err := s.repo.DetachProduct(ctx, product.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "detach product from cart")
	}
	return nil
}

// Clear disassociates every product in the cart and verifies the cart really
// is empty afterwards. Safe to call on an already-empty cart.
func (s *service) Clear(ctx context.Context, cartID uuid.UUID) error {
	cart, err := s.loadCart(ctx, cartID)
	if err != nil {
		return err
	}

	if err := s.repo.DetachAll(ctx, cart.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}

	remaining, err := s.repo.CountProducts(ctx, cart.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "verify cart cleared")
	}
	if remaining != 0 {
		return pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("cart still holds %d products after clear", remaining))
	}
	return nil
}

// Total sums the prices of the cart's current products. An empty cart totals zero.
func (s *service) Total(ctx context.Context, cartID uuid.UUID) (decimal.Decimal, error) {
	cart, err := s.loadCart(ctx, cartID)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, product := range cart.Products {
		total = total.Add(product.Price)
	}
	return total, nil
}

func (s *service) loadCart(ctx context.Context, cartID uuid.UUID) (*models.Cart, error) {
	cart, err := s.repo.FindByID(ctx, cartID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return cart, nil
}

func (s *service) loadProduct(ctx context.Context, productID uuid.UUID) (*models.Product, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}
