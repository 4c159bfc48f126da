package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/anavasquez/restyle-backend/internal/addresses"
	"github.com/anavasquez/restyle-backend/internal/cart"
	"github.com/anavasquez/restyle-backend/internal/invoices"
	"github.com/anavasquez/restyle-backend/internal/products"
	"github.com/anavasquez/restyle-backend/pkg/db/models"
	"github.com/anavasquez/restyle-backend/pkg/enums"
	pkgerrors "github.com/anavasquez/restyle-backend/pkg/errors"
	"github.com/anavasquez/restyle-backend/pkg/logger"
	"github.com/anavasquez/restyle-backend/pkg/metrics"
)

// NewAddressFields materializes a shipping address inline at checkout time.
type NewAddressFields struct {
	Street     string
	Number     string
	City       string
	Country    string
	PostalCode string
}

// AddressSpec is a tagged variant: either a reference to an existing address
// owned by the cart's user, or inline fields for a new one. Exactly one side
// must be set.
type AddressSpec struct {
	AddressID *uuid.UUID
	New       *NewAddressFields
}

func (s AddressSpec) validate() error {
	if (s.AddressID == nil) == (s.New == nil) {
		return pkgerrors.New(pkgerrors.CodeValidation, "address spec must set exactly one of address_id or new address fields")
	}
	return nil
}

// Result is the outcome of a checkout. FailedProductIDs lists products whose
// SOLD transition failed; the invoice itself still committed and remains the
// source of truth for what was contracted.
type Result struct {
	Invoice          *models.Invoice `json:"invoice"`
	FailedProductIDs []uuid.UUID     `json:"failed_product_ids,omitempty"`
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service converts a cart into an invoice.
type Service interface {
	Checkout(ctx context.Context, cartID uuid.UUID, spec AddressSpec) (*Result, error)
}

type service struct {
	tx          txRunner
	cartRepo    cart.CartRepository
	addressRepo addresses.AddressRepository
	invoiceRepo invoices.InvoiceRepository
	lifecycle   products.Service
	locks       Locker
	logg        *logger.Logger
	metrics     *metrics.Marketplace
}

// NewService builds a checkout service backed by the provided stack.
func NewService(
	tx txRunner,
	cartRepo cart.CartRepository,
	addressRepo addresses.AddressRepository,
	invoiceRepo invoices.InvoiceRepository,
	lifecycle products.Service,
	locks Locker,
	logg *logger.Logger,
	mtr *metrics.Marketplace,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if addressRepo == nil {
		return nil, fmt.Errorf("address repository required")
	}
	if invoiceRepo == nil {
		return nil, fmt.Errorf("invoice repository required")
	}
	if lifecycle == nil {
		return nil, fmt.Errorf("product lifecycle service required")
	}
	if locks == nil {
		return nil, fmt.Errorf("cart locker required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:          tx,
		cartRepo:    cartRepo,
		addressRepo: addressRepo,
		invoiceRepo: invoiceRepo,
		lifecycle:   lifecycle,
		locks:       locks,
		logg:        logg,
		metrics:     mtr,
	}, nil
}

// Checkout resolves the shipping address, snapshots the cart into an invoice,
// marks the products SOLD best-effort, and clears the cart. The invoice and
// the cart clear commit in one transaction; a failed per-product transition
// is logged and reported but never rolls the invoice back.
func (s *service) Checkout(ctx context.Context, cartID uuid.UUID, spec AddressSpec) (*Result, error) {
	if cartID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart id is required")
	}
	if err := spec.validate(); err != nil {
		return nil, err
	}

	lock := s.locks.ForCart(cartID)
	acquired, err := lock.Acquire(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire checkout lock")
	}
	if !acquired {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "checkout already in progress for this cart")
	}
	defer func() {
		if err := lock.Release(ctx); err != nil {
			s.logg.Error(ctx, "checkout.lock_release_failed", err)
		}
	}()

	var (
		result        *Result
		transitionErr error
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		cartRepo := s.cartRepo.WithTx(tx)
		addressRepo := s.addressRepo.WithTx(tx)
		invoiceRepo := s.invoiceRepo.WithTx(tx)
		lifecycle := s.lifecycle.WithTx(tx)

		record, err := cartRepo.FindByID(ctx, cartID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
		}

		address, err := s.resolveAddress(ctx, addressRepo, record.UserID, spec)
		if err != nil {
			return err
		}

		valid := filterValidProducts(record.Products)
		if len(valid) == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "no valid products in cart for checkout")
		}

		total := decimal.Zero
		productIDs := make([]uuid.UUID, 0, len(valid))
		for _, product := range valid {
			total = total.Add(product.Price)
			productIDs = append(productIDs, product.ID)
		}

		invoice := &models.Invoice{
			UserID:      record.UserID,
			AddressID:   address.ID,
			TotalAmount: total,
		}
		if _, err := invoiceRepo.Create(ctx, invoice); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create invoice")
		}
		if err := invoiceRepo.AttachProducts(ctx, invoice.ID, productIDs); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach products to invoice")
		}

		var failed []uuid.UUID
		for i := range valid {
			sold, err := lifecycle.TransitionStatus(ctx, valid[i].ID, enums.ProductStatusSold)
			if err != nil {
				failed = append(failed, valid[i].ID)
				transitionErr = multierr.Append(transitionErr, fmt.Errorf("product %s: %w", valid[i].ID, err))
				fctx := s.logg.WithField(ctx, "product_id", valid[i].ID.String())
				s.logg.Warn(fctx, "checkout.product_transition_failed")
				continue
			}
			valid[i] = *sold
		}

		if err := cartRepo.DetachAll(ctx, record.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}
		remaining, err := cartRepo.CountProducts(ctx, record.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "verify cart cleared")
		}
		if remaining != 0 {
			return pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("cart still holds %d products after checkout", remaining))
		}

		invoice.Products = valid
		result = &Result{Invoice: invoice, FailedProductIDs: failed}
		return nil
	})
	if err != nil {
		s.metrics.IncCheckout("failure")
		return nil, err
	}

	if transitionErr != nil {
		fctx := s.logg.WithField(ctx, "invoice_id", result.Invoice.ID.String())
		s.logg.Error(fctx, "checkout.partial_transition_failure", transitionErr)
		s.metrics.AddTransitionFailures(len(result.FailedProductIDs))
		s.metrics.IncCheckout("partial")
	} else {
		s.metrics.IncCheckout("success")
	}
	return result, nil
}

func (s *service) resolveAddress(
	ctx context.Context,
	repo addresses.AddressRepository,
	userID uuid.UUID,
	spec AddressSpec,
) (*models.Address, error) {
	if spec.AddressID != nil {
		address, err := repo.FindByIDForUser(ctx, *spec.AddressID, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load address")
		}
		return address, nil
	}

	address := &models.Address{
		UserID:     userID,
		Street:     spec.New.Street,
		Number:     spec.New.Number,
		City:       spec.New.City,
		Country:    spec.New.Country,
		PostalCode: spec.New.PostalCode,
	}
	created, err := repo.Create(ctx, address)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create shipping address")
	}
	return created, nil
}

// filterValidProducts drops partially-initialized references before they can
// reach the invoice snapshot.
func filterValidProducts(rows []models.Product) []models.Product {
	valid := make([]models.Product, 0, len(rows))
	for _, product := range rows {
		if product.ID != uuid.Nil {
			valid = append(valid, product)
		}
	}
	return valid
}
