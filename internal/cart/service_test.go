package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/anavasquez/restyle-backend/internal/products"
	"github.com/anavasquez/restyle-backend/pkg/db/models"
	"github.com/anavasquez/restyle-backend/pkg/enums"
	pkgerrors "github.com/anavasquez/restyle-backend/pkg/errors"
	"github.com/anavasquez/restyle-backend/pkg/pagination"
)

type stubCartRepo struct {
	carts    map[uuid.UUID]*models.Cart
	products *stubProductRepo
}

func newStubCartRepo(productRepo *stubProductRepo) *stubCartRepo {
	return &stubCartRepo{carts: map[uuid.UUID]*models.Cart{}, products: productRepo}
}

func (s *stubCartRepo) WithTx(tx *gorm.DB) CartRepository { return s }

func (s *stubCartRepo) Create(_ context.Context, cart *models.Cart) (*models.Cart, error) {
	if cart.ID == uuid.Nil {
		cart.ID = uuid.New()
	}
	s.carts[cart.ID] = cart
	return cart, nil
}

func (s *stubCartRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Cart, error) {
	cart, ok := s.carts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	loaded := *cart
	loaded.Products = s.products.inCart(id)
	return &loaded, nil
}

func (s *stubCartRepo) FindByUser(_ context.Context, userID uuid.UUID) (*models.Cart, error) {
	for _, cart := range s.carts {
		if cart.UserID == userID {
			loaded := *cart
			loaded.Products = s.products.inCart(cart.ID)
			return &loaded, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCartRepo) CountProducts(_ context.Context, cartID uuid.UUID) (int64, error) {
	return int64(len(s.products.inCart(cartID))), nil
}

func (s *stubCartRepo) AttachProduct(_ context.Context, cartID, productID uuid.UUID) error {
	row, ok := s.products.rows[productID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	id := cartID
	row.CartID = &id
	return nil
}

func (s *stubCartRepo) DetachProduct(_ context.Context, productID uuid.UUID) error {
	if row, ok := s.products.rows[productID]; ok {
		row.CartID = nil
	}
	return nil
}

func (s *stubCartRepo) DetachAll(_ context.Context, cartID uuid.UUID) error {
	for _, row := range s.products.rows {
		if row.CartID != nil && *row.CartID == cartID {
			row.CartID = nil
		}
	}
	return nil
}

type stubProductRepo struct {
	rows map[uuid.UUID]*models.Product
}

func newStubProductRepo() *stubProductRepo {
	return &stubProductRepo{rows: map[uuid.UUID]*models.Product{}}
}

func (s *stubProductRepo) inCart(cartID uuid.UUID) []models.Product {
	var rows []models.Product
	for _, row := range s.rows {
		if row.CartID != nil && *row.CartID == cartID {
			rows = append(rows, *row)
		}
	}
	return rows
}

func (s *stubProductRepo) add(price int64, status enums.ProductStatus) *models.Product {
	product := &models.Product{
		ID:     uuid.New(),
		UserID: uuid.New(),
		Name:   "listing",
		Price:  decimal.NewFromInt(price),
		Status: status,
	}
	s.rows[product.ID] = product
	return product
}

func (s *stubProductRepo) WithTx(tx *gorm.DB) products.ProductRepository { return s }

func (s *stubProductRepo) Create(_ context.Context, product *models.Product) (*models.Product, error) {
	s.rows[product.ID] = product
	return product, nil
}

func (s *stubProductRepo) Save(_ context.Context, product *models.Product) (*models.Product, error) {
	s.rows[product.ID] = product
	return product, nil
}

func (s *stubProductRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Product, error) {
	row, ok := s.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *row
	return &copied, nil
}

func (s *stubProductRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return s.FindByID(ctx, id)
}

func (s *stubProductRepo) ExistsByID(_ context.Context, id uuid.UUID) (bool, error) {
	_, ok := s.rows[id]
	return ok, nil
}

func (s *stubProductRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(s.rows, id)
	return nil
}

func (s *stubProductRepo) UpdateStatus(_ context.Context, id uuid.UUID, status enums.ProductStatus) error {
	row, ok := s.rows[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	row.Status = status
	return nil
}

func (s *stubProductRepo) ListAvailable(_ context.Context, _ pagination.Params) ([]models.Product, error) {
	return nil, nil
}

func (s *stubProductRepo) ListByUser(_ context.Context, _ uuid.UUID) ([]models.Product, error) {
	return nil, nil
}

func (s *stubProductRepo) ListByCategory(_ context.Context, _ uuid.UUID) ([]models.Product, error) {
	return nil, nil
}

func (s *stubProductRepo) ListByStatus(_ context.Context, _ enums.ProductStatus) ([]models.Product, error) {
	return nil, nil
}

func (s *stubProductRepo) Search(_ context.Context, _ string) ([]models.Product, error) {
	return nil, nil
}

func setupCartTest(t *testing.T) (Service, *stubCartRepo, *stubProductRepo, *models.Cart) {
	t.Helper()

	productRepo := newStubProductRepo()
	cartRepo := newStubCartRepo(productRepo)
	svc, err := NewService(cartRepo, productRepo)
	require.NoError(t, err)

	record := &models.Cart{ID: uuid.New(), UserID: uuid.New()}
	cartRepo.carts[record.ID] = record
	return svc, cartRepo, productRepo, record
}

func TestAddProductIsIdempotent(t *testing.T) {
	svc, _, productRepo, record := setupCartTest(t)
	product := productRepo.add(10, enums.ProductStatusAvailable)

	require.NoError(t, svc.AddProduct(context.Background(), record.ID, product.ID))
	require.NoError(t, svc.AddProduct(context.Background(), record.ID, product.ID))

	assert.Len(t, productRepo.inCart(record.ID), 1)
}

func TestAddProductRejectsOtherCart(t *testing.T) {
	svc, cartRepo, productRepo, record := setupCartTest(t)
	other := &models.Cart{ID: uuid.New(), UserID: uuid.New()}
	cartRepo.carts[other.ID] = other

	product := productRepo.add(10, enums.ProductStatusAvailable)
	require.NoError(t, svc.AddProduct(context.Background(), other.ID, product.ID))

	err := svc.AddProduct(context.Background(), record.ID, product.ID)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
}

func TestAddProductRejectsNonAvailable(t *testing.T) {
	for _, status := range []enums.ProductStatus{enums.ProductStatusReserved, enums.ProductStatusSold} {
		t.Run(string(status), func(t *testing.T) {
			svc, _, productRepo, record := setupCartTest(t)
			product := productRepo.add(10, status)

			err := svc.AddProduct(context.Background(), record.ID, product.ID)
			require.Error(t, err)
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			assert.Equal(t, pkgerrors.CodeStateConflict, typed.Code())
		})
	}
}

func TestAddProductUnknownCart(t *testing.T) {
	svc, _, productRepo, _ := setupCartTest(t)
	product := productRepo.add(10, enums.ProductStatusAvailable)

	err := svc.AddProduct(context.Background(), uuid.New(), product.ID)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}

func TestRemoveProductNotInCartIsNoop(t *testing.T) {
	svc, _, productRepo, record := setupCartTest(t)
	product := productRepo.add(10, enums.ProductStatusAvailable)

	require.NoError(t, svc.RemoveProduct(context.Background(), record.ID, product.ID))
}

func TestClearEmptiesCart(t *testing.T) {
	svc, _, productRepo, record := setupCartTest(t)
	for i := 0; i < 3; i++ {
		product := productRepo.add(10, enums.ProductStatusAvailable)
		require.NoError(t, svc.AddProduct(context.Background(), record.ID, product.ID))
	}

	require.NoError(t, svc.Clear(context.Background(), record.ID))
	assert.Empty(t, productRepo.inCart(record.ID))

	// Clearing an already-empty cart succeeds.
	require.NoError(t, svc.Clear(context.Background(), record.ID))
}

func TestTotalSumsPrices(t *testing.T) {
	svc, _, productRepo, record := setupCartTest(t)

	first := productRepo.add(10, enums.ProductStatusAvailable)
	second := productRepo.add(15, enums.ProductStatusAvailable)
	require.NoError(t, svc.AddProduct(context.Background(), record.ID, first.ID))
	require.NoError(t, svc.AddProduct(context.Background(), record.ID, second.ID))

	total, err := svc.Total(context.Background(), record.ID)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.NewFromInt(25)), "expected 25, got %s", total)
}

func TestTotalEmptyCartIsZero(t *testing.T) {
	svc, _, _, record := setupCartTest(t)

	total, err := svc.Total(context.Background(), record.ID)
	require.NoError(t, err)
	assert.True(t, total.IsZero())
}
