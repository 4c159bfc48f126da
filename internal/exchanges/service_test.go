package exchanges

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/anavasquez/restyle-backend/internal/products"
	"github.com/anavasquez/restyle-backend/internal/users"
	"github.com/anavasquez/restyle-backend/pkg/db/models"
	"github.com/anavasquez/restyle-backend/pkg/enums"
	pkgerrors "github.com/anavasquez/restyle-backend/pkg/errors"
	"github.com/anavasquez/restyle-backend/pkg/logger"
	"github.com/anavasquez/restyle-backend/pkg/pagination"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubUserRepo struct {
	ids map[uuid.UUID]bool
}

func (s *stubUserRepo) WithTx(tx *gorm.DB) users.UserRepository { return s }

func (s *stubUserRepo) Create(_ context.Context, user *models.User) (*models.User, error) {
	s.ids[user.ID] = true
	return user, nil
}

func (s *stubUserRepo) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if !s.ids[id] {
		return nil, gorm.ErrRecordNotFound
	}
	return &models.User{ID: id}, nil
}

func (s *stubUserRepo) FindByEmail(_ context.Context, _ string) (*models.User, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) ExistsByID(_ context.Context, id uuid.UUID) (bool, error) {
	return s.ids[id], nil
}

type stubProductRepo struct {
	rows map[uuid.UUID]*models.Product
}

func (s *stubProductRepo) WithTx(tx *gorm.DB) products.ProductRepository { return s }

func (s *stubProductRepo) Create(_ context.Context, p *models.Product) (*models.Product, error) {
	s.rows[p.ID] = p
	return p, nil
}

func (s *stubProductRepo) Save(_ context.Context, p *models.Product) (*models.Product, error) {
	s.rows[p.ID] = p
	return p, nil
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

type stubExchangeRepo struct {
	rows         map[uuid.UUID]*models.Exchange
	participants map[uuid.UUID][]uuid.UUID
}

func newStubExchangeRepo() *stubExchangeRepo {
	return &stubExchangeRepo{
		rows:         map[uuid.UUID]*models.Exchange{},
		participants: map[uuid.UUID][]uuid.UUID{},
	}
}

func (s *stubExchangeRepo) WithTx(tx *gorm.DB) ExchangeRepository { return s }

func (s *stubExchangeRepo) Create(_ context.Context, exchange *models.Exchange) (*models.Exchange, error) {
	if exchange.ID == uuid.Nil {
		exchange.ID = uuid.New()
	}
	copied := *exchange
	s.rows[exchange.ID] = &copied
	return exchange, nil
}

func (s *stubExchangeRepo) Save(_ context.Context, exchange *models.Exchange) (*models.Exchange, error) {
	copied := *exchange
	s.rows[exchange.ID] = &copied
	return exchange, nil
}

func (s *stubExchangeRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Exchange, error) {
	row, ok := s.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *row
	copied.Products = nil
	for _, productID := range s.participants[id] {
		copied.Products = append(copied.Products, models.Product{ID: productID})
	}
	return &copied, nil
}

func (s *stubExchangeRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Exchange, error) {
	return s.FindByID(ctx, id)
}

func (s *stubExchangeRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(s.rows, id)
	delete(s.participants, id)
	return nil
}

func (s *stubExchangeRepo) ListAll(_ context.Context) ([]models.Exchange, error) {
	var rows []models.Exchange
	for _, row := range s.rows {
		rows = append(rows, *row)
	}
	return rows, nil
}

func (s *stubExchangeRepo) ListByOwner(_ context.Context, ownerID uuid.UUID) ([]models.Exchange, error) {
	var rows []models.Exchange
	for _, row := range s.rows {
		if row.OwnerID == ownerID {
			rows = append(rows, *row)
		}
	}
	return rows, nil
}

func (s *stubExchangeRepo) ListByRequester(_ context.Context, requesterID uuid.UUID) ([]models.Exchange, error) {
	var rows []models.Exchange
	for _, row := range s.rows {
		if row.RequesterID == requesterID {
			rows = append(rows, *row)
		}
	}
	return rows, nil
}

func (s *stubExchangeRepo) HasPendingForProduct(_ context.Context, productID uuid.UUID) (bool, error) {
	for exchangeID, productIDs := range s.participants {
		row, ok := s.rows[exchangeID]
		if !ok || row.Status != enums.ExchangeStatusPending {
			continue
		}
		for _, id := range productIDs {
			if id == productID {
				return true, nil
			}
		}
	}
	return false, nil
}

func (s *stubExchangeRepo) AttachProducts(_ context.Context, exchange *models.Exchange, rows []models.Product) error {
	for _, row := range rows {
		s.participants[exchange.ID] = append(s.participants[exchange.ID], row.ID)
	}
	return nil
}

type exchangeFixture struct {
	svc         Service
	repo        *stubExchangeRepo
	userRepo    *stubUserRepo
	productRepo *stubProductRepo

	owner            uuid.UUID
	requester        uuid.UUID
	ownerProduct     *models.Product
	requesterProduct *models.Product
}

func newExchangeFixture(t *testing.T) *exchangeFixture {
	t.Helper()

	repo := newStubExchangeRepo()
	userRepo := &stubUserRepo{ids: map[uuid.UUID]bool{}}
	productRepo := &stubProductRepo{rows: map[uuid.UUID]*models.Product{}}

	lifecycle, err := products.NewService(productRepo)
	require.NoError(t, err)

	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(stubTxRunner{}, repo, userRepo, productRepo, lifecycle, logg, nil)
	require.NoError(t, err)

	f := &exchangeFixture{
		svc:         svc,
		repo:        repo,
		userRepo:    userRepo,
		productRepo: productRepo,
		owner:       uuid.New(),
		requester:   uuid.New(),
	}
	userRepo.ids[f.owner] = true
	userRepo.ids[f.requester] = true
	f.ownerProduct = f.addProduct(f.owner, enums.ProductStatusAvailable)
	f.requesterProduct = f.addProduct(f.requester, enums.ProductStatusAvailable)
	return f
}

func (f *exchangeFixture) addProduct(userID uuid.UUID, status enums.ProductStatus) *models.Product {
	product := &models.Product{
		ID:     uuid.New(),
		UserID: userID,
		Name:   "listing",
		Price:  decimal.NewFromInt(10),
		Status: status,
	}
	f.productRepo.rows[product.ID] = product
	return product
}

func (f *exchangeFixture) proposeInput() ProposeInput {
	return ProposeInput{
		OwnerID:            f.owner,
		RequesterID:        f.requester,
		OwnerProductID:     f.ownerProduct.ID,
		RequesterProductID: f.requesterProduct.ID,
	}
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, code, typed.Code())
}

func TestProposeCreatesPendingExchange(t *testing.T) {
	f := newExchangeFixture(t)

	exchange, err := f.svc.Propose(context.Background(), f.proposeInput())
	require.NoError(t, err)

	assert.Equal(t, enums.ExchangeStatusPending, exchange.Status)
	assert.Equal(t, f.owner, exchange.OwnerID)
	assert.Equal(t, f.requester, exchange.RequesterID)
	assert.False(t, exchange.ExchangeDate.IsZero())
	assert.Nil(t, exchange.CompletionDate)
	assert.Len(t, f.repo.participants[exchange.ID], 2)
}

func TestProposeRejectsSelfExchange(t *testing.T) {
	f := newExchangeFixture(t)
	input := f.proposeInput()
	input.RequesterID = input.OwnerID

	_, err := f.svc.Propose(context.Background(), input)
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestProposeUnknownUsers(t *testing.T) {
	f := newExchangeFixture(t)

	t.Run("owner", func(t *testing.T) {
		input := f.proposeInput()
		input.OwnerID = uuid.New()
		_, err := f.svc.Propose(context.Background(), input)
		requireCode(t, err, pkgerrors.CodeNotFound)
	})
	t.Run("requester", func(t *testing.T) {
		input := f.proposeInput()
		input.RequesterID = uuid.New()
		_, err := f.svc.Propose(context.Background(), input)
		requireCode(t, err, pkgerrors.CodeNotFound)
	})
}

func TestProposeUnknownProduct(t *testing.T) {
	f := newExchangeFixture(t)
	input := f.proposeInput()
	input.OwnerProductID = uuid.New()

	_, err := f.svc.Propose(context.Background(), input)
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestProposeOwnershipMismatch(t *testing.T) {
	f := newExchangeFixture(t)
	input := f.proposeInput()
	// The requester offers a product they do not own.
	input.RequesterProductID = f.ownerProduct.ID

	_, err := f.svc.Propose(context.Background(), input)
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestProposeRejectsSoldProduct(t *testing.T) {
	f := newExchangeFixture(t)
	f.ownerProduct.Status = enums.ProductStatusSold

	_, err := f.svc.Propose(context.Background(), f.proposeInput())
	requireCode(t, err, pkgerrors.CodeStateConflict)
}

func TestProposeRejectsDoubleBooking(t *testing.T) {
	f := newExchangeFixture(t)
	_, err := f.svc.Propose(context.Background(), f.proposeInput())
	require.NoError(t, err)

	// A second proposal over the same owner product from another requester.
	other := uuid.New()
	f.userRepo.ids[other] = true
	otherProduct := f.addProduct(other, enums.ProductStatusAvailable)

	_, err = f.svc.Propose(context.Background(), ProposeInput{
		OwnerID:            f.owner,
		RequesterID:        other,
		OwnerProductID:     f.ownerProduct.ID,
		RequesterProductID: otherProduct.ID,
	})
	requireCode(t, err, pkgerrors.CodeStateConflict)
}

func TestAcceptMarksProductsSold(t *testing.T) {
	f := newExchangeFixture(t)
	exchange, err := f.svc.Propose(context.Background(), f.proposeInput())
	require.NoError(t, err)

	result, err := f.svc.Accept(context.Background(), exchange.ID)
	require.NoError(t, err)

	assert.Equal(t, enums.ExchangeStatusAccepted, result.Exchange.Status)
	require.NotNil(t, result.Exchange.CompletionDate)
	assert.Empty(t, result.FailedProductIDs)

	assert.Equal(t, enums.ProductStatusSold, f.productRepo.rows[f.ownerProduct.ID].Status)
	assert.Equal(t, enums.ProductStatusSold, f.productRepo.rows[f.requesterProduct.ID].Status)
}

func TestAcceptTwiceFails(t *testing.T) {
	f := newExchangeFixture(t)
	exchange, err := f.svc.Propose(context.Background(), f.proposeInput())
	require.NoError(t, err)

	_, err = f.svc.Accept(context.Background(), exchange.ID)
	require.NoError(t, err)

	_, err = f.svc.Accept(context.Background(), exchange.ID)
	requireCode(t, err, pkgerrors.CodeInvalidTransition)
}

func TestAcceptUnknownExchange(t *testing.T) {
	f := newExchangeFixture(t)

	_, err := f.svc.Accept(context.Background(), uuid.New())
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestAcceptReportsPartialTransitionFailures(t *testing.T) {
	f := newExchangeFixture(t)
	exchange, err := f.svc.Propose(context.Background(), f.proposeInput())
	require.NoError(t, err)

	// One participant got sold through another path before acceptance.
	f.productRepo.rows[f.ownerProduct.ID].Status = enums.ProductStatusSold

	result, err := f.svc.Accept(context.Background(), exchange.ID)
	require.NoError(t, err)

	assert.Equal(t, enums.ExchangeStatusAccepted, result.Exchange.Status)
	require.Len(t, result.FailedProductIDs, 1)
	assert.Equal(t, f.ownerProduct.ID, result.FailedProductIDs[0])
	assert.Equal(t, enums.ProductStatusSold, f.productRepo.rows[f.requesterProduct.ID].Status)
}

func TestUpdateStatusMachine(t *testing.T) {
	cases := []struct {
		name    string
		from    enums.ExchangeStatus
		to      enums.ExchangeStatus
		allowed bool
	}{
		{"pending to rejected", enums.ExchangeStatusPending, enums.ExchangeStatusRejected, true},
		{"accepted to completed", enums.ExchangeStatusAccepted, enums.ExchangeStatusCompleted, true},
		{"pending to completed", enums.ExchangeStatusPending, enums.ExchangeStatusCompleted, false},
		{"rejected to pending", enums.ExchangeStatusRejected, enums.ExchangeStatusPending, false},
		{"completed to pending", enums.ExchangeStatusCompleted, enums.ExchangeStatusPending, false},
		{"rejected to accepted via accept", enums.ExchangeStatusRejected, enums.ExchangeStatusAccepted, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newExchangeFixture(t)
			exchange, err := f.svc.Propose(context.Background(), f.proposeInput())
			require.NoError(t, err)
			f.repo.rows[exchange.ID].Status = tc.from

			updated, err := f.svc.UpdateStatus(context.Background(), exchange.ID, tc.to)
			if tc.allowed {
				require.NoError(t, err)
				assert.Equal(t, tc.to, updated.Status)
				return
			}
			requireCode(t, err, pkgerrors.CodeInvalidTransition)
		})
	}
}

func TestUpdateStatusStampsCompletionDate(t *testing.T) {
	f := newExchangeFixture(t)
	exchange, err := f.svc.Propose(context.Background(), f.proposeInput())
	require.NoError(t, err)

	result, err := f.svc.Accept(context.Background(), exchange.ID)
	require.NoError(t, err)
	require.NotNil(t, result.Exchange.CompletionDate)
	accepted := *result.Exchange.CompletionDate

	completed, err := f.svc.UpdateStatus(context.Background(), exchange.ID, enums.ExchangeStatusCompleted)
	require.NoError(t, err)
	require.NotNil(t, completed.CompletionDate)
	assert.Equal(t, accepted, *completed.CompletionDate, "completion date stamped at acceptance is preserved")
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	f := newExchangeFixture(t)
	exchange, err := f.svc.Propose(context.Background(), f.proposeInput())
	require.NoError(t, err)

	_, err = f.svc.UpdateStatus(context.Background(), exchange.ID, enums.ExchangeStatus("BROKEN"))
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestDeleteExchange(t *testing.T) {
	f := newExchangeFixture(t)
	exchange, err := f.svc.Propose(context.Background(), f.proposeInput())
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(context.Background(), exchange.ID))

	_, err = f.svc.GetByID(context.Background(), exchange.ID)
	requireCode(t, err, pkgerrors.CodeNotFound)
}
