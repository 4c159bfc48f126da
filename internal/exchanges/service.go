package exchanges

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/anavasquez/restyle-backend/internal/products"
	"github.com/anavasquez/restyle-backend/internal/users"
	"github.com/anavasquez/restyle-backend/pkg/db/models"
	"github.com/anavasquez/restyle-backend/pkg/enums"
	pkgerrors "github.com/anavasquez/restyle-backend/pkg/errors"
	"github.com/anavasquez/restyle-backend/pkg/logger"
	"github.com/anavasquez/restyle-backend/pkg/metrics"
)

// allowedTransitions encodes the exchange negotiation state machine.
// REJECTED and COMPLETED are terminal.
var allowedTransitions = map[enums.ExchangeStatus][]enums.ExchangeStatus{
	enums.ExchangeStatusPending:   {enums.ExchangeStatusAccepted, enums.ExchangeStatusRejected},
	enums.ExchangeStatusAccepted:  {enums.ExchangeStatusCompleted},
	enums.ExchangeStatusRejected:  {},
	enums.ExchangeStatusCompleted: {},
}

func canTransition(from, to enums.ExchangeStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// ProposeInput identifies the two sides of a barter: the owner's product the
// requester wants, and the requester's product offered in return.
type ProposeInput struct {
	OwnerID            uuid.UUID
	RequesterID        uuid.UUID
	OwnerProductID     uuid.UUID
	RequesterProductID uuid.UUID
}

// AcceptResult is the outcome of accepting an exchange. FailedProductIDs
// lists participants whose SOLD transition failed; the ACCEPTED status itself
// still committed.
type AcceptResult struct {
	Exchange         *models.Exchange `json:"exchange"`
	FailedProductIDs []uuid.UUID      `json:"failed_product_ids,omitempty"`
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service drives exchange negotiation between two users.
type Service interface {
	Propose(ctx context.Context, input ProposeInput) (*models.Exchange, error)
	Accept(ctx context.Context, id uuid.UUID) (*AcceptResult, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, newStatus enums.ExchangeStatus) (*models.Exchange, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Exchange, error)
	List(ctx context.Context) ([]models.Exchange, error)
	GetByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Exchange, error)
	GetByRequester(ctx context.Context, requesterID uuid.UUID) ([]models.Exchange, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type service struct {
	tx          txRunner
	repo        ExchangeRepository
	userRepo    users.UserRepository
	productRepo products.ProductRepository
	lifecycle   products.Service
	logg        *logger.Logger
	metrics     *metrics.Marketplace
}

// NewService builds an exchange service backed by the provided stack.
func NewService(
	tx txRunner,
	repo ExchangeRepository,
	userRepo users.UserRepository,
	productRepo products.ProductRepository,
	lifecycle products.Service,
	logg *logger.Logger,
	mtr *metrics.Marketplace,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("exchange repository required")
	}
	if userRepo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if lifecycle == nil {
		return nil, fmt.Errorf("product lifecycle service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:          tx,
		repo:        repo,
		userRepo:    userRepo,
		productRepo: productRepo,
		lifecycle:   lifecycle,
		logg:        logg,
		metrics:     mtr,
	}, nil
}

// participant pairs a product with the user who must own it.
type participant struct {
	side      string
	userID    uuid.UUID
	productID uuid.UUID
}

// Propose validates both sides of the barter and records a PENDING exchange.
// Both product rows are locked for the duration of the transaction before the
// PENDING-participation check runs, so two concurrent proposals over the same
// product serialize: the second blocks on the row lock, then sees the first
// proposal's committed exchange and fails the check.
func (s *service) Propose(ctx context.Context, input ProposeInput) (*models.Exchange, error) {
	if input.OwnerID == uuid.Nil || input.RequesterID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner and requester ids are required")
	}
	if input.OwnerID == input.RequesterID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner and requester must be different users")
	}
	if input.OwnerProductID == uuid.Nil || input.RequesterProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "both product ids are required")
	}

	var exchange *models.Exchange
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		userRepo := s.userRepo.WithTx(tx)
		productRepo := s.productRepo.WithTx(tx)

		if err := s.ensureUserExists(ctx, userRepo, input.OwnerID, "owner"); err != nil {
			return err
		}
		if err := s.ensureUserExists(ctx, userRepo, input.RequesterID, "requester"); err != nil {
			return err
		}

		sides := []participant{
			{side: "owner", userID: input.OwnerID, productID: input.OwnerProductID},
			{side: "requester", userID: input.RequesterID, productID: input.RequesterProductID},
		}
		// Lock rows in id order so competing proposals over the same pair
		// cannot deadlock.
		sort.Slice(sides, func(i, j int) bool {
			return bytes.Compare(sides[i].productID[:], sides[j].productID[:]) < 0
		})
		loaded := make(map[string]*models.Product, len(sides))
		for _, p := range sides {
			product, err := s.lockParticipant(ctx, productRepo, p)
			if err != nil {
				return err
			}
			loaded[p.side] = product
		}
		ownerProduct, requesterProduct := loaded["owner"], loaded["requester"]

		for _, product := range []*models.Product{ownerProduct, requesterProduct} {
			pending, err := repo.HasPendingForProduct(ctx, product.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check pending exchanges")
			}
			if pending {
				return pkgerrors.New(
					pkgerrors.CodeStateConflict,
					fmt.Sprintf("product %s already participates in a pending exchange", product.ID),
				)
			}
		}

		record := &models.Exchange{
			OwnerID:      input.OwnerID,
			RequesterID:  input.RequesterID,
			Status:       enums.ExchangeStatusPending,
			ExchangeDate: time.Now().UTC(),
		}
		if _, err := repo.Create(ctx, record); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create exchange")
		}
		participants := []models.Product{*ownerProduct, *requesterProduct}
		if err := repo.AttachProducts(ctx, record, participants); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach products to exchange")
		}
		record.Products = participants
		exchange = record
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncExchange("proposed")
	return exchange, nil
}

// Accept marks a PENDING exchange ACCEPTED, stamps its completion date, and
// marks the participating products SOLD best-effort. A failed per-product
// transition is logged and reported but never rolls the acceptance back.
func (s *service) Accept(ctx context.Context, id uuid.UUID) (*AcceptResult, error) {
	var (
		result        *AcceptResult
		transitionErr error
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		lifecycle := s.lifecycle.WithTx(tx)

		exchange, err := s.loadExchangeForUpdate(ctx, repo, id)
		if err != nil {
			return err
		}
		if exchange.Status != enums.ExchangeStatusPending {
			return pkgerrors.New(
				pkgerrors.CodeInvalidTransition,
				fmt.Sprintf("cannot accept exchange in status %s", exchange.Status),
			).WithDetails(map[string]any{"from": exchange.Status, "to": enums.ExchangeStatusAccepted})
		}

		now := time.Now().UTC()
		exchange.Status = enums.ExchangeStatusAccepted
		exchange.CompletionDate = &now
		if _, err := repo.Save(ctx, exchange); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save exchange")
		}

		var failed []uuid.UUID
		for i := range exchange.Products {
			sold, err := lifecycle.TransitionStatus(ctx, exchange.Products[i].ID, enums.ProductStatusSold)
			if err != nil {
				failed = append(failed, exchange.Products[i].ID)
				transitionErr = multierr.Append(transitionErr, fmt.Errorf("product %s: %w", exchange.Products[i].ID, err))
				fctx := s.logg.WithField(ctx, "product_id", exchange.Products[i].ID.String())
				s.logg.Warn(fctx, "exchange.product_transition_failed")
				continue
			}
			exchange.Products[i] = *sold
		}

		result = &AcceptResult{Exchange: exchange, FailedProductIDs: failed}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if transitionErr != nil {
		fctx := s.logg.WithField(ctx, "exchange_id", result.Exchange.ID.String())
		s.logg.Error(fctx, "exchange.partial_transition_failure", transitionErr)
		s.metrics.AddTransitionFailures(len(result.FailedProductIDs))
	}
	s.metrics.IncExchange("accepted")
	return result, nil
}

// UpdateStatus moves an exchange through the negotiation machine. Accepting
// via this path delegates to Accept so the SOLD loop always runs.
func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, newStatus enums.ExchangeStatus) (*models.Exchange, error) {
	if !newStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown exchange status %q", newStatus))
	}
	if newStatus == enums.ExchangeStatusAccepted {
		result, err := s.Accept(ctx, id)
		if err != nil {
			return nil, err
		}
		return result.Exchange, nil
	}

	exchange, err := s.loadExchange(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if !canTransition(exchange.Status, newStatus) {
		return nil, pkgerrors.New(
			pkgerrors.CodeInvalidTransition,
			fmt.Sprintf("cannot transition exchange from %s to %s", exchange.Status, newStatus),
		).WithDetails(map[string]any{"from": exchange.Status, "to": newStatus})
	}

	exchange.Status = newStatus
	if newStatus == enums.ExchangeStatusCompleted && exchange.CompletionDate == nil {
		now := time.Now().UTC()
		exchange.CompletionDate = &now
	}
	saved, err := s.repo.Save(ctx, exchange)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save exchange")
	}

	switch newStatus {
	case enums.ExchangeStatusRejected:
		s.metrics.IncExchange("rejected")
	case enums.ExchangeStatusCompleted:
		s.metrics.IncExchange("completed")
	}
	return saved, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*models.Exchange, error) {
	return s.loadExchange(ctx, s.repo, id)
}

func (s *service) List(ctx context.Context) ([]models.Exchange, error) {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list exchanges")
	}
	return rows, nil
}

func (s *service) GetByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Exchange, error) {
	rows, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list exchanges by owner")
	}
	return rows, nil
}

func (s *service) GetByRequester(ctx context.Context, requesterID uuid.UUID) ([]models.Exchange, error) {
	rows, err := s.repo.ListByRequester(ctx, requesterID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list exchanges by requester")
	}
	return rows, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.loadExchange(ctx, s.repo, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete exchange")
	}
	return nil
}

func (s *service) ensureUserExists(ctx context.Context, repo users.UserRepository, id uuid.UUID, side string) error {
	exists, err := repo.ExistsByID(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check user")
	}
	if !exists {
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("%s not found", side))
	}
	return nil
}

// lockParticipant locks a product row for the transaction and verifies it can
// enter a barter: owned by the declared side and not already SOLD.
func (s *service) lockParticipant(
	ctx context.Context,
	repo products.ProductRepository,
	p participant,
) (*models.Product, error) {
	product, err := repo.FindByIDForUpdate(ctx, p.productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("%s product not found", p.side))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if product.UserID != p.userID {
		return nil, pkgerrors.New(
			pkgerrors.CodeValidation,
			fmt.Sprintf("product %s does not belong to the %s", product.ID, p.side),
		)
	}
	if product.Status == enums.ProductStatusSold {
		return nil, pkgerrors.New(
			pkgerrors.CodeStateConflict,
			fmt.Sprintf("product %s is already sold", product.ID),
		)
	}
	return product, nil
}

func (s *service) loadExchange(ctx context.Context, repo ExchangeRepository, id uuid.UUID) (*models.Exchange, error) {
	return mapExchangeLoad(repo.FindByID(ctx, id))
}

// loadExchangeForUpdate locks the exchange row until the transaction commits
// so concurrent settlements of the same exchange serialize.
func (s *service) loadExchangeForUpdate(ctx context.Context, repo ExchangeRepository, id uuid.UUID) (*models.Exchange, error) {
	return mapExchangeLoad(repo.FindByIDForUpdate(ctx, id))
}

func mapExchangeLoad(exchange *models.Exchange, err error) (*models.Exchange, error) {
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "exchange not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load exchange")
	}
	return exchange, nil
}
