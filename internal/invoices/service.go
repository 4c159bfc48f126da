package invoices

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/anavasquez/restyle-backend/pkg/db/models"
	pkgerrors "github.com/anavasquez/restyle-backend/pkg/errors"
)

// Service exposes read access to invoices. Invoices are created exclusively
// by the checkout workflow and never mutated afterwards.
type Service interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Invoice, error)
}

type service struct {
	repo InvoiceRepository
}

// NewService builds an invoice service backed by the provided repository.
func NewService(repo InvoiceRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("invoice repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	invoice, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load invoice")
	}
	return invoice, nil
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Invoice, error) {
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list invoices")
	}
	return rows, nil
}
