package addresses

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/anavasquez/restyle-backend/pkg/db/models"
	pkgerrors "github.com/anavasquez/restyle-backend/pkg/errors"
)

// Input carries the free-form location fields of an address.
type Input struct {
	Street     string
	Number     string
	City       string
	Country    string
	PostalCode string
}

func (in Input) validate() error {
	if strings.TrimSpace(in.Street) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "street is required")
	}
	if strings.TrimSpace(in.City) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "city is required")
	}
	if strings.TrimSpace(in.Country) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "country is required")
	}
	if strings.TrimSpace(in.PostalCode) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "postal code is required")
	}
	return nil
}

// Service manages the address book of a user.
type Service interface {
	Create(ctx context.Context, userID uuid.UUID, input Input) (*models.Address, error)
	Update(ctx context.Context, id, userID uuid.UUID, input Input) (*models.Address, error)
	GetForUser(ctx context.Context, id, userID uuid.UUID) (*models.Address, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Address, error)
	Delete(ctx context.Context, id, userID uuid.UUID) error
}

type service struct {
	repo AddressRepository
}

// NewService builds an address service backed by the provided repository.
func NewService(repo AddressRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("address repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, userID uuid.UUID, input Input) (*models.Address, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	address := &models.Address{
		UserID:     userID,
		Street:     strings.TrimSpace(input.Street),
		Number:     strings.TrimSpace(input.Number),
		City:       strings.TrimSpace(input.City),
		Country:    strings.TrimSpace(input.Country),
		PostalCode: strings.TrimSpace(input.PostalCode),
	}
	created, err := s.repo.Create(ctx, address)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create address")
	}
	return created, nil
}

func (s *service) Update(ctx context.Context, id, userID uuid.UUID, input Input) (*models.Address, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	address, err := s.GetForUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	address.Street = strings.TrimSpace(input.Street)
	address.Number = strings.TrimSpace(input.Number)
	address.City = strings.TrimSpace(input.City)
	address.Country = strings.TrimSpace(input.Country)
	address.PostalCode = strings.TrimSpace(input.PostalCode)

	saved, err := s.repo.Save(ctx, address)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save address")
	}
	return saved, nil
}

func (s *service) GetForUser(ctx context.Context, id, userID uuid.UUID) (*models.Address, error) {
	address, err := s.repo.FindByIDForUser(ctx, id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load address")
	}
	return address, nil
}

func (s *service) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Address, error) {
	rows, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list addresses")
	}
	return rows, nil
}

func (s *service) Delete(ctx context.Context, id, userID uuid.UUID) error {
	if _, err := s.GetForUser(ctx, id, userID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete address")
	}
	return nil
}
