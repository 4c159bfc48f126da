package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/anavasquez/restyle-backend/pkg/db/models"
	pkgerrors "github.com/anavasquez/restyle-backend/pkg/errors"
)

// Service resolves user references for the API layer and the workflows.
type Service interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type service struct {
	repo UserRepository
}

// NewService builds a user service backed by the provided repository.
func NewService(repo UserRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}
