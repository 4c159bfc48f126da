package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/anavasquez/restyle-backend/internal/cart"
	"github.com/anavasquez/restyle-backend/internal/users"
	pkgauth "github.com/anavasquez/restyle-backend/pkg/auth"
	"github.com/anavasquez/restyle-backend/pkg/config"
	"github.com/anavasquez/restyle-backend/pkg/db"
	"github.com/anavasquez/restyle-backend/pkg/db/models"
	"github.com/anavasquez/restyle-backend/pkg/enums"
	pkgerrors "github.com/anavasquez/restyle-backend/pkg/errors"
)

// RegisterInput carries the fields a new member signs up with.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Phone    *string
}

// Session is the result of a successful login or registration.
type Session struct {
	User        *models.User `json:"user"`
	AccessToken string       `json:"access_token"`
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service handles registration and credential checks.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*Session, error)
	Login(ctx context.Context, email, password string) (*Session, error)
}

type service struct {
	tx       txRunner
	userRepo users.UserRepository
	cartRepo cart.CartRepository
	jwt      config.JWTConfig
}

// NewService builds an auth service backed by the provided stack.
func NewService(tx txRunner, userRepo users.UserRepository, cartRepo cart.CartRepository, jwt config.JWTConfig) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if userRepo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	if cartRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if jwt.Secret == "" {
		return nil, fmt.Errorf("jwt secret required")
	}
	return &service{tx: tx, userRepo: userRepo, cartRepo: cartRepo, jwt: jwt}, nil
}

// Register creates the user and their empty cart in one transaction. Every
// member owns exactly one cart from the moment they exist.
func (s *service) Register(ctx context.Context, input RegisterInput) (*Session, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if len(input.Password) < 8 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		Name:         strings.TrimSpace(input.Name),
		Phone:        input.Phone,
		Role:         enums.UserRoleUser,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.userRepo.WithTx(tx).Create(ctx, user); err != nil {
			if db.IsUniqueViolation(err, "users_email_key") {
				return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
		}
		if _, err := s.cartRepo.WithTx(tx).Create(ctx, &models.Cart{UserID: user.ID}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.session(user)
}

// Login verifies the password and mints an access token.
func (s *service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email and password are required")
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	return s.session(user)
}

func (s *service) session(user *models.User) (*Session, error) {
	token, err := pkgauth.MintAccessToken(s.jwt, time.Now().UTC(), pkgauth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}
	return &Session{User: user, AccessToken: token}, nil
}
