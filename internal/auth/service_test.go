package auth

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/anavasquez/restyle-backend/internal/cart"
	"github.com/anavasquez/restyle-backend/internal/users"
	"github.com/anavasquez/restyle-backend/pkg/config"
	"github.com/anavasquez/restyle-backend/pkg/db/models"
	pkgerrors "github.com/anavasquez/restyle-backend/pkg/errors"
)

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubUserRepo struct {
	byEmail map[string]*models.User
}

func (s *stubUserRepo) WithTx(tx *gorm.DB) users.UserRepository { return s }

func (s *stubUserRepo) Create(_ context.Context, user *models.User) (*models.User, error) {
	if _, exists := s.byEmail[user.Email]; exists {
		return nil, errors.New(`duplicate key value violates unique constraint "users_email_key"`)
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	s.byEmail[user.Email] = user
	return user, nil
}

func (s *stubUserRepo) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	for _, user := range s.byEmail {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	user, ok := s.byEmail[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func (s *stubUserRepo) ExistsByID(_ context.Context, id uuid.UUID) (bool, error) {
	_, err := s.FindByID(context.Background(), id)
	return err == nil, nil
}

type stubCartRepo struct {
	created []*models.Cart
}

func (s *stubCartRepo) WithTx(tx *gorm.DB) cart.CartRepository { return s }

func (s *stubCartRepo) Create(_ context.Context, record *models.Cart) (*models.Cart, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	s.created = append(s.created, record)
	return record, nil
}

func (s *stubCartRepo) FindByID(_ context.Context, _ uuid.UUID) (*models.Cart, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCartRepo) FindByUser(_ context.Context, _ uuid.UUID) (*models.Cart, error) {
	return nil, gorm.ErrRecordNotFound
}

func (s *stubCartRepo) CountProducts(_ context.Context, _ uuid.UUID) (int64, error) { return 0, nil }

func (s *stubCartRepo) AttachProduct(_ context.Context, _, _ uuid.UUID) error { return nil }

func (s *stubCartRepo) DetachProduct(_ context.Context, _ uuid.UUID) error { return nil }

func (s *stubCartRepo) DetachAll(_ context.Context, _ uuid.UUID) error { return nil }

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "test-secret", Issuer: "restyle-test", ExpirationMinutes: 15}
}

func newAuthFixture(t *testing.T) (Service, *stubUserRepo, *stubCartRepo) {
	t.Helper()
	userRepo := &stubUserRepo{byEmail: map[string]*models.User{}}
	cartRepo := &stubCartRepo{}
	svc, err := NewService(stubTxRunner{}, userRepo, cartRepo, testJWTConfig())
	require.NoError(t, err)
	return svc, userRepo, cartRepo
}

func TestRegisterCreatesUserAndCart(t *testing.T) {
	svc, userRepo, cartRepo := newAuthFixture(t)

	session, err := svc.Register(context.Background(), RegisterInput{
		Email:    "Ana@Restyle.dev",
		Password: "correct-horse",
		Name:     "Ana",
	})
	require.NoError(t, err)
	require.NotNil(t, session.User)
	assert.NotEmpty(t, session.AccessToken)

	assert.Equal(t, "ana@restyle.dev", session.User.Email, "email is normalized")
	assert.NotEqual(t, "correct-horse", session.User.PasswordHash)

	stored, ok := userRepo.byEmail["ana@restyle.dev"]
	require.True(t, ok)
	require.Len(t, cartRepo.created, 1)
	assert.Equal(t, stored.ID, cartRepo.created[0].UserID, "cart belongs to the new user")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, cartRepo := newAuthFixture(t)

	input := RegisterInput{Email: "ana@restyle.dev", Password: "correct-horse", Name: "Ana"}
	_, err := svc.Register(context.Background(), input)
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), input)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeConflict, typed.Code())
	assert.Len(t, cartRepo.created, 1, "no second cart for the rejected registration")
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:    "ana@restyle.dev",
		Password: "short",
		Name:     "Ana",
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
}

func TestLoginRoundTrip(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:    "ana@restyle.dev",
		Password: "correct-horse",
		Name:     "Ana",
	})
	require.NoError(t, err)

	session, err := svc.Login(context.Background(), "ana@restyle.dev", "correct-horse")
	require.NoError(t, err)
	assert.NotEmpty(t, session.AccessToken)
	assert.True(t, strings.Count(session.AccessToken, ".") == 2, "expected a compact JWT")
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:    "ana@restyle.dev",
		Password: "correct-horse",
		Name:     "Ana",
	})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), "ana@restyle.dev", "wrong")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
}

func TestLoginUnknownUser(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), "nobody@restyle.dev", "whatever")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
}
