package products

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/anavasquez/restyle-backend/pkg/db/models"
	"github.com/anavasquez/restyle-backend/pkg/enums"
	"github.com/anavasquez/restyle-backend/pkg/pagination"
)

func setupProductsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  category_id TEXT,
  cart_id TEXT,
  invoice_id TEXT,
  name TEXT NOT NULL,
  description TEXT,
  price TEXT NOT NULL,
  size TEXT,
  image_url TEXT,
  status TEXT NOT NULL DEFAULT 'AVAILABLE',
  published_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func insertProduct(t *testing.T, repo *Repository, userID uuid.UUID, name string, status enums.ProductStatus, publishedAt time.Time) *models.Product {
	t.Helper()
	product := &models.Product{
		ID:          uuid.New(),
		UserID:      userID,
		Name:        name,
		Price:       decimal.NewFromInt(20),
		Status:      status,
		PublishedAt: publishedAt,
	}
	created, err := repo.Create(context.Background(), product)
	require.NoError(t, err)
	return created
}

func TestRepositoryCreateAndFind(t *testing.T) {
	repo := NewRepository(setupProductsTestDB(t))
	owner := uuid.New()

	created := insertProduct(t, repo, owner, "Denim jacket", "", time.Now().UTC())
	assert.Equal(t, enums.ProductStatusAvailable, created.Status, "empty status defaults to AVAILABLE")

	found, err := repo.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Denim jacket", found.Name)
	assert.True(t, found.Price.Equal(decimal.NewFromInt(20)))
}

func TestRepositoryFindMissing(t *testing.T) {
	repo := NewRepository(setupProductsTestDB(t))

	_, err := repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	exists, err := repo.ExistsByID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRepositoryUpdateStatus(t *testing.T) {
	repo := NewRepository(setupProductsTestDB(t))
	created := insertProduct(t, repo, uuid.New(), "Silk scarf", enums.ProductStatusAvailable, time.Now().UTC())

	require.NoError(t, repo.UpdateStatus(context.Background(), created.ID, enums.ProductStatusReserved))

	found, err := repo.FindByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.ProductStatusReserved, found.Status)
}

func TestRepositoryListByStatusAndUser(t *testing.T) {
	repo := NewRepository(setupProductsTestDB(t))
	ana := uuid.New()
	leo := uuid.New()
	now := time.Now().UTC()

	insertProduct(t, repo, ana, "Older boots", enums.ProductStatusAvailable, now.Add(-time.Hour))
	insertProduct(t, repo, ana, "Newer coat", enums.ProductStatusAvailable, now)
	insertProduct(t, repo, leo, "Sold bag", enums.ProductStatusSold, now)

	sold, err := repo.ListByStatus(context.Background(), enums.ProductStatusSold)
	require.NoError(t, err)
	require.Len(t, sold, 1)
	assert.Equal(t, "Sold bag", sold[0].Name)

	mine, err := repo.ListByUser(context.Background(), ana)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "Newer coat", mine[0].Name, "newest listing first")
}

func TestRepositoryListAvailableHonorsLimit(t *testing.T) {
	repo := NewRepository(setupProductsTestDB(t))
	owner := uuid.New()
	now := time.Now().UTC()

	for i := 0; i < 3; i++ {
		insertProduct(t, repo, owner, "Listing", enums.ProductStatusAvailable, now.Add(time.Duration(i)*time.Minute))
	}
	insertProduct(t, repo, owner, "Reserved", enums.ProductStatusReserved, now)

	rows, err := repo.ListAvailable(context.Background(), pagination.Params{Limit: 2})
	require.NoError(t, err)
	// LimitWithBuffer fetches one extra row for next-page detection.
	assert.Len(t, rows, 3)
	for _, row := range rows {
		assert.Equal(t, enums.ProductStatusAvailable, row.Status)
	}
}

func TestRepositoryDelete(t *testing.T) {
	repo := NewRepository(setupProductsTestDB(t))
	created := insertProduct(t, repo, uuid.New(), "Wool sweater", enums.ProductStatusAvailable, time.Now().UTC())

	require.NoError(t, repo.Delete(context.Background(), created.ID))

	exists, err := repo.ExistsByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}
