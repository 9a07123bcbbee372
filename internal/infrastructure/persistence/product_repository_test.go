package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/onlinekart/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockProductRepository creates a GormProductRepository with a mocked SQL connection
func newMockProductRepository(t *testing.T) (*GormProductRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormProductRepository(gormDB), mock, mockDB
}

func productRows(id, categoryID uuid.UUID) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "version", "title", "slug", "description", "price", "stock", "is_active", "category_id", "image_key"}).
		AddRow(id, 1, "Mechanical Keyboard", "mechanical-keyboard", "Clicky", decimal.NewFromFloat(79.99), 12, true, categoryID, "")
}

func TestGormProductRepository_FindByID(t *testing.T) {
	t.Run("finds existing product", func(t *testing.T) {
		repo, mock, mockDB := newMockProductRepository(t)
		defer mockDB.Close()

		productID := uuid.New()
		categoryID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "products" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(productID, 1).
			WillReturnRows(productRows(productID, categoryID))

		product, err := repo.FindByID(context.Background(), productID)

		assert.NoError(t, err)
		require.NotNil(t, product)
		assert.Equal(t, productID, product.ID)
		assert.Equal(t, "mechanical-keyboard", product.Slug)
		assert.Equal(t, 12, product.Stock)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrNotFound for missing product", func(t *testing.T) {
		repo, mock, mockDB := newMockProductRepository(t)
		defer mockDB.Close()

		productID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "products" WHERE id = \$1 ORDER BY .* LIMIT .*`).
			WithArgs(productID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		product, err := repo.FindByID(context.Background(), productID)

		assert.Nil(t, product)
		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormProductRepository_FindBySlug(t *testing.T) {
	t.Run("finds product by slug", func(t *testing.T) {
		repo, mock, mockDB := newMockProductRepository(t)
		defer mockDB.Close()

		productID := uuid.New()
		categoryID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "products" WHERE slug = \$1 ORDER BY .* LIMIT .*`).
			WithArgs("mechanical-keyboard", 1).
			WillReturnRows(productRows(productID, categoryID))

		product, err := repo.FindBySlug(context.Background(), "mechanical-keyboard")

		assert.NoError(t, err)
		require.NotNil(t, product)
		assert.Equal(t, "Mechanical Keyboard", product.Title)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormProductRepository_FindAll(t *testing.T) {
	t.Run("applies active filter and pagination", func(t *testing.T) {
		repo, mock, mockDB := newMockProductRepository(t)
		defer mockDB.Close()

		categoryID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "products" WHERE is_active = \$1 ORDER BY created_at DESC LIMIT .*`).
			WithArgs(true, 20).
			WillReturnRows(productRows(uuid.New(), categoryID))

		filter := shared.DefaultFilter()
		filter.Filters["is_active"] = true

		products, err := repo.FindAll(context.Background(), filter)

		assert.NoError(t, err)
		assert.Len(t, products, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("searches by title", func(t *testing.T) {
		repo, mock, mockDB := newMockProductRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "products" WHERE title ILIKE \$1 ORDER BY created_at DESC LIMIT .*`).
			WithArgs("%keyboard%", 20).
			WillReturnRows(productRows(uuid.New(), uuid.New()))

		filter := shared.DefaultFilter()
		filter.Search = "keyboard"

		products, err := repo.FindAll(context.Background(), filter)

		assert.NoError(t, err)
		assert.Len(t, products, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormProductRepository_FindByIDsForUpdate(t *testing.T) {
	t.Run("locks selected rows", func(t *testing.T) {
		repo, mock, mockDB := newMockProductRepository(t)
		defer mockDB.Close()

		productID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "products" WHERE id IN \(\$1\) FOR UPDATE`).
			WithArgs(productID).
			WillReturnRows(productRows(productID, uuid.New()))

		products, err := repo.FindByIDsForUpdate(context.Background(), []uuid.UUID{productID})

		assert.NoError(t, err)
		assert.Len(t, products, 1)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns empty slice for no IDs", func(t *testing.T) {
		repo, mock, mockDB := newMockProductRepository(t)
		defer mockDB.Close()

		products, err := repo.FindByIDsForUpdate(context.Background(), nil)

		assert.NoError(t, err)
		assert.Empty(t, products)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormProductRepository_ExistsBySlug(t *testing.T) {
	t.Run("returns true when slug exists", func(t *testing.T) {
		repo, mock, mockDB := newMockProductRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT count\(\*\) FROM "products" WHERE slug = \$1`).
			WithArgs("mechanical-keyboard").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		exists, err := repo.ExistsBySlug(context.Background(), "mechanical-keyboard")

		assert.NoError(t, err)
		assert.True(t, exists)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
