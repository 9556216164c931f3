package identity

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/otdoges/zapdev-sub005/pkg/db/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupLinksTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS customer_links (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL UNIQUE,
  customer_id TEXT NOT NULL,
  email TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func newLink(userID, customerID string) *models.CustomerLink {
	return &models.CustomerLink{
		ID:         uuid.New(),
		UserID:     userID,
		CustomerID: customerID,
	}
}

func TestRepositoryUpsertLinkInsertsAndFinds(t *testing.T) {
	repo := NewRepository(setupLinksTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.UpsertLink(ctx, newLink("user-1", "cus_111")))

	link, err := repo.FindLinkByUserID(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, link)
	require.Equal(t, "cus_111", link.CustomerID)

	byCustomer, err := repo.FindLinkByCustomerID(ctx, "cus_111")
	require.NoError(t, err)
	require.NotNil(t, byCustomer)
	require.Equal(t, "user-1", byCustomer.UserID)
}

func TestRepositoryUpsertLinkOverwritesCustomer(t *testing.T) {
	repo := NewRepository(setupLinksTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.UpsertLink(ctx, newLink("user-1", "cus_111")))
	require.NoError(t, repo.UpsertLink(ctx, newLink("user-1", "cus_222")))

	link, err := repo.FindLinkByUserID(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, link)
	require.Equal(t, "cus_222", link.CustomerID)

	count, err := repo.CountLinks(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestRepositoryFindLinkMissingReturnsNil(t *testing.T) {
	repo := NewRepository(setupLinksTestDB(t))
	ctx := context.Background()

	link, err := repo.FindLinkByUserID(ctx, "ghost")
	require.NoError(t, err)
	require.Nil(t, link)
}

func TestRepositoryListLinksPaginates(t *testing.T) {
	repo := NewRepository(setupLinksTestDB(t))
	ctx := context.Background()

	for _, userID := range []string{"user-a", "user-b", "user-c"} {
		require.NoError(t, repo.UpsertLink(ctx, newLink(userID, "cus_"+userID)))
	}

	first, err := repo.ListLinks(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)

	rest, err := repo.ListLinks(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
}
