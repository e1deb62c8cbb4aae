package payments

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/angelmondragon/eshoplite-backend/pkg/db/models"
	"github.com/angelmondragon/eshoplite-backend/pkg/enums"
	"github.com/angelmondragon/eshoplite-backend/pkg/types"
)

func seedRecord(t *testing.T, repo Repository, createdAt time.Time, status enums.PaymentStatus) *models.PaymentRecord {
	t.Helper()
	record, err := repo.Create(context.Background(), &models.PaymentRecord{
		UserID:        "user-1",
		Currency:      "USD",
		Amount:        decimal.RequireFromString("10.00"),
		Status:        status,
		PaymentMethod: "card",
		Items: datatypes.NewJSONSlice([]types.PaymentItem{
			{ProductID: "7", Quantity: 1, UnitPrice: decimal.RequireFromString("10.00")},
		}),
		CreatedAt: createdAt,
	})
	require.NoError(t, err)
	return record
}

func TestRepositoryCreateAssignsIDAndTimestamp(t *testing.T) {
	repo := NewRepository(openTestDB(t))

	record, err := repo.Create(context.Background(), &models.PaymentRecord{
		UserID:        "user-1",
		Currency:      "EUR",
		Amount:        decimal.RequireFromString("5.50"),
		Status:        enums.PaymentStatusSuccess,
		PaymentMethod: "cash",
		Items:         datatypes.NewJSONSlice([]types.PaymentItem{{ProductID: "1", Quantity: 1}}),
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, record.PaymentID)
	assert.False(t, record.CreatedAt.IsZero())

	found, err := repo.FindByID(context.Background(), record.PaymentID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "EUR", found.Currency)
	assert.True(t, found.Amount.Equal(decimal.RequireFromString("5.5")))
	require.Len(t, found.Items, 1)
	assert.Equal(t, "1", found.Items[0].ProductID)
}

func TestRepositoryFindByIDAbsentIsNotAnError(t *testing.T) {
	repo := NewRepository(openTestDB(t))

	found, err := repo.FindByID(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestRepositoryListOrdersNewestFirstAndPages(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		ids = append(ids, seedRecord(t, repo, base.Add(time.Duration(i)*time.Minute), enums.PaymentStatusSuccess).PaymentID)
	}

	items, total, err := repo.List(context.Background(), ListParams{Page: 1, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	require.Len(t, items, 2)
	assert.Equal(t, ids[4], items[0].PaymentID)
	assert.Equal(t, ids[3], items[1].PaymentID)

	items, _, err = repo.List(context.Background(), ListParams{Page: 3, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, ids[0], items[0].PaymentID)
}

func TestRepositoryListClampsPaging(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	base := time.Now().UTC()
	for i := 0; i < 12; i++ {
		seedRecord(t, repo, base.Add(time.Duration(i)*time.Second), enums.PaymentStatusSuccess)
	}

	items, total, err := repo.List(context.Background(), ListParams{Page: 0, PageSize: 500})
	require.NoError(t, err)
	assert.Equal(t, int64(12), total)
	assert.Len(t, items, 10)
}

func TestRepositoryListPastTheEndIsEmpty(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	base := time.Now().UTC()
	for i := 0; i < 3; i++ {
		seedRecord(t, repo, base.Add(time.Duration(i)*time.Second), enums.PaymentStatusSuccess)
	}

	for _, page := range []int{1000, math.MaxInt/10 + 2} {
		items, total, err := repo.List(context.Background(), ListParams{Page: page, PageSize: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Empty(t, items, "page %d", page)
	}
}

func TestRepositoryListFiltersStatus(t *testing.T) {
	repo := NewRepository(openTestDB(t))
	now := time.Now().UTC()
	seedRecord(t, repo, now, enums.PaymentStatusSuccess)
	seedRecord(t, repo, now.Add(time.Second), enums.PaymentStatus("Refunded"))

	items, total, err := repo.List(context.Background(), ListParams{Page: 1, PageSize: 10, Status: "Success"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	assert.Equal(t, enums.PaymentStatusSuccess, items[0].Status)

	items, total, err = repo.List(context.Background(), ListParams{Page: 1, PageSize: 10, Status: "Pending"})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)
}
