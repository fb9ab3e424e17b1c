package users

import (
	"path/filepath"
	"testing"

	"github.com/openbid/auction-api/internal/database"
	"github.com/openbid/auction-api/internal/types"
	"github.com/stretchr/testify/require"
)

func setupService(t *testing.T) *Service {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "users_test.db"))
	require.NoError(t, err)

	service := NewService(db)
	require.NoError(t, service.db.CreateUser(&types.User{
		UserID:          1,
		FullName:        "Seasoned Seller",
		PositiveReviews: 9,
		NegativeReviews: 1,
	}))
	return service
}

func TestGetReviewCounts(t *testing.T) {
	service := setupService(t)

	counts, err := service.GetReviewCounts(1)
	require.NoError(t, err)
	require.Equal(t, 9, counts.Positive)
	require.Equal(t, 1, counts.Negative)
	require.Equal(t, 10, counts.Total())
	require.InDelta(t, 0.9, counts.PositiveRatio(), 1e-9)

	// Unknown users report zero reviews rather than an error
	counts, err = service.GetReviewCounts(42)
	require.NoError(t, err)
	require.Zero(t, counts.Total())
	require.Zero(t, counts.PositiveRatio())
}

func TestGetSummary(t *testing.T) {
	service := setupService(t)

	summary, err := service.GetSummary(1)
	require.NoError(t, err)
	require.NotNil(t, summary)
	require.Equal(t, int64(1), summary.ID)
	require.Equal(t, "Seasoned Seller", summary.FullName)

	summary, err = service.GetSummary(42)
	require.NoError(t, err)
	require.Nil(t, summary)
}
