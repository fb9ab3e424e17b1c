package bidding

import (
	"path/filepath"
	"sync"
	"testing"

	"github.com/openbid/auction-api/internal/auctionerrors"
	"github.com/openbid/auction-api/internal/database"
	"github.com/openbid/auction-api/internal/pricing"
	"github.com/openbid/auction-api/internal/types"
	"github.com/openbid/auction-api/internal/users"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func setupService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "bidding_test.db"))
	require.NoError(t, err)
	return NewService(db, users.NewService(db), nil), db
}

type productParams struct {
	productID      int64
	sellerID       int64
	startPrice     string
	stepPrice      string
	buyNowPrice    string
	status         string
	allowNewBidder bool
}

func seedProduct(t *testing.T, db *gorm.DB, p productParams) {
	t.Helper()
	if p.status == "" {
		p.status = types.ProductStatusActive
	}
	product := types.Product{
		ProductID:      p.productID,
		SellerID:       p.sellerID,
		Name:           "test listing",
		Status:         p.status,
		StartPrice:     dec(p.startPrice),
		StepPrice:      dec(p.stepPrice),
		CurrentPrice:   dec(p.startPrice),
		AllowNewBidder: p.allowNewBidder,
	}
	if p.buyNowPrice != "" {
		buyNow := dec(p.buyNowPrice)
		product.BuyNowPrice = &buyNow
	}
	require.NoError(t, db.Create(&product).Error)
}

func seedUser(t *testing.T, db *gorm.DB, userID int64, positive, negative int) {
	t.Helper()
	require.NoError(t, db.Create(&types.User{
		UserID:          userID,
		FullName:        "test user",
		PositiveReviews: positive,
		NegativeReviews: negative,
	}).Error)
}

func getProduct(t *testing.T, db *gorm.DB, productID int64) *types.Product {
	t.Helper()
	var product types.Product
	require.NoError(t, db.Where("product_id = ?", productID).First(&product).Error)
	return &product
}

func countHistoryRows(t *testing.T, db *gorm.DB, productID int64) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&types.Bid{}).Where("product_id = ?", productID).Count(&count).Error)
	return count
}

func TestPlaceBid_FirstBidPaysFloor(t *testing.T) {
	service, db := setupService(t)
	seedProduct(t, db, productParams{productID: 1, sellerID: 50, startPrice: "10", stepPrice: "5", allowNewBidder: true})

	outcome, err := service.PlaceBid(1, 100, dec("500"))
	require.NoError(t, err)

	require.Equal(t, types.BidStatusWinning, outcome.Status)
	require.True(t, dec("10").Equal(outcome.VisiblePrice), "sole bidder pays the floor, got %s", outcome.VisiblePrice)
	require.Equal(t, int64(100), outcome.LeadingBidderID)
	require.Equal(t, 1, outcome.BidCount)

	product := getProduct(t, db, 1)
	require.True(t, dec("10").Equal(product.CurrentPrice))
	require.NotNil(t, product.HighestBidderID)
	require.Equal(t, int64(100), *product.HighestBidderID)
	require.Equal(t, 1, product.BidCount)
	require.Equal(t, int64(1), countHistoryRows(t, db, 1))
}

func TestPlaceBid_SecondPriceLaw(t *testing.T) {
	service, db := setupService(t)
	seedProduct(t, db, productParams{productID: 1, sellerID: 50, startPrice: "10", stepPrice: "5", allowNewBidder: true})

	_, err := service.PlaceBid(1, 100, dec("100"))
	require.NoError(t, err)

	outcome, err := service.PlaceBid(1, 200, dec("150"))
	require.NoError(t, err)

	require.Equal(t, types.BidStatusWinning, outcome.Status)
	require.True(t, dec("105").Equal(outcome.VisiblePrice), "expected 105, got %s", outcome.VisiblePrice)
	require.Equal(t, int64(200), outcome.LeadingBidderID)
	require.Equal(t, 2, outcome.BidCount)
}

func TestPlaceBid_WinnerNeverPaysAboveOwnMax(t *testing.T) {
	service, db := setupService(t)
	seedProduct(t, db, productParams{productID: 1, sellerID: 50, startPrice: "10", stepPrice: "10", allowNewBidder: true})

	_, err := service.PlaceBid(1, 100, dec("100"))
	require.NoError(t, err)

	outcome, err := service.PlaceBid(1, 200, dec("102"))
	require.NoError(t, err)

	require.Equal(t, int64(200), outcome.LeadingBidderID)
	require.True(t, dec("102").Equal(outcome.VisiblePrice),
		"winner must never pay above their own maximum, got %s", outcome.VisiblePrice)
}

func TestPlaceBid_OutbidCallerSeesOutbidStatus(t *testing.T) {
	service, db := setupService(t)
	seedProduct(t, db, productParams{productID: 1, sellerID: 50, startPrice: "10", stepPrice: "5", allowNewBidder: true})

	_, err := service.PlaceBid(1, 100, dec("500"))
	require.NoError(t, err)

	outcome, err := service.PlaceBid(1, 200, dec("100"))
	require.NoError(t, err)

	require.Equal(t, types.BidStatusOutbid, outcome.Status)
	require.Equal(t, int64(100), outcome.LeadingBidderID)
	require.True(t, dec("105").Equal(outcome.VisiblePrice))
}

func TestPlaceBid_ValidationFailures(t *testing.T) {
	tests := []struct {
		name         string
		setup        func(t *testing.T, db *gorm.DB)
		productID    int64
		bidderID     int64
		amount       string
		expectedKind auctionerrors.Kind
		contains     string
	}{
		{
			name:         "unknown_product",
			setup:        func(t *testing.T, db *gorm.DB) {},
			productID:    99,
			bidderID:     100,
			amount:       "50",
			expectedKind: auctionerrors.KindNotFound,
		},
		{
			name: "inactive_product",
			setup: func(t *testing.T, db *gorm.DB) {
				seedProduct(t, db, productParams{productID: 1, sellerID: 50, startPrice: "10", stepPrice: "5",
					status: types.ProductStatusExpired, allowNewBidder: true})
			},
			productID:    1,
			bidderID:     100,
			amount:       "50",
			expectedKind: auctionerrors.KindInvalidState,
			contains:     "inactive",
		},
		{
			name: "new_bidder_without_rating_history",
			setup: func(t *testing.T, db *gorm.DB) {
				seedProduct(t, db, productParams{productID: 1, sellerID: 50, startPrice: "10", stepPrice: "5",
					allowNewBidder: false})
			},
			productID:    1,
			bidderID:     100,
			amount:       "50",
			expectedKind: auctionerrors.KindIneligible,
			contains:     "no rating history",
		},
		{
			name: "bidder_below_positive_ratio",
			setup: func(t *testing.T, db *gorm.DB) {
				seedProduct(t, db, productParams{productID: 1, sellerID: 50, startPrice: "10", stepPrice: "5",
					allowNewBidder: false})
				seedUser(t, db, 100, 1, 1)
			},
			productID:    1,
			bidderID:     100,
			amount:       "50",
			expectedKind: auctionerrors.KindIneligible,
			contains:     "50.0%",
		},
		{
			name: "first_bid_below_start_price",
			setup: func(t *testing.T, db *gorm.DB) {
				seedProduct(t, db, productParams{productID: 1, sellerID: 50, startPrice: "10", stepPrice: "5",
					allowNewBidder: true})
			},
			productID:    1,
			bidderID:     100,
			amount:       "9",
			expectedKind: auctionerrors.KindBidTooLow,
			contains:     "10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, db := setupService(t)
			tt.setup(t, db)

			_, err := service.PlaceBid(tt.productID, tt.bidderID, dec(tt.amount))
			require.Error(t, err)
			require.Equal(t, tt.expectedKind, auctionerrors.KindOf(err))
			if tt.contains != "" {
				require.Contains(t, err.Error(), tt.contains)
			}

			// Validation failures are pure rejections: no auto-bid row written
			var count int64
			require.NoError(t, db.Model(&types.AutoBid{}).
				Where("product_id = ? AND bidder_id = ?", tt.productID, tt.bidderID).
				Count(&count).Error)
			require.Zero(t, count)
		})
	}
}

func TestPlaceBid_BelowMinimumAfterLeaderExists(t *testing.T) {
	service, db := setupService(t)
	seedProduct(t, db, productParams{productID: 1, sellerID: 50, startPrice: "10", stepPrice: "5", allowNewBidder: true})

	_, err := service.PlaceBid(1, 100, dec("100"))
	require.NoError(t, err)

	// Leader at 10, minimum acceptable is 10 + 5
	_, err = service.PlaceBid(1, 200, dec("14"))
	require.Error(t, err)
	require.Equal(t, auctionerrors.KindBidTooLow, auctionerrors.KindOf(err))
	require.Contains(t, err.Error(), "15")
}

func TestPlaceBid_PriceMonotonicAcrossSequence(t *testing.T) {
	service, db := setupService(t)
	seedProduct(t, db, productParams{productID: 1, sellerID: 50, startPrice: "10", stepPrice: "5", allowNewBidder: true})

	bids := []struct {
		bidderID int64
		amount   string
	}{
		{100, "100"},
		{200, "150"},
		{300, "110"},
		{100, "120"},
		{400, "130"},
	}

	lastPrice := decimal.Zero
	for _, b := range bids {
		outcome, err := service.PlaceBid(1, b.bidderID, dec(b.amount))
		require.NoError(t, err)
		require.True(t, outcome.VisiblePrice.GreaterThanOrEqual(lastPrice),
			"price decreased from %s to %s", lastPrice, outcome.VisiblePrice)
		lastPrice = outcome.VisiblePrice

		product := getProduct(t, db, 1)
		require.True(t, product.CurrentPrice.Equal(outcome.VisiblePrice))
	}
}

func TestPlaceBid_IdempotentResubmission(t *testing.T) {
	service, db := setupService(t)
	seedProduct(t, db, productParams{productID: 1, sellerID: 50, startPrice: "10", stepPrice: "5", allowNewBidder: true})

	first, err := service.PlaceBid(1, 100, dec("100"))
	require.NoError(t, err)
	rowsAfterFirst := countHistoryRows(t, db, 1)

	second, err := service.PlaceBid(1, 100, dec("100"))
	require.NoError(t, err)

	require.Equal(t, first.Status, second.Status)
	require.True(t, first.VisiblePrice.Equal(second.VisiblePrice))
	require.Equal(t, first.LeadingBidderID, second.LeadingBidderID)
	require.Equal(t, first.BidCount, second.BidCount)
	require.Equal(t, rowsAfterFirst, countHistoryRows(t, db, 1),
		"a no-op resubmission must not append history")

	// Still exactly one auto-bid row for the bidder
	var count int64
	require.NoError(t, db.Model(&types.AutoBid{}).
		Where("product_id = ? AND bidder_id = ?", 1, 100).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestPlaceBid_RaisingOwnMaxKeepsRankPriority(t *testing.T) {
	service, db := setupService(t)
	seedProduct(t, db, productParams{productID: 1, sellerID: 50, startPrice: "10", stepPrice: "5", allowNewBidder: true})

	_, err := service.PlaceBid(1, 100, dec("100"))
	require.NoError(t, err)
	_, err = service.PlaceBid(1, 200, dec("150"))
	require.NoError(t, err)

	// Bidder 100 raises to exactly the leader's maximum. Their auto-bid row
	// was created first, so on equal maximums they rank higher and take the
	// lead at their full ceiling.
	outcome, err := service.PlaceBid(1, 100, dec("150"))
	require.NoError(t, err)
	require.Equal(t, types.BidStatusWinning, outcome.Status)
	require.Equal(t, int64(100), outcome.LeadingBidderID)
	require.True(t, dec("150").Equal(outcome.VisiblePrice))
}

func TestPlaceBid_BuyNowClosesAuction(t *testing.T) {
	service, db := setupService(t)
	seedProduct(t, db, productParams{productID: 1, sellerID: 50, startPrice: "10", stepPrice: "5",
		buyNowPrice: "200", allowNewBidder: true})

	outcome, err := service.PlaceBid(1, 100, dec("200"))
	require.NoError(t, err)

	require.Equal(t, types.BidStatusWinning, outcome.Status)
	require.True(t, dec("200").Equal(outcome.VisiblePrice))

	product := getProduct(t, db, 1)
	require.Equal(t, types.ProductStatusSold, product.Status)
	require.True(t, dec("200").Equal(product.CurrentPrice))

	_, err = service.PlaceBid(1, 200, dec("300"))
	require.Error(t, err)
	require.Equal(t, auctionerrors.KindInvalidState, auctionerrors.KindOf(err))
}

func TestPlaceBid_ConcurrentBiddersSerialize(t *testing.T) {
	service, db := setupService(t)
	seedProduct(t, db, productParams{productID: 1, sellerID: 50, startPrice: "10", stepPrice: "5", allowNewBidder: true})

	const bidders = 8
	var wg sync.WaitGroup
	errs := make([]error, bidders)

	for i := 0; i < bidders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			amount := decimal.NewFromInt(int64(1000 + 10*i))
			_, errs[i] = service.PlaceBid(1, int64(100+i), amount)
		}(i)
	}
	wg.Wait()

	// A bidder whose maximum fell below the rising visible price may be
	// rejected as too low depending on arrival order; nothing else may fail.
	for i, err := range errs {
		if err != nil {
			require.Equal(t, auctionerrors.KindBidTooLow, auctionerrors.KindOf(err),
				"bidder %d failed with unexpected error: %v", i, err)
		}
	}

	// The top bidder always clears validation
	require.NoError(t, errs[bidders-1])

	// No duplicate auto-bid rows per bidder
	var autoBids []types.AutoBid
	require.NoError(t, db.Where("product_id = ?", 1).Find(&autoBids).Error)
	seen := make(map[int64]bool)
	for _, ab := range autoBids {
		require.False(t, seen[ab.BidderID], "duplicate auto-bid row for bidder %d", ab.BidderID)
		seen[ab.BidderID] = true
	}

	// The final projection equals the pricing engine applied to the full
	// persisted auto-bid set: no lost updates.
	product := getProduct(t, db, 1)
	computed := pricing.Compute(autoBids, dec("10"), dec("5"))
	require.NotNil(t, computed.WinnerID)
	require.NotNil(t, product.HighestBidderID)
	require.Equal(t, *computed.WinnerID, *product.HighestBidderID)
	require.True(t, computed.Price.Equal(product.CurrentPrice),
		"projection price %s does not match recomputed %s", product.CurrentPrice, computed.Price)
	require.Equal(t, computed.ActiveBidders, product.BidCount)
	require.Equal(t, int64(100+bidders-1), *product.HighestBidderID)
}

func TestHighestBid(t *testing.T) {
	service, db := setupService(t)
	seedProduct(t, db, productParams{productID: 1, sellerID: 50, startPrice: "10", stepPrice: "5", allowNewBidder: true})
	seedUser(t, db, 100, 9, 1)

	view, err := service.HighestBid(1)
	require.NoError(t, err)
	require.Nil(t, view.HighestBidder)
	require.True(t, dec("10").Equal(view.CurrentPrice))

	_, err = service.PlaceBid(1, 100, dec("100"))
	require.NoError(t, err)

	view, err = service.HighestBid(1)
	require.NoError(t, err)
	require.NotNil(t, view.HighestBidder)
	require.Equal(t, int64(100), view.HighestBidder.ID)
	require.Equal(t, 9, view.HighestBidder.PositiveReviews)

	_, err = service.HighestBid(42)
	require.Error(t, err)
	require.Equal(t, auctionerrors.KindNotFound, auctionerrors.KindOf(err))
}

func TestBidHistory(t *testing.T) {
	service, db := setupService(t)
	seedProduct(t, db, productParams{productID: 1, sellerID: 50, startPrice: "10", stepPrice: "5", allowNewBidder: true})

	_, err := service.PlaceBid(1, 100, dec("100"))
	require.NoError(t, err)
	_, err = service.PlaceBid(1, 200, dec("150"))
	require.NoError(t, err)
	_, err = service.PlaceBid(1, 300, dec("160"))
	require.NoError(t, err)

	entries, pagination, err := service.BidHistory(1, 1, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, int64(3), pagination.TotalItems)

	// Newest first
	require.True(t, entries[0].Amount.GreaterThanOrEqual(entries[1].Amount))

	entries, _, err = service.BidHistory(1, 2, 2)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	_, _, err = service.BidHistory(42, 1, 10)
	require.Error(t, err)
	require.Equal(t, auctionerrors.KindNotFound, auctionerrors.KindOf(err))
}
