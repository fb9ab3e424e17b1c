package bidding

import (
	"fmt"
	"time"

	"github.com/openbid/auction-api/internal/auctionerrors"
	"github.com/openbid/auction-api/internal/notify"
	"github.com/openbid/auction-api/internal/pricing"
	"github.com/openbid/auction-api/internal/types"
	"github.com/openbid/auction-api/internal/users"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	// Concurrent bids on one product are expected, so storage contention is
	// retried a few times before the caller sees a failure.
	maxPlacementAttempts = 3
	placementBackoff     = 25 * time.Millisecond

	// Minimum share of positive reviews required on auctions that do not
	// accept new bidders.
	minPositiveRatio = 0.8
)

// Service runs the proxy-bidding workflows: bid placement against the
// auto-bid ledger and the public read views over the bid history.
type Service struct {
	db         *Database
	users      *users.Service
	dispatcher *notify.Dispatcher
}

// NewService creates a bidding service. dispatcher may be nil when no
// notification fan-out is wanted (tests, simulations).
func NewService(gormDB *gorm.DB, userService *users.Service, dispatcher *notify.Dispatcher) *Service {
	return &Service{
		db:         NewDatabase(gormDB),
		users:      userService,
		dispatcher: dispatcher,
	}
}

// PlaceBid records bidderID's maximum for a product and recomputes the public
// auction state. Validation failures are returned as-is; transactional
// failures are retried with backoff before surfacing as internal errors.
func (s *Service) PlaceBid(productID, bidderID int64, maxAmount decimal.Decimal) (*types.PlacementOutcome, error) {
	logger := log.With().
		Int64("product_id", productID).
		Int64("bidder_id", bidderID).
		Str("max_amount", maxAmount.String()).
		Str("service", "bidding").
		Logger()

	if err := s.validatePlacement(productID, bidderID, maxAmount); err != nil {
		return nil, err
	}

	var outcome *types.PlacementOutcome
	var event *notify.BidEvent
	var err error

	for attempt := 1; attempt <= maxPlacementAttempts; attempt++ {
		outcome, event, err = s.placeOnce(productID, bidderID, maxAmount)
		if err == nil || auctionerrors.IsValidation(err) {
			break
		}

		logger.Warn().Err(err).Int("attempt", attempt).Msg("bid placement transaction failed")
		if attempt < maxPlacementAttempts {
			time.Sleep(placementBackoff << uint(attempt-1))
		}
	}
	if err != nil {
		if auctionerrors.IsValidation(err) {
			return nil, err
		}
		logger.Error().Err(err).Msg("bid placement exhausted retries")
		return nil, auctionerrors.Internal(err)
	}

	logger.Info().
		Str("status", outcome.Status).
		Str("visible_price", outcome.VisiblePrice.String()).
		Int64("leading_bidder_id", outcome.LeadingBidderID).
		Int("bid_count", outcome.BidCount).
		Msg("bid placed")

	if event != nil && s.dispatcher != nil {
		s.dispatcher.Publish(*event)
	}

	return outcome, nil
}

// validatePlacement runs the pre-mutation precondition chain. Each failure is
// a pure rejection: nothing has been written yet.
func (s *Service) validatePlacement(productID, bidderID int64, maxAmount decimal.Decimal) error {
	product, err := s.db.GetProduct(productID)
	if err != nil {
		return auctionerrors.Internal(err)
	}
	if product == nil {
		return auctionerrors.NotFound("product %d not found", productID)
	}
	if !product.Biddable() {
		return auctionerrors.InvalidState("cannot bid on inactive auction")
	}

	if !product.AllowNewBidder {
		counts, err := s.users.GetReviewCounts(bidderID)
		if err != nil {
			return auctionerrors.Internal(err)
		}
		if counts.Total() == 0 {
			return auctionerrors.Ineligible("bidder has no rating history")
		}
		if ratio := counts.PositiveRatio(); ratio < minPositiveRatio {
			return auctionerrors.Ineligible(
				"positive review ratio %.1f%% is below the required 80%%", ratio*100)
		}
	}

	minAcceptable := minAcceptableBid(product)
	if maxAmount.LessThan(minAcceptable) {
		return auctionerrors.BidTooLow("bid must be at least %s", minAcceptable)
	}

	return nil
}

// minAcceptableBid is the floor for a new maximum: the start price when nobody
// leads, otherwise one step above the visible price.
func minAcceptableBid(product *types.Product) decimal.Decimal {
	if product.HighestBidderID == nil {
		return product.StartPrice
	}
	return product.CurrentPrice.Add(product.StepPrice)
}

// placeOnce executes one transactional placement attempt: upsert the maximum,
// re-read the active set under the product row lock, recompute, and persist
// ledger and projection together.
func (s *Service) placeOnce(productID, bidderID int64, maxAmount decimal.Decimal) (*types.PlacementOutcome, *notify.BidEvent, error) {
	var outcome *types.PlacementOutcome
	var event *notify.BidEvent

	err := s.db.Transaction(func(tx *Database) error {
		product, err := tx.GetProductForUpdate(productID)
		if err != nil {
			return err
		}
		if product == nil {
			return auctionerrors.NotFound("product %d not found", productID)
		}
		// Re-check under the lock; a concurrent buy-now may have closed the
		// auction between validation and here.
		if !product.Biddable() {
			return auctionerrors.InvalidState("cannot bid on inactive auction")
		}

		prevLeader := product.HighestBidderID

		if product.BuyNowPrice != nil && maxAmount.GreaterThanOrEqual(*product.BuyNowPrice) {
			outcome, event, err = buyNow(tx, product, bidderID, prevLeader)
			return err
		}

		if err := tx.UpsertAutoBid(productID, bidderID, maxAmount); err != nil {
			return err
		}

		autoBids, err := tx.GetActiveAutoBids(productID)
		if err != nil {
			return err
		}

		computed := pricing.Compute(autoBids, product.StartPrice, product.StepPrice)
		if computed.WinnerID == nil {
			return fmt.Errorf("pricing produced no winner for product %d with %d auto-bids", productID, len(autoBids))
		}

		// A placement never lowers the public price: a new, lower maximum
		// must not re-baseline the auction downward.
		newPrice := computed.Price
		if newPrice.LessThan(product.CurrentPrice) {
			newPrice = product.CurrentPrice
		}

		latest, err := tx.GetLatestBid(productID)
		if err != nil {
			return err
		}
		changed := latest == nil ||
			!latest.Amount.Equal(newPrice) ||
			latest.BidderID != *computed.WinnerID

		if changed {
			if err := tx.CreateBid(&types.Bid{
				ProductID: productID,
				BidderID:  *computed.WinnerID,
				Amount:    newPrice,
			}); err != nil {
				return err
			}
		}
		// The projection also follows when only the active-bidder count moved,
		// so bid_count always matches the auto-bid ledger.
		if changed || computed.ActiveBidders != product.BidCount {
			if err := tx.UpdateProjection(productID, newPrice, computed.WinnerID, computed.ActiveBidders); err != nil {
				return err
			}
		}

		status := types.BidStatusOutbid
		if *computed.WinnerID == bidderID {
			status = types.BidStatusWinning
		}
		outcome = &types.PlacementOutcome{
			Status:          status,
			VisiblePrice:    newPrice,
			LeadingBidderID: *computed.WinnerID,
			BidCount:        computed.ActiveBidders,
		}
		if changed {
			event = &notify.BidEvent{
				ProductID:         productID,
				NewLeadingBidder:  computed.WinnerID,
				PrevLeadingBidder: prevLeader,
				VisiblePrice:      newPrice,
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return outcome, event, nil
}

// buyNow closes the auction at the buy-now price for the bidder. Runs inside
// the placement transaction with the product row already locked.
func buyNow(tx *Database, product *types.Product, bidderID int64, prevLeader *int64) (*types.PlacementOutcome, *notify.BidEvent, error) {
	price := *product.BuyNowPrice

	if err := tx.UpsertAutoBid(product.ProductID, bidderID, price); err != nil {
		return nil, nil, err
	}
	autoBids, err := tx.GetActiveAutoBids(product.ProductID)
	if err != nil {
		return nil, nil, err
	}
	if err := tx.CreateBid(&types.Bid{
		ProductID: product.ProductID,
		BidderID:  bidderID,
		Amount:    price,
	}); err != nil {
		return nil, nil, err
	}
	if err := tx.UpdateProjection(product.ProductID, price, &bidderID, len(autoBids)); err != nil {
		return nil, nil, err
	}
	if err := tx.MarkSold(product.ProductID); err != nil {
		return nil, nil, err
	}

	outcome := &types.PlacementOutcome{
		Status:          types.BidStatusWinning,
		VisiblePrice:    price,
		LeadingBidderID: bidderID,
		BidCount:        len(autoBids),
	}
	event := &notify.BidEvent{
		ProductID:         product.ProductID,
		NewLeadingBidder:  &bidderID,
		PrevLeadingBidder: prevLeader,
		VisiblePrice:      price,
	}
	return outcome, event, nil
}

// HighestBid returns the public view of a product's current price and leading
// bidder, including the leader's review counts.
func (s *Service) HighestBid(productID int64) (*types.HighestBid, error) {
	product, err := s.db.GetProduct(productID)
	if err != nil {
		return nil, auctionerrors.Internal(err)
	}
	if product == nil {
		return nil, auctionerrors.NotFound("product %d not found", productID)
	}

	view := &types.HighestBid{CurrentPrice: product.CurrentPrice}
	if product.HighestBidderID != nil {
		summary, err := s.users.GetSummary(*product.HighestBidderID)
		if err != nil {
			return nil, auctionerrors.Internal(err)
		}
		view.HighestBidder = summary
	}
	return view, nil
}

// BidHistory returns one page of the product's bid history, newest first.
func (s *Service) BidHistory(productID int64, page, limit int) ([]types.BidHistoryEntry, types.Pagination, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	product, err := s.db.GetProduct(productID)
	if err != nil {
		return nil, types.Pagination{}, auctionerrors.Internal(err)
	}
	if product == nil {
		return nil, types.Pagination{}, auctionerrors.NotFound("product %d not found", productID)
	}

	bids, total, err := s.db.ListBids(productID, page, limit)
	if err != nil {
		return nil, types.Pagination{}, auctionerrors.Internal(err)
	}

	entries := make([]types.BidHistoryEntry, 0, len(bids))
	for _, bid := range bids {
		entries = append(entries, types.BidHistoryEntry{
			BidderID:  bid.BidderID,
			Amount:    bid.Amount,
			CreatedAt: bid.CreatedAt,
		})
	}
	return entries, types.Pagination{Page: page, Limit: limit, TotalItems: total}, nil
}
