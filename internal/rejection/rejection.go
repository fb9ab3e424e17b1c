package rejection

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/openbid/auction-api/internal/auctionerrors"
	"github.com/openbid/auction-api/internal/auth"
	"github.com/openbid/auction-api/internal/notify"
	"github.com/openbid/auction-api/internal/pricing"
	"github.com/openbid/auction-api/internal/types"
	"github.com/openbid/auction-api/pkg/response"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Service runs the bidder rejection workflow. This is the one flow allowed to
// rewrite the bid ledger retroactively and to lower the visible price: the
// disqualified bidder's maximum and history rows are removed and the auction
// state is recomputed from whoever remains.
type Service struct {
	db         *Database
	dispatcher *notify.Dispatcher
}

// NewService creates a rejection service. dispatcher may be nil.
func NewService(gormDB *gorm.DB, dispatcher *notify.Dispatcher) *Service {
	return &Service{
		db:         NewDatabase(gormDB),
		dispatcher: dispatcher,
	}
}

// RejectBidder disqualifies bidderID from the product's auction on behalf of
// its seller. Only the owning seller may reject; the whole purge-and-recompute
// sequence runs in one transaction.
func (s *Service) RejectBidder(sellerID, productID, bidderID int64, reason string) (*types.RecomputedState, error) {
	logger := log.With().
		Int64("product_id", productID).
		Int64("bidder_id", bidderID).
		Int64("seller_id", sellerID).
		Str("service", "rejection").
		Logger()

	logger.Info().Msg("starting bidder rejection")

	product, err := s.db.GetProduct(productID)
	if err != nil {
		return nil, auctionerrors.Internal(err)
	}
	if product == nil {
		return nil, auctionerrors.NotFound("product %d not found", productID)
	}
	if product.SellerID != sellerID {
		return nil, auctionerrors.Forbidden("only the auction's seller may reject a bidder")
	}

	var state *types.RecomputedState
	var event *notify.BidEvent

	err = s.db.Transaction(func(tx *Database) error {
		product, err := tx.GetProductForUpdate(productID)
		if err != nil {
			return err
		}
		if product == nil {
			return auctionerrors.NotFound("product %d not found", productID)
		}

		prevLeader := product.HighestBidderID

		if err := tx.CreateRejection(&types.Rejection{
			RejectionID: "REJ_" + uuid.New().String(),
			ProductID:   productID,
			BidderID:    bidderID,
			SellerID:    sellerID,
			Reason:      reason,
		}); err != nil {
			return err
		}
		if err := tx.DeleteAutoBid(productID, bidderID); err != nil {
			return err
		}
		if err := tx.DeleteBids(productID, bidderID); err != nil {
			return err
		}

		autoBids, err := tx.GetActiveAutoBids(productID)
		if err != nil {
			return err
		}
		computed := pricing.Compute(autoBids, product.StartPrice, product.StepPrice)

		// Unconditional projection write, no monotonicity clamp: the bidder
		// who justified the higher price is gone.
		if err := tx.UpdateProjection(productID, computed.Price, computed.WinnerID, computed.ActiveBidders); err != nil {
			return err
		}

		// Re-baseline the ledger so it stays an accurate record going
		// forward. No bidders left means no new row.
		if computed.WinnerID != nil {
			if err := tx.CreateBid(&types.Bid{
				ProductID: productID,
				BidderID:  *computed.WinnerID,
				Amount:    computed.Price,
			}); err != nil {
				return err
			}
		}

		state = &types.RecomputedState{
			LeadingBidderID: computed.WinnerID,
			VisiblePrice:    computed.Price,
			BidCount:        computed.ActiveBidders,
		}
		event = &notify.BidEvent{
			ProductID:         productID,
			NewLeadingBidder:  computed.WinnerID,
			PrevLeadingBidder: prevLeader,
			VisiblePrice:      computed.Price,
		}
		return nil
	})
	if err != nil {
		if auctionerrors.IsValidation(err) {
			return nil, err
		}
		logger.Error().Err(err).Msg("bidder rejection transaction failed")
		return nil, auctionerrors.Internal(err)
	}

	logger.Info().
		Str("visible_price", state.VisiblePrice.String()).
		Int("bid_count", state.BidCount).
		Msg("bidder rejected and auction state recomputed")

	if s.dispatcher != nil {
		s.dispatcher.Publish(*event)
	}

	return state, nil
}

// Rejections lists the audit records for a product, newest first.
func (s *Service) Rejections(productID int64) ([]types.Rejection, error) {
	product, err := s.db.GetProduct(productID)
	if err != nil {
		return nil, auctionerrors.Internal(err)
	}
	if product == nil {
		return nil, auctionerrors.NotFound("product %d not found", productID)
	}
	rejections, err := s.db.GetRejections(productID)
	if err != nil {
		return nil, auctionerrors.Internal(err)
	}
	return rejections, nil
}

// GinHandlers contains HTTP handlers for seller moderation endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for moderation endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// RejectBidderRequest carries the seller's stated reason for the rejection.
type RejectBidderRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// RejectBidderHandler handles POST requests to disqualify a bidder
// Requires a valid JWT token; the seller is taken from the token claims
// URL parameters: product_id, bidder_id
func (h *GinHandlers) RejectBidderHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, exists := c.Get("claims")
		if !exists {
			response.Unauthorized(c, "Missing authentication claims")
			return
		}
		sellerID := auth.GetUserID(claims)
		if sellerID == 0 {
			response.Unauthorized(c, "Invalid user ID in token")
			return
		}

		productID, err := strconv.ParseInt(c.Param("product_id"), 10, 64)
		if err != nil {
			response.BadRequest(c, "Invalid product ID")
			return
		}
		bidderID, err := strconv.ParseInt(c.Param("bidder_id"), 10, 64)
		if err != nil {
			response.BadRequest(c, "Invalid bidder ID")
			return
		}

		var req RejectBidderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		state, err := h.service.RejectBidder(sellerID, productID, bidderID, req.Reason)
		response.Handle(c, state, err)
	}
}

// ListRejectionsHandler handles GET requests for a product's rejection audit log
// URL parameter: product_id
func (h *GinHandlers) ListRejectionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		productID, err := strconv.ParseInt(c.Param("product_id"), 10, 64)
		if err != nil {
			response.BadRequest(c, "Invalid product ID")
			return
		}

		rejections, err := h.service.Rejections(productID)
		response.Handle(c, rejections, err)
	}
}
