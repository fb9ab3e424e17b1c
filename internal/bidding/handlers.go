package bidding

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/openbid/auction-api/internal/auth"
	"github.com/openbid/auction-api/pkg/response"
	"github.com/shopspring/decimal"
)

// GinHandlers contains HTTP handlers for bidding endpoints
type GinHandlers struct {
	service *Service
}

// NewGinHandlers creates a new set of HTTP handlers for bidding endpoints
func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// PlaceBidRequest is the body of a place-bid call. Amount is the bidder's
// maximum willing price, not the visible price.
type PlaceBidRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

// PlaceBidHandler handles POST requests to place a bid on a product
// Requires a valid JWT token; the bidder is taken from the token claims
// URL parameter: product_id
func (h *GinHandlers) PlaceBidHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, exists := c.Get("claims")
		if !exists {
			response.Unauthorized(c, "Missing authentication claims")
			return
		}
		bidderID := auth.GetUserID(claims)
		if bidderID == 0 {
			response.Unauthorized(c, "Invalid user ID in token")
			return
		}

		productID, err := strconv.ParseInt(c.Param("product_id"), 10, 64)
		if err != nil {
			response.BadRequest(c, "Invalid product ID")
			return
		}

		var req PlaceBidRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
		if !req.Amount.IsPositive() {
			response.BadRequest(c, "Bid amount must be positive")
			return
		}

		outcome, err := h.service.PlaceBid(productID, bidderID, req.Amount)
		response.Handle(c, outcome, err)
	}
}

// HighestBidHandler handles GET requests for a product's leading bid
// URL parameter: product_id
func (h *GinHandlers) HighestBidHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		productID, err := strconv.ParseInt(c.Param("product_id"), 10, 64)
		if err != nil {
			response.BadRequest(c, "Invalid product ID")
			return
		}

		view, err := h.service.HighestBid(productID)
		response.Handle(c, view, err)
	}
}

// BidHistoryHandler handles GET requests for a product's paginated bid history
// URL parameter: product_id; query parameters: page, limit
func (h *GinHandlers) BidHistoryHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		productID, err := strconv.ParseInt(c.Param("product_id"), 10, 64)
		if err != nil {
			response.BadRequest(c, "Invalid product ID")
			return
		}

		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

		entries, pagination, err := h.service.BidHistory(productID, page, limit)
		if err != nil {
			response.Handle(c, nil, err)
			return
		}
		response.Success(c, gin.H{
			"bids":       entries,
			"pagination": pagination,
		})
	}
}
