package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Caller outcome statuses for a placed bid
const (
	BidStatusWinning = "winning"
	BidStatusOutbid  = "outbid"
)

// PlacementOutcome is what a bidder gets back from placing a bid.
type PlacementOutcome struct {
	Status          string          `json:"status"` // winning or outbid
	VisiblePrice    decimal.Decimal `json:"visible_price"`
	LeadingBidderID int64           `json:"leading_bidder_id"`
	BidCount        int             `json:"bid_count"`
}

// RecomputedState is the auction state after a bidder rejection.
type RecomputedState struct {
	LeadingBidderID *int64          `json:"leading_bidder_id"`
	VisiblePrice    decimal.Decimal `json:"visible_price"`
	BidCount        int             `json:"bid_count"`
}

// HighestBid is the public read view of a product's leading bid, including the
// leader's rating counts.
type HighestBid struct {
	CurrentPrice  decimal.Decimal `json:"current_price"`
	HighestBidder *BidderSummary  `json:"highest_bidder,omitempty"`
}

// BidderSummary is the subset of user fields exposed on bid views.
type BidderSummary struct {
	ID              int64  `json:"id"`
	FullName        string `json:"full_name"`
	PositiveReviews int    `json:"positive_reviews"`
	NegativeReviews int    `json:"negative_reviews"`
}

// BidHistoryEntry is one row of the paginated public bid history.
type BidHistoryEntry struct {
	BidderID  int64           `json:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

// Pagination describes one page of a listed collection.
type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalItems int64 `json:"total_items"`
}
