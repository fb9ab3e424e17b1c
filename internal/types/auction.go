package types

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product statuses
const (
	ProductStatusActive  = "ACTIVE"
	ProductStatusPending = "PENDING"
	ProductStatusSold    = "SOLD"
	ProductStatusExpired = "EXPIRED"
	ProductStatusRemoved = "REMOVED"
)

// Product is one sellable listing under auction. CurrentPrice, HighestBidderID
// and BidCount are a projection recomputed from the auto-bid ledger; they are
// written only by the placement and rejection flows.
type Product struct {
	gorm.Model      `json:"-"`
	ProductID       int64            `gorm:"uniqueIndex" json:"product_id"`
	SellerID        int64            `gorm:"index" json:"seller_id"`
	Name            string           `json:"name"`
	Status          string           `json:"status"` // ACTIVE, PENDING, SOLD, EXPIRED, REMOVED
	StartPrice      decimal.Decimal  `gorm:"type:decimal(20,2)" json:"start_price"`
	StepPrice       decimal.Decimal  `gorm:"type:decimal(20,2)" json:"step_price"`
	BuyNowPrice     *decimal.Decimal `gorm:"type:decimal(20,2)" json:"buy_now_price,omitempty"`
	CurrentPrice    decimal.Decimal  `gorm:"type:decimal(20,2)" json:"current_price"`
	HighestBidderID *int64           `json:"highest_bidder_id,omitempty"`
	BidCount        int              `json:"bid_count"`
	AllowNewBidder  bool             `json:"allow_new_bidder"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// Biddable reports whether the product accepts new bids.
func (p *Product) Biddable() bool {
	return p.Status == ProductStatusActive
}

// AutoBid is one bidder's standing maximum for a product. At most one row per
// (product, bidder); resubmission overwrites MaxAmount but keeps the original
// CreatedAt, which anchors the bidder's rank on equal maximums.
type AutoBid struct {
	gorm.Model `json:"-"`
	ProductID  int64           `gorm:"uniqueIndex:idx_auto_bids_product_bidder" json:"product_id"`
	BidderID   int64           `gorm:"uniqueIndex:idx_auto_bids_product_bidder" json:"bidder_id"`
	MaxAmount  decimal.Decimal `gorm:"type:decimal(20,2)" json:"max_amount"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Bid is an immutable history entry recording a visible price change. Amount is
// the public price at that instant, not the bidder's maximum. Rows are removed
// only when the rejection flow disqualifies the bidder who produced them.
type Bid struct {
	gorm.Model `json:"-"`
	ProductID  int64           `gorm:"index" json:"product_id"`
	BidderID   int64           `gorm:"index" json:"bidder_id"`
	Amount     decimal.Decimal `gorm:"type:decimal(20,2)" json:"amount"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Rejection is the append-only audit record of a seller disqualifying a bidder.
type Rejection struct {
	gorm.Model  `json:"-"`
	RejectionID string    `gorm:"uniqueIndex" json:"rejection_id"`
	ProductID   int64     `gorm:"index" json:"product_id"`
	BidderID    int64     `json:"bidder_id"`
	SellerID    int64     `json:"seller_id"`
	Reason      string    `json:"reason"`
	CreatedAt   time.Time `json:"created_at"`
}

// User carries the rating fields the eligibility check reads.
type User struct {
	gorm.Model      `json:"-"`
	UserID          int64  `gorm:"uniqueIndex" json:"user_id"`
	FullName        string `json:"full_name"`
	PositiveReviews int    `json:"positive_reviews"`
	NegativeReviews int    `json:"negative_reviews"`
}
