package users

import (
	"github.com/openbid/auction-api/internal/types"
	"gorm.io/gorm"
)

// ReviewCounts is the rating summary the bid eligibility policy reads.
type ReviewCounts struct {
	Positive int
	Negative int
}

// Total returns the number of reviews the user has received.
func (r ReviewCounts) Total() int {
	return r.Positive + r.Negative
}

// PositiveRatio returns the share of positive reviews in [0, 1]. Zero reviews
// yields zero; callers distinguish that case via Total.
func (r ReviewCounts) PositiveRatio() float64 {
	total := r.Total()
	if total == 0 {
		return 0
	}
	return float64(r.Positive) / float64(total)
}

// Service exposes the user/rating store to the auction core.
type Service struct {
	db *Database
}

func NewService(gormDB *gorm.DB) *Service {
	return &Service{
		db: NewDatabase(gormDB),
	}
}

// GetReviewCounts returns the positive and negative review counts for a user.
// An unknown user reports zero reviews, matching the behaviour of a bidder
// with no rating history.
func (s *Service) GetReviewCounts(userID int64) (ReviewCounts, error) {
	user, err := s.db.GetUser(userID)
	if err != nil {
		return ReviewCounts{}, err
	}
	if user == nil {
		return ReviewCounts{}, nil
	}
	return ReviewCounts{
		Positive: user.PositiveReviews,
		Negative: user.NegativeReviews,
	}, nil
}

// GetSummary returns the public view of a user for bid listings, or nil if
// the user does not exist.
func (s *Service) GetSummary(userID int64) (*types.BidderSummary, error) {
	user, err := s.db.GetUser(userID)
	if err != nil || user == nil {
		return nil, err
	}
	return &types.BidderSummary{
		ID:              user.UserID,
		FullName:        user.FullName,
		PositiveReviews: user.PositiveReviews,
		NegativeReviews: user.NegativeReviews,
	}, nil
}
